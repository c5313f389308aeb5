package model

import (
	"time"
)

type Status string

const (
	StatusHome Status = "home"
	StatusLent Status = "lent"
)

const (
	DateLayout     = "2006-01-02"
	MaxCoverURLLen = 500
)

type Book struct {
	ID            int64     `json:"id" db:"id"`
	Title         string    `json:"title" db:"title"`
	Author        string    `json:"author" db:"author"`
	Status        Status    `json:"status" db:"status"`
	BorrowedBy    string    `json:"borrowedBy" db:"borrowed_by"`
	BorrowedSince string    `json:"borrowedSince" db:"borrowed_since"`
	CoverURL      string    `json:"coverUrl" db:"cover_url"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time `json:"updatedAt" db:"updated_at"`
}

// Record is the sanitized, storable part of a Book.
type Record struct {
	Title         string
	Author        string
	Status        Status
	BorrowedBy    string
	BorrowedSince string
	CoverURL      string
}

func (b Book) Record() Record {
	return Record{
		Title:         b.Title,
		Author:        b.Author,
		Status:        b.Status,
		BorrowedBy:    b.BorrowedBy,
		BorrowedSince: b.BorrowedSince,
		CoverURL:      b.CoverURL,
	}
}

type ListFilter struct {
	// Query is matched as a case-insensitive substring of title, author and borrower.
	Query  string `query:"q"`
	Status Status `query:"status" validate:"omitempty,oneof=home lent"`
}

type EventType string

const (
	EventCreated  EventType = "created"
	EventUpdated  EventType = "updated"
	EventLent     EventType = "lent"
	EventReturned EventType = "returned"
	EventDeleted  EventType = "deleted"
)

// BookEvent is an entry of the lending journal.
type BookEvent struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	BookID     int64     `json:"bookId"`
	Book       *Book     `json:"book,omitempty"`
	Previous   *Book     `json:"previous,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}
