package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Astemirdum/bookshelf/bookshelf/internal/errs"
)

// Text is a loosely typed JSON value read as a string.
// Numbers and booleans keep their literal form, null leaves it unset.
type Text struct {
	Value string
	Valid bool
}

func NewText(s string) Text {
	return Text{Value: s, Valid: true}
}

func (t *Text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*t = Text{}
		return nil
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = NewText(s)
		return nil
	case b[0] == '{' || b[0] == '[':
		return fmt.Errorf("expected a text value, got %s", string(b[:1]))
	}
	*t = NewText(string(b))
	return nil
}

func (t Text) MarshalJSON() ([]byte, error) {
	if !t.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(t.Value)
}

func (t Text) or(other Text) Text {
	if t.Valid {
		return t
	}
	return other
}

func (t Text) trimmed() string {
	return strings.TrimSpace(t.Value)
}

// BookInput is a create or update request body.
// Borrower and cover fields are accepted in both camelCase and snake_case.
type BookInput struct {
	Title              Text `json:"title"`
	Author             Text `json:"author"`
	Status             Text `json:"status"`
	BorrowedBy         Text `json:"borrowedBy"`
	BorrowedBySnake    Text `json:"borrowed_by"`
	BorrowedSince      Text `json:"borrowedSince"`
	BorrowedSinceSnake Text `json:"borrowed_since"`
	CoverURL           Text `json:"coverUrl"`
	CoverURLSnake      Text `json:"cover_url"`
}

// Normalize folds the snake_case aliases into the camelCase fields.
func (in BookInput) Normalize() BookInput {
	return BookInput{
		Title:         in.Title,
		Author:        in.Author,
		Status:        in.Status,
		BorrowedBy:    in.BorrowedBy.or(in.BorrowedBySnake),
		BorrowedSince: in.BorrowedSince.or(in.BorrowedSinceSnake),
		CoverURL:      in.CoverURL.or(in.CoverURLSnake),
	}
}

// InputFromBook returns an input carrying every field of b.
func InputFromBook(b Book) BookInput {
	return BookInput{
		Title:         NewText(b.Title),
		Author:        NewText(b.Author),
		Status:        NewText(string(b.Status)),
		BorrowedBy:    NewText(b.BorrowedBy),
		BorrowedSince: NewText(b.BorrowedSince),
		CoverURL:      NewText(b.CoverURL),
	}
}

// Merge overlays the fields present in patch onto in. Both sides are normalized first.
func (in BookInput) Merge(patch BookInput) BookInput {
	base, p := in.Normalize(), patch.Normalize()
	return BookInput{
		Title:         p.Title.or(base.Title),
		Author:        p.Author.or(base.Author),
		Status:        p.Status.or(base.Status),
		BorrowedBy:    p.BorrowedBy.or(base.BorrowedBy),
		BorrowedSince: p.BorrowedSince.or(base.BorrowedSince),
		CoverURL:      p.CoverURL.or(base.CoverURL),
	}
}

// Sanitize validates the input and returns its canonical record.
// now is used for the default borrowedSince of a lent book.
func (in BookInput) Sanitize(now time.Time) (Record, error) {
	in = in.Normalize()

	rec := Record{
		Title:         in.Title.trimmed(),
		Author:        in.Author.trimmed(),
		Status:        StatusHome,
		BorrowedBy:    in.BorrowedBy.trimmed(),
		BorrowedSince: in.BorrowedSince.trimmed(),
		CoverURL:      in.CoverURL.trimmed(),
	}
	if in.Status.Value == string(StatusLent) {
		rec.Status = StatusLent
	}

	if rec.Title == "" {
		return Record{}, errs.NewValidationError("title", "title is required")
	}
	if rec.Author == "" {
		return Record{}, errs.NewValidationError("author", "author is required")
	}
	if utf8.RuneCountInString(rec.CoverURL) > MaxCoverURLLen {
		return Record{}, errs.NewValidationError("coverUrl",
			fmt.Sprintf("coverUrl is too long (max %d characters)", MaxCoverURLLen))
	}

	switch rec.Status {
	case StatusHome:
		rec.BorrowedBy = ""
		rec.BorrowedSince = ""
	case StatusLent:
		if rec.BorrowedBy == "" {
			return Record{}, errs.NewValidationError("borrowedBy", "borrowedBy is required when status is lent")
		}
		if rec.BorrowedSince == "" {
			rec.BorrowedSince = now.UTC().Format(DateLayout)
		}
	}
	return rec, nil
}
