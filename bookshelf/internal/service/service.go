package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/bookshelf/bookshelf/internal/errs"
	"github.com/Astemirdum/bookshelf/bookshelf/internal/model"
	bookRepo "github.com/Astemirdum/bookshelf/bookshelf/internal/repository"
)

//go:generate go run github.com/golang/mock/mockgen -source=service.go -destination=mocks/mock.go

// Publisher appends events to the lending journal.
type Publisher interface {
	Publish(ctx context.Context, event model.BookEvent) error
}

type Service struct {
	log       *zap.Logger
	repo      bookRepo.Repository
	publisher Publisher
	now       func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(repo bookRepo.Repository, publisher Publisher, log *zap.Logger, opts ...Option) *Service {
	s := &Service{
		log:       log.Named("service"),
		repo:      repo,
		publisher: publisher,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) ListBooks(ctx context.Context, filter model.ListFilter) ([]model.Book, error) {
	books, err := s.repo.ListBooks(ctx, filter)
	if err != nil {
		return nil, err
	}
	if books == nil {
		books = []model.Book{}
	}
	return books, nil
}

func (s *Service) GetBook(ctx context.Context, id int64) (model.Book, error) {
	return s.repo.GetBook(ctx, id)
}

func (s *Service) CreateBook(ctx context.Context, input model.BookInput) (model.Book, error) {
	ts := s.now().UTC()
	rec, err := input.Sanitize(ts)
	if err != nil {
		return model.Book{}, err
	}
	book, err := s.repo.CreateBook(ctx, rec, ts)
	if err != nil {
		return model.Book{}, err
	}
	s.publish(ctx, model.EventCreated, book.ID, &book, nil)
	return book, nil
}

// UpdateBook overlays input onto the stored book and re-validates the result.
// Saving a book as home drops its borrower, the previous state goes to the journal.
func (s *Service) UpdateBook(ctx context.Context, id int64, input model.BookInput) (model.Book, error) {
	existing, err := s.repo.GetBook(ctx, id)
	if err != nil {
		return model.Book{}, err
	}

	ts := s.now().UTC()
	rec, err := model.InputFromBook(existing).Merge(input).Sanitize(ts)
	if err != nil {
		return model.Book{}, err
	}
	book, err := s.repo.UpdateBook(ctx, id, rec, ts)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			s.log.Debug("book deleted during update", zap.Int64("id", id))
		}
		return model.Book{}, err
	}
	s.publish(ctx, updateEventType(existing, book), book.ID, &book, &existing)
	return book, nil
}

func (s *Service) DeleteBook(ctx context.Context, id int64) (bool, error) {
	ok, err := s.repo.DeleteBook(ctx, id)
	if err != nil {
		return false, err
	}
	if ok {
		s.publish(ctx, model.EventDeleted, id, nil, nil)
	}
	return ok, nil
}

func updateEventType(before, after model.Book) model.EventType {
	switch {
	case before.Status != model.StatusLent && after.Status == model.StatusLent:
		return model.EventLent
	case before.Status == model.StatusLent && after.Status != model.StatusLent:
		return model.EventReturned
	}
	return model.EventUpdated
}

func (s *Service) publish(ctx context.Context, typ model.EventType, id int64, book, previous *model.Book) {
	event := model.BookEvent{
		ID:         uuid.NewString(),
		Type:       typ,
		BookID:     id,
		Book:       book,
		Previous:   previous,
		OccurredAt: s.now().UTC(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.Warn("journal publish", zap.String("type", string(typ)), zap.Int64("id", id), zap.Error(err))
	}
}
