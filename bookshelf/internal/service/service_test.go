package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Astemirdum/bookshelf/bookshelf/internal/errs"
	"github.com/Astemirdum/bookshelf/bookshelf/internal/model"
	repo_mocks "github.com/Astemirdum/bookshelf/bookshelf/internal/repository/mocks"
	"github.com/Astemirdum/bookshelf/bookshelf/internal/service"
	service_mocks "github.com/Astemirdum/bookshelf/bookshelf/internal/service/mocks"
)

var (
	ctx = context.Background()
	now = time.Date(2024, time.March, 9, 21, 30, 0, 0, time.UTC)
)

type fixture struct {
	repo *repo_mocks.MockRepository
	pub  *service_mocks.MockPublisher
	svc  *service.Service
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	c := gomock.NewController(t)
	repo := repo_mocks.NewMockRepository(c)
	pub := service_mocks.NewMockPublisher(c)
	svc := service.NewService(repo, pub, zap.NewExample().Named("test"),
		service.WithClock(func() time.Time { return now }))
	return fixture{repo: repo, pub: pub, svc: svc}
}

func (f fixture) expectEvent(t *testing.T, typ model.EventType, check func(model.BookEvent)) {
	f.pub.EXPECT().Publish(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, e model.BookEvent) error {
			require.Equal(t, typ, e.Type)
			require.NotEmpty(t, e.ID)
			require.Equal(t, now, e.OccurredAt)
			if check != nil {
				check(e)
			}
			return nil
		})
}

func lentBook() model.Book {
	return model.Book{
		ID:            3,
		Title:         "Dune",
		Author:        "Herbert",
		Status:        model.StatusLent,
		BorrowedBy:    "Anna",
		BorrowedSince: "2024-01-01",
		CreatedAt:     now.Add(-time.Hour),
		UpdatedAt:     now.Add(-time.Hour),
	}
}

func TestService_CreateBook(t *testing.T) {
	t.Parallel()

	t.Run("ok", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		in := model.BookInput{
			Title:      model.NewText(" Dune "),
			Author:     model.NewText("Herbert"),
			BorrowedBy: model.NewText("ignored"),
		}
		rec := model.Record{Title: "Dune", Author: "Herbert", Status: model.StatusHome}
		stored := model.Book{ID: 1, Title: "Dune", Author: "Herbert", Status: model.StatusHome, CreatedAt: now, UpdatedAt: now}
		f.repo.EXPECT().CreateBook(ctx, rec, now).Return(stored, nil)
		f.expectEvent(t, model.EventCreated, func(e model.BookEvent) {
			require.Equal(t, int64(1), e.BookID)
			require.Equal(t, &stored, e.Book)
		})

		got, err := f.svc.CreateBook(ctx, in)
		require.NoError(t, err)
		require.Equal(t, stored, got)
	})

	t.Run("lent defaults date", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		in := model.BookInput{
			Title:      model.NewText("Dune"),
			Author:     model.NewText("Herbert"),
			Status:     model.NewText("lent"),
			BorrowedBy: model.NewText("Anna"),
		}
		rec := model.Record{Title: "Dune", Author: "Herbert", Status: model.StatusLent, BorrowedBy: "Anna", BorrowedSince: "2024-03-09"}
		f.repo.EXPECT().CreateBook(ctx, rec, now).Return(model.Book{ID: 2}, nil)
		f.expectEvent(t, model.EventCreated, nil)

		_, err := f.svc.CreateBook(ctx, in)
		require.NoError(t, err)
	})

	t.Run("validation error skips store", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		in := model.BookInput{
			Title:  model.NewText("Dune"),
			Author: model.NewText("Herbert"),
			Status: model.NewText("lent"),
		}
		_, err := f.svc.CreateBook(ctx, in)
		vErr, ok := errs.AsValidation(err)
		require.True(t, ok)
		require.Equal(t, "borrowedBy", vErr.Field)
	})

	t.Run("store error", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.repo.EXPECT().CreateBook(ctx, gomock.Any(), now).Return(model.Book{}, errors.New("db down"))

		_, err := f.svc.CreateBook(ctx, model.BookInput{Title: model.NewText("a"), Author: model.NewText("b")})
		require.EqualError(t, err, "db down")
	})
}

func TestService_UpdateBook(t *testing.T) {
	t.Parallel()

	t.Run("return clears borrower", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		existing := lentBook()
		rec := model.Record{Title: "Dune", Author: "Herbert", Status: model.StatusHome}
		updated := existing
		updated.Status, updated.BorrowedBy, updated.BorrowedSince, updated.UpdatedAt = model.StatusHome, "", "", now

		f.repo.EXPECT().GetBook(ctx, int64(3)).Return(existing, nil)
		f.repo.EXPECT().UpdateBook(ctx, int64(3), rec, now).Return(updated, nil)
		f.expectEvent(t, model.EventReturned, func(e model.BookEvent) {
			require.Equal(t, "Anna", e.Previous.BorrowedBy)
			require.Equal(t, "", e.Book.BorrowedBy)
		})

		got, err := f.svc.UpdateBook(ctx, 3, model.BookInput{Status: model.NewText("home")})
		require.NoError(t, err)
		require.Equal(t, updated, got)
	})

	t.Run("lend", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		existing := model.Book{ID: 4, Title: "Dune", Author: "Herbert", Status: model.StatusHome}
		rec := model.Record{Title: "Dune", Author: "Herbert", Status: model.StatusLent, BorrowedBy: "Bob", BorrowedSince: "2024-03-09"}
		f.repo.EXPECT().GetBook(ctx, int64(4)).Return(existing, nil)
		f.repo.EXPECT().UpdateBook(ctx, int64(4), rec, now).Return(model.Book{ID: 4, Status: model.StatusLent}, nil)
		f.expectEvent(t, model.EventLent, nil)

		_, err := f.svc.UpdateBook(ctx, 4, model.BookInput{Status: model.NewText("lent"), BorrowedBySnake: model.NewText("Bob")})
		require.NoError(t, err)
	})

	t.Run("title edit keeps lending", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		existing := lentBook()
		rec := existing.Record()
		rec.Title = "Dune Messiah"
		f.repo.EXPECT().GetBook(ctx, int64(3)).Return(existing, nil)
		f.repo.EXPECT().UpdateBook(ctx, int64(3), rec, now).Return(existing, nil)
		f.expectEvent(t, model.EventUpdated, nil)

		_, err := f.svc.UpdateBook(ctx, 3, model.BookInput{Title: model.NewText("Dune Messiah")})
		require.NoError(t, err)
	})

	t.Run("not found", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.repo.EXPECT().GetBook(ctx, int64(99)).Return(model.Book{}, errs.ErrNotFound)

		_, err := f.svc.UpdateBook(ctx, 99, model.BookInput{Title: model.NewText("x")})
		require.ErrorIs(t, err, errs.ErrNotFound)
	})

	t.Run("invalid merge", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.repo.EXPECT().GetBook(ctx, int64(3)).Return(lentBook(), nil)

		_, err := f.svc.UpdateBook(ctx, 3, model.BookInput{BorrowedBy: model.NewText(" ")})
		vErr, ok := errs.AsValidation(err)
		require.True(t, ok)
		require.Equal(t, "borrowedBy", vErr.Field)
	})

	t.Run("publish failure is not fatal", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		existing := lentBook()
		f.repo.EXPECT().GetBook(ctx, int64(3)).Return(existing, nil)
		f.repo.EXPECT().UpdateBook(ctx, int64(3), existing.Record(), now).Return(existing, nil)
		f.pub.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(errors.New("broker down"))

		got, err := f.svc.UpdateBook(ctx, 3, model.BookInput{})
		require.NoError(t, err)
		require.Equal(t, existing, got)
	})
}

func TestService_DeleteBook(t *testing.T) {
	t.Parallel()

	t.Run("removed", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.repo.EXPECT().DeleteBook(ctx, int64(5)).Return(true, nil)
		f.expectEvent(t, model.EventDeleted, func(e model.BookEvent) {
			require.Equal(t, int64(5), e.BookID)
			require.Nil(t, e.Book)
		})

		ok, err := f.svc.DeleteBook(ctx, 5)
		require.NoError(t, err)
		require.True(t, ok)
	})

	t.Run("missing", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.repo.EXPECT().DeleteBook(ctx, int64(6)).Return(false, nil)

		ok, err := f.svc.DeleteBook(ctx, 6)
		require.NoError(t, err)
		require.False(t, ok)
	})
}

func TestService_ListBooks(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	filter := model.ListFilter{Query: "dune"}
	f.repo.EXPECT().ListBooks(ctx, filter).Return(nil, nil)

	books, err := f.svc.ListBooks(ctx, filter)
	require.NoError(t, err)
	require.NotNil(t, books)
	require.Empty(t, books)
}
