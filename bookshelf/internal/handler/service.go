package handler

import (
	"context"

	"github.com/Astemirdum/bookshelf/bookshelf/internal/model"
	"github.com/Astemirdum/bookshelf/bookshelf/internal/service"
)

//go:generate go run github.com/golang/mock/mockgen -source=service.go -destination=mocks/mock.go

type BookService interface {
	ListBooks(ctx context.Context, filter model.ListFilter) ([]model.Book, error)
	GetBook(ctx context.Context, id int64) (model.Book, error)
	CreateBook(ctx context.Context, input model.BookInput) (model.Book, error)
	UpdateBook(ctx context.Context, id int64, input model.BookInput) (model.Book, error)
	DeleteBook(ctx context.Context, id int64) (bool, error)
}

var _ BookService = (*service.Service)(nil)
