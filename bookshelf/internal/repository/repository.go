package repository

import (
	"context"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/bookshelf/bookshelf/internal/errs"
	"github.com/Astemirdum/bookshelf/bookshelf/internal/model"
)

//go:generate go run github.com/golang/mock/mockgen -source=repository.go -destination=mocks/mock.go

type Repository interface {
	ListBooks(ctx context.Context, filter model.ListFilter) ([]model.Book, error)
	GetBook(ctx context.Context, id int64) (model.Book, error)
	CreateBook(ctx context.Context, rec model.Record, ts time.Time) (model.Book, error)
	UpdateBook(ctx context.Context, id int64, rec model.Record, ts time.Time) (model.Book, error)
	DeleteBook(ctx context.Context, id int64) (bool, error)
}

type repository struct {
	db  *pgxpool.Pool
	log *zap.Logger
}

func NewRepository(db *pgxpool.Pool, log *zap.Logger) (*repository, error) {
	return &repository{
		db:  db,
		log: log.Named("repo"),
	}, nil
}

const booksTableName = `books`

var qb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// legacy rows may hold NULL in the optional text columns
var bookColumns = []string{
	"id",
	"title",
	"author",
	"status",
	"coalesce(borrowed_by, '') as borrowed_by",
	"coalesce(borrowed_since, '') as borrowed_since",
	"coalesce(cover_url, '') as cover_url",
	"created_at",
	"updated_at",
}

var returning = "RETURNING " + strings.Join(bookColumns, ", ")

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func listQuery(filter model.ListFilter) sq.SelectBuilder {
	q := qb.Select(bookColumns...).From(booksTableName)
	if term := strings.TrimSpace(filter.Query); term != "" {
		pattern := "%" + likeEscaper.Replace(term) + "%"
		q = q.Where(sq.Or{
			sq.ILike{"title": pattern},
			sq.ILike{"author": pattern},
			sq.ILike{"borrowed_by": pattern},
		})
	}
	if filter.Status != "" {
		q = q.Where(sq.Eq{"status": filter.Status})
	}
	return q.OrderBy("updated_at DESC", "id DESC")
}

func insertQuery(rec model.Record, ts time.Time) sq.InsertBuilder {
	return qb.Insert(booksTableName).
		Columns("title", "author", "status", "borrowed_by", "borrowed_since", "cover_url", "created_at", "updated_at").
		Values(rec.Title, rec.Author, rec.Status, rec.BorrowedBy, rec.BorrowedSince, rec.CoverURL, ts, ts).
		Suffix(returning)
}

func updateQuery(id int64, rec model.Record, ts time.Time) sq.UpdateBuilder {
	return qb.Update(booksTableName).
		SetMap(map[string]interface{}{
			"title":          rec.Title,
			"author":         rec.Author,
			"status":         rec.Status,
			"borrowed_by":    rec.BorrowedBy,
			"borrowed_since": rec.BorrowedSince,
			"cover_url":      rec.CoverURL,
			"updated_at":     ts,
		}).
		Where(sq.Eq{"id": id}).
		Suffix(returning)
}

func (r *repository) ListBooks(ctx context.Context, filter model.ListFilter) ([]model.Book, error) {
	query, args, err := listQuery(filter).ToSql()
	if err != nil {
		return nil, err
	}
	r.log.Debug("ListBooks", zap.String("query", query), zap.Any("args", args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "ListBooks")
	}
	defer rows.Close()

	books, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.Book])
	if err != nil {
		return nil, errors.Wrap(err, "pgx.CollectRows")
	}
	for i := range books {
		books[i] = inUTC(books[i])
	}
	return books, nil
}

func (r *repository) GetBook(ctx context.Context, id int64) (model.Book, error) {
	query, args, err := qb.Select(bookColumns...).
		From(booksTableName).
		Where(sq.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return model.Book{}, err
	}
	return r.queryOne(ctx, "GetBook", query, args)
}

func (r *repository) CreateBook(ctx context.Context, rec model.Record, ts time.Time) (model.Book, error) {
	query, args, err := insertQuery(rec, ts).ToSql()
	if err != nil {
		return model.Book{}, err
	}
	return r.queryOne(ctx, "CreateBook", query, args)
}

func (r *repository) UpdateBook(ctx context.Context, id int64, rec model.Record, ts time.Time) (model.Book, error) {
	query, args, err := updateQuery(id, rec, ts).ToSql()
	if err != nil {
		return model.Book{}, err
	}
	return r.queryOne(ctx, "UpdateBook", query, args)
}

func (r *repository) DeleteBook(ctx context.Context, id int64) (bool, error) {
	query, args, err := qb.Delete(booksTableName).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return false, err
	}
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return false, errors.Wrap(err, "DeleteBook")
	}
	return tag.RowsAffected() > 0, nil
}

func (r *repository) queryOne(ctx context.Context, op, query string, args []interface{}) (model.Book, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return model.Book{}, mapError(op, err)
	}
	defer rows.Close()

	book, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Book])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Book{}, errs.ErrNotFound
		}
		r.log.Error(op, zap.String("q", query), zap.Any("args", args), zap.Error(err))
		return model.Book{}, mapError(op, err)
	}
	return inUTC(book), nil
}

// pgx scans timestamptz in the server's local zone
func inUTC(b model.Book) model.Book {
	b.CreatedAt = b.CreatedAt.UTC()
	b.UpdatedAt = b.UpdatedAt.UTC()
	return b
}

func mapError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.CheckViolation {
		return errs.NewValidationError("status", "status must be one of home, lent")
	}
	return errors.Wrap(err, op)
}
