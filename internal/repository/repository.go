package repository

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/zijiegan/library-catalog/internal/errs"
	"github.com/zijiegan/library-catalog/internal/model"
)

//go:generate go run github.com/golang/mock/mockgen -source=repository.go -destination=mocks/mock.go

// Storage is the record-store capability borrowed against by all
// services. The postgres implementation is the source of truth; the
// memory implementation is the ephemeral degraded-mode catalog.
type Storage interface {
	GetBookByID(ctx context.Context, id int) (model.Book, error)
	GetBookByISBN(ctx context.Context, isbn string) (model.Book, error)
	GetAllBooks(ctx context.Context) ([]model.Book, error)
	InsertBook(ctx context.Context, book model.Book) (model.Book, error)
	UpdateBookAvailability(ctx context.Context, id, delta int) error
	PatronBorrowCount(ctx context.Context, patronID string) (int, error)
	PatronBorrowedBooks(ctx context.Context, patronID string) ([]model.BorrowedBook, error)
	InsertBorrowRecord(ctx context.Context, rec model.BorrowRecord) (model.BorrowRecord, error)
	CloseBorrowRecord(ctx context.Context, patronID string, bookID int, returnDate time.Time) error
}

type repository struct {
	db  *sqlx.DB
	log *zap.Logger
}

func NewRepository(db *sqlx.DB, log *zap.Logger) (*repository, error) {
	return &repository{
		db:  db,
		log: log.Named("repo"),
	}, nil
}

const (
	booksTableName         = `books`
	borrowRecordsTableName = `borrow_records`
)

var qb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

func (r *repository) GetBookByID(ctx context.Context, id int) (model.Book, error) {
	query, args, err := qb.Select("id", "title", "author", "isbn", "total_copies", "available_copies").
		From(booksTableName).
		Where(sq.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return model.Book{}, err
	}

	var book model.Book
	if err := r.db.GetContext(ctx, &book, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Book{}, errs.ErrNotFound
		}
		return model.Book{}, err
	}
	return book, nil
}

func (r *repository) GetBookByISBN(ctx context.Context, isbn string) (model.Book, error) {
	query, args, err := qb.Select("id", "title", "author", "isbn", "total_copies", "available_copies").
		From(booksTableName).
		Where(sq.Eq{"isbn": isbn}).
		Limit(1).
		ToSql()
	if err != nil {
		return model.Book{}, err
	}

	var book model.Book
	if err := r.db.GetContext(ctx, &book, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Book{}, errs.ErrNotFound
		}
		return model.Book{}, err
	}
	return book, nil
}

func (r *repository) GetAllBooks(ctx context.Context) ([]model.Book, error) {
	query, args, err := qb.Select("id", "title", "author", "isbn", "total_copies", "available_copies").
		From(booksTableName).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, err
	}

	var books []model.Book
	if err := r.db.SelectContext(ctx, &books, query, args...); err != nil {
		return nil, err
	}
	return books, nil
}

func (r *repository) InsertBook(ctx context.Context, book model.Book) (model.Book, error) {
	query, args, err := qb.Insert(booksTableName).
		Columns("title", "author", "isbn", "total_copies", "available_copies").
		Values(book.Title, book.Author, book.ISBN, book.TotalCopies, book.AvailableCopies).
		Suffix("returning *").
		ToSql()
	if err != nil {
		return model.Book{}, err
	}

	var b model.Book
	if err := r.db.GetContext(ctx, &b, query, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return model.Book{}, errs.ErrDuplicateISBN
		}
		r.log.Error("InsertBook", zap.String("q", query), zap.Any("args", args))
		return model.Book{}, err
	}
	return b, nil
}

func (r *repository) UpdateBookAvailability(ctx context.Context, id, delta int) error {
	q := `
update books
    set available_copies = available_copies + $2
where id = $1`
	res, err := r.db.ExecContext(ctx, q, id, delta)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (r *repository) PatronBorrowCount(ctx context.Context, patronID string) (int, error) {
	q := `
	select count(*) from borrow_records
	where patron_id = $1 and return_date is null
`
	var count int
	if err := r.db.QueryRowContext(ctx, q, patronID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repository) PatronBorrowedBooks(ctx context.Context, patronID string) ([]model.BorrowedBook, error) {
	query, args, err := qb.Select("br.book_id", "b.title", "br.due_date").
		From(borrowRecordsTableName + " br").
		Join(booksTableName + " b on b.id = br.book_id").
		Where(sq.Eq{"br.patron_id": patronID}).
		Where("br.return_date is null").
		OrderBy("br.id").
		ToSql()
	if err != nil {
		return nil, err
	}

	var items []model.BorrowedBook
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) InsertBorrowRecord(ctx context.Context, rec model.BorrowRecord) (model.BorrowRecord, error) {
	query, args, err := qb.Insert(borrowRecordsTableName).
		Columns("record_uid", "patron_id", "book_id", "borrow_date", "due_date").
		Values(rec.RecordUID, rec.PatronID, rec.BookID, rec.BorrowDate, rec.DueDate).
		Suffix("returning *").
		ToSql()
	if err != nil {
		return model.BorrowRecord{}, err
	}

	var out model.BorrowRecord
	if err := r.db.GetContext(ctx, &out, query, args...); err != nil {
		r.log.Error("InsertBorrowRecord", zap.String("q", query), zap.Any("args", args))
		return model.BorrowRecord{}, err
	}
	return out, nil
}

func (r *repository) CloseBorrowRecord(ctx context.Context, patronID string, bookID int, returnDate time.Time) error {
	q := `
update borrow_records
    set return_date = $3
where patron_id = $1 and book_id = $2 and return_date is null`
	res, err := r.db.ExecContext(ctx, q, patronID, bookID, returnDate)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errs.ErrNoActiveLoan
	}
	return nil
}
