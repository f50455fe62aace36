package service

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/zijiegan/library-catalog/internal/errs"
	"github.com/zijiegan/library-catalog/internal/model"
	"github.com/zijiegan/library-catalog/pkg/kafka"
)

// normalizeISBN strips non-alphanumerics and lowercases, so
// "978-0-7432-7356-5" and "9780743273565" compare equal.
func normalizeISBN(isbn string) string {
	var b strings.Builder
	for _, r := range isbn {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

func validateAddBook(req model.AddBookRequest) error {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return errs.Validationf("title is required")
	}
	if utf8.RuneCountInString(title) > 200 {
		return errs.Validationf("title must be less than 200 characters")
	}
	author := strings.TrimSpace(req.Author)
	if author == "" {
		return errs.Validationf("author is required")
	}
	if utf8.RuneCountInString(author) > 100 {
		return errs.Validationf("author must be less than 100 characters")
	}
	if len(req.ISBN) != 13 {
		return errs.Validationf("isbn must be exactly 13 characters")
	}
	if req.TotalCopies <= 0 {
		return errs.Validationf("total copies must be a positive integer")
	}
	return nil
}

func (s *Service) AddBook(ctx context.Context, req model.AddBookRequest) (model.AddBookResult, error) {
	if err := validateAddBook(req); err != nil {
		return model.AddBookResult{}, err
	}

	book := model.Book{
		Title:           strings.TrimSpace(req.Title),
		Author:          strings.TrimSpace(req.Author),
		ISBN:            req.ISBN,
		TotalCopies:     req.TotalCopies,
		AvailableCopies: req.TotalCopies,
	}

	inserted, err := s.store.InsertBook(ctx, book)
	switch {
	case err == nil:
	case errors.Is(err, errs.ErrDuplicateISBN):
		// a true duplicate in the primary store is final, the
		// fallback must never mask it
		return model.AddBookResult{}, err
	default:
		if s.fallback == nil {
			return model.AddBookResult{}, errors.Wrap(errs.ErrDatabase, err.Error())
		}
		s.log.Warn("primary store unreachable, adding to ephemeral catalog",
			zap.String("isbn", book.ISBN), zap.Error(err))
		inserted, err = s.insertFallback(ctx, book)
		if err != nil {
			return model.AddBookResult{}, err
		}
	}

	s.enqueueAudit(kafka.AuditEvent{BookID: inserted.ID, Action: "book_added", Detail: inserted.ISBN})

	return model.AddBookResult{
		Message: fmt.Sprintf("Book %q has been successfully added to the catalog.", inserted.Title),
		Book:    inserted,
	}, nil
}

func (s *Service) insertFallback(ctx context.Context, book model.Book) (model.Book, error) {
	s.fallback.Seed()
	existing, _ := s.fallback.GetAllBooks(ctx)
	key := normalizeISBN(book.ISBN)
	for _, b := range existing {
		if normalizeISBN(b.ISBN) == key {
			return model.Book{}, errs.ErrDuplicateISBN
		}
	}
	return s.fallback.InsertBook(ctx, book)
}

// ListBooks returns the whole catalog, degrading to the ephemeral
// catalog when the primary store is unreachable or empty.
func (s *Service) ListBooks(ctx context.Context) ([]model.Book, error) {
	return s.allBooks(ctx)
}

func (s *Service) allBooks(ctx context.Context) ([]model.Book, error) {
	books, err := s.store.GetAllBooks(ctx)
	if err == nil && len(books) > 0 {
		return books, nil
	}
	if s.fallback == nil {
		if err != nil {
			return nil, errors.Wrap(errs.ErrDatabase, err.Error())
		}
		return books, nil
	}
	s.log.Warn("primary store yielded no books, serving ephemeral catalog", zap.Error(err))
	s.fallback.Seed()
	return s.fallback.GetAllBooks(ctx)
}

// Search filters the catalog. Title and author match on
// case-insensitive substring; isbn matches exactly after
// normalization. Unknown types and empty terms yield empty results.
func (s *Service) Search(ctx context.Context, term, searchType string) ([]model.Book, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return []model.Book{}, nil
	}
	if searchType != "title" && searchType != "author" && searchType != "isbn" {
		return []model.Book{}, nil
	}

	books, err := s.allBooks(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]model.Book, 0)
	if searchType == "isbn" {
		key := normalizeISBN(term)
		for _, b := range books {
			if normalizeISBN(b.ISBN) == key {
				results = append(results, b)
			}
		}
		return results, nil
	}

	key := strings.ToLower(term)
	for _, b := range books {
		hay := b.Title
		if searchType == "author" {
			hay = b.Author
		}
		if strings.Contains(strings.ToLower(hay), key) {
			results = append(results, b)
		}
	}
	return results, nil
}
