package repository

import (
	"context"
	"sync"
	"time"

	"github.com/zijiegan/library-catalog/internal/errs"
	"github.com/zijiegan/library-catalog/internal/model"
)

// MemoryStorage is the ephemeral fallback catalog. It is lossy and
// never a source of truth; the catalog service switches to it only
// when the primary store is unreachable or empty, and says so in the
// logs.
type MemoryStorage struct {
	mu      sync.Mutex
	books   []model.Book
	records []model.BorrowRecord
	nextID  int
	nextRec int
}

var _ Storage = (*MemoryStorage)(nil)

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{nextID: 1, nextRec: 1}
}

// Seed loads the fixed minimal dataset when the catalog is empty.
func (m *MemoryStorage) Seed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.books) > 0 {
		return
	}
	seed := []model.Book{
		{Title: "The Great Gatsby", Author: "F. Scott Fitzgerald", ISBN: "9780743273565", TotalCopies: 3, AvailableCopies: 3},
		{Title: "To Kill a Mockingbird", Author: "Harper Lee", ISBN: "9780061120084", TotalCopies: 3, AvailableCopies: 3},
		{Title: "1984", Author: "George Orwell", ISBN: "9780451524935", TotalCopies: 3, AvailableCopies: 3},
	}
	for _, b := range seed {
		b.ID = m.nextID
		m.nextID++
		m.books = append(m.books, b)
	}
}

func (m *MemoryStorage) GetBookByID(_ context.Context, id int) (model.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.books {
		if b.ID == id {
			return b, nil
		}
	}
	return model.Book{}, errs.ErrNotFound
}

func (m *MemoryStorage) GetBookByISBN(_ context.Context, isbn string) (model.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.books {
		if b.ISBN == isbn {
			return b, nil
		}
	}
	return model.Book{}, errs.ErrNotFound
}

func (m *MemoryStorage) GetAllBooks(_ context.Context) ([]model.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Book, len(m.books))
	copy(out, m.books)
	return out, nil
}

func (m *MemoryStorage) InsertBook(_ context.Context, book model.Book) (model.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.books {
		if b.ISBN == book.ISBN {
			return model.Book{}, errs.ErrDuplicateISBN
		}
	}
	book.ID = m.nextID
	m.nextID++
	m.books = append(m.books, book)
	return book, nil
}

func (m *MemoryStorage) UpdateBookAvailability(_ context.Context, id, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.books {
		if m.books[i].ID == id {
			next := m.books[i].AvailableCopies + delta
			if next < 0 || next > m.books[i].TotalCopies {
				return errs.ErrNotAvailable
			}
			m.books[i].AvailableCopies = next
			return nil
		}
	}
	return errs.ErrNotFound
}

func (m *MemoryStorage) PatronBorrowCount(_ context.Context, patronID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, rec := range m.records {
		if rec.PatronID == patronID && rec.ReturnDate == nil {
			count++
		}
	}
	return count, nil
}

func (m *MemoryStorage) PatronBorrowedBooks(_ context.Context, patronID string) ([]model.BorrowedBook, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []model.BorrowedBook
	for _, rec := range m.records {
		if rec.PatronID != patronID || rec.ReturnDate != nil {
			continue
		}
		item := model.BorrowedBook{BookID: rec.BookID, DueDate: rec.DueDate}
		for _, b := range m.books {
			if b.ID == rec.BookID {
				item.Title = b.Title
				break
			}
		}
		items = append(items, item)
	}
	return items, nil
}

func (m *MemoryStorage) InsertBorrowRecord(_ context.Context, rec model.BorrowRecord) (model.BorrowRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.ID = m.nextRec
	m.nextRec++
	m.records = append(m.records, rec)
	return rec, nil
}

func (m *MemoryStorage) CloseBorrowRecord(_ context.Context, patronID string, bookID int, returnDate time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.records {
		rec := &m.records[i]
		if rec.PatronID == patronID && rec.BookID == bookID && rec.ReturnDate == nil {
			d := returnDate
			rec.ReturnDate = &d
			return nil
		}
	}
	return errs.ErrNoActiveLoan
}
