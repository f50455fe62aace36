package model

import (
	"time"
)

type Book struct {
	ID              int    `json:"id" db:"id"`
	Title           string `json:"title" db:"title"`
	Author          string `json:"author" db:"author"`
	ISBN            string `json:"isbn" db:"isbn"`
	TotalCopies     int    `json:"totalCopies" db:"total_copies"`
	AvailableCopies int    `json:"availableCopies" db:"available_copies"`
}

type BorrowRecord struct {
	ID         int        `json:"-" db:"id"`
	RecordUID  string     `json:"recordUid" db:"record_uid"`
	PatronID   string     `json:"patronId" db:"patron_id"`
	BookID     int        `json:"bookId" db:"book_id"`
	BorrowDate time.Time  `json:"borrowDate" db:"borrow_date"`
	DueDate    time.Time  `json:"dueDate" db:"due_date"`
	ReturnDate *time.Time `json:"returnDate,omitempty" db:"return_date"`
}

// BorrowedBook is an active loan joined with its book title.
type BorrowedBook struct {
	BookID  int       `json:"bookId" db:"book_id"`
	Title   string    `json:"title" db:"title"`
	DueDate time.Time `json:"dueDate" db:"due_date"`
}

type AddBookRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Author      string `json:"author" validate:"required,max=100"`
	ISBN        string `json:"isbn" validate:"required,len=13"`
	TotalCopies int    `json:"totalCopies" validate:"required,gt=0"`
}

type AddBookResult struct {
	Message string `json:"message"`
	Book    Book   `json:"book"`
}

type BorrowRequest struct {
	PatronID string `json:"patronId" validate:"required"`
	BookID   int    `json:"bookId" validate:"required"`
}

type BorrowResult struct {
	Message   string    `json:"message"`
	RecordUID string    `json:"recordUid"`
	DueDate   time.Time `json:"dueDate"`
}

type ReturnRequest struct {
	PatronID string `json:"patronId" validate:"required"`
	BookID   int    `json:"bookId" validate:"required"`
}

type ReturnResult struct {
	Message string `json:"message"`
}

type FeeResult struct {
	FeeAmount   float64 `json:"fee_amount"`
	DaysOverdue int     `json:"days_overdue"`
	Status      string  `json:"status,omitempty"`
}

type PaymentResult struct {
	Message       string  `json:"message"`
	TransactionID string  `json:"transactionId,omitempty"`
	Amount        float64 `json:"amount"`
}

type RefundRequest struct {
	TransactionID string  `json:"transactionId" validate:"required"`
	Amount        float64 `json:"amount" validate:"required"`
}

type RefundResult struct {
	Message string `json:"message"`
}

type BorrowedItem struct {
	Title   string `json:"title"`
	DueDate string `json:"due_date"`
}

type HistoryEntry struct {
	Timestamp string `json:"timestamp"`
	Action    string `json:"action"`
}

type PatronStatusReport struct {
	CurrentBorrowed []BorrowedItem `json:"current_borrowed"`
	BorrowedCount   int            `json:"borrowed_count"`
	TotalLateFees   string         `json:"total_late_fees"`
	History         []HistoryEntry `json:"history"`
	Date            string         `json:"date"`
}
