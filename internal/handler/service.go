package handler

import (
	"context"

	"github.com/zijiegan/library-catalog/internal/model"
	"github.com/zijiegan/library-catalog/internal/service"
)

//go:generate go run github.com/golang/mock/mockgen -source=service.go -destination=mocks/mock.go

var (
	_ CatalogService   = (*service.Service)(nil)
	_ BorrowingService = (*service.Service)(nil)
	_ PaymentService   = (*service.Service)(nil)
	_ StatusService    = (*service.Service)(nil)
)

type CatalogService interface {
	AddBook(ctx context.Context, req model.AddBookRequest) (model.AddBookResult, error)
	ListBooks(ctx context.Context) ([]model.Book, error)
	Search(ctx context.Context, term, searchType string) ([]model.Book, error)
}

type BorrowingService interface {
	Borrow(ctx context.Context, patronID string, bookID int) (model.BorrowResult, error)
	Return(ctx context.Context, patronID string, bookID int) (model.ReturnResult, error)
}

type PaymentService interface {
	CalculateLateFee(ctx context.Context, patronID string, bookID int) (model.FeeResult, error)
	PayLateFee(ctx context.Context, patronID string, bookID int) (model.PaymentResult, error)
	RefundLateFee(ctx context.Context, transactionID string, amount float64) (model.RefundResult, error)
}

type StatusService interface {
	PatronStatus(ctx context.Context, patronID string) (model.PatronStatusReport, error)
}
