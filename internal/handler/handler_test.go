package handler_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/zijiegan/library-catalog/internal/errs"
	"github.com/zijiegan/library-catalog/internal/handler"
	service_mocks "github.com/zijiegan/library-catalog/internal/handler/mocks"
	"github.com/zijiegan/library-catalog/internal/model"
	"github.com/zijiegan/library-catalog/pkg/validate"
)

type mocks struct {
	catalog   *service_mocks.MockCatalogService
	borrowing *service_mocks.MockBorrowingService
	payment   *service_mocks.MockPaymentService
	status    *service_mocks.MockStatusService
}

func newTestHandler(t *testing.T) (*handler.Handler, mocks, *echo.Echo) {
	t.Helper()
	c := gomock.NewController(t)
	t.Cleanup(c.Finish)
	m := mocks{
		catalog:   service_mocks.NewMockCatalogService(c),
		borrowing: service_mocks.NewMockBorrowingService(c),
		payment:   service_mocks.NewMockPaymentService(c),
		status:    service_mocks.NewMockStatusService(c),
	}
	h := handler.New(m.catalog, m.borrowing, m.payment, m.status, zap.NewExample().Named("test"))

	e := echo.New()
	e.Validator = validate.NewCustomValidator()
	return h, m, e
}

func TestHandler_Search(t *testing.T) {
	t.Parallel()

	catalog := []model.Book{
		{ID: 1, Title: "The Great Gatsby", Author: "F. Scott Fitzgerald", ISBN: "9780743273565", TotalCopies: 3, AvailableCopies: 3},
	}

	type mockBehavior func(m mocks)

	tests := []struct {
		name         string
		query        string
		mockBehavior mockBehavior
		expectedCode int
		expectedBody string
	}{
		{
			name:  "ok",
			query: "q=great&type=title",
			mockBehavior: func(m mocks) {
				m.catalog.EXPECT().Search(gomock.Any(), "great", "title").Return(catalog, nil)
			},
			expectedCode: http.StatusOK,
			expectedBody: `{"search_term":"great","search_type":"title","results":[{"id":1,"title":"The Great Gatsby","author":"F. Scott Fitzgerald","isbn":"9780743273565","totalCopies":3,"availableCopies":3}],"count":1}`,
		},
		{
			name:  "type defaults to title",
			query: "q=great",
			mockBehavior: func(m mocks) {
				m.catalog.EXPECT().Search(gomock.Any(), "great", "title").Return([]model.Book{}, nil)
			},
			expectedCode: http.StatusOK,
			expectedBody: `{"search_term":"great","search_type":"title","results":[],"count":0}`,
		},
		{
			name:  "err. internal",
			query: "q=great&type=title",
			mockBehavior: func(m mocks) {
				m.catalog.EXPECT().Search(gomock.Any(), "great", "title").Return(nil, errs.ErrDatabase)
			},
			expectedCode: http.StatusInternalServerError,
			expectedBody: `{"message":"database error"}`,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h, m, e := newTestHandler(t)
			e.GET("/books/search", h.Search)
			tt.mockBehavior(m)

			r := httptest.NewRequest(http.MethodGet, "/books/search?"+tt.query, http.NoBody)
			w := httptest.NewRecorder()
			e.ServeHTTP(w, r)

			require.Equal(t, tt.expectedCode, w.Code)
			require.Equal(t, tt.expectedBody, strings.Trim(w.Body.String(), "\n"))
		})
	}
}

func TestHandler_AddBook(t *testing.T) {
	t.Parallel()

	type mockBehavior func(m mocks)

	tests := []struct {
		name         string
		body         string
		mockBehavior mockBehavior
		expectedCode int
		expectedBody string
	}{
		{
			name: "created",
			body: `{"title":"Dune","author":"Frank Herbert","isbn":"9780441172719","totalCopies":2}`,
			mockBehavior: func(m mocks) {
				m.catalog.EXPECT().
					AddBook(gomock.Any(), model.AddBookRequest{Title: "Dune", Author: "Frank Herbert", ISBN: "9780441172719", TotalCopies: 2}).
					Return(model.AddBookResult{
						Message: `Book "Dune" has been successfully added to the catalog.`,
						Book:    model.Book{ID: 7, Title: "Dune", Author: "Frank Herbert", ISBN: "9780441172719", TotalCopies: 2, AvailableCopies: 2},
					}, nil)
			},
			expectedCode: http.StatusCreated,
			expectedBody: `{"message":"Book \"Dune\" has been successfully added to the catalog.","book":{"id":7,"title":"Dune","author":"Frank Herbert","isbn":"9780441172719","totalCopies":2,"availableCopies":2}}`,
		},
		{
			name: "duplicate isbn",
			body: `{"title":"Dune","author":"Frank Herbert","isbn":"9780441172719","totalCopies":2}`,
			mockBehavior: func(m mocks) {
				m.catalog.EXPECT().AddBook(gomock.Any(), gomock.Any()).
					Return(model.AddBookResult{}, errs.ErrDuplicateISBN)
			},
			expectedCode: http.StatusConflict,
			expectedBody: `{"message":"a book with this ISBN already exists"}`,
		},
		{
			name: "validation error",
			body: `{"title":"","author":"A","isbn":"9780441172719","totalCopies":2}`,
			mockBehavior: func(m mocks) {
				m.catalog.EXPECT().AddBook(gomock.Any(), gomock.Any()).
					Return(model.AddBookResult{}, errs.Validationf("title is required"))
			},
			expectedCode: http.StatusBadRequest,
			expectedBody: `{"message":"title is required"}`,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h, m, e := newTestHandler(t)
			e.POST("/books", h.AddBook)
			tt.mockBehavior(m)

			r := httptest.NewRequest(http.MethodPost, "/books", strings.NewReader(tt.body))
			r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			w := httptest.NewRecorder()
			e.ServeHTTP(w, r)

			require.Equal(t, tt.expectedCode, w.Code)
			require.Equal(t, tt.expectedBody, strings.Trim(w.Body.String(), "\n"))
		})
	}
}

func TestHandler_Borrow(t *testing.T) {
	t.Parallel()

	dueDate := time.Date(2024, 3, 29, 12, 0, 0, 0, time.UTC)

	type mockBehavior func(m mocks)

	tests := []struct {
		name         string
		body         string
		mockBehavior mockBehavior
		expectedCode int
		expectedBody string
	}{
		{
			name: "ok",
			body: `{"patronId":"123456","bookId":1}`,
			mockBehavior: func(m mocks) {
				m.borrowing.EXPECT().Borrow(gomock.Any(), "123456", 1).
					Return(model.BorrowResult{
						Message:   `Successfully borrowed "The Great Gatsby". Due date: 2024-03-29.`,
						RecordUID: "u-1",
						DueDate:   dueDate,
					}, nil)
			},
			expectedCode: http.StatusOK,
			expectedBody: `{"message":"Successfully borrowed \"The Great Gatsby\". Due date: 2024-03-29.","recordUid":"u-1","dueDate":"2024-03-29T12:00:00Z"}`,
		},
		{
			name: "no copies",
			body: `{"patronId":"123456","bookId":1}`,
			mockBehavior: func(m mocks) {
				m.borrowing.EXPECT().Borrow(gomock.Any(), "123456", 1).
					Return(model.BorrowResult{}, errs.ErrNotAvailable)
			},
			expectedCode: http.StatusConflict,
			expectedBody: `{"message":"this book is currently not available"}`,
		},
		{
			name: "limit reached",
			body: `{"patronId":"123456","bookId":1}`,
			mockBehavior: func(m mocks) {
				m.borrowing.EXPECT().Borrow(gomock.Any(), "123456", 1).
					Return(model.BorrowResult{}, errs.ErrBorrowLimit)
			},
			expectedCode: http.StatusConflict,
			expectedBody: `{"message":"you have reached the maximum borrowing limit of 5 books"}`,
		},
		{
			name: "bad patron id",
			body: `{"patronId":"12","bookId":1}`,
			mockBehavior: func(m mocks) {
				m.borrowing.EXPECT().Borrow(gomock.Any(), "12", 1).
					Return(model.BorrowResult{}, errs.Validationf("invalid patron ID: must be exactly 6 digits"))
			},
			expectedCode: http.StatusBadRequest,
			expectedBody: `{"message":"invalid patron ID: must be exactly 6 digits"}`,
		},
		{
			name:         "missing body fields",
			body:         `{}`,
			mockBehavior: func(m mocks) {},
			expectedCode: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h, m, e := newTestHandler(t)
			e.POST("/borrow", h.Borrow)
			tt.mockBehavior(m)

			r := httptest.NewRequest(http.MethodPost, "/borrow", strings.NewReader(tt.body))
			r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			w := httptest.NewRecorder()
			e.ServeHTTP(w, r)

			require.Equal(t, tt.expectedCode, w.Code)
			if tt.expectedBody != "" {
				require.Equal(t, tt.expectedBody, strings.Trim(w.Body.String(), "\n"))
			}
		})
	}
}

func TestHandler_Return(t *testing.T) {
	t.Parallel()

	t.Run("ok", func(t *testing.T) {
		t.Parallel()
		h, m, e := newTestHandler(t)
		e.POST("/return", h.Return)
		m.borrowing.EXPECT().Return(gomock.Any(), "123456", 1).
			Return(model.ReturnResult{Message: `Successfully returned "The Great Gatsby".`}, nil)

		r := httptest.NewRequest(http.MethodPost, "/return", strings.NewReader(`{"patronId":"123456","bookId":1}`))
		r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		w := httptest.NewRecorder()
		e.ServeHTTP(w, r)

		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, `{"message":"Successfully returned \"The Great Gatsby\"."}`, strings.Trim(w.Body.String(), "\n"))
	})

	t.Run("not borrowed", func(t *testing.T) {
		t.Parallel()
		h, m, e := newTestHandler(t)
		e.POST("/return", h.Return)
		m.borrowing.EXPECT().Return(gomock.Any(), "123456", 1).
			Return(model.ReturnResult{}, errs.ErrNoActiveLoan)

		r := httptest.NewRequest(http.MethodPost, "/return", strings.NewReader(`{"patronId":"123456","bookId":1}`))
		r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		w := httptest.NewRecorder()
		e.ServeHTTP(w, r)

		require.Equal(t, http.StatusNotFound, w.Code)
		require.Equal(t, `{"message":"not borrowed or no record"}`, strings.Trim(w.Body.String(), "\n"))
	})
}

func TestHandler_LateFee(t *testing.T) {
	t.Parallel()

	type mockBehavior func(m mocks)

	tests := []struct {
		name         string
		url          string
		mockBehavior mockBehavior
		expectedCode int
		expectedBody string
	}{
		{
			name: "ok",
			url:  "/patrons/123456/fees/1",
			mockBehavior: func(m mocks) {
				m.payment.EXPECT().CalculateLateFee(gomock.Any(), "123456", 1).
					Return(model.FeeResult{FeeAmount: 6.5, DaysOverdue: 10}, nil)
			},
			expectedCode: http.StatusOK,
			expectedBody: `{"fee_amount":6.5,"days_overdue":10}`,
		},
		{
			name: "no record",
			url:  "/patrons/123456/fees/9",
			mockBehavior: func(m mocks) {
				m.payment.EXPECT().CalculateLateFee(gomock.Any(), "123456", 9).
					Return(model.FeeResult{Status: "no record"}, nil)
			},
			expectedCode: http.StatusOK,
			expectedBody: `{"fee_amount":0,"days_overdue":0,"status":"no record"}`,
		},
		{
			name:         "bad book id",
			url:          "/patrons/123456/fees/abc",
			mockBehavior: func(m mocks) {},
			expectedCode: http.StatusBadRequest,
			expectedBody: `{"message":"bookID is invalid"}`,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h, m, e := newTestHandler(t)
			e.GET("/patrons/:patronID/fees/:bookID", h.LateFee)
			tt.mockBehavior(m)

			r := httptest.NewRequest(http.MethodGet, tt.url, http.NoBody)
			w := httptest.NewRecorder()
			e.ServeHTTP(w, r)

			require.Equal(t, tt.expectedCode, w.Code)
			require.Equal(t, tt.expectedBody, strings.Trim(w.Body.String(), "\n"))
		})
	}
}

func TestHandler_PayLateFee(t *testing.T) {
	t.Parallel()

	type mockBehavior func(m mocks)

	tests := []struct {
		name         string
		mockBehavior mockBehavior
		expectedCode int
		expectedBody string
	}{
		{
			name: "ok",
			mockBehavior: func(m mocks) {
				m.payment.EXPECT().PayLateFee(gomock.Any(), "123456", 1).
					Return(model.PaymentResult{Message: "payment of $1.50 processed successfully", TransactionID: "txn_123456_1", Amount: 1.5}, nil)
			},
			expectedCode: http.StatusOK,
			expectedBody: `{"message":"payment of $1.50 processed successfully","transactionId":"txn_123456_1","amount":1.5}`,
		},
		{
			name: "declined",
			mockBehavior: func(m mocks) {
				m.payment.EXPECT().PayLateFee(gomock.Any(), "123456", 1).
					Return(model.PaymentResult{}, fmt.Errorf("%w: insufficient funds", errs.ErrPaymentDeclined))
			},
			expectedCode: http.StatusPaymentRequired,
			expectedBody: `{"message":"payment declined: insufficient funds"}`,
		},
		{
			name: "processing error",
			mockBehavior: func(m mocks) {
				m.payment.EXPECT().PayLateFee(gomock.Any(), "123456", 1).
					Return(model.PaymentResult{}, fmt.Errorf("%w: connection reset", errs.ErrPaymentProcessing))
			},
			expectedCode: http.StatusBadGateway,
			expectedBody: `{"message":"payment processing error: connection reset"}`,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h, m, e := newTestHandler(t)
			e.POST("/patrons/:patronID/fees/:bookID/pay", h.PayLateFee)
			tt.mockBehavior(m)

			r := httptest.NewRequest(http.MethodPost, "/patrons/123456/fees/1/pay", http.NoBody)
			w := httptest.NewRecorder()
			e.ServeHTTP(w, r)

			require.Equal(t, tt.expectedCode, w.Code)
			require.Equal(t, tt.expectedBody, strings.Trim(w.Body.String(), "\n"))
		})
	}
}

func TestHandler_Refund(t *testing.T) {
	t.Parallel()

	t.Run("ok", func(t *testing.T) {
		t.Parallel()
		h, m, e := newTestHandler(t)
		e.POST("/refunds", h.Refund)
		m.payment.EXPECT().RefundLateFee(gomock.Any(), "txn_123456_1710500000", 1.5).
			Return(model.RefundResult{Message: "refund of $1.50 processed successfully"}, nil)

		r := httptest.NewRequest(http.MethodPost, "/refunds", strings.NewReader(`{"transactionId":"txn_123456_1710500000","amount":1.5}`))
		r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		w := httptest.NewRecorder()
		e.ServeHTTP(w, r)

		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, `{"message":"refund of $1.50 processed successfully"}`, strings.Trim(w.Body.String(), "\n"))
	})

	t.Run("bad transaction id", func(t *testing.T) {
		t.Parallel()
		h, m, e := newTestHandler(t)
		e.POST("/refunds", h.Refund)
		m.payment.EXPECT().RefundLateFee(gomock.Any(), "pay_123", 1.5).
			Return(model.RefundResult{}, errs.Validationf("invalid transaction ID"))

		r := httptest.NewRequest(http.MethodPost, "/refunds", strings.NewReader(`{"transactionId":"pay_123","amount":1.5}`))
		r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		w := httptest.NewRecorder()
		e.ServeHTTP(w, r)

		require.Equal(t, http.StatusBadRequest, w.Code)
		require.Equal(t, `{"message":"invalid transaction ID"}`, strings.Trim(w.Body.String(), "\n"))
	})
}

func TestHandler_PatronStatus(t *testing.T) {
	t.Parallel()

	h, m, e := newTestHandler(t)
	e.GET("/patrons/:patronID/status", h.PatronStatus)
	m.status.EXPECT().PatronStatus(gomock.Any(), "123456").
		Return(model.PatronStatusReport{
			CurrentBorrowed: []model.BorrowedItem{{Title: "The Great Gatsby", DueDate: "2024-03-12"}},
			BorrowedCount:   1,
			TotalLateFees:   "1.50",
			History:         []model.HistoryEntry{{Timestamp: "2024-03-15T12:00:00Z", Action: "report_generated"}},
			Date:            "2024-03-15",
		}, nil)

	r := httptest.NewRequest(http.MethodGet, "/patrons/123456/status", http.NoBody)
	w := httptest.NewRecorder()
	e.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t,
		`{"current_borrowed":[{"title":"The Great Gatsby","due_date":"2024-03-12"}],"borrowed_count":1,"total_late_fees":"1.50","history":[{"timestamp":"2024-03-15T12:00:00Z","action":"report_generated"}],"date":"2024-03-15"}`,
		strings.Trim(w.Body.String(), "\n"))
}
