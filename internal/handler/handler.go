package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/zijiegan/library-catalog/internal/errs"
	"github.com/zijiegan/library-catalog/internal/model"
	md "github.com/zijiegan/library-catalog/pkg/middleware"
	"github.com/zijiegan/library-catalog/pkg/validate"
)

type Handler struct {
	catalogSvc   CatalogService
	borrowingSvc BorrowingService
	paymentSvc   PaymentService
	statusSvc    StatusService
	log          *zap.Logger
}

func New(catalogSvc CatalogService, borrowingSvc BorrowingService, paymentSvc PaymentService, statusSvc StatusService, log *zap.Logger) *Handler {
	return &Handler{
		catalogSvc:   catalogSvc,
		borrowingSvc: borrowingSvc,
		paymentSvc:   paymentSvc,
		statusSvc:    statusSvc,
		log:          log,
	}
}

func (h *Handler) NewRouter() *echo.Echo {
	e := echo.New()
	const (
		baseRPS = 10
		apiRPS  = 100
	)
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 4 << 10, // 4 KB
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodOptions, http.MethodHead, http.MethodPut, http.MethodPatch, http.MethodPost, http.MethodDelete},
		AllowCredentials: true,
	}))

	base := e.Group("", md.NewRateLimiter(baseRPS))
	base.GET("/manage/health", h.Health)

	e.Validator = validate.NewCustomValidator()
	api := e.Group("/api/v1",
		middleware.RequestLoggerWithConfig(md.RequestLoggerConfig()),
		middleware.RequestID(),
		md.NewRateLimiter(apiRPS),
	)

	api.GET("/books", h.ListBooks)
	api.POST("/books", h.AddBook)
	api.GET("/books/search", h.Search)

	api.POST("/borrow", h.Borrow)
	api.POST("/return", h.Return)

	api.GET("/patrons/:patronID/fees/:bookID", h.LateFee)
	api.POST("/patrons/:patronID/fees/:bookID/pay", h.PayLateFee)
	api.POST("/refunds", h.Refund)

	api.GET("/patrons/:patronID/status", h.PatronStatus)

	return e
}

func (h *Handler) Health(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

// httpError maps the service error taxonomy onto HTTP statuses.
func httpError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, errs.ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, errs.ErrNotFound), errors.Is(err, errs.ErrNoActiveLoan):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, errs.ErrDuplicateISBN),
		errors.Is(err, errs.ErrNotAvailable),
		errors.Is(err, errs.ErrBorrowLimit):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, errs.ErrPaymentDeclined):
		return echo.NewHTTPError(http.StatusPaymentRequired, err.Error())
	case errors.Is(err, errs.ErrPaymentProcessing):
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func (h *Handler) AddBook(c echo.Context) error {
	var req model.AddBookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	res, err := h.catalogSvc.AddBook(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, res)
}

func (h *Handler) ListBooks(c echo.Context) error {
	books, err := h.catalogSvc.ListBooks(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, books)
}

func (h *Handler) Search(c echo.Context) error {
	term := c.QueryParam("q")
	searchType := c.QueryParam("type")
	if searchType == "" {
		searchType = "title"
	}
	books, err := h.catalogSvc.Search(c.Request().Context(), term, searchType)
	if err != nil {
		return httpError(err)
	}
	type searchResponse struct {
		SearchTerm string       `json:"search_term"`
		SearchType string       `json:"search_type"`
		Results    []model.Book `json:"results"`
		Count      int          `json:"count"`
	}
	return c.JSON(http.StatusOK, searchResponse{
		SearchTerm: term,
		SearchType: searchType,
		Results:    books,
		Count:      len(books),
	})
}

func (h *Handler) Borrow(c echo.Context) error {
	var req model.BorrowRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	res, err := h.borrowingSvc.Borrow(c.Request().Context(), req.PatronID, req.BookID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) Return(c echo.Context) error {
	var req model.ReturnRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	res, err := h.borrowingSvc.Return(c.Request().Context(), req.PatronID, req.BookID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) bookIDParam(c echo.Context) (int, error) {
	bookID, err := strconv.Atoi(c.Param("bookID"))
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "bookID is invalid")
	}
	return bookID, nil
}

func (h *Handler) LateFee(c echo.Context) error {
	bookID, err := h.bookIDParam(c)
	if err != nil {
		return err
	}
	res, err := h.paymentSvc.CalculateLateFee(c.Request().Context(), c.Param("patronID"), bookID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) PayLateFee(c echo.Context) error {
	bookID, err := h.bookIDParam(c)
	if err != nil {
		return err
	}
	res, err := h.paymentSvc.PayLateFee(c.Request().Context(), c.Param("patronID"), bookID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) Refund(c echo.Context) error {
	var req model.RefundRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	res, err := h.paymentSvc.RefundLateFee(c.Request().Context(), req.TransactionID, req.Amount)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) PatronStatus(c echo.Context) error {
	res, err := h.statusSvc.PatronStatus(c.Request().Context(), c.Param("patronID"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, res)
}
