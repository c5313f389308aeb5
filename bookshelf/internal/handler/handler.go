package handler

import (
	_ "embed"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/zap"

	"github.com/Astemirdum/bookshelf/bookshelf/internal/errs"
	"github.com/Astemirdum/bookshelf/bookshelf/internal/model"
	md "github.com/Astemirdum/bookshelf/pkg/middleware"
	"github.com/Astemirdum/bookshelf/pkg/validate"
	_ "github.com/Astemirdum/bookshelf/swagger"
)

//go:embed ui/index.html
var indexHTML []byte

type Handler struct {
	bookSvc       BookService
	log           *zap.Logger
	shutdown      func()
	shutdownDelay time.Duration
}

type Option func(h *Handler)

// WithShutdown enables POST /api/shutdown. fn runs delay after the response is sent.
func WithShutdown(fn func(), delay time.Duration) Option {
	return func(h *Handler) {
		h.shutdown = fn
		h.shutdownDelay = delay
	}
}

func New(bookSvc BookService, log *zap.Logger, opts ...Option) *Handler {
	h := &Handler{
		bookSvc: bookSvc,
		log:     log.Named("handler"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type okResponse struct {
	OK bool `json:"ok"`
}

type bookIDParam struct {
	ID int64 `param:"id" validate:"gt=0"`
}

func (h *Handler) NewRouter() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = h.errorHandler
	const (
		baseRPS = 10
		apiRPS  = 100
	)
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 4 << 10, // 4 KB
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodOptions, http.MethodHead, http.MethodPut, http.MethodPost, http.MethodDelete},
	}))

	base := e.Group("", md.NewRateLimiter(baseRPS))
	base.GET("/", h.Index)
	base.GET("/manage/health", h.Health)
	base.GET("/swagger/*", echoSwagger.WrapHandler)

	e.Validator = validate.NewCustomValidator()
	api := e.Group("/api",
		middleware.RequestLoggerWithConfig(md.RequestLoggerConfig(h.log)),
		md.NewRequestID(),
		md.NewRateLimiter(apiRPS),
	)

	api.GET("/books", h.ListBooks)
	api.GET("/books/:id", h.GetBook)
	api.POST("/books", h.CreateBook)
	api.PUT("/books/:id", h.UpdateBook)
	api.DELETE("/books/:id", h.DeleteBook)

	if h.shutdown != nil {
		api.POST("/shutdown", h.Shutdown)
	}

	return e
}

func (h *Handler) Health(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

func (h *Handler) Index(c echo.Context) error {
	return c.HTMLBlob(http.StatusOK, indexHTML)
}

// ListBooks godoc
// @Summary list books, most recently updated first
// @Param   q      query string false "substring of title, author or borrower"
// @Param   status query string false "home or lent"
// @Success 200 {array} model.Book
// @Router  /api/books [get]
func (h *Handler) ListBooks(c echo.Context) error {
	var filter model.ListFilter
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &filter); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid query").SetInternal(err)
	}
	if err := c.Validate(&filter); err != nil {
		return err
	}
	books, err := h.bookSvc.ListBooks(c.Request().Context(), filter)
	if err != nil {
		return h.bookError(err)
	}
	return c.JSON(http.StatusOK, books)
}

func (h *Handler) GetBook(c echo.Context) error {
	id, err := bindID(c)
	if err != nil {
		return err
	}
	book, err := h.bookSvc.GetBook(c.Request().Context(), id)
	if err != nil {
		return h.bookError(err)
	}
	return c.JSON(http.StatusOK, book)
}

func (h *Handler) CreateBook(c echo.Context) error {
	var input model.BookInput
	if err := c.Bind(&input); err != nil {
		return bindError(err)
	}
	book, err := h.bookSvc.CreateBook(c.Request().Context(), input)
	if err != nil {
		return h.bookError(err)
	}
	return c.JSON(http.StatusCreated, book)
}

func (h *Handler) UpdateBook(c echo.Context) error {
	id, err := bindID(c)
	if err != nil {
		return err
	}
	var input model.BookInput
	if err = (&echo.DefaultBinder{}).BindBody(c, &input); err != nil {
		return bindError(err)
	}
	book, err := h.bookSvc.UpdateBook(c.Request().Context(), id, input)
	if err != nil {
		return h.bookError(err)
	}
	return c.JSON(http.StatusOK, book)
}

func (h *Handler) DeleteBook(c echo.Context) error {
	id, err := bindID(c)
	if err != nil {
		return err
	}
	ok, err := h.bookSvc.DeleteBook(c.Request().Context(), id)
	if err != nil {
		return h.bookError(err)
	}
	return c.JSON(http.StatusOK, okResponse{OK: ok})
}

func (h *Handler) Shutdown(c echo.Context) error {
	if err := c.JSON(http.StatusOK, okResponse{OK: true}); err != nil {
		return err
	}
	h.log.Info("shutdown requested", zap.Duration("delay", h.shutdownDelay))
	time.AfterFunc(h.shutdownDelay, h.shutdown)
	return nil
}

func bindID(c echo.Context) (int64, error) {
	var p bookIDParam
	if err := (&echo.DefaultBinder{}).BindPathParams(c, &p); err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id").SetInternal(err)
	}
	if err := c.Validate(&p); err != nil {
		return 0, err
	}
	return p.ID, nil
}

func bindError(err error) error {
	var he *echo.HTTPError
	if errors.As(err, &he) && he.Code == http.StatusUnsupportedMediaType {
		return he
	}
	return echo.NewHTTPError(http.StatusBadRequest, "invalid json body").SetInternal(err)
}

func (h *Handler) bookError(err error) error {
	if vErr, ok := errs.AsValidation(err); ok {
		return echo.NewHTTPError(http.StatusBadRequest, vErr.Message)
	}
	if errors.Is(err, errs.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, errs.ErrNotFound.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
}

// errorHandler renders every error as {"error": message}.
// Server errors are logged and never expose their cause.
func (h *Handler) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	msg := "server error"
	cause := err

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if code < http.StatusInternalServerError {
			msg = fmt.Sprint(he.Message)
		}
		if he.Internal != nil {
			cause = he.Internal
		}
	}
	if code >= http.StatusInternalServerError {
		h.log.Error("request failed",
			zap.String("method", c.Request().Method),
			zap.String("uri", c.Request().RequestURI),
			zap.Error(cause))
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, errs.ErrorResponse{Error: msg})
	}
	if err != nil {
		h.log.Error("write error response", zap.Error(err))
	}
}
