package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo"
	"github.com/labstack/echo/middleware"
	"github.com/rs/zerolog"

	"github.com/vim-labs/burni-tokens/internal/asset"
	"github.com/vim-labs/burni-tokens/internal/core"
	"github.com/vim-labs/burni-tokens/internal/query"
)

const (
	headerCaller         = "X-Caller-Address"
	headerIdempotencyKey = "X-Idempotency-Key"
)

// Server exposes the engine over HTTP/JSON. Mutations are authenticated
// only by the X-Caller-Address header; any auth layer in front of the
// service is expected to bind callers to addresses.
type Server struct {
	echo    *echo.Echo
	engine  *core.Engine
	queries *query.Service
	log     zerolog.Logger
}

// NewServer builds the HTTP server. queries may be nil when the service
// runs without Postgres; history endpoints then answer 503.
func NewServer(engine *core.Engine, queries *query.Service, log zerolog.Logger) *Server {
	s := &Server{
		echo:    echo.New(),
		engine:  engine,
		queries: queries,
		log:     log,
	}

	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Use(middleware.Recover())

	s.routes()
	return s
}

func (s *Server) routes() {
	e := s.echo

	e.GET("/info", s.getInfo)
	e.GET("/supply", s.getSupply)
	e.GET("/balance/:address", s.getBalance)
	e.POST("/transfer", s.postTransfer)

	e.GET("/assets/:id", s.getAsset)
	e.GET("/assets/:id/uri", s.getAssetURI)
	e.GET("/assets/index/:i", s.getAssetByIndex)
	e.POST("/assets/:id/approve", s.postApprove)
	e.POST("/assets/:id/clear-approval", s.postClearApproval)
	e.POST("/assets/:id/transfer", s.postAssetTransfer)
	e.POST("/assets/:id/multihash", s.postMultihash)

	e.GET("/owners/:address/assets/:i", s.getOwnedAssetByIndex)
	e.GET("/owners/:address/asset-count", s.getAssetCount)

	e.POST("/admin/payment-address", s.postPaymentAddress)
	e.POST("/admin/base-uri", s.postBaseURI)

	e.GET("/interfaces/:id", s.getInterface)

	e.GET("/accounts/:address/history", s.getHistory)
}

// Start blocks serving HTTP on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	err := s.echo.Start(addr)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler exposes the underlying handler for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// caller reads and parses the mandatory X-Caller-Address header.
func caller(c echo.Context) (asset.Address, error) {
	raw := c.Request().Header.Get(headerCaller)
	if raw == "" {
		return asset.ZeroAddress, errors.New("missing " + headerCaller + " header")
	}
	return asset.ParseAddress(raw)
}

func idempotencyKey(c echo.Context) string {
	return c.Request().Header.Get(headerIdempotencyKey)
}

// statusFor maps engine errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, asset.ErrNotFound),
		errors.Is(err, asset.ErrIndexOutOfRange):
		return http.StatusNotFound
	case errors.Is(err, asset.ErrUnauthorized),
		errors.Is(err, asset.ErrNotOwner):
		return http.StatusForbidden
	case errors.Is(err, asset.ErrAlreadySet),
		errors.Is(err, core.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, asset.ErrInsufficientBalance):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}
