// Package receiver implements a mock SDN receiver: an HTTP endpoint that
// accepts LyncDiagnostics POSTs the way a real SDN consumer would, logs the
// identifiers of every record and appends it to an output in extract format.
package receiver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/roach88/sfbtools/internal/extract"
	"github.com/roach88/sfbtools/internal/message"
)

// Defaults for Options.
const (
	DefaultListen    = "127.0.0.1:8080"
	DefaultPath      = "/"
	DefaultBodyLimit = "16M"
)

const shutdownTimeout = 5 * time.Second

// Options configures a Server.
type Options struct {
	Path      string
	BodyLimit string
	Logger    *slog.Logger
}

// Server accepts SDN records over HTTP.
type Server struct {
	e      *echo.Echo
	out    io.Writer
	logger *slog.Logger

	mu       sync.Mutex
	received int
	rejected int
}

// New creates a server that appends every accepted record to out.
func New(out io.Writer, opts Options) *Server {
	if opts.Path == "" {
		opts.Path = DefaultPath
	}
	if opts.BodyLimit == "" {
		opts.BodyLimit = DefaultBodyLimit
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	s := &Server{out: out, logger: logger}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod: true,
		LogURI:    true,
		LogStatus: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Debug("request", "method", v.Method, "uri", v.URI, "status", v.Status)
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(opts.BodyLimit))

	e.POST(opts.Path, s.handleSDN)
	s.e = e
	return s
}

// Handler exposes the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.e
}

// Counts returns the number of accepted and rejected records so far.
func (s *Server) Counts() (received, rejected int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.received, s.rejected
}

// Addr returns the listening address, or nil before ListenAndServe binds.
func (s *Server) Addr() net.Addr {
	return s.e.ListenerAddr()
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	errc := make(chan error, 1)
	go func() {
		errc <- s.e.Start(addr)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen %s: %w", addr, err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.e.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		<-errc
		return nil
	}
}

// handleSDN answers an empty body (the sender's connection probe) with 200
// and otherwise requires exactly one well-formed LyncDiagnostics record.
func (s *Server) handleSDN(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "read body").SetInternal(err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		s.logger.Info("probe received", "remote", c.RealIP())
		return c.String(http.StatusOK, "OK")
	}

	msg, err := extract.One(body, message.KindSDN)
	if err != nil {
		s.mu.Lock()
		s.rejected++
		s.mu.Unlock()
		s.logger.Warn("rejected record", "remote", c.RealIP(), "error", err)
		return c.String(http.StatusBadRequest, err.Error())
	}
	sdn := msg.(*message.SDN)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := io.WriteString(s.out, extract.Separator+sdn.String()); err != nil {
		s.logger.Error("write record", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "write record").SetInternal(err)
	}
	s.received++

	call, _ := sdn.CallID()
	conf, _ := sdn.ConferenceID()
	s.logger.Info("record received", "seq", s.received, "call_id", call, "conference_id", conf)
	return c.NoContent(http.StatusOK)
}
