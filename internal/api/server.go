// Package api serves the read-only query API over the ledger.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fd1az/nft-auction/internal/apm"
	"github.com/fd1az/nft-auction/internal/apperror"
	"github.com/fd1az/nft-auction/internal/logger"
)

const tracerName = "nft-auction/api"

// Server is the fiber application behind the query API.
type Server struct {
	app    *fiber.App
	deps   Dependencies
	log    logger.LoggerInterface
	tracer apm.Tracer
}

// New builds the server and registers its routes.
func New(deps Dependencies, log logger.LoggerInterface) *Server {
	s := &Server{
		deps:   deps,
		log:    log,
		tracer: apm.NewTracer(tracerName),
	}

	s.app = fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler:          s.handleError,
	})

	s.app.Use(recover.New())
	s.app.Use(cors.New(cors.Config{AllowMethods: "GET,HEAD,OPTIONS"}))
	s.app.Use(s.trace)
	s.routes()
	return s
}

func (s *Server) routes() {
	v1 := s.app.Group("/api/v1")

	v1.Get("/registry", s.getRegistry)
	v1.Get("/sellers/:address/auctions", s.getAuctionsByUser)

	v1.Get("/auctions", s.listAuctions)
	v1.Get("/auctions/:address", s.getAuction)
	v1.Get("/auctions/:address/price", s.getPriceInUSD)
	v1.Get("/auctions/:address/highest-bid/usd", s.getHighestBidInUSD)
	v1.Get("/auctions/:address/pending/:account", s.getPendingReturn)

	v1.Get("/collections/:address/tokens/:id", s.getToken)
	v1.Get("/balances/:currency/:account", s.getBalance)
	v1.Get("/events", s.listEvents)
	v1.Get("/feeds", s.listFeeds)
}

// App exposes the fiber app, mainly for app.Test in tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen blocks serving on port until Shutdown.
func (s *Server) Listen(port int) error {
	s.log.Info(context.Background(), "query api listening", "port", port)
	return s.app.Listen(fmt.Sprintf(":%d", port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// trace wraps every request in a span and logs it with the span's trace id.
func (s *Server) trace(c *fiber.Ctx) error {
	start := time.Now()
	ctx, span := s.tracer.StartSpanFromContext(c.UserContext(), "api "+c.Method())
	defer span.End()
	c.SetUserContext(ctx)

	err := c.Next()
	if err != nil {
		// Let the error handler write the status before it is recorded.
		if herr := s.app.ErrorHandler(c, err); herr != nil {
			return herr
		}
		span.NoticeError(err)
	}

	status := c.Response().StatusCode()
	span.SetAttributes(
		attribute.String("http.method", c.Method()),
		attribute.String("http.path", c.Path()),
		attribute.Int("http.status_code", status),
	)

	args := []any{"method", c.Method(), "path", c.Path(), "status", status, "duration", time.Since(start)}
	switch {
	case status >= http.StatusInternalServerError:
		s.log.Error(ctx, "api request", append(args, "error", err)...)
	case status >= http.StatusBadRequest:
		s.log.Warn(ctx, "api request", args...)
	default:
		s.log.Debug(ctx, "api request", args...)
	}
	return nil
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{
			"error": fiber.Map{"code": apperror.CodeNotFound, "message": fe.Message},
		})
	}

	var ae *apperror.AppError
	if !errors.As(err, &ae) {
		ae = apperror.Internal(apperror.CodeInternalError, c.Path(), err)
	}

	if span := s.tracer.SpanFromContext(c.UserContext()); span.SpanContext().HasTraceID() {
		ae = ae.WithTraceID(span.SpanContext().TraceID().String())
	}
	return c.Status(ae.StatusCode).JSON(ae.ToResponse())
}
