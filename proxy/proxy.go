// Package proxy implements a stateless pass-through relay that translates
// OpenAI-style chat-completion requests into upstream provider calls and
// relays the result, streamed or buffered, back to the caller.
package proxy

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/ferrylabs/ferry/pkg/openai"
)

// Proxy is a stateless relay in front of a single upstream inference
// provider. It holds no per-request state; every handler builds what it
// needs from the inbound request and the immutable Config.
type Proxy struct {
	config     Config
	logger     *zap.Logger
	httpClient *http.Client
	server     *fiber.App
}

// New creates a new Proxy.
func New(config Config, logger *zap.Logger) *Proxy {
	app := fiber.New(fiber.Config{
		// Disable startup message for cleaner logs
		DisableStartupMessage: true,
		// Enable streaming
		StreamRequestBody: true,
		ErrorHandler:      newErrorHandler(logger),
	})

	p := &Proxy{
		config: config,
		logger: logger,
		server: app,
		httpClient: &http.Client{
			// No overall client timeout: it would cut long-lived streams
			// short. Buffered requests run under a context deadline, and
			// the transport bounds how long any request may wait for
			// response headers.
			Transport: &http.Transport{
				ResponseHeaderTimeout: config.Timeout,
			},
		},
	}

	app.Use(recover.New())
	app.Use(cors.New())
	app.Use(p.accessLog)

	// Register routes
	app.Get("/", p.handleRoot)
	app.Get("/health", p.handleHealth)
	app.Post("/v1/chat/completions", p.handleChatCompletions)
	app.Get("/v1/models", p.handleModels)

	// Anything that falls through the route table
	app.Use(handleNotFound)

	return p
}

// Run starts the relay server on the configured listening address.
func (p *Proxy) Run() error {
	p.logger.Info("starting relay server",
		zap.String("listen", p.config.ListenAddr),
		zap.String("upstream", p.config.UpstreamURL),
		zap.Duration("timeout", p.config.Timeout),
	)

	return p.server.Listen(p.config.ListenAddr)
}

// Shutdown stops accepting new connections and waits for in-flight
// requests to finish, up to the context deadline.
func (p *Proxy) Shutdown(ctx context.Context) error {
	return p.server.ShutdownWithContext(ctx)
}

// accessLog emits one structured log line per request.
func (p *Proxy) accessLog(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	p.logger.Info("request",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Int("status", c.Response().StatusCode()),
		zap.Duration("duration", time.Since(start)),
	)

	return err
}

func (p *Proxy) handleRoot(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"service":  "ferry",
		"status":   "ok",
		"upstream": p.config.UpstreamURL,
	})
}

func (p *Proxy) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func handleNotFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(openai.NewErrorWithCode(
		"no route matches "+c.Method()+" "+c.Path(),
		openai.ErrorTypeInvalidRequest,
		"route_not_found",
	))
}

// newErrorHandler is the last-resort handler: panics recovered by the
// middleware and errors escaping any handler end up here as the generic
// server_error envelope.
func newErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			code = fiberErr.Code
		}

		logger.Error("unhandled error",
			zap.Error(err),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", code),
		)

		if code == fiber.StatusNotFound {
			return handleNotFound(c)
		}

		return c.Status(code).JSON(openai.NewErrorWithCode(
			"Internal server error",
			openai.ErrorTypeServer,
			"internal_error",
		))
	}
}
