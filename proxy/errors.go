package proxy

import (
	"context"
	"errors"
	"net"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/ferrylabs/ferry/pkg/openai"
)

// upstreamError maps a transport-level failure onto the error taxonomy:
// timeouts become 504 timeout_error, unreachable hosts become 503
// service_unavailable, and anything else becomes a generic proxy_error.
func (p *Proxy) upstreamError(c *fiber.Ctx, err error) error {
	status, envelope := p.classifyTransportError(err)

	p.logger.Error("upstream request failed",
		zap.Error(err),
		zap.Int("status", status),
		zap.String("type", envelope.Error.Type),
	)

	return writeError(c, status, envelope)
}

func (p *Proxy) classifyTransportError(err error) (int, openai.ErrorEnvelope) {
	switch {
	case isTimeout(err):
		return fiber.StatusGatewayTimeout, openai.NewErrorWithCode(
			"upstream provider did not respond in time",
			openai.ErrorTypeTimeout,
			"upstream_timeout",
		)
	case isUnreachable(err):
		return fiber.StatusServiceUnavailable, openai.NewErrorWithCode(
			"upstream provider is unreachable",
			openai.ErrorTypeServiceUnavailable,
			"upstream_unreachable",
		)
	default:
		envelope := openai.NewErrorWithCode(
			"upstream request failed",
			openai.ErrorTypeProxy,
			"upstream_error",
		)
		if p.config.IncludeErrorDetails() {
			envelope.Error.Details = err.Error()
		}
		return fiber.StatusInternalServerError, envelope
	}
}

// isTimeout reports whether err was caused by a client-side deadline,
// whether from the request context or the transport's header timeout.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// isUnreachable reports whether err indicates the upstream host could not
// be reached at all: DNS resolution failed or the connection was refused.
func isUnreachable(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}

func writeError(c *fiber.Ctx, status int, envelope openai.ErrorEnvelope) error {
	return c.Status(status).JSON(envelope)
}
