package proxy

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/ferrylabs/ferry/pkg/openai"
)

const chatCompletionsPath = "/v1/chat/completions"

// streamBufferSize is the read-buffer size for the streaming relay. Upstream
// bytes are forwarded one read at a time, so this also bounds how much of the
// stream is ever held in memory.
const streamBufferSize = 32 * 1024

// handleChatCompletions is the relay core: validate the inbound request,
// translate it to the upstream payload, dispatch, and relay the response
// (buffered or streamed) or a normalized error envelope.
func (p *Proxy) handleChatCompletions(c *fiber.Ctx) error {
	var req openai.ChatCompletionRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		p.logger.Debug("failed to parse request", zap.Error(err))
		return writeError(c, fiber.StatusBadRequest,
			openai.NewError("invalid request body: "+err.Error(), openai.ErrorTypeInvalidRequest))
	}

	if err := req.Validate(); err != nil {
		return writeError(c, fiber.StatusBadRequest,
			openai.NewError(err.Error(), openai.ErrorTypeInvalidRequest))
	}

	upstream := req.Normalize(p.config.DefaultModel)

	p.logger.Debug("relaying chat request",
		zap.String("model", upstream.Model),
		zap.Int("message_count", len(upstream.Messages)),
		zap.Bool("stream", upstream.IsStreaming()),
	)

	if upstream.IsStreaming() {
		return p.relayStream(c, upstream)
	}
	return p.relayBuffered(c, upstream)
}

// relayBuffered forwards a non-streaming request and returns the upstream
// body verbatim. Upstream errors (status >= 400) pass through unchanged,
// status code and all; only transport failures are reshaped into envelopes.
func (p *Proxy) relayBuffered(c *fiber.Ctx, payload openai.ChatCompletionRequest) error {
	ctx, cancel := context.WithTimeout(c.Context(), p.config.Timeout)
	defer cancel()

	resp, err := p.dispatch(ctx, payload, false)
	if err != nil {
		return p.upstreamError(c, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return p.upstreamError(c, err)
	}

	if ct := resp.Header.Get(fiber.HeaderContentType); ct != "" {
		c.Set(fiber.HeaderContentType, ct)
	} else {
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	return c.Status(resp.StatusCode).Send(body)
}

// relayStream forwards a streaming request and relays upstream's byte stream
// incrementally, preserving chunk boundaries and ordering. If upstream
// rejects the request before streaming begins, its status and body pass
// through verbatim like the buffered path.
func (p *Proxy) relayStream(c *fiber.Ctx, payload openai.ChatCompletionRequest) error {
	// No deadline here: a generation may legitimately stream for longer
	// than the buffered-path timeout, and the transport's header timeout
	// already bounds the wait for first byte. A caller disconnect surfaces
	// as a failed write or flush in the stream writer below, which closes
	// the upstream body and aborts the relay.
	resp, err := p.dispatch(c.Context(), payload, true)
	if err != nil {
		return p.upstreamError(c, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		p.logger.Warn("upstream rejected streaming request",
			zap.Int("status", resp.StatusCode),
		)
		if ct := resp.Header.Get(fiber.HeaderContentType); ct != "" {
			c.Set(fiber.HeaderContentType, ct)
		}
		return c.Status(resp.StatusCode).Send(body)
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	// Tell nginx-style intermediaries not to buffer the stream
	c.Set("X-Accel-Buffering", "no")

	logger := p.logger
	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		// The writer runs after the handler returns, so the upstream body
		// must be closed here, not in the handler.
		defer resp.Body.Close()

		buf := make([]byte, streamBufferSize)
		for {
			n, err := resp.Body.Read(buf)
			if n > 0 {
				if _, werr := w.Write(buf[:n]); werr != nil {
					logger.Debug("client went away mid-stream", zap.Error(werr))
					return
				}
				// Flush per chunk so bytes reach the caller as they
				// arrive. A failed flush means the caller disconnected;
				// closing the body cancels the upstream read.
				if werr := w.Flush(); werr != nil {
					logger.Debug("client went away mid-stream", zap.Error(werr))
					return
				}
			}
			if err != nil {
				if err != io.EOF {
					logger.Warn("upstream stream ended abnormally", zap.Error(err))
				}
				return
			}
		}
	}))

	return nil
}

// dispatch issues the single upstream POST carrying the translated payload.
func (p *Proxy) dispatch(ctx context.Context, payload openai.ChatCompletionRequest, streaming bool) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	url := strings.TrimRight(p.config.UpstreamURL, "/") + chatCompletionsPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+p.config.APIKey)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if streaming {
		req.Header.Set(fiber.HeaderAccept, "text/event-stream")
	} else {
		req.Header.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)
	}

	return p.httpClient.Do(req)
}
