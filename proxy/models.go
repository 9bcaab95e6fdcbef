package proxy

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/ferrylabs/ferry/pkg/openai"
)

const modelsPath = "/v1/models"

// fallbackModelIDs is the fixed list served when the upstream listing is
// unavailable. The configured default model is always listed first.
var fallbackModelIDs = []string{
	"llama-3.1-8b-instant",
	"llama-3.3-70b-versatile",
	"mixtral-8x7b-32768",
}

// handleModels relays the upstream model list, falling back to a small
// fixed list when the upstream call fails for any reason.
func (p *Proxy) handleModels(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), p.config.Timeout)
	defer cancel()

	url := strings.TrimRight(p.config.UpstreamURL, "/") + modelsPath
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return p.fallbackModels(c, err)
	}
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+p.config.APIKey)
	req.Header.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return p.fallbackModels(c, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return p.fallbackModels(c, errUpstreamStatus(resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return p.fallbackModels(c, err)
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(body)
}

func (p *Proxy) fallbackModels(c *fiber.Ctx, err error) error {
	p.logger.Warn("upstream model listing failed, serving fallback list", zap.Error(err))

	models := []openai.Model{{
		ID:      p.config.DefaultModel,
		Object:  "model",
		OwnedBy: "ferry",
	}}
	for _, id := range fallbackModelIDs {
		if id == p.config.DefaultModel {
			continue
		}
		models = append(models, openai.Model{
			ID:      id,
			Object:  "model",
			OwnedBy: "ferry",
		})
	}

	return c.JSON(openai.ModelList{
		Object: "list",
		Data:   models,
	})
}

type errUpstreamStatus int

func (e errUpstreamStatus) Error() string {
	return fmt.Sprintf("upstream returned status %d", int(e))
}
