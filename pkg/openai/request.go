// Package openai provides the wire types for the OpenAI-compatible
// chat-completions surface that ferry exposes and relays upstream.
package openai

import "fmt"

// Defaults substituted by Normalize when the caller omits a field.
const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 4096
)

// ChatCompletionRequest represents an OpenAI-style chat completion request.
// Optional sampling parameters are pointers so that a field the caller never
// sent stays absent when the payload is re-encoded for the upstream provider.
type ChatCompletionRequest struct {
	Model            string    `json:"model,omitempty"`
	Messages         []Message `json:"messages"`
	Temperature      *float64  `json:"temperature,omitempty"`
	MaxTokens        *int      `json:"max_tokens,omitempty"`
	Stream           *bool     `json:"stream,omitempty"`
	TopP             *float64  `json:"top_p,omitempty"`
	FrequencyPenalty *float64  `json:"frequency_penalty,omitempty"`
	PresencePenalty  *float64  `json:"presence_penalty,omitempty"`
}

// Validate checks the request shape. Messages must be present and non-empty,
// and every message must carry both a role and content. The returned error
// names the offending message index so callers can surface it directly.
func (r ChatCompletionRequest) Validate() error {
	if len(r.Messages) == 0 {
		return fmt.Errorf("messages is required and must not be empty")
	}
	for i, msg := range r.Messages {
		if msg.Role == "" {
			return fmt.Errorf("messages[%d] is missing a role", i)
		}
		if msg.Content == "" {
			return fmt.Errorf("messages[%d] is missing content", i)
		}
	}
	return nil
}

// Normalize returns the payload to forward upstream, with provider defaults
// filled in for model, temperature, max_tokens and stream. Optional sampling
// parameters the caller did not set remain nil, so they are omitted from the
// encoded payload entirely rather than sent as null or zero.
func (r ChatCompletionRequest) Normalize(defaultModel string) ChatCompletionRequest {
	out := r
	if out.Model == "" {
		out.Model = defaultModel
	}
	if out.Temperature == nil {
		t := DefaultTemperature
		out.Temperature = &t
	}
	if out.MaxTokens == nil {
		m := DefaultMaxTokens
		out.MaxTokens = &m
	}
	if out.Stream == nil {
		s := false
		out.Stream = &s
	}
	return out
}

// IsStreaming reports whether the caller asked for a streamed response.
func (r ChatCompletionRequest) IsStreaming() bool {
	return r.Stream != nil && *r.Stream
}
