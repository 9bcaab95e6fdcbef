package openai

// Error type constants used across the relay.
const (
	ErrorTypeInvalidRequest     = "invalid_request_error"
	ErrorTypeTimeout            = "timeout_error"
	ErrorTypeServiceUnavailable = "service_unavailable"
	ErrorTypeProxy              = "proxy_error"
	ErrorTypeServer             = "server_error"
)

// ErrorEnvelope is the JSON shape returned on every failure path.
type ErrorEnvelope struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries a human-readable message plus machine-readable
// type/code. Details holds the upstream error body when the relay is
// configured to expose it.
type ErrorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// NewError creates an error envelope with a message and type.
func NewError(message, errType string) ErrorEnvelope {
	return ErrorEnvelope{
		Error: ErrorDetail{
			Message: message,
			Type:    errType,
		},
	}
}

// NewErrorWithCode creates an error envelope with a message, type and code.
func NewErrorWithCode(message, errType, code string) ErrorEnvelope {
	return ErrorEnvelope{
		Error: ErrorDetail{
			Message: message,
			Type:    errType,
			Code:    code,
		},
	}
}
