package openai

// Model describes a single entry in a model listing.
type Model struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	OwnedBy string `json:"owned_by,omitempty"`
}

// ModelList is the OpenAI-style wrapper around a model listing.
type ModelList struct {
	Object string  `json:"object"`
	Data   []Model `json:"data"`
}
