package openai_test

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ferrylabs/ferry/pkg/openai"
)

var _ = Describe("ChatCompletionRequest", func() {
	Describe("Validate", func() {
		Context("when messages are missing", func() {
			It("rejects a request with no messages field", func() {
				req := openai.ChatCompletionRequest{}

				Expect(req.Validate()).To(MatchError(ContainSubstring("messages")))
			})

			It("rejects an empty messages slice", func() {
				req := openai.ChatCompletionRequest{Messages: []openai.Message{}}

				Expect(req.Validate()).To(HaveOccurred())
			})
		})

		Context("when a message is malformed", func() {
			It("names the index of a message missing a role", func() {
				req := openai.ChatCompletionRequest{Messages: []openai.Message{
					{Role: "user", Content: "hi"},
					{Content: "orphan"},
				}}

				Expect(req.Validate()).To(MatchError(ContainSubstring("messages[1]")))
			})

			It("names the index of a message missing content", func() {
				req := openai.ChatCompletionRequest{Messages: []openai.Message{
					{Role: "user"},
				}}

				err := req.Validate()
				Expect(err).To(MatchError(ContainSubstring("messages[0]")))
				Expect(err).To(MatchError(ContainSubstring("content")))
			})
		})

		Context("when the request is well-formed", func() {
			It("accepts it", func() {
				req := openai.ChatCompletionRequest{Messages: []openai.Message{
					{Role: "system", Content: "be brief"},
					{Role: "user", Content: "hi"},
				}}

				Expect(req.Validate()).To(Succeed())
			})
		})
	})

	Describe("Normalize", func() {
		It("substitutes the default model when none is given", func() {
			req := openai.ChatCompletionRequest{Messages: []openai.Message{{Role: "user", Content: "hi"}}}

			out := req.Normalize("fallback-model")

			Expect(out.Model).To(Equal("fallback-model"))
		})

		It("keeps an explicit model", func() {
			req := openai.ChatCompletionRequest{Model: "chosen-model"}

			out := req.Normalize("fallback-model")

			Expect(out.Model).To(Equal("chosen-model"))
		})

		It("fills temperature, max_tokens and stream defaults", func() {
			out := openai.ChatCompletionRequest{}.Normalize("m")

			Expect(*out.Temperature).To(Equal(openai.DefaultTemperature))
			Expect(*out.MaxTokens).To(Equal(openai.DefaultMaxTokens))
			Expect(*out.Stream).To(BeFalse())
		})

		It("keeps explicit values, including zero", func() {
			temp := 0.0
			tokens := 16
			stream := true
			req := openai.ChatCompletionRequest{
				Temperature: &temp,
				MaxTokens:   &tokens,
				Stream:      &stream,
			}

			out := req.Normalize("m")

			Expect(*out.Temperature).To(Equal(0.0))
			Expect(*out.MaxTokens).To(Equal(16))
			Expect(*out.Stream).To(BeTrue())
		})

		It("leaves unset optional sampling parameters nil", func() {
			out := openai.ChatCompletionRequest{}.Normalize("m")

			Expect(out.TopP).To(BeNil())
			Expect(out.FrequencyPenalty).To(BeNil())
			Expect(out.PresencePenalty).To(BeNil())
		})

		It("does not mutate the original request", func() {
			req := openai.ChatCompletionRequest{}
			req.Normalize("m")

			Expect(req.Temperature).To(BeNil())
			Expect(req.Model).To(BeEmpty())
		})
	})

	Describe("IsStreaming", func() {
		It("is false when stream is unset", func() {
			Expect(openai.ChatCompletionRequest{}.IsStreaming()).To(BeFalse())
		})

		It("is false when stream is explicitly false", func() {
			stream := false
			Expect(openai.ChatCompletionRequest{Stream: &stream}.IsStreaming()).To(BeFalse())
		})

		It("is true when stream is explicitly true", func() {
			stream := true
			Expect(openai.ChatCompletionRequest{Stream: &stream}.IsStreaming()).To(BeTrue())
		})
	})

	Describe("JSON encoding", func() {
		It("omits optional parameters that were never set", func() {
			out := openai.ChatCompletionRequest{
				Messages: []openai.Message{{Role: "user", Content: "hi"}},
			}.Normalize("m")

			encoded, err := json.Marshal(out)
			Expect(err).NotTo(HaveOccurred())

			var raw map[string]any
			Expect(json.Unmarshal(encoded, &raw)).To(Succeed())
			Expect(raw).NotTo(HaveKey("top_p"))
			Expect(raw).NotTo(HaveKey("frequency_penalty"))
			Expect(raw).NotTo(HaveKey("presence_penalty"))
		})

		It("encodes defaulted fields with their values", func() {
			out := openai.ChatCompletionRequest{
				Messages: []openai.Message{{Role: "user", Content: "hi"}},
			}.Normalize("m")

			encoded, err := json.Marshal(out)
			Expect(err).NotTo(HaveOccurred())

			var raw map[string]any
			Expect(json.Unmarshal(encoded, &raw)).To(Succeed())
			Expect(raw).To(HaveKeyWithValue("model", "m"))
			Expect(raw).To(HaveKeyWithValue("temperature", 0.7))
			Expect(raw).To(HaveKeyWithValue("max_tokens", float64(4096)))
			Expect(raw).To(HaveKeyWithValue("stream", false))
		})
	})
})
