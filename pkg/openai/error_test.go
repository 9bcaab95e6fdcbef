package openai_test

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ferrylabs/ferry/pkg/openai"
)

var _ = Describe("ErrorEnvelope", func() {
	It("wraps message and type under an error key", func() {
		envelope := openai.NewError("something broke", openai.ErrorTypeProxy)

		encoded, err := json.Marshal(envelope)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(encoded)).To(MatchJSON(`{"error":{"message":"something broke","type":"proxy_error"}}`))
	})

	It("includes a code when one is set", func() {
		envelope := openai.NewErrorWithCode("not here", openai.ErrorTypeInvalidRequest, "route_not_found")

		encoded, err := json.Marshal(envelope)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(encoded)).To(MatchJSON(`{"error":{"message":"not here","type":"invalid_request_error","code":"route_not_found"}}`))
	})

	It("omits code and details when unset", func() {
		envelope := openai.NewError("plain", openai.ErrorTypeServer)

		encoded, err := json.Marshal(envelope)
		Expect(err).NotTo(HaveOccurred())

		var raw map[string]map[string]any
		Expect(json.Unmarshal(encoded, &raw)).To(Succeed())
		Expect(raw["error"]).NotTo(HaveKey("code"))
		Expect(raw["error"]).NotTo(HaveKey("details"))
	})

	It("carries upstream details when attached", func() {
		envelope := openai.NewErrorWithCode("upstream request failed", openai.ErrorTypeProxy, "upstream_error")
		envelope.Error.Details = "connection reset by peer"

		encoded, err := json.Marshal(envelope)
		Expect(err).NotTo(HaveOccurred())

		var raw map[string]map[string]any
		Expect(json.Unmarshal(encoded, &raw)).To(Succeed())
		Expect(raw["error"]).To(HaveKeyWithValue("details", "connection reset by peer"))
	})
})
