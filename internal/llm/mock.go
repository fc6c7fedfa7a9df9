package llm

import (
	"context"
	"time"
)

type mockGenerator struct{}

// NewMockGenerator returns a backend that emits a fixed two-turn dialogue
// in the wire format the dialogue parser expects. Useful for dry runs and
// tests without a model endpoint.
func NewMockGenerator() Generator { return &mockGenerator{} }

const mockDialogue = `{
  "dialogue": [
    {"speaker": "narrator", "text": "This section covers the key points of the source material in plain terms."},
    {"speaker": "questioner", "text": "Interesting - can you break down what that means in practice?"},
    {"speaker": "narrator", "text": "Sure. In practice it comes down to a few concrete ideas worth remembering."},
    {"speaker": "questioner", "text": "Got it. What should listeners take away from this part?"}
  ]
}`

func (m *mockGenerator) Complete(ctx context.Context, req Request) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(10 * time.Millisecond):
	}
	return mockDialogue, nil
}
