// Package llm provides pluggable language-model backends used for
// dialogue generation.
package llm

import (
	"context"
	"fmt"

	"github.com/docucast/docucast/internal/config"
)

// Request describes a single completion call.
type Request struct {
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// Generator defines a pluggable LLM backend. Complete blocks until the
// full response text is available or ctx is done.
type Generator interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// New builds the backend selected by config.
func New(cfg config.LLMConfig) (Generator, error) {
	switch cfg.Mode {
	case "mock":
		return NewMockGenerator(), nil
	case "ollama":
		return NewOllamaGenerator(cfg.Endpoint, cfg.Model), nil
	case "openai":
		return NewOpenAIGenerator(cfg.Model)
	case "exec":
		return NewExecGenerator(cfg.Command)
	default:
		return nil, fmt.Errorf("unknown llm mode %q", cfg.Mode)
	}
}
