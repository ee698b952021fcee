// Package providers abstracts the outbound language-model call used when
// posting a message with generation enabled.
package providers

import "context"

// GenerateRequest is one completion call. Params that are nil fall back
// to provider defaults.
type GenerateRequest struct {
	Model       string
	Prompt      string
	Temperature *float64
	MaxTokens   *uint32
	TopP        *float64
}

// GenerateResponse is the model's reply.
type GenerateResponse struct {
	Content string
	Model   string
}

// LanguageModel is implemented by each upstream model client.
type LanguageModel interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
	Name() string
}
