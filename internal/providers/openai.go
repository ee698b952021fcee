package providers

import (
	"context"
	"os"

	openai "github.com/sashabaranov/go-openai"

	"github.com/atc-agent/atc/internal/toolerrors"
)

const defaultOpenAIBase = "https://api.openai.com/v1"

// OpenAIProvider talks to any OpenAI-compatible chat completion
// endpoint.
type OpenAIProvider struct {
	client *openai.Client
}

// NewOpenAIFromEnv builds a provider from OPENAI_API_KEY and an optional
// OPENAI_BASE_URL. A missing key is allowed; the first Generate call
// will fail upstream instead.
func NewOpenAIFromEnv() *OpenAIProvider {
	cfg := openai.DefaultConfig(os.Getenv("OPENAI_API_KEY"))
	if base := os.Getenv("OPENAI_BASE_URL"); base != "" {
		cfg.BaseURL = base
	} else {
		cfg.BaseURL = defaultOpenAIBase
	}
	return &OpenAIProvider{client: openai.NewClientWithConfig(cfg)}
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	cr := openai.ChatCompletionRequest{
		Model: req.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
	}
	if req.Temperature != nil {
		cr.Temperature = float32(*req.Temperature)
	}
	if req.MaxTokens != nil {
		cr.MaxTokens = int(*req.MaxTokens)
	}
	if req.TopP != nil {
		cr.TopP = float32(*req.TopP)
	}

	resp, err := p.client.CreateChatCompletion(ctx, cr)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, toolerrors.Wrap(toolerrors.KindUpstreamFailure, err, "model call")
	}
	if len(resp.Choices) == 0 {
		return nil, toolerrors.New(toolerrors.KindUpstreamFailure, "model returned no choices")
	}
	return &GenerateResponse{Content: resp.Choices[0].Message.Content, Model: resp.Model}, nil
}
