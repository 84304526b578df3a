package llmservice

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/SushantGanji3/RAQQuantTradingAgent/internal/config"
	"github.com/SushantGanji3/RAQQuantTradingAgent/internal/models"
)

const systemPrompt = "You are a quantitative trading analyst assistant. " +
	"Provide concise, data-driven insights based on the provided context. " +
	"Every statement must be supported by the numbered context documents or the supplied metrics; " +
	"if the context does not cover the question, say so instead of guessing."

// Generator turns an instruction plus evidence text into prose. The
// orchestrator only hands it evidence it can cite back.
type Generator interface {
	Generate(ctx context.Context, instruction, evidence string) (string, error)
}

// Client is the langchaingo-backed Generator.
type Client struct {
	llm     *openai.LLM
	timeout time.Duration
}

// New builds the chat client from config. The model endpoint may be any
// OpenAI-compatible server (OpenAI, OpenRouter, a local gateway).
func New(cfg *config.LLMConfig) (*Client, error) {
	opts := []openai.Option{
		openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
		openai.WithModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chat LLM: %v", err)
	}
	return &Client{llm: llm, timeout: time.Duration(cfg.TimeoutSecs) * time.Second}, nil
}

func (c *Client) Generate(ctx context.Context, instruction, evidence string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	content := instruction
	if evidence != "" {
		content = instruction + "\n\nContext from financial data and news:\n" + evidence
	}
	messages := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextContent{Text: systemPrompt}},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextContent{Text: content}},
		},
	}

	res, err := c.llm.GenerateContent(ctx, messages,
		llms.WithTemperature(0.7),
		llms.WithMaxTokens(1000),
	)
	if err != nil {
		log.Error().Err(err).Msg("chat LLM call failed")
		return "", models.WrapDependency("generator", err)
	}
	if len(res.Choices) == 0 {
		return "", models.WrapDependency("generator", fmt.Errorf("empty completion"))
	}
	return res.Choices[0].Content, nil
}
