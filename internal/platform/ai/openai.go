package ai

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	TextModel   string
	VisionModel string
	Timeout     time.Duration
}

// OpenAIClient implements Analyzer and Transcriber over the chat completion
// and audio translation endpoints.
type OpenAIClient struct {
	client      *openai.Client
	textModel   string
	visionModel string
	timeout     time.Duration
	temperature float32
}

func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	textModel := cfg.TextModel
	if textModel == "" {
		textModel = openai.GPT4o
	}
	visionModel := cfg.VisionModel
	if visionModel == "" {
		visionModel = openai.GPT4o
	}
	return &OpenAIClient{
		client:      openai.NewClientWithConfig(oc),
		textModel:   textModel,
		visionModel: visionModel,
		timeout:     cfg.Timeout,
	}, nil
}

// WithTemperature returns a copy of c that samples at t.
func (c *OpenAIClient) WithTemperature(t float32) *OpenAIClient {
	cp := *c
	cp.temperature = t
	return &cp
}

func (c *OpenAIClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func (c *OpenAIClient) Complete(ctx context.Context, system, prompt string, maxTokens int) (string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var msgs []openai.ChatCompletionMessage
	if system != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})

	return c.chat(ctx, openai.ChatCompletionRequest{
		Model:       c.textModel,
		Messages:    msgs,
		MaxTokens:   maxTokens,
		Temperature: c.temperature,
	})
}

func (c *OpenAIClient) DescribeImage(ctx context.Context, prompt, imageB64 string) (string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	return c.chat(ctx, openai.ChatCompletionRequest{
		Model: c.visionModel,
		Messages: []openai.ChatCompletionMessage{{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: prompt},
				{
					Type: openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{
						URL:    "data:image/jpeg;base64," + imageB64,
						Detail: openai.ImageURLDetailAuto,
					},
				},
			},
		}},
		Temperature: c.temperature,
	})
}

func (c *OpenAIClient) chat(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Transcribe uses the translation endpoint so non-English dictation comes
// back in English.
func (c *OpenAIClient) Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	if filename == "" {
		filename = "audio.webm"
	}
	resp, err := c.client.CreateTranslation(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: filename,
		Reader:   audio,
	})
	if err != nil {
		return "", fmt.Errorf("audio translation: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}
