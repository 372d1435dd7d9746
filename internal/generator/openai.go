package generator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/ssestream"
)

// ErrRefused indicates the model declined to answer.
var ErrRefused = errors.New("model refused the request")

// OpenAIConfig holds connection settings for an OpenAI-compatible endpoint.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	MaxRetries int
	Timeout    time.Duration
}

// OpenAI is a Backend for the chat completions API using strict JSON schema
// response formats.
type OpenAI struct {
	client openai.Client
}

// NewOpenAI creates an OpenAI backend.
func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	return &OpenAI{client: openai.NewClient(opts...)}
}

// Complete sends a single chat completion and returns the message content.
func (o *OpenAI) Complete(ctx context.Context, req Request) (string, error) {
	resp, err := o.client.Chat.Completions.New(ctx, params(req))
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	msg := resp.Choices[0].Message
	if msg.Refusal != "" {
		return "", fmt.Errorf("%w: %s", ErrRefused, msg.Refusal)
	}

	return msg.Content, nil
}

// Stream opens a streaming chat completion. Transport errors surface from
// the returned stream's Err.
func (o *OpenAI) Stream(ctx context.Context, req Request) (DeltaStream, error) {
	s := o.client.Chat.Completions.NewStreaming(ctx, params(req))
	if err := s.Err(); err != nil {
		s.Close()
		return nil, err
	}
	return &openaiStream{stream: s}, nil
}

func params(req Request) openai.ChatCompletionNewParams {
	return openai.ChatCompletionNewParams{
		Model: openai.ChatModel(req.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(req.User),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   req.SchemaName,
					Schema: req.Schema,
					Strict: openai.Bool(true),
				},
			},
		},
	}
}

type openaiStream struct {
	stream  *ssestream.Stream[openai.ChatCompletionChunk]
	current string
	refusal string
}

func (s *openaiStream) Next() bool {
	for s.stream.Next() {
		chunk := s.stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta
		if delta.Refusal != "" {
			s.refusal += delta.Refusal
			continue
		}
		if delta.Content == "" {
			continue
		}
		s.current = delta.Content
		return true
	}
	return false
}

func (s *openaiStream) Delta() string {
	return s.current
}

func (s *openaiStream) Err() error {
	if err := s.stream.Err(); err != nil {
		return err
	}
	if s.refusal != "" {
		return fmt.Errorf("%w: %s", ErrRefused, s.refusal)
	}
	return nil
}

func (s *openaiStream) Close() error {
	return s.stream.Close()
}
