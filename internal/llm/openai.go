package llm

import (
	"context"
	"errors"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// OpenAIClient talks to any OpenAI-compatible chat and embeddings API
// (OpenAI, DeepSeek, and friends) selected by base URL.
type OpenAIClient struct {
	client     *openai.Client
	genModel   string
	embedModel string
	limiter    *rate.Limiter
}

// NewOpenAIClient creates a client for an OpenAI-compatible endpoint.
func NewOpenAIClient(baseURL, apiKey, genModel, embedModel string, limiter *rate.Limiter) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIClient{
		client:     openai.NewClientWithConfig(cfg),
		genModel:   genModel,
		embedModel: embedModel,
		limiter:    limiter,
	}
}

// Embed generates embeddings for the given texts in one request.
func (c *OpenAIClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, &Error{Op: "embed", Err: errors.New("empty input array")}
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &Error{Op: "embed", Err: err}
	}

	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(c.embedModel),
	})
	if err != nil {
		return nil, classify("embed", err)
	}

	if len(resp.Data) != len(texts) {
		return nil, &Error{Op: "embed", Err: fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))}
	}

	vectors := make([][]float32, len(resp.Data))
	for i, data := range resp.Data {
		vectors[i] = data.Embedding
	}
	return vectors, nil
}

// Generate returns the full completion for the request.
func (c *OpenAIClient) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", &Error{Op: "generate", Err: err}
	}

	resp, err := c.client.CreateChatCompletion(ctx, c.chatRequest(req, false))
	if err != nil {
		return "", classify("generate", err)
	}
	if len(resp.Choices) == 0 {
		return "", &Error{Op: "generate", Transient: true, Err: errors.New("no choices returned")}
	}
	return resp.Choices[0].Message.Content, nil
}

// Stream starts a streaming completion and forwards deltas as they arrive.
func (c *OpenAIClient) Stream(ctx context.Context, req GenerateRequest) (<-chan string, <-chan error) {
	out := make(chan string)
	errc := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errc)

		if err := c.limiter.Wait(ctx); err != nil {
			errc <- &Error{Op: "stream", Err: err}
			return
		}

		stream, err := c.client.CreateChatCompletionStream(ctx, c.chatRequest(req, true))
		if err != nil {
			errc <- classify("stream", err)
			return
		}
		defer func() {
			_ = stream.Close()
		}()

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				errc <- classify("stream", err)
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}
			delta := resp.Choices[0].Delta.Content
			if delta == "" {
				continue
			}
			select {
			case out <- delta:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, errc
}

func (c *OpenAIClient) chatRequest(req GenerateRequest, stream bool) openai.ChatCompletionRequest {
	msgs := req.messages()
	converted := make([]openai.ChatCompletionMessage, len(msgs))
	for i, msg := range msgs {
		converted[i] = openai.ChatCompletionMessage{Role: msg.Role, Content: msg.Content}
	}
	return openai.ChatCompletionRequest{
		Model:       c.genModel,
		Messages:    converted,
		Temperature: req.Temperature,
		Stream:      stream,
	}
}

// classify maps go-openai errors onto the transient/permanent taxonomy.
func classify(op string, err error) *Error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return newStatusError(op, apiErr.HTTPStatusCode, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return newStatusError(op, reqErr.HTTPStatusCode, err)
	}
	return newTransportError(op, err)
}
