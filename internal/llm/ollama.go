package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/time/rate"
)

// OllamaClient talks to a local Ollama server. Embeddings go through
// /api/embeddings one prompt at a time; chat goes through /api/chat, which
// streams newline-delimited JSON frames.
type OllamaClient struct {
	BaseURL    string
	GenModel   string
	EmbedModel string
	client     *http.Client
	limiter    *rate.Limiter
}

// NewOllamaClient creates a new Ollama client.
func NewOllamaClient(baseURL, genModel, embedModel string, limiter *rate.Limiter) *OllamaClient {
	return &OllamaClient{
		BaseURL:    baseURL,
		GenModel:   genModel,
		EmbedModel: embedModel,
		client:     http.DefaultClient,
		limiter:    limiter,
	}
}

type ollamaEmbeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbeddingResponse struct {
	Embedding []float64 `json:"embedding"`
}

type ollamaChatRequest struct {
	Model    string        `json:"model"`
	Messages []Message     `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float32 `json:"temperature"`
}

type ollamaChatResponse struct {
	Message Message `json:"message"`
	Done    bool    `json:"done"`
}

// Embed generates embeddings for the given texts, one API call per text.
func (c *OllamaClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, &Error{Op: "embed", Err: fmt.Errorf("empty input array")}
	}

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		embedding, err := c.embedOne(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors[i] = embedding
	}
	return vectors, nil
}

func (c *OllamaClient) embedOne(ctx context.Context, text string) ([]float32, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &Error{Op: "embed", Err: err}
	}

	var embResp ollamaEmbeddingResponse
	if err := c.post(ctx, "embed", "/api/embeddings", ollamaEmbeddingRequest{
		Model:  c.EmbedModel,
		Prompt: text,
	}, func(body io.Reader) error {
		return json.NewDecoder(body).Decode(&embResp)
	}); err != nil {
		return nil, err
	}

	if len(embResp.Embedding) == 0 {
		return nil, &Error{Op: "embed", Err: fmt.Errorf("empty embedding returned")}
	}

	// Ollama returns float64 values.
	vec := make([]float32, len(embResp.Embedding))
	for i, v := range embResp.Embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}

// Generate returns the full completion for the request.
func (c *OllamaClient) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", &Error{Op: "generate", Err: err}
	}

	var chatResp ollamaChatResponse
	if err := c.post(ctx, "generate", "/api/chat", ollamaChatRequest{
		Model:    c.GenModel,
		Messages: req.messages(),
		Stream:   false,
		Options:  ollamaOptions{Temperature: req.Temperature},
	}, func(body io.Reader) error {
		return json.NewDecoder(body).Decode(&chatResp)
	}); err != nil {
		return "", err
	}

	return chatResp.Message.Content, nil
}

// Stream starts a streaming completion and forwards deltas as they arrive.
func (c *OllamaClient) Stream(ctx context.Context, req GenerateRequest) (<-chan string, <-chan error) {
	out := make(chan string)
	errc := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errc)

		if err := c.limiter.Wait(ctx); err != nil {
			errc <- &Error{Op: "stream", Err: err}
			return
		}

		err := c.post(ctx, "stream", "/api/chat", ollamaChatRequest{
			Model:    c.GenModel,
			Messages: req.messages(),
			Stream:   true,
			Options:  ollamaOptions{Temperature: req.Temperature},
		}, func(body io.Reader) error {
			scanner := bufio.NewScanner(body)
			scanner.Buffer(make([]byte, 64*1024), 1024*1024)

			for scanner.Scan() {
				line := scanner.Bytes()
				if len(line) == 0 {
					continue
				}

				var frame ollamaChatResponse
				if err := json.Unmarshal(line, &frame); err != nil {
					// Skip malformed frames
					continue
				}

				if frame.Message.Content != "" {
					select {
					case out <- frame.Message.Content:
					case <-ctx.Done():
						return ctx.Err()
					}
				}
				if frame.Done {
					return nil
				}
			}
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("failed to read stream: %w", err)
			}
			return nil
		})
		if err != nil {
			errc <- err
		}
	}()

	return out, errc
}

// post sends a JSON request and hands the response body to read. Non-200
// statuses become classified errors with the body text attached.
func (c *OllamaClient) post(ctx context.Context, op, path string, payload any, read func(io.Reader) error) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return &Error{Op: op, Err: fmt.Errorf("failed to marshal request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+path, bytes.NewBuffer(body))
	if err != nil {
		return &Error{Op: op, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return newTransportError(op, fmt.Errorf("failed to send request: %w", err))
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return newStatusError(op, resp.StatusCode, fmt.Errorf("bad status %d: %s", resp.StatusCode, string(raw)))
	}

	if err := read(resp.Body); err != nil {
		if ctx.Err() != nil {
			return &Error{Op: op, Err: ctx.Err()}
		}
		return &Error{Op: op, Transient: true, Err: err}
	}
	return nil
}
