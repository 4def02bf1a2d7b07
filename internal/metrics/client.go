package metrics

import (
	"context"
	"time"

	"docassist/internal/llm"
)

// InstrumentedClient wraps an llm.Client and records a provider series per
// call. Stream duration covers the whole stream, not just the dial.
type InstrumentedClient struct {
	inner   llm.Client
	metrics *Metrics
}

// InstrumentClient wraps client so every provider call is measured.
func InstrumentClient(client llm.Client, m *Metrics) *InstrumentedClient {
	return &InstrumentedClient{inner: client, metrics: m}
}

func (c *InstrumentedClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	start := time.Now()
	vectors, err := c.inner.Embed(ctx, texts)
	c.metrics.recordProviderCall("embed", time.Since(start), err)
	return vectors, err
}

func (c *InstrumentedClient) Generate(ctx context.Context, req llm.GenerateRequest) (string, error) {
	start := time.Now()
	answer, err := c.inner.Generate(ctx, req)
	c.metrics.recordProviderCall("generate", time.Since(start), err)
	return answer, err
}

func (c *InstrumentedClient) Stream(ctx context.Context, req llm.GenerateRequest) (<-chan string, <-chan error) {
	start := time.Now()
	out, errc := c.inner.Stream(ctx, req)

	wrappedOut := make(chan string)
	wrappedErr := make(chan error, 1)
	go func() {
		defer close(wrappedErr)
		defer close(wrappedOut)
		for delta := range out {
			select {
			case wrappedOut <- delta:
			case <-ctx.Done():
				// Keep draining so the inner producer can finish.
			}
		}
		err := <-errc
		c.metrics.recordProviderCall("stream", time.Since(start), err)
		if err != nil {
			wrappedErr <- err
		}
	}()
	return wrappedOut, wrappedErr
}
