package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// HTTPConfig configures an HTTPBackend. It matches the shape of an
// OpenAI-compatible /embeddings endpoint.
type HTTPConfig struct {
	BaseURL   string
	Path      string
	Model     string
	APIHeader string // header name for APIKey, e.g. "Authorization"
	APIKey    string
	Headers   map[string]string // extra static headers, applied before APIHeader
	Timeout   time.Duration
	Dimension int
}

type embedReq struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResp struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// HTTPBackend calls a configured embedding endpoint one request per text, to
// stay compatible with backends (e.g. llama.cpp servers) that do not
// support batched inference reliably. The start of each request is spaced
// at least minDelay after the previous one; the requests themselves are not
// serialized and may overlap when EmbedBatch is called concurrently.
type HTTPBackend struct {
	cfg      HTTPConfig
	client   *http.Client
	mu       sync.Mutex
	lastCall time.Time
	minDelay time.Duration
}

// NewHTTPBackend constructs an HTTPBackend. minDelay is the minimum spacing
// enforced between outgoing requests; pass 0 for no throttling.
func NewHTTPBackend(cfg HTTPConfig, minDelay time.Duration) *HTTPBackend {
	return &HTTPBackend{cfg: cfg, client: http.DefaultClient, minDelay: minDelay}
}

func (c *HTTPBackend) Name() string   { return c.cfg.Model }
func (c *HTTPBackend) Dimension() int { return c.cfg.Dimension }

// Ping verifies the endpoint is reachable by sending a minimal request.
func (c *HTTPBackend) Ping(ctx context.Context) error {
	_, err := c.embedText(ctx, []string{"ping"})
	if err != nil {
		return fmt.Errorf("embedding endpoint reachability check failed: %w", err)
	}
	return nil
}

func (c *HTTPBackend) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		vecs, err := c.rateLimitedCall(ctx, []string{t})
		if err != nil {
			return out, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (c *HTTPBackend) rateLimitedCall(ctx context.Context, texts []string) ([][]float32, error) {
	c.mu.Lock()
	if !c.lastCall.IsZero() {
		if elapsed := time.Since(c.lastCall); elapsed < c.minDelay {
			time.Sleep(c.minDelay - elapsed)
		}
	}
	c.lastCall = time.Now()
	c.mu.Unlock()

	return c.embedText(ctx, texts)
}

func (c *HTTPBackend) embedText(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("embedding: no inputs")
	}
	reqBody, err := json.Marshal(embedReq{Model: c.cfg.Model, Input: inputs})
	if err != nil {
		return nil, err
	}
	timeout := c.cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	url := c.cfg.BaseURL + c.cfg.Path
	req, err := http.NewRequestWithContext(cctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	for k, v := range c.cfg.Headers {
		req.Header.Set(k, v)
	}
	if c.cfg.APIHeader == "Authorization" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	} else if c.cfg.APIHeader != "" {
		req.Header.Set(c.cfg.APIHeader, c.cfg.APIKey)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("embedding: failed to read response body: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("embedding: endpoint error: %s: %s", resp.Status, string(bodyBytes))
	}

	var er embedResp
	if err := json.Unmarshal(bodyBytes, &er); err != nil {
		n := len(bodyBytes)
		if n > 200 {
			n = 200
		}
		return nil, fmt.Errorf("embedding: failed to parse response (input count: %d, response: %s): %w",
			len(inputs), string(bodyBytes[:n]), err)
	}
	if len(er.Data) != len(inputs) {
		return nil, fmt.Errorf("embedding: unexpected embedding count: got %d, want %d", len(er.Data), len(inputs))
	}
	out := make([][]float32, len(er.Data))
	for i := range er.Data {
		out[i] = er.Data[i].Embedding
	}
	return out, nil
}
