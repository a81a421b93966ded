package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ClientConfig holds the knobs for the OpenAI-compatible backend client.
type ClientConfig struct {
	APIKey        string
	BaseURL       string
	Model         string
	VectorStoreID string
	Timeout       time.Duration
	MaxRetries    int
}

// Client talks to an OpenAI-compatible backend: vector store search for
// retrieval and chat completions for generation. It implements both Retriever
// and Generator.
type Client struct {
	cfg        ClientConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient validates the config and builds a backend client.
func NewClient(cfg ClientConfig, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("backend api key is required")
	}
	if cfg.VectorStoreID == "" {
		return nil, fmt.Errorf("backend vector store id is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}, nil
}

type searchRequest struct {
	Query         string `json:"query"`
	MaxNumResults int    `json:"max_num_results"`
}

type searchResponse struct {
	Data []struct {
		Filename   string `json:"filename"`
		Attributes struct {
			Section string `json:"section"`
		} `json:"attributes"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"data"`
}

// Search queries the vector store and returns up to maxResults snippets.
// Snippets whose source does not contain the filter are skipped.
func (c *Client) Search(ctx context.Context, query, filter string, maxResults int) ([]Snippet, error) {
	req := searchRequest{Query: query, MaxNumResults: maxResults}
	path := fmt.Sprintf("/v1/vector_stores/%s/search", c.cfg.VectorStoreID)

	var resp searchResponse
	if err := c.do(ctx, http.MethodPost, path, req, &resp); err != nil {
		return nil, &RetrievalError{Err: err}
	}

	snippets := make([]Snippet, 0, len(resp.Data))
	for _, result := range resp.Data {
		if filter != "" && !strings.Contains(result.Filename, filter) {
			continue
		}
		for _, content := range result.Content {
			if content.Text == "" {
				continue
			}
			snippets = append(snippets, Snippet{
				Source:  result.Filename,
				Section: result.Attributes.Section,
				Text:    content.Text,
			})
		}
	}
	return snippets, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type completionRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete issues one chat completion. When structured is set, the backend is
// constrained to JSON output mode.
func (c *Client) Complete(ctx context.Context, prompt string, structured bool, temperature float64) (string, error) {
	req := completionRequest{
		Model:       c.cfg.Model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: temperature,
	}
	if structured {
		req.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	var resp completionResponse
	if err := c.do(ctx, http.MethodPost, "/v1/chat/completions", req, &resp); err != nil {
		return "", &GenerationError{Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &GenerationError{Err: fmt.Errorf("completion returned no choices")}
	}
	return resp.Choices[0].Message.Content, nil
}

type httpError struct {
	StatusCode int
	Body       string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("backend http %d: %s", e.StatusCode, e.Body)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	backoff := time.Second
	var lastErr error

	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		raw, err := c.doOnce(ctx, method, path, body)
		if err == nil {
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				return fmt.Errorf("decode backend response: %w", uErr)
			}
			return nil
		}
		lastErr = err
		if !retryable(err) || attempt == c.cfg.MaxRetries {
			return err
		}
		c.logger.Warn("backend request retrying",
			zap.String("path", path),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff *= 2
	}
	return lastErr
}

func (c *Client) doOnce(ctx context.Context, method, path string, body any) ([]byte, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, fmt.Errorf("encode backend request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, &buf)
	if err != nil {
		return nil, fmt.Errorf("build backend request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend request: %w", err)
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, fmt.Errorf("read backend response: %w", readErr)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &httpError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return raw, nil
}

func retryable(err error) bool {
	var httpErr *httpError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == http.StatusTooManyRequests || httpErr.StatusCode >= 500
	}
	// Transport-level failures (timeouts, refused connections) are worth a retry.
	return true
}
