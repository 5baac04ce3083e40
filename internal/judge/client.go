// Package judge talks to the external code execution service. The judge is a
// collaborator for in-attempt "run code" only; submission and grading never
// depend on it being reachable.
package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/testforge/exam-service/internal/models"
)

// ExecutionRequest is the payload sent to the judge.
type ExecutionRequest struct {
	SourceCode string                `json:"source_code"`
	Language   models.CodingLanguage `json:"language"`
	Stdin      string                `json:"stdin,omitempty"`
}

// ExecutionResult is what the judge reports back for one run.
type ExecutionResult struct {
	Stdout        string  `json:"stdout"`
	Stderr        string  `json:"stderr"`
	Status        string  `json:"status"` // "success", "compile_error", "runtime_error", "timeout"
	ExecutionTime float64 `json:"execution_time"` // seconds
}

// Client executes untrusted student code against the judge service.
type Client interface {
	Execute(ctx context.Context, req ExecutionRequest) (*ExecutionResult, error)
}

type httpClient struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

func NewHTTPClient(baseURL string, timeout time.Duration, logger *slog.Logger) Client {
	return &httpClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

func (c *httpClient) Execute(ctx context.Context, req ExecutionRequest) (*ExecutionResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal execution request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/execute", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build execution request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("judge request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Error("Judge returned non-OK status",
			"status", resp.StatusCode,
			"body", string(snippet))
		return nil, fmt.Errorf("judge returned status %d", resp.StatusCode)
	}

	var result ExecutionResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode judge response: %w", err)
	}
	return &result, nil
}
