package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/learnloop/assignment-engine/internal/models"
	"github.com/learnloop/assignment-engine/internal/repositories"
)

// Client talks to the platform API (content, attempts, grading,
// progress) using the learner's bearer token. It implements
// repositories.ContentSource, AttemptSource, GradingClient and
// ProgressSink.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// do performs one authenticated JSON request and decodes the standard
// envelope. A success=false body is reported as *UpstreamError.
func (c *Client) do(ctx context.Context, method, path string, body any, sess models.SessionContext) (*models.APIEnvelope, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+sess.Token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var envelope models.APIEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode response from %s: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !envelope.Success {
		return nil, &repositories.UpstreamError{
			StatusCode: resp.StatusCode,
			Message:    envelope.Message,
		}
	}

	return &envelope, nil
}

// Fetch implements repositories.ContentSource against
// GET /api/assignments/{assignmentId}.
func (c *Client) Fetch(ctx context.Context, assignmentID string, sess models.SessionContext) (*models.Assignment, error) {
	envelope, err := c.do(ctx, http.MethodGet, "/api/assignments/"+assignmentID, nil, sess)
	if err != nil {
		return nil, err
	}

	var assignment models.Assignment
	if err := json.Unmarshal(envelope.Data, &assignment); err != nil {
		return nil, fmt.Errorf("decode assignment %s: %w", assignmentID, err)
	}
	return &assignment, nil
}

// List implements repositories.AttemptSource against
// GET /api/assignments/{assignmentId}/attempts.
func (c *Client) List(ctx context.Context, assignmentID string, sess models.SessionContext) ([]models.AttemptRecord, error) {
	envelope, err := c.do(ctx, http.MethodGet, "/api/assignments/"+assignmentID+"/attempts", nil, sess)
	if err != nil {
		return nil, err
	}

	var data models.AttemptListData
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		return nil, fmt.Errorf("decode attempts for %s: %w", assignmentID, err)
	}
	return data.Attempts, nil
}

// Submit implements repositories.GradingClient against
// POST /api/assignments/{assignmentId}/submit.
func (c *Client) Submit(ctx context.Context, assignmentID string, payload models.SubmitPayload, sess models.SessionContext) (*models.TestResult, error) {
	envelope, err := c.do(ctx, http.MethodPost, "/api/assignments/"+assignmentID+"/submit", payload, sess)
	if err != nil {
		return nil, err
	}

	var result models.TestResult
	if err := json.Unmarshal(envelope.Data, &result); err != nil {
		return nil, fmt.Errorf("decode grading result for %s: %w", assignmentID, err)
	}
	return &result, nil
}

// Report implements repositories.ProgressSink against
// PUT /api/progress/student/{learnerId}/assignment. The response body
// carries no information the engine acts on.
func (c *Client) Report(ctx context.Context, learnerID string, payload models.ProgressPayload, sess models.SessionContext) error {
	_, err := c.do(ctx, http.MethodPut, "/api/progress/student/"+learnerID+"/assignment", payload, sess)
	return err
}
