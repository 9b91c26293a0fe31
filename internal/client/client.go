// Package client talks to the learning platform's REST backend: it records
// hint accesses, submits completed challenges and fetches progress.
//
// Requests are sent once; the client never retries. Errors reported by the
// backend are returned as *APIError with the backend's detail text.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dghubble/sling"

	"github.com/datadetective/academy/internal/gateway"
	"github.com/datadetective/academy/pkg/core"
)

// DefaultTimeout bounds a single request when Config.Timeout is zero.
const DefaultTimeout = 10 * time.Second

// Config configures the client.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	// HTTPClient overrides the transport (optional).
	HTTPClient *http.Client
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// APIError is an error response from the backend.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
	return e.Detail
}

// errorBody is the backend's error document. Detail is a string for
// application errors and a list of field errors for invalid requests.
type errorBody struct {
	Detail json.RawMessage `json:"detail"`
}

func (b errorBody) text() string {
	if len(b.Detail) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(b.Detail, &s); err == nil {
		return s
	}
	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(b.Detail, &items); err == nil && len(items) > 0 {
		return items[0].Msg
	}
	return string(b.Detail)
}

// Client is the backend client.
type Client struct {
	base   *sling.Sling
	logger *slog.Logger
}

// New creates a client for cfg.BaseURL.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("api base URL is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	base := sling.New().Client(httpClient).Base(ensureSlash(cfg.BaseURL)).
		Set("Accept", "application/json")
	if cfg.Token != "" {
		base = base.Set("Authorization", "Bearer "+cfg.Token)
	}

	return &Client{base: base, logger: logger}, nil
}

func ensureSlash(u string) string {
	if u[len(u)-1] != '/' {
		return u + "/"
	}
	return u
}

// do sends the request built by s and decodes the response into success.
func (c *Client) do(ctx context.Context, s *sling.Sling, success any) error {
	req, err := s.Request()
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req = req.WithContext(ctx)

	start := time.Now()
	var failure errorBody
	resp, err := s.Do(req, success, &failure)
	if err != nil {
		return fmt.Errorf("failed to %s %s: %w", req.Method, req.URL.Path, err)
	}
	c.logger.Debug("api request", "method", req.Method, "path", req.URL.Path, "status", resp.StatusCode, "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Detail: failure.text()}
	}
	return nil
}

type hintAccessRequest struct {
	UnitID      int `json:"unit_id"`
	ChallengeID int `json:"challenge_id"`
	HintLevel   int `json:"hint_level"`
}

type hintAccessResponse struct {
	HintID     int       `json:"hint_id"`
	AccessedAt time.Time `json:"accessed_at"`
}

// RecordHintAccess records an access to hint level of key.
func (c *Client) RecordHintAccess(ctx context.Context, key core.ChallengeKey, level int) error {
	body := hintAccessRequest{UnitID: key.UnitID, ChallengeID: key.ChallengeID, HintLevel: level}
	var resp hintAccessResponse
	return c.do(ctx, c.base.New().Post("hints/access").BodyJSON(body), &resp)
}

type submitRequest struct {
	UnitID      int    `json:"unit_id"`
	ChallengeID int    `json:"challenge_id"`
	Query       string `json:"query"`
	HintsUsed   int    `json:"hints_used"`
}

type progressResponse struct {
	ID           int       `json:"id"`
	UnitID       int       `json:"unit_id"`
	ChallengeID  int       `json:"challenge_id"`
	PointsEarned int       `json:"points_earned"`
	HintsUsed    int       `json:"hints_used"`
	Query        string    `json:"query"`
	CompletedAt  time.Time `json:"completed_at"`
}

// SubmitSolution submits a validated solution. The backend answers a repeated
// submission with the first completion; it is reported as AlreadyCompleted
// when the stored query differs from the submitted one.
func (c *Client) SubmitSolution(ctx context.Context, sub gateway.Submission) (gateway.Award, error) {
	body := submitRequest{
		UnitID:      sub.Key.UnitID,
		ChallengeID: sub.Key.ChallengeID,
		Query:       sub.Query,
		HintsUsed:   sub.HintsUsed,
	}
	var resp progressResponse
	if err := c.do(ctx, c.base.New().Post("progress/submit").BodyJSON(body), &resp); err != nil {
		return gateway.Award{}, err
	}
	return gateway.Award{
		PointsEarned:     resp.PointsEarned,
		HintsUsed:        resp.HintsUsed,
		CompletedAt:      resp.CompletedAt,
		AlreadyCompleted: resp.Query != sub.Query,
	}, nil
}

type progressItem struct {
	progressResponse
	ChallengeTitle string `json:"challenge_title"`
}

type progressReportResponse struct {
	Items   []progressItem       `json:"progress_items"`
	Summary core.ProgressSummary `json:"summary"`
}

// Progress returns the signed-in student's progress report.
func (c *Client) Progress(ctx context.Context) (core.ProgressReport, error) {
	var resp progressReportResponse
	if err := c.do(ctx, c.base.New().Get("progress/me"), &resp); err != nil {
		return core.ProgressReport{}, err
	}

	report := core.ProgressReport{Summary: resp.Summary, Items: make([]core.ProgressRecord, 0, len(resp.Items))}
	for _, it := range resp.Items {
		report.Items = append(report.Items, core.ProgressRecord{
			ID:             fmt.Sprint(it.ID),
			UnitID:         it.UnitID,
			ChallengeID:    it.ChallengeID,
			PointsEarned:   it.PointsEarned,
			HintsUsed:      it.HintsUsed,
			Query:          it.Query,
			CompletedAt:    it.CompletedAt,
			ChallengeTitle: it.ChallengeTitle,
		})
	}
	return report, nil
}
