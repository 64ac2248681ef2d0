// Package client talks to the WorkPilot HTTP API.
//
// Failures come in three kinds: the server could not be reached (ErrUnavailable),
// the server answered with success:false (*APIError), or the caller passed
// arguments that were rejected before any request went out (ErrValidation).
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"

	"workpilot/internal/httpx"
)

var (
	ErrUnavailable = errors.New("server unavailable")
	ErrValidation  = errors.New("validation failed")
)

// APIError is a response the server marked as failed.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// Validationf builds an ErrValidation with detail.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// UserMessage turns any client error into text fit for display.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	switch {
	case errors.Is(err, ErrUnavailable):
		return "Cannot reach the WorkPilot server. Check that it is running."
	case errors.As(err, &apiErr):
		return apiErr.Message
	case errors.Is(err, ErrValidation):
		return strings.TrimPrefix(err.Error(), ErrValidation.Error()+": ")
	default:
		return err.Error()
	}
}

type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a client for baseURL, e.g. "http://localhost:5000".
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpx.Client(),
	}
}

// WithHTTPClient swaps the transport, mostly for tests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.http = hc
	return c
}

type envelope struct {
	Success *bool  `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

type dataEnvelope[T any] struct {
	Data T `json:"data"`
}

// do sends one request and decodes the body into out when the server reports success.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read %s %s: %v", ErrUnavailable, method, path, err)
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)
	failed := resp.StatusCode >= http.StatusBadRequest || (env.Success != nil && !*env.Success)
	if failed || decodeErr != nil {
		apiErr := &APIError{Status: resp.StatusCode, Message: env.Error}
		if apiErr.Message == "" {
			apiErr.Message = env.Message
		}
		if apiErr.Message == "" {
			apiErr.Message = fmt.Sprintf("request failed (HTTP %d)", resp.StatusCode)
		}
		log.Printf("client request failed method=%s path=%s status=%d message=%q", method, path, resp.StatusCode, apiErr.Message)
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &APIError{Status: resp.StatusCode, Message: fmt.Sprintf("unexpected response from %s: %v", path, err)}
	}
	return nil
}

func getData[T any](ctx context.Context, c *Client, method, path string, query url.Values, body any) (T, error) {
	var out dataEnvelope[T]
	err := c.do(ctx, method, path, query, body, &out)
	return out.Data, err
}

func dateRange(start, end string) url.Values {
	return url.Values{"start_date": {start}, "end_date": {end}}
}

// Core endpoints.

func (c *Client) WorkItems(ctx context.Context) ([]WorkItem, error) {
	return getData[[]WorkItem](ctx, c, http.MethodGet, "/api/work-items", nil, nil)
}

func (c *Client) WorkItemsBySkill(ctx context.Context, skill string) ([]WorkItem, error) {
	if strings.TrimSpace(skill) == "" {
		return nil, Validationf("skill name is required")
	}
	return getData[[]WorkItem](ctx, c, http.MethodGet, "/api/skills/"+url.PathEscape(skill)+"/work-items", nil, nil)
}

func (c *Client) DailyReportDates(ctx context.Context) ([]string, error) {
	return getData[[]string](ctx, c, http.MethodGet, "/api/daily-reports/dates", nil, nil)
}

func (c *Client) DailyReportsByRange(ctx context.Context, start, end string) ([]DailyReport, error) {
	return getData[[]DailyReport](ctx, c, http.MethodGet, "/api/daily-reports/range", dateRange(start, end), nil)
}

func (c *Client) SimilarProjects(ctx context.Context, threshold float64) ([]SimilarityGroup, error) {
	if threshold < 0 || threshold > 1 {
		return nil, Validationf("threshold must be between 0 and 1, got %g", threshold)
	}
	var out struct {
		Groups []SimilarityGroup `json:"groups"`
	}
	q := url.Values{"threshold": {fmt.Sprintf("%g", threshold)}}
	if err := c.do(ctx, http.MethodGet, "/api/projects/similar", q, nil, &out); err != nil {
		return nil, err
	}
	if out.Groups == nil {
		out.Groups = []SimilarityGroup{}
	}
	return out.Groups, nil
}

func (c *Client) MergeProjects(ctx context.Context, targetID int64, sourceIDs []int64) (MergeResult, error) {
	var out MergeResult
	body := map[string]any{"target_project_id": targetID, "source_project_ids": sourceIDs}
	err := c.do(ctx, http.MethodPost, "/api/projects/merge", nil, body, &out)
	return out, err
}

func (c *Client) CleanupNullProjects(ctx context.Context) (CleanupResult, error) {
	var out CleanupResult
	err := c.do(ctx, http.MethodPost, "/api/projects/cleanup/null", nil, nil, &out)
	return out, err
}

func (c *Client) DeleteProject(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/projects/%d", id), nil, nil, nil)
}

func (c *Client) DeleteAllProjects(ctx context.Context) (DeleteAllResult, error) {
	var out DeleteAllResult
	err := c.do(ctx, http.MethodDelete, "/api/projects/all", nil, nil, &out)
	return out, err
}

func (c *Client) ExtractWorkItems(ctx context.Context, logContent, logDate string, autoSave bool) (ExtractionResult, error) {
	if strings.TrimSpace(logContent) == "" {
		return ExtractionResult{}, Validationf("log content is required")
	}
	var out ExtractionResult
	body := map[string]any{"log_content": logContent, "log_date": logDate, "auto_save": autoSave}
	err := c.do(ctx, http.MethodPost, "/api/extract-work-items", nil, body, &out)
	return out, err
}
