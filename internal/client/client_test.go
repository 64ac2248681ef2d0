package client

import (
	"context"
	"encoding/json"
	"errors"
	"go/parser"
	"go/token"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL + "/").WithHTTPClient(srv.Client())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestDailyReportsByRangeDecodesData(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/daily-reports/range", r.URL.Path)
		assert.Equal(t, "2025-01-06", r.URL.Query().Get("start_date"))
		assert.Equal(t, "2025-01-10", r.URL.Query().Get("end_date"))
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"data": []map[string]string{
				{"entry_date": "2025-01-06", "content": "周一"},
				{"entry_date": "2025-01-07", "content": "周二"},
			},
		})
	})

	reports, err := c.DailyReportsByRange(context.Background(), "2025-01-06", "2025-01-10")
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, "周二", reports[1].Content)
}

func TestAPIErrorMessagePrecedence(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   map[string]any
		want   string
	}{
		{"error field wins", http.StatusBadRequest, map[string]any{"success": false, "error": "bad date", "message": "ignored"}, "bad date"},
		{"message when no error", http.StatusOK, map[string]any{"success": false, "message": "nothing to merge"}, "nothing to merge"},
		{"fallback", http.StatusInternalServerError, map[string]any{}, "request failed (HTTP 500)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, tt.body)
			})
			_, err := c.WorkItems(context.Background())
			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.want, apiErr.Message)
			assert.Equal(t, tt.want, UserMessage(err))
		})
	}
}

func TestTransportFailureIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url).DailyReportDates(context.Background())
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Contains(t, UserMessage(err), "Cannot reach")
}

func TestValidationIssuesNoRequest(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	})

	_, err := c.SimilarProjects(context.Background(), 1.5)
	require.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "threshold must be between 0 and 1, got 1.5", UserMessage(err))

	_, err = c.ExtractWorkItems(context.Background(), "  ", "2025-01-06", false)
	require.ErrorIs(t, err, ErrValidation)
	assert.Zero(t, calls.Load())
}

func TestSimilarProjectsAndMerge(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/projects/similar":
			assert.Equal(t, "0.6", r.URL.Query().Get("threshold"))
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "groups": []map[string]any{{
				"recommended_target": map[string]any{"id": 1, "name": "CRM系统"},
				"projects":           []map[string]any{{"id": 1, "name": "CRM系统"}, {"id": 2, "name": "CRM系统升级"}},
				"project_ids":        []int64{1, 2},
			}}})
		case "/api/projects/merge":
			var body struct {
				Target  int64   `json:"target_project_id"`
				Sources []int64 `json:"source_project_ids"`
			}
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, int64(1), body.Target)
			assert.Equal(t, []int64{2}, body.Sources)
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "merged 3 work items", "merged_count": 3, "deleted_projects": 1})
		default:
			http.NotFound(w, r)
		}
	})

	groups, err := c.SimilarProjects(context.Background(), 0.6)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, []int64{2}, groups[0].Sources())

	res, err := c.MergeProjects(context.Background(), 1, []int64{2})
	require.NoError(t, err)
	assert.Equal(t, 3, res.MergedCount)
	assert.Equal(t, "merged 3 work items", res.Message)
}

func TestEmptyGroupsIsNotNil(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "groups": nil})
	})
	groups, err := c.SimilarProjects(context.Background(), 0.9)
	require.NoError(t, err)
	assert.NotNil(t, groups)
	assert.Empty(t, groups)
}

func TestHealthWithoutEnvelope(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "healthy", "llm_configured": false, "max_input_chars": 20000})
	})
	h, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", h.Status)
	assert.Equal(t, 20000, h.MaxInputChars)
}

func TestUserMessagePassesOtherErrors(t *testing.T) {
	assert.Equal(t, "", UserMessage(nil))
	assert.Equal(t, "boom", UserMessage(errors.New("boom")))
}

// The client is linked into the CLI, so it must not pull in the store, the
// generator or the LLM providers.
func TestClientImportsStayLight(t *testing.T) {
	files, err := filepath.Glob("*.go")
	require.NoError(t, err)
	fset := token.NewFileSet()
	for _, name := range files {
		if strings.HasSuffix(name, "_test.go") {
			continue
		}
		f, err := parser.ParseFile(fset, name, nil, parser.ImportsOnly)
		require.NoError(t, err)
		for _, imp := range f.Imports {
			path, err := strconv.Unquote(imp.Path.Value)
			require.NoError(t, err)
			if strings.HasPrefix(path, "workpilot/") {
				assert.Contains(t, []string{"workpilot/internal/domain", "workpilot/internal/httpx"}, path, "%s imports %s", name, path)
			}
		}
	}
}
