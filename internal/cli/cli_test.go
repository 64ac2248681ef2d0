package cli

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workpilot/internal/client"
	"workpilot/internal/config"
	"workpilot/internal/domain"
	"workpilot/internal/integrations/llm"
	"workpilot/internal/report"
	"workpilot/internal/storage/sqlite"
	"workpilot/internal/web"
)

func newBackend(t *testing.T) (string, *sql.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	color.NoColor = true

	db, err := sqlite.InitDB(filepath.Join(t.TempDir(), "cli.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cfg := config.Config{
		LLMProvider:         config.ProviderMock,
		MaxInputChars:       5000,
		SimilarityThreshold: 0.6,
		CORSAllowOrigins:    []string{"http://localhost"},
		Location:            time.UTC,
	}
	srv := httptest.NewServer(web.NewServer(db, report.NewGenerator(db, llm.Mock{}, cfg), cfg).Handler())
	t.Cleanup(srv.Close)
	return srv.URL, db
}

func runCLI(t *testing.T, baseURL, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("WORKPILOT_CONFIG_PATH", t.TempDir())

	cmd := newRoot(&env{v: viper.New(), newClient: client.New})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--api-url", baseURL}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func seedProjects(t *testing.T, db *sql.DB) {
	t.Helper()
	crm, err := sqlite.CreateProject(db, "CRM系统", "", "")
	require.NoError(t, err)
	upgrade, err := sqlite.CreateProject(db, "CRM系统升级", "", "")
	require.NoError(t, err)
	for _, item := range []struct {
		date string
		pid  int64
	}{{"2025-01-05", crm.ID}, {"2025-04-10", upgrade.ID}, {"2025-04-11", upgrade.ID}} {
		pid := item.pid
		_, err := sqlite.CreateWorkItem(db, domain.NewWorkItem{RawLogDate: item.date, ProjectID: &pid, Action: "work " + item.date})
		require.NoError(t, err)
	}
}

func TestTimelineByQuarter(t *testing.T) {
	url, db := newBackend(t)
	seedProjects(t, db)

	out, err := runCLI(t, url, "", "timeline", "--by", "quarter")
	require.NoError(t, err)
	q2 := strings.Index(out, "2025 Q2")
	q1 := strings.Index(out, "2025 Q1")
	require.True(t, q2 >= 0 && q1 > q2, out)
	assert.Contains(t, out, "work 2025-04-10")

	_, err = runCLI(t, url, "", "timeline", "--by", "week")
	assert.Error(t, err)
}

func seedDailyLogs(t *testing.T, db *sql.DB) {
	t.Helper()
	for date, content := range map[string]string{
		"2025-08-11": "周一：修复登录超时",
		"2025-08-12": "周二：评审数据平台方案",
		"2025-08-13": "周三：上线 CRM 报表",
	} {
		require.NoError(t, sqlite.SaveDailyReport(db, date, content))
	}
}

func TestImportSelectedDates(t *testing.T) {
	url, db := newBackend(t)
	seedDailyLogs(t, db)

	out, err := runCLI(t, url, "", "import", "--start", "2025-08-11", "--end", "2025-08-15",
		"--date", "2025-08-13", "--date", "2025-08-11", "--date", "2025-08-14")
	require.NoError(t, err)
	assert.Contains(t, out, "No daily log for 2025-08-14")
	assert.Contains(t, out, "2025-08-11\n周一：修复登录超时\n\n2025-08-13\n周三：上线 CRM 报表")
	assert.NotContains(t, out, "评审数据平台方案")
}

func TestImportInteractiveToggleAndGenerate(t *testing.T) {
	url, db := newBackend(t)
	seedDailyLogs(t, db)

	out, err := runCLI(t, url, "2\n\n", "import", "-i", "--start", "2025-08-11", "--end", "2025-08-15", "--generate", "--save")
	require.NoError(t, err)
	assert.Contains(t, out, "周报（")
	assert.Contains(t, out, "Weekly report saved for 2025-08-11 ~ 2025-08-15")

	saved, err := sqlite.GetWeeklyReport(db, "2025-08-11", "2025-08-15")
	require.NoError(t, err)
	assert.NotEmpty(t, saved.Content)

	_, err = runCLI(t, url, "q\n", "import", "-i", "--start", "2025-08-11", "--end", "2025-08-15")
	assert.ErrorIs(t, err, errImportCancelled)
}

func TestImportEmptySelectionIsValidation(t *testing.T) {
	url, _ := newBackend(t)
	_, err := runCLI(t, url, "", "import", "--start", "2025-08-11", "--end", "2025-08-15")
	assert.ErrorIs(t, err, client.ErrValidation)
}

func TestDedupSimilarAndMergeGroup(t *testing.T) {
	url, db := newBackend(t)
	seedProjects(t, db)

	out, err := runCLI(t, url, "", "dedup", "similar")
	require.NoError(t, err)
	assert.Contains(t, out, "CRM系统升级")

	out, err = runCLI(t, url, "", "dedup", "merge", "--group", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "removed 1 projects")

	out, err = runCLI(t, url, "", "dedup", "similar")
	require.NoError(t, err)
	assert.Contains(t, out, "No similar projects found.")

	_, err = runCLI(t, url, "", "dedup", "merge")
	assert.ErrorIs(t, err, client.ErrValidation)

	_, err = runCLI(t, url, "", "dedup", "merge", "--group", "1")
	assert.ErrorIs(t, err, client.ErrValidation)
}

func TestDedupDeleteAllAsksFirst(t *testing.T) {
	url, db := newBackend(t)
	seedProjects(t, db)

	out, err := runCLI(t, url, "no\n", "dedup", "delete-all")
	require.NoError(t, err)
	assert.Contains(t, out, "Cancelled")
	projects, err := sqlite.GetProjects(db, "")
	require.NoError(t, err)
	assert.Len(t, projects, 2)

	out, err = runCLI(t, url, "delete\n", "dedup", "delete-all")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted 2 projects and 3 work items")
}

func TestExportDailyCSV(t *testing.T) {
	url, db := newBackend(t)
	seedDailyLogs(t, db)
	dir := t.TempDir()

	out, err := runCLI(t, url, "", "export", "daily", "--format", "csv", "--out", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 3 records")

	matches, err := filepath.Glob(filepath.Join(dir, "daily_reports_*.csv"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "上线 CRM 报表")

	out, err = runCLI(t, url, "", "export", "okr", "--out", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Nothing to export")
}

func TestUnreachableServer(t *testing.T) {
	srv := httptest.NewServer(nil)
	url := srv.URL
	srv.Close()

	_, err := runCLI(t, url, "", "timeline")
	require.Error(t, err)
	assert.True(t, errors.Is(err, client.ErrUnavailable))
	assert.Contains(t, client.UserMessage(err), "Cannot reach the WorkPilot server")
}

func TestSettingsFromConfigFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".workpilot.yaml"), []byte("api_url: http://pilot.internal:5000\nthreshold: 0.75\n"), 0o644))
	t.Setenv("WORKPILOT_CONFIG_PATH", dir)
	t.Setenv("HOME", t.TempDir())

	v := viper.New()
	require.NoError(t, loadSettings(v))
	assert.Equal(t, "http://pilot.internal:5000", v.GetString("api_url"))
	assert.Equal(t, 0.75, v.GetFloat64("threshold"))

	t.Setenv("WORKPILOT_API_URL", "http://env:1")
	v = viper.New()
	require.NoError(t, loadSettings(v))
	assert.Equal(t, "http://env:1", v.GetString("api_url"))
}
