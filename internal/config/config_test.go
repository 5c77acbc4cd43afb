package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Strikerin/SalesPerformanceDashboard/internal/config"
	wh "github.com/Strikerin/SalesPerformanceDashboard/internal/workhistory"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv(config.EnvConfigPath, "")

	c, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "8080", c.App.Port)
	assert.Equal(t, "json", c.Log.Format)
	assert.Equal(t, 24*time.Hour, c.Admin.TokenTTL)
	assert.Equal(t, "@every 30m", c.Worker.Schedule)
	assert.False(t, c.UseMySQL())

	o := c.ReportOptions()
	assert.Equal(t, wh.DefaultTopN, o.TopN)
	assert.Equal(t, wh.MetricOverrunCost, o.WorkCenterBy)
	assert.Equal(t, wh.DefaultExcludedOverrunTasks, o.ExcludedTasks)
	assert.Equal(t, "199", c.Normalizer().DefaultLaborRate.String())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("APP_PORT", "9090")
	t.Setenv("REPORT_TOP_N", "5")
	t.Setenv("REPORT_WORKCENTER_SORT", "actual_hours")
	t.Setenv("DB_DSN", "u:p@tcp(db:3306)/wh")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	c, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "9090", c.App.Port)
	assert.Equal(t, 5, c.Report.TopN)
	assert.Equal(t, "u:p@tcp(db:3306)/wh", c.MySQL.DSN)
	assert.Equal(t, "sk-test", c.LLM.APIKey)
	assert.True(t, c.UseMySQL())
	assert.Equal(t, wh.MetricActualHours, c.ReportOptions().WorkCenterBy)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wh.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
report:
  labor_rate: 150
  markup: 1.5
  excluded_tasks: []
  ncr_tokens: ["scrap"]
worker:
  schedule: "0 2 * * *"
`), 0o600))

	c, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "150", c.Normalizer().DefaultLaborRate.String())
	assert.Equal(t, "0 2 * * *", c.Worker.Schedule)
	assert.Equal(t, []string{"scrap"}, c.Report.NCRTokens)
	assert.Empty(t, c.ReportOptions().ExcludedTasks)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("REPORT_MARKUP", "0")
	t.Setenv("LOG_FORMAT", "xml")
	t.Setenv("REPORT_CUSTOMER_SORT", "profit")

	_, err := config.Load("")
	require.Error(t, err)
	for _, want := range []string{"report.markup", "log.format", "report.customer_sort"} {
		assert.Contains(t, err.Error(), want)
	}
}
