// internal/config/config.go
// Loader konfigurasi: defaults, optional YAML file, then environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/Strikerin/SalesPerformanceDashboard/internal/workhistory"
)

// EnvConfigPath names the env var that points at an optional YAML config file.
const EnvConfigPath = "WH_CONFIG"

type Config struct {
	App struct {
		Name string `mapstructure:"name"`
		Env  string `mapstructure:"env"`
		Port string `mapstructure:"port"`
	} `mapstructure:"app"`

	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"` // json | console
	} `mapstructure:"log"`

	MySQL struct {
		DSN      string `mapstructure:"dsn"`
		Host     string `mapstructure:"host"`
		Port     string `mapstructure:"port"`
		DB       string `mapstructure:"db"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		MaxOpen  int    `mapstructure:"max_open_conns"`
		MaxIdle  int    `mapstructure:"max_idle_conns"`
	} `mapstructure:"mysql"`

	SQLite struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"sqlite"`

	LLM struct {
		APIKey  string `mapstructure:"api_key"`
		APIBase string `mapstructure:"api_base"`
		Model   string `mapstructure:"model"`
	} `mapstructure:"llm"`

	Admin struct {
		User      string        `mapstructure:"user"`
		PassHash  string        `mapstructure:"pass_hash"`
		JWTSecret string        `mapstructure:"jwt_secret"`
		TokenTTL  time.Duration `mapstructure:"token_ttl"`
	} `mapstructure:"admin"`

	CORS struct {
		AllowedOrigins []string `mapstructure:"allowed_origins"`
	} `mapstructure:"cors"`

	Report struct {
		LaborRate      float64  `mapstructure:"labor_rate"`
		Markup         float64  `mapstructure:"markup"`
		TopN           int      `mapstructure:"top_n"`
		RepeatN        int      `mapstructure:"repeat_n"`
		PartOverrunN   int      `mapstructure:"part_overrun_n"`
		WorkCenterSort string   `mapstructure:"workcenter_sort"`
		CustomerSort   string   `mapstructure:"customer_sort"`
		ExcludedTasks  []string `mapstructure:"excluded_tasks"`
		NCRTokens      []string `mapstructure:"ncr_tokens"`
		Shards         int      `mapstructure:"shards"`
	} `mapstructure:"report"`

	Worker struct {
		Schedule    string `mapstructure:"schedule"`
		SnapshotDir string `mapstructure:"snapshot_dir"`
		RunOnStart  bool   `mapstructure:"run_on_start"`
	} `mapstructure:"worker"`
}

// Load reads defaults, then the YAML file at path (or $WH_CONFIG), then env vars.
// Env names are the keys upper-cased with dots as underscores (MYSQL_HOST, REPORT_TOP_N).
// A missing file is not an error when no path was given explicitly.
func Load(path string) (*Config, error) {
	v := viper.New()
	applyDefaults(v)

	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// older deployments use these names
	_ = v.BindEnv("mysql.dsn", "MYSQL_DSN", "DB_DSN", "DB_DSN_DOCKER")
	_ = v.BindEnv("llm.api_key", "LLM_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("llm.api_base", "LLM_API_BASE", "OPENAI_BASE_URL")
	_ = v.BindEnv("llm.model", "LLM_MODEL", "OPENAI_MODEL")

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("workhistory")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "workhistory-api")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("mysql.dsn", "")
	v.SetDefault("mysql.host", "")
	v.SetDefault("mysql.port", "3306")
	v.SetDefault("mysql.db", "workhistory")
	v.SetDefault("mysql.user", "root")
	v.SetDefault("mysql.password", "")
	v.SetDefault("mysql.max_open_conns", 20)
	v.SetDefault("mysql.max_idle_conns", 10)

	v.SetDefault("sqlite.path", "data/workhistory.db")

	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.api_base", "")
	v.SetDefault("llm.model", "gpt-4o-mini")

	v.SetDefault("admin.user", "")
	v.SetDefault("admin.pass_hash", "")
	v.SetDefault("admin.jwt_secret", "")
	v.SetDefault("admin.token_ttl", 24*time.Hour)

	v.SetDefault("cors.allowed_origins", []string{"*"})

	v.SetDefault("report.labor_rate", float64(workhistory.StandardLaborRate))
	v.SetDefault("report.markup", 1.2)
	v.SetDefault("report.top_n", workhistory.DefaultTopN)
	v.SetDefault("report.repeat_n", workhistory.DefaultRepeatN)
	v.SetDefault("report.part_overrun_n", workhistory.DefaultPartOverrunN)
	v.SetDefault("report.workcenter_sort", string(workhistory.MetricOverrunCost))
	v.SetDefault("report.customer_sort", string(workhistory.MetricActualHours))
	v.SetDefault("report.excluded_tasks", workhistory.DefaultExcludedOverrunTasks)
	v.SetDefault("report.ncr_tokens", []string{})
	v.SetDefault("report.shards", 4)

	v.SetDefault("worker.schedule", "@every 30m")
	v.SetDefault("worker.snapshot_dir", "snapshots")
	v.SetDefault("worker.run_on_start", true)
}

// Validate rejects values the report engine cannot work with.
func (c *Config) Validate() error {
	var errs []error
	if c.App.Port == "" {
		errs = append(errs, errors.New("app.port is empty"))
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log.format %q: want json or console", c.Log.Format))
	}
	if c.Report.LaborRate <= 0 {
		errs = append(errs, fmt.Errorf("report.labor_rate must be > 0, got %v", c.Report.LaborRate))
	}
	if c.Report.Markup <= 0 {
		errs = append(errs, fmt.Errorf("report.markup must be > 0, got %v", c.Report.Markup))
	}
	if c.Report.TopN < 0 || c.Report.RepeatN < 0 || c.Report.PartOverrunN < 0 {
		errs = append(errs, errors.New("report limits must not be negative"))
	}
	if _, err := workhistory.ParseMetric(c.Report.WorkCenterSort); err != nil {
		errs = append(errs, fmt.Errorf("report.workcenter_sort: %w", err))
	}
	if _, err := workhistory.ParseMetric(c.Report.CustomerSort); err != nil {
		errs = append(errs, fmt.Errorf("report.customer_sort: %w", err))
	}
	return errors.Join(errs...)
}

// UseMySQL reports whether a MySQL target is configured; otherwise the SQLite store is used.
func (c *Config) UseMySQL() bool { return c.MySQL.DSN != "" || c.MySQL.Host != "" }

// Normalizer returns the record normalizer with the configured shop rate.
func (c *Config) Normalizer() workhistory.Normalizer {
	return workhistory.Normalizer{DefaultLaborRate: decimal.NewFromFloat(c.Report.LaborRate)}
}

// ReportOptions maps the report section onto engine options. Validate has run.
func (c *Config) ReportOptions() workhistory.Options {
	wc, _ := workhistory.ParseMetric(c.Report.WorkCenterSort)
	cust, _ := workhistory.ParseMetric(c.Report.CustomerSort)
	return workhistory.NewOptions(
		workhistory.WithTopN(c.Report.TopN),
		workhistory.WithRepeatN(c.Report.RepeatN),
		workhistory.WithPartOverrunN(c.Report.PartOverrunN),
		workhistory.WithWorkCenterSort(wc),
		workhistory.WithCustomerSort(cust),
		workhistory.WithMarkup(c.Report.Markup),
		workhistory.WithNCRTokens(c.Report.NCRTokens),
		workhistory.WithExcludedTasks(c.Report.ExcludedTasks),
	)
}
