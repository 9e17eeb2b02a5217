package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"salonagent/internal/booking"
	"salonagent/internal/contacts"
	"salonagent/internal/salon"
)

// DefaultPath is used when SALON_CONFIG_PATH is not set.
const DefaultPath = "configs/config.yaml"

type Config struct {
	App struct {
		Name string `yaml:"name"`
		Env  string `yaml:"env"`
	} `yaml:"app"`

	Knowledge struct {
		Dir string `yaml:"dir"`
		// Structured, when set, is a YAML knowledge file used instead of
		// the prose files in Dir.
		Structured      string                         `yaml:"structured"`
		Strict          bool                           `yaml:"strict"`
		ReloadSeconds   int                            `yaml:"reload_seconds"`
		Holidays        []string                       `yaml:"holidays"`
		DefaultServices map[string]string              `yaml:"default_services"`
		Staff           map[string]salon.StaffOverride `yaml:"staff"`
	} `yaml:"knowledge"`

	Calendar struct {
		Enabled         bool              `yaml:"enabled"`
		CredentialsFile string            `yaml:"credentials_file"`
		TimeoutSeconds  int               `yaml:"timeout_seconds"`
		RatePerSecond   float64           `yaml:"rate_per_second"`
		Burst           int               `yaml:"burst"`
		CacheTTLSeconds int               `yaml:"cache_ttl_seconds"`
		Calendars       map[string]string `yaml:"calendars"`
	} `yaml:"calendar"`

	Booking struct {
		BaseURL        string        `yaml:"base_url"`
		User           string        `yaml:"user"`
		Password       string        `yaml:"password"`
		TimeoutSeconds int           `yaml:"timeout_seconds"`
		Paths          booking.Paths `yaml:"paths"`
	} `yaml:"booking"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Contacts struct {
		Path   string                `yaml:"path"`
		Backup contacts.BackupConfig `yaml:"backup"`
	} `yaml:"contacts"`

	Telegram struct {
		BotToken string  `yaml:"bot_token"`
		Managers []int64 `yaml:"managers"`
	} `yaml:"telegram"`

	API struct {
		Addr                string `yaml:"addr"`
		APIKey              string `yaml:"api_key"`
		ReadTimeoutSeconds  int    `yaml:"read_timeout_seconds"`
		WriteTimeoutSeconds int    `yaml:"write_timeout_seconds"`
	} `yaml:"api"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		GRPCHealthPort    int  `yaml:"grpc_health_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Logging struct {
		Level  string `yaml:"level"`
		Pretty *bool  `yaml:"pretty"`
	} `yaml:"logging"`

	Suggest struct {
		Oversample int `yaml:"oversample"`
	} `yaml:"suggest"`
}

// Load reads the YAML file at path (DefaultPath when empty), expands ${ENV}
// placeholders and applies defaults. GCAL_CALENDAR_MAP, a JSON object of
// staff id to calendar id, replaces calendar.calendars when set.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if raw := strings.TrimSpace(os.Getenv("GCAL_CALENDAR_MAP")); raw != "" {
		calendars := map[string]string{}
		if err = json.Unmarshal([]byte(raw), &calendars); err != nil {
			return nil, fmt.Errorf("GCAL_CALENDAR_MAP: %w", err)
		}
		cfg.Calendar.Calendars = calendars
	}

	cfg.applyDefaults()

	if err = os.MkdirAll(filepath.Dir(cfg.Contacts.Path), 0o755); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "salon-agent"
	}
	if c.Knowledge.Dir == "" {
		c.Knowledge.Dir = "data/kb"
	}
	if c.Contacts.Path == "" {
		c.Contacts.Path = "data/contacts.db"
	}
	if c.Contacts.Backup.Dir == "" {
		c.Contacts.Backup.Dir = filepath.Join(filepath.Dir(c.Contacts.Path), "backups")
	}
	if c.API.Addr == "" {
		c.API.Addr = ":8080"
	}
	if c.Monitoring.HealthCheckPort == 0 {
		c.Monitoring.HealthCheckPort = 8090
	}
	if c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	def := booking.DefaultPaths()
	p := &c.Booking.Paths
	if p.Book == "" {
		p.Book = def.Book
	}
	if p.Cancel == "" {
		p.Cancel = def.Cancel
	}
	if p.Reschedule == "" {
		p.Reschedule = def.Reschedule
	}
	if p.FindByPhone == "" {
		p.FindByPhone = def.FindByPhone
	}
}

// KnowledgeOptions turns the knowledge and calendar sections into build
// options. Calendar ids in staff overrides win over the calendar map.
func (c *Config) KnowledgeOptions() salon.Options {
	return salon.Options{
		Holidays:        c.Knowledge.Holidays,
		DefaultServices: c.Knowledge.DefaultServices,
		StaffOverrides:  c.Knowledge.Staff,
		Calendars:       c.Calendar.Calendars,
		Strict:          c.Knowledge.Strict,
	}
}

// KnowledgePaths lists the files whose changes trigger a reload.
func (c *Config) KnowledgePaths() []string {
	if c.Knowledge.Structured != "" {
		return []string{c.Knowledge.Structured}
	}
	return salon.SourcePaths(c.Knowledge.Dir)
}

// LoadKnowledge builds the knowledge base from the configured source.
func (c *Config) LoadKnowledge() (*salon.DB, error) {
	opts := c.KnowledgeOptions()
	if c.Knowledge.Structured != "" {
		k, err := salon.LoadStructured(c.Knowledge.Structured)
		if err != nil {
			return nil, err
		}
		return salon.BuildStructured(k, opts)
	}
	return salon.LoadDir(c.Knowledge.Dir, opts)
}

func (c *Config) ReloadInterval() time.Duration {
	if c.Knowledge.ReloadSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Knowledge.ReloadSeconds) * time.Second
}

func (c *Config) CalendarTimeout() time.Duration {
	if c.Calendar.TimeoutSeconds <= 0 {
		return 3 * time.Second
	}
	return time.Duration(c.Calendar.TimeoutSeconds) * time.Second
}

// CalendarCacheTTL is zero when caching is disabled with a negative value.
func (c *Config) CalendarCacheTTL() time.Duration {
	switch {
	case c.Calendar.CacheTTLSeconds < 0:
		return 0
	case c.Calendar.CacheTTLSeconds == 0:
		return 60 * time.Second
	}
	return time.Duration(c.Calendar.CacheTTLSeconds) * time.Second
}

func (c *Config) BookingTimeout() time.Duration {
	if c.Booking.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.Booking.TimeoutSeconds) * time.Second
}

func (c *Config) APIReadTimeout() time.Duration {
	if c.API.ReadTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.API.ReadTimeoutSeconds) * time.Second
}

func (c *Config) APIWriteTimeout() time.Duration {
	if c.API.WriteTimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.API.WriteTimeoutSeconds) * time.Second
}

// LogLevel falls back to info on an unknown name.
func (c *Config) LogLevel() zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(c.Logging.Level))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// PrettyLogs is true unless logging.pretty is explicitly false.
func (c *Config) PrettyLogs() bool {
	return c.Logging.Pretty == nil || *c.Logging.Pretty
}
