package domain

import (
	"fmt"
	"strings"
	"time"
)

// Config represents the application configuration
type Config struct {
	Salesforce   SalesforceConfig   `mapstructure:"salesforce"`
	Archive      ArchiveConfig      `mapstructure:"archive"`
	Transport    TransportConfig    `mapstructure:"transport"`
	Index        IndexConfig        `mapstructure:"index"`
	Server       ServerConfig       `mapstructure:"server"`
	Notification NotificationConfig `mapstructure:"notification"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// SalesforceConfig contains REST API connection settings
type SalesforceConfig struct {
	InstanceURL string        `mapstructure:"instance_url"`
	APIVersion  string        `mapstructure:"api_version"`
	AccessToken string        `mapstructure:"access_token"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxRetries  int           `mapstructure:"max_retries"`
	RetryDelay  time.Duration `mapstructure:"retry_delay"`
}

// ArchiveConfig contains engine settings
type ArchiveConfig struct {
	DataDir string `mapstructure:"data_dir"`
	LogsDir string `mapstructure:"logs_dir"`
	// MaxAPIUsagePercent of 0 disables the quota gate
	MaxAPIUsagePercent float64                 `mapstructure:"max_api_usage_percent"`
	QuotaWaitSeconds   int                     `mapstructure:"quota_wait_seconds"`
	MaxWorkers         int                     `mapstructure:"max_workers"`
	ModifiedDateGT     string                  `mapstructure:"modified_date_gt"`
	ModifiedDateLT     string                  `mapstructure:"modified_date_lt"`
	Objects            []ObjectConfig `mapstructure:"objects"`
}

// ObjectConfig contains per object type settings. Objects are a list rather
// than a map because viper lowercases map keys and type names are case sensitive.
type ObjectConfig struct {
	Name           string `mapstructure:"name"`
	DirNameField   string `mapstructure:"dir_name_field"`
	ModifiedDateGT string `mapstructure:"modified_date_gt"`
	ModifiedDateLT string `mapstructure:"modified_date_lt"`
	// Attachments toggles the legacy Attachment pass for this type
	Attachments bool `mapstructure:"attachments"`
}

// TransportConfig selects where object bodies come from
type TransportConfig struct {
	Kind      string `mapstructure:"kind"` // salesforce, bucket
	BucketURL string `mapstructure:"bucket_url"`
}

// IndexConfig selects how indices are persisted
type IndexConfig struct {
	Backend      string `mapstructure:"backend"` // csv, sqlite
	DatabasePath string `mapstructure:"database_path"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// NotificationConfig contains notification-related configuration
type NotificationConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Sound   bool   `mapstructure:"sound"`
	Method  string `mapstructure:"method"` // osascript, notify-send
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, or file path
}

const (
	DefaultMaxWorkers       = 5
	DefaultQuotaWaitSeconds = 300
	DefaultAPIVersion       = "59.0"

	TransportSalesforce = "salesforce"
	TransportBucket     = "bucket"

	IndexBackendCSV    = "csv"
	IndexBackendSQLite = "sqlite"

	dateLayout = "2006-01-02"
)

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Salesforce: SalesforceConfig{
			APIVersion: DefaultAPIVersion,
			Timeout:    10 * time.Minute,
			MaxRetries: 3,
			RetryDelay: 2 * time.Second,
		},
		Archive: ArchiveConfig{
			DataDir:          "$HOME/archivist/data",
			LogsDir:          "$HOME/archivist/logs",
			QuotaWaitSeconds: DefaultQuotaWaitSeconds,
			MaxWorkers:       DefaultMaxWorkers,
		},
		Transport: TransportConfig{
			Kind: TransportSalesforce,
		},
		Index: IndexConfig{
			Backend:      IndexBackendCSV,
			DatabasePath: "$HOME/archivist/data/index.db",
		},
		Server: ServerConfig{
			Host: "localhost",
			Port: 8080,
		},
		Notification: NotificationConfig{
			Enabled: false,
			Sound:   true,
			Method:  "osascript",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stdout",
		},
	}
}

// QuotaThreshold returns the configured usage ceiling, or nil when unlimited
func (c *ArchiveConfig) QuotaThreshold() *float64 {
	if c.MaxAPIUsagePercent <= 0 {
		return nil
	}
	v := c.MaxAPIUsagePercent
	return &v
}

// FieldError is one failed configuration rule
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// ConfigErrors lists every rule a configuration failed
type ConfigErrors []FieldError

func (e ConfigErrors) Error() string {
	msgs := make([]string, len(e))
	for i, fe := range e {
		msgs[i] = fe.Error()
	}
	return "invalid config: " + strings.Join(msgs, "; ")
}

// ValidateConfig checks a configuration and returns ConfigErrors, or nil when valid
func ValidateConfig(cfg *Config) error {
	var errs ConfigErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	a := cfg.Archive
	if a.DataDir == "" {
		add("archive.data_dir", "is required")
	}
	if a.MaxAPIUsagePercent < 0 || a.MaxAPIUsagePercent > 100 {
		add("archive.max_api_usage_percent", "must be in (0, 100], got %v", a.MaxAPIUsagePercent)
	}
	if a.MaxWorkers <= 0 {
		add("archive.max_workers", "must be greater than 0, got %d", a.MaxWorkers)
	}
	if a.QuotaWaitSeconds <= 0 {
		add("archive.quota_wait_seconds", "must be greater than 0, got %d", a.QuotaWaitSeconds)
	}
	checkDate := func(field, value string) {
		if value == "" {
			return
		}
		if _, err := time.Parse(dateLayout, value); err != nil {
			add(field, "must be a YYYY-MM-DD date, got %q", value)
		}
	}
	checkDate("archive.modified_date_gt", a.ModifiedDateGT)
	checkDate("archive.modified_date_lt", a.ModifiedDateLT)
	if len(a.Objects) == 0 {
		add("archive.objects", "at least one object type is required")
	}
	seen := make(map[string]bool, len(a.Objects))
	for i, obj := range a.Objects {
		field := fmt.Sprintf("archive.objects[%d]", i)
		switch {
		case obj.Name == "":
			add(field+".name", "object type name must not be empty")
		case seen[obj.Name]:
			add(field+".name", "duplicate object type %q", obj.Name)
		}
		seen[obj.Name] = true
		checkDate(field+".modified_date_gt", obj.ModifiedDateGT)
		checkDate(field+".modified_date_lt", obj.ModifiedDateLT)
	}

	switch cfg.Transport.Kind {
	case TransportSalesforce:
		if cfg.Salesforce.InstanceURL == "" {
			add("salesforce.instance_url", "is required for the salesforce transport")
		}
		if cfg.Salesforce.MaxRetries < 0 {
			add("salesforce.max_retries", "must not be negative")
		}
	case TransportBucket:
		if cfg.Transport.BucketURL == "" {
			add("transport.bucket_url", "is required for the bucket transport")
		}
	default:
		add("transport.kind", "unknown transport %q", cfg.Transport.Kind)
	}

	switch cfg.Index.Backend {
	case IndexBackendCSV:
	case IndexBackendSQLite:
		if cfg.Index.DatabasePath == "" {
			add("index.database_path", "is required for the sqlite backend")
		}
	default:
		add("index.backend", "unknown backend %q", cfg.Index.Backend)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
