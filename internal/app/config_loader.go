package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/yourusername/archivist-go/internal/domain"
)

// EnvPrefix is the prefix of environment overrides, e.g. ARCHIVIST_SALESFORCE_ACCESS_TOKEN
const EnvPrefix = "ARCHIVIST"

// LoadConfig loads configuration from file and environment
func LoadConfig(configPath string) (*domain.Config, error) {
	// .env is optional, real environment variables win
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	config := domain.DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.archivist")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config = expandPaths(config)

	if err := domain.ValidateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// bindEnvKeys registers the keys AutomaticEnv cannot discover on its own
// because Unmarshal only sees keys viper already knows about.
func bindEnvKeys(v *viper.Viper) {
	for _, key := range []string{
		"salesforce.instance_url",
		"salesforce.api_version",
		"salesforce.access_token",
		"salesforce.timeout",
		"salesforce.max_retries",
		"salesforce.retry_delay",
		"archive.data_dir",
		"archive.logs_dir",
		"archive.max_api_usage_percent",
		"archive.quota_wait_seconds",
		"archive.max_workers",
		"transport.kind",
		"transport.bucket_url",
		"index.backend",
		"index.database_path",
		"server.host",
		"server.port",
		"logging.level",
	} {
		_ = v.BindEnv(key)
	}
}

// expandPaths expands environment variables in path configurations
func expandPaths(config *domain.Config) *domain.Config {
	config.Archive.DataDir = expandPath(config.Archive.DataDir)
	config.Archive.LogsDir = expandPath(config.Archive.LogsDir)
	config.Index.DatabasePath = expandPath(config.Index.DatabasePath)

	if config.Logging.OutputPath != "stdout" && config.Logging.OutputPath != "stderr" {
		config.Logging.OutputPath = expandPath(config.Logging.OutputPath)
	}

	return config
}

// expandPath expands environment variables and ~ in paths
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}

	// $HOME is resolved even when the variable is unset in the environment
	if strings.Contains(path, "$HOME") {
		if home, err := os.UserHomeDir(); err == nil {
			path = strings.ReplaceAll(path, "$HOME", home)
		}
	}

	return os.ExpandEnv(path)
}

// SaveConfig saves configuration to file
func SaveConfig(config *domain.Config, path string) error {
	v := viper.New()
	v.SetConfigType("yaml")

	v.Set("salesforce", map[string]interface{}{
		"instance_url": config.Salesforce.InstanceURL,
		"api_version":  config.Salesforce.APIVersion,
		"access_token": config.Salesforce.AccessToken,
		"timeout":      config.Salesforce.Timeout.String(),
		"max_retries":  config.Salesforce.MaxRetries,
		"retry_delay":  config.Salesforce.RetryDelay.String(),
	})

	objects := make([]interface{}, 0, len(config.Archive.Objects))
	for _, obj := range config.Archive.Objects {
		objects = append(objects, map[string]interface{}{
			"name":             obj.Name,
			"dir_name_field":   obj.DirNameField,
			"modified_date_gt": obj.ModifiedDateGT,
			"modified_date_lt": obj.ModifiedDateLT,
			"attachments":      obj.Attachments,
		})
	}
	v.Set("archive", map[string]interface{}{
		"data_dir":              config.Archive.DataDir,
		"logs_dir":              config.Archive.LogsDir,
		"max_api_usage_percent": config.Archive.MaxAPIUsagePercent,
		"quota_wait_seconds":    config.Archive.QuotaWaitSeconds,
		"max_workers":           config.Archive.MaxWorkers,
		"modified_date_gt":      config.Archive.ModifiedDateGT,
		"modified_date_lt":      config.Archive.ModifiedDateLT,
		"objects":               objects,
	})
	v.Set("transport", map[string]interface{}{
		"kind":       config.Transport.Kind,
		"bucket_url": config.Transport.BucketURL,
	})
	v.Set("index", map[string]interface{}{
		"backend":       config.Index.Backend,
		"database_path": config.Index.DatabasePath,
	})
	v.Set("server", map[string]interface{}{
		"host": config.Server.Host,
		"port": config.Server.Port,
	})
	v.Set("notification", map[string]interface{}{
		"enabled": config.Notification.Enabled,
		"sound":   config.Notification.Sound,
		"method":  config.Notification.Method,
	})
	v.Set("logging", map[string]interface{}{
		"level":       config.Logging.Level,
		"format":      config.Logging.Format,
		"output_path": config.Logging.OutputPath,
	})

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
