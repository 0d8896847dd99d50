package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Salesforce.InstanceURL = "https://example.my.salesforce.com"
	cfg.Archive.DataDir = "/tmp/archive"
	cfg.Archive.Objects = []ObjectConfig{
		{Name: "Account", DirNameField: "Name"},
	}
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.NotNil(t, config)
	assert.Equal(t, "localhost", config.Server.Host)
	assert.Equal(t, 8080, config.Server.Port)
	assert.Equal(t, DefaultMaxWorkers, config.Archive.MaxWorkers)
	assert.Equal(t, 300, config.Archive.QuotaWaitSeconds)
	assert.Equal(t, 3, config.Salesforce.MaxRetries)
	assert.Equal(t, 2*time.Second, config.Salesforce.RetryDelay)
	assert.Equal(t, TransportSalesforce, config.Transport.Kind)
	assert.Equal(t, IndexBackendCSV, config.Index.Backend)
	assert.Nil(t, config.Archive.QuotaThreshold())
	assert.Equal(t, "info", config.Logging.Level)
}

func TestValidateConfig_Valid(t *testing.T) {
	assert.NoError(t, ValidateConfig(validConfig()))
}

func TestValidateConfig_CollectsAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Archive.DataDir = ""
	cfg.Archive.MaxWorkers = 0
	cfg.Archive.MaxAPIUsagePercent = 120
	cfg.Archive.ModifiedDateGT = "yesterday"

	err := ValidateConfig(cfg)
	require.Error(t, err)

	var cfgErrs ConfigErrors
	require.True(t, errors.As(err, &cfgErrs))

	fields := make([]string, 0, len(cfgErrs))
	for _, fe := range cfgErrs {
		fields = append(fields, fe.Field)
	}
	assert.ElementsMatch(t, []string{
		"archive.data_dir",
		"archive.max_workers",
		"archive.max_api_usage_percent",
		"archive.modified_date_gt",
	}, fields)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestValidateConfig_Transport(t *testing.T) {
	cfg := validConfig()
	cfg.Transport.Kind = TransportBucket

	err := ValidateConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transport.bucket_url")

	cfg.Transport.BucketURL = "mem://"
	assert.NoError(t, ValidateConfig(cfg))

	cfg.Transport.Kind = "ftp"
	assert.Error(t, ValidateConfig(cfg))
}

func TestValidateConfig_IndexBackend(t *testing.T) {
	cfg := validConfig()
	cfg.Index.Backend = IndexBackendSQLite
	cfg.Index.DatabasePath = ""

	err := ValidateConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index.database_path")
}

func TestQuotaThreshold(t *testing.T) {
	a := ArchiveConfig{MaxAPIUsagePercent: 75}
	require.NotNil(t, a.QuotaThreshold())
	assert.Equal(t, 75.0, *a.QuotaThreshold())
}

func TestValidateConfig_Objects(t *testing.T) {
	cfg := validConfig()
	cfg.Archive.Objects = nil
	err := ValidateConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one object type")

	cfg.Archive.Objects = []ObjectConfig{{Name: "Account"}, {Name: "Account"}, {Name: ""}}
	err = ValidateConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `duplicate object type "Account"`)
	assert.Contains(t, err.Error(), "archive.objects[2].name")
}
