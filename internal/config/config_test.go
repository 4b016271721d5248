package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.Equal(t, "data", cfg.Output)
	assert.Equal(t, 200, cfg.Schoology.PageSize)
	assert.Equal(t, "postgresql", cfg.Database.Engine)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level: debug
output: /var/lib/slate
canvas:
  token: file-token
schoology:
  page_size: 50
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/var/lib/slate", cfg.Output)
	assert.Equal(t, "file-token", cfg.Canvas.Token)
	assert.Equal(t, 50, cfg.Schoology.PageSize)
	assert.Equal(t, "console", cfg.LogFormat, "unset keys keep their defaults")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: debug\n"), 0o644))

	t.Setenv("SLATE_LOG_LEVEL", "warn")
	t.Setenv("SLATE_CANVAS__TOKEN", "env-token")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "env-token", cfg.Canvas.Token)
}

func TestValidate_Ambient(t *testing.T) {
	cfg := defaults()
	require.NoError(t, cfg.Validate())

	cfg.LogLevel = "loud"
	assert.ErrorContains(t, cfg.Validate(), "LogLevel")
}

func TestValidateCanvas(t *testing.T) {
	cfg := defaults()
	err := cfg.ValidateCanvas()
	require.Error(t, err, "token and account id are required")
	assert.ErrorContains(t, err, "required")

	cfg.Canvas.Token = "tok"
	cfg.Canvas.AccountID = "1"
	require.NoError(t, cfg.ValidateCanvas())

	cfg.Canvas.StartDate = "09/01/2023"
	assert.Error(t, cfg.ValidateCanvas(), "dates must be YYYY-MM-DD")
}

func TestValidateSchoology(t *testing.T) {
	cfg := defaults()
	err := cfg.ValidateSchoology()
	require.Error(t, err, "key and secret are required")
	assert.ErrorContains(t, err, "required")

	cfg.Schoology.Key = "k"
	cfg.Schoology.Secret = "s"
	require.NoError(t, cfg.ValidateSchoology(), "grading periods are optional, empty pulls everything")

	cfg.Schoology.GradingPeriods = []int{822}
	require.NoError(t, cfg.ValidateSchoology())
}

func TestValidateDatabase(t *testing.T) {
	cfg := defaults()
	cfg.Database.ConnectionString = "postgres://localhost/edfi"
	require.NoError(t, cfg.ValidateDatabase())

	cfg.Database.Engine = "mssql"
	assert.Error(t, cfg.ValidateDatabase())
}
