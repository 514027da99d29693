package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name    string `env:"CFG_TEST_NAME" envDefault:"fallback"`
	Mailbox string `env:"CFG_TEST_MAILBOX,required"`
	Workers int    `env:"CFG_TEST_WORKERS" envDefault:"3"`
}

func TestLoad_DefaultsAndEnv(t *testing.T) {
	t.Setenv("CFG_TEST_MAILBOX", "ops@example.com")

	var cfg sample
	require.NoError(t, Load(&cfg, filepath.Join(t.TempDir(), "missing.env")))
	assert.Equal(t, "fallback", cfg.Name)
	assert.Equal(t, "ops@example.com", cfg.Mailbox)
	assert.Equal(t, 3, cfg.Workers)
}

func TestLoad_MissingRequired(t *testing.T) {
	var cfg sample
	err := Load(&cfg, filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
}

func TestLoad_DotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("CFG_TEST_MAILBOX=file@example.com\nCFG_TEST_NAME=from-file\n"), 0o600))
	t.Setenv("CFG_TEST_NAME", "from-env")
	t.Cleanup(func() { _ = os.Unsetenv("CFG_TEST_MAILBOX") })

	var cfg sample
	require.NoError(t, Load(&cfg, path))
	assert.Equal(t, "file@example.com", cfg.Mailbox)
	assert.Equal(t, "from-env", cfg.Name, "process env must win over the file")
}

func TestValidatePort(t *testing.T) {
	assert.NoError(t, ValidatePort("PORT", "8085"))
	assert.Error(t, ValidatePort("PORT", "0"))
	assert.Error(t, ValidatePort("PORT", "70000"))
	assert.Error(t, ValidatePort("PORT", "http"))
}
