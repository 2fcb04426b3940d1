package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, DriverMongo, cfg.Database.Driver)
	assert.Equal(t, "valeda", cfg.Database.Name)
	assert.Equal(t, uint64(10), cfg.Database.MaxPoolSize)
	assert.Equal(t, 5*time.Second, cfg.Database.ServerSelectionTimeout)
	assert.Equal(t, time.Second, cfg.Client.AutosaveInterval)
	assert.False(t, cfg.S3.Enabled())
}

func TestLoadConfig_FileAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte("database:\n  driver: memory\n  name: from_file\nlog:\n  level: debug\ns3:\n  bucket_name: archives\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))

	t.Setenv("DATABASE_NAME", "from_env")
	t.Setenv("CLIENT_AUTOSAVE_INTERVAL", "250ms")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, DriverMemory, cfg.Database.Driver)
	assert.Equal(t, "from_env", cfg.Database.Name)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 250*time.Millisecond, cfg.Client.AutosaveInterval)
	assert.True(t, cfg.S3.Enabled())
}

func TestLoadConfig_MalformedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server: [unclosed"), 0o600))

	_, err := LoadConfig(dir)
	assert.Error(t, err)
}
