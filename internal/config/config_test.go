package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SERVER_PORT", "9090")

	cfg := Load()
	assert.Equal(t, "9090", cfg.ServerPort)
	assert.Equal(t, "dealerchat", cfg.DBName)
	assert.Equal(t, "dealerchat/attachments", cfg.Cloudinary.UploadFolder)
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	err := os.WriteFile(filepath.Join(dir, ".env"), []byte("NATS_URL=nats://broker:4222\nDB_HOST=from-file\n"), 0o600)
	assert.NoError(t, err)
	t.Setenv("DB_HOST", "from-env")

	cfg := Load()
	assert.Equal(t, "from-env", cfg.DBHost)
	assert.Equal(t, "nats://broker:4222", cfg.NatsURL)
	os.Unsetenv("NATS_URL")
}

func TestCloudinaryEnabled(t *testing.T) {
	assert.False(t, CloudinaryConfig{CloudName: "demo"}.Enabled())
	assert.True(t, CloudinaryConfig{CloudName: "demo", APIKey: "k", APISecret: "s"}.Enabled())
}

func TestLoadClientTrimsSlash(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DEALERCHAT_API_URL", "https://cars.example.com/api/v1/")

	cfg := LoadClient()
	assert.Equal(t, "https://cars.example.com/api/v1", cfg.APIURL)
}
