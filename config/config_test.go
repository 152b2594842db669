package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate 切到空目录，避免读到仓库里的 config.yaml
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv(PathEnvVar, "")
	return dir
}

func TestLoadDefaultsRequireSecret(t *testing.T) {
	isolate(t)
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth.jwt_secret")
}

func TestLoadFromEnv(t *testing.T) {
	isolate(t)
	t.Setenv("FOODGRAM_AUTH__JWT_SECRET", "s3cret")
	t.Setenv("FOODGRAM_SERVER__ADDR", ":8080")
	t.Setenv("FOODGRAM_SERVER__CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("FOODGRAM_CACHE__TTL", "90s")
	t.Setenv("FOODGRAM_REDIS__ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.Auth.Secret)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 90*time.Second, cfg.Cache.TTL)
	assert.True(t, cfg.Redis.Enabled)

	// 未覆盖的保留默认值
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 1024, cfg.Cache.LRUSize)
	assert.Equal(t, "local", cfg.Images.Backend)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9000"
database:
  driver: postgres
  dsn: "host=db user=foodgram dbname=foodgram sslmode=disable"
auth:
  jwt_secret: from-file
images:
  backend: s3
  s3:
    bucket: media
    region: eu-west-1
log:
  level: debug
`), 0o600))
	t.Setenv(PathEnvVar, path)
	t.Setenv("FOODGRAM_AUTH__JWT_SECRET", "from-env")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "from-env", cfg.Auth.Secret, "env wins over file")
	assert.Equal(t, "media", cfg.Images.S3.Bucket)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestValidate(t *testing.T) {
	cfg := defaultConfig()
	cfg.Auth.Secret = "x"
	require.NoError(t, cfg.Validate())

	cfg.Database.Driver = "mysql"
	cfg.Images.Backend = "s3"
	cfg.Cache.LRUSize = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.driver")
	assert.Contains(t, err.Error(), "images.s3.bucket")
	assert.Contains(t, err.Error(), "cache.lru_size")
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "auth.jwt_secret", envKey("FOODGRAM_AUTH__JWT_SECRET"))
	assert.Equal(t, "server.addr", envKey("FOODGRAM_SERVER__ADDR"))
}
