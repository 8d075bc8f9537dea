package config

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const sampleYAML = `
env: prod
http:
  port: "9090"
jwt:
  secret: "0123456789abcdef0123456789abcdef"
  access_ttl: 5m
  refresh_ttl: 12h
cookie:
  same_site: lax
  secure: true
logout:
  path: /auth/logout
  methods: [post]
security:
  max_login_attempts: 3
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tokenauth.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFileAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	require.Equal(t, "prod", cfg.Env)
	require.Equal(t, "0.0.0.0:9090", cfg.HTTP.Addr())
	require.Equal(t, 5*time.Minute, cfg.JWT.AccessTTL)
	require.Equal(t, "refreshToken", cfg.Session.RedisPrefix)
	require.Equal(t, 15*time.Minute, cfg.Security.LoginCooldownDuration)
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("JWT_ACCESS_TTL", "1m")
	t.Setenv("REDIS_ADDR", "redis:6380")

	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)
	require.Equal(t, time.Minute, cfg.JWT.AccessTTL)
	require.Equal(t, "redis:6380", cfg.Redis.Addr)
}

func TestEngineConversion(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	engineCfg, err := cfg.Engine()
	require.NoError(t, err)
	require.NoError(t, engineCfg.Validate())

	require.Equal(t, "hs256", engineCfg.JWT.SigningMethod)
	require.Equal(t, 12*time.Hour, engineCfg.JWT.RefreshTTL)
	require.Equal(t, http.SameSiteLaxMode, engineCfg.Cookie.SameSite)
	require.Equal(t, "/auth/logout", engineCfg.Logout.Path)
	require.Equal(t, []string{http.MethodPost}, engineCfg.Logout.Methods)
	require.Equal(t, 3, engineCfg.Security.MaxLoginAttempts)
}

func TestEngineRejectsUnknownSameSite(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)
	cfg.Cookie.SameSite = "sideways"

	_, err = cfg.Engine()
	require.Error(t, err)
}

func TestEngineEd25519RequiresKeyFiles(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)
	cfg.JWT.SigningMethod = "ed25519"

	_, err = cfg.Engine()
	require.Error(t, err)
}
