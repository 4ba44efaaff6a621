package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadJSONConfigSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"app": {"AppPort": "9000", "JWTSecret": "s3cret", "TimelinePageSize": 5},
		"database": {"Driver": "memory"},
		"nats": {"URL": "nats://127.0.0.1:4222"},
		"admin": {"Usernames": ["root"]}
	}`), 0o600))

	var c AppConfig
	require.NoError(t, loadJSONConfig(path, &c))
	applyDefaults(&c)

	assert.Equal(t, "9000", c.AppPort)
	assert.Equal(t, "s3cret", c.JWTSecret)
	assert.Equal(t, 5, c.TimelinePageSize)
	assert.Equal(t, "memory", c.DBDriver)
	assert.Equal(t, "nats://127.0.0.1:4222", c.NatsURL)
	assert.True(t, c.IsAdmin("ROOT"))
	assert.False(t, c.IsAdmin("alice"))
	assert.Equal(t, 60, c.RateLimitPerMinute)
	assert.Empty(t, c.RedisHost)
}

func TestLoadJSONConfigMissingAndInvalid(t *testing.T) {
	var c AppConfig
	assert.NoError(t, loadJSONConfig(filepath.Join(t.TempDir(), "absent.json"), &c))

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o600))
	assert.Error(t, loadJSONConfig(bad, &c))
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "memory")
	t.Setenv("ADMIN_USERNAMES", " alice, ,bob ")
	t.Setenv("TIMELINE_PAGE_SIZE", "7")

	c := AppConfig{DBDriver: "mysql"}
	applyEnvOverrides(&c)
	assert.Equal(t, "memory", c.DBDriver)
	assert.Equal(t, []string{"alice", "bob"}, c.AdminUsernames)
	assert.Equal(t, 7, c.TimelinePageSize)
}
