package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("CDDB_SERVER", "")
	t.Setenv("REDIS_DB", "not-a-number")

	cfg := FromEnv()

	assert.Equal(t, "", cfg.Server)
	assert.Equal(t, 0, cfg.RedisDB)
	assert.Equal(t, "3306", cfg.DBPort)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("CDDB_SERVER", "http://freedb.org:80/~cddb/cddb.cgi")
	t.Setenv("CDDB_PERSIST", "true")
	t.Setenv("CDDB_TIMEOUT", "5s")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("MINIO_USE_SSL", "yes")

	cfg := FromEnv()

	assert.Equal(t, "http://freedb.org:80/~cddb/cddb.cgi", cfg.Server)
	assert.True(t, cfg.Persist)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.False(t, cfg.MinioUseSSL)
}
