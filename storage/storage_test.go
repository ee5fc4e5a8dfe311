package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gocddb/config"
	"gocddb/core/protocol"
)

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "512 B", FormatSize(512))
	assert.Equal(t, "1.00 KB", FormatSize(1024))
	assert.Equal(t, "1.50 MB", FormatSize(1536*1024))
}

func TestNewMinioClientFromConfig(t *testing.T) {
	cfg := &config.Config{
		MinioEndpoint:  "127.0.0.1:9000",
		MinioAccessKey: "minioadmin",
		MinioSecretKey: "minioadmin",
		MinioBucket:    "freedb",
	}

	client, err := NewMinioClientFromConfig(cfg, "")
	require.NoError(t, err)
	assert.Equal(t, "freedb", client.Bucket())

	client, err = NewMinioClientFromConfig(cfg, "mirror")
	require.NoError(t, err)
	assert.Equal(t, "mirror", client.Bucket())
}

func TestMinioClientIsObjectStore(t *testing.T) {
	var _ protocol.ObjectStore = (*MinioClient)(nil)
}
