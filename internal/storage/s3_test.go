package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"oftalmonet/valeda-app/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEndpointURL(t *testing.T) {
	assert.Equal(t, "http://localhost:9000", endpointURL(config.S3Config{Endpoint: "localhost:9000"}))
	assert.Equal(t, "https://minio.local", endpointURL(config.S3Config{Endpoint: "minio.local", UseSSL: true}))
	assert.Equal(t, "http://minio:9000", endpointURL(config.S3Config{Endpoint: "http://minio:9000", UseSSL: true}))
}

func TestPresignedDownloadURL_IsSignedOffline(t *testing.T) {
	store, err := NewS3Storage(context.Background(), config.S3Config{
		Endpoint:        "localhost:9000",
		Region:          "us-east-1",
		AccessKeyID:     "test",
		SecretAccessKey: "secret",
		BucketName:      "archives",
	}, zap.NewNop())
	require.NoError(t, err)

	url, err := store.GeneratePresignedDownloadURL(context.Background(), "archives/a.json", 5*time.Minute)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "http://localhost:9000/archives/archives/a.json?"), url)
	assert.Contains(t, url, "X-Amz-Expires=300")
}
