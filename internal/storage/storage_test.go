package storage

import (
	"errors"
	"fmt"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
)

func TestIsNoSuchKey(t *testing.T) {
	assert.False(t, IsNoSuchKey(nil))
	assert.True(t, IsNoSuchKey(minio.ErrorResponse{Code: "NoSuchKey"}))
	assert.True(t, IsNoSuchKey(fmt.Errorf("get: %w", minio.ErrorResponse{Code: "NotFound"})))
	assert.True(t, IsNoSuchKey(errors.New("The specified key does not exist.")))
	assert.False(t, IsNoSuchKey(minio.ErrorResponse{Code: "AccessDenied", Message: "denied"}))
}

func TestIsNoSuchBucket(t *testing.T) {
	assert.True(t, IsNoSuchBucket(minio.ErrorResponse{Code: "NoSuchBucket"}))
	assert.False(t, IsNoSuchBucket(errors.New("timeout")))
}

func TestExportKeys(t *testing.T) {
	key := ExportKey("u1", "r1", "a.md")
	assert.Equal(t, "exports/u1/r1/a.md", key)
	assert.Contains(t, key, ExportPrefix("u1", "r1"))
	assert.NotContains(t, ExportKey("u1", "r10", "a.md"), ExportPrefix("u1", "r1"))
}
