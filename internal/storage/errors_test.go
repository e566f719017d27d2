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
	assert.True(t, IsNoSuchKey(fmt.Errorf("stat object: %w", minio.ErrorResponse{Code: "NotFound"})))
	assert.True(t, IsNoSuchKey(errors.New("The specified key does not exist.")))
	assert.False(t, IsNoSuchKey(minio.ErrorResponse{Code: "AccessDenied", Message: "denied"}))
}

func TestArchiveKey(t *testing.T) {
	assert.Equal(t, "generated-certificates/abc/certificates.zip", ArchiveKey("abc"))
}
