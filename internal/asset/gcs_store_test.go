package asset

import (
	"context"
	"strings"
	"testing"

	"github.com/blues/grants/internal/config"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectKey(t *testing.T) {
	key := ObjectKey("/grants/logos/", "My Logo.PNG")
	require.True(t, strings.HasPrefix(key, "grants/logos/"))
	require.True(t, strings.HasSuffix(key, ".png"))

	id := strings.TrimSuffix(strings.TrimPrefix(key, "grants/logos/"), ".png")
	_, err := uuid.Parse(id)
	assert.NoError(t, err)

	assert.NotEqual(t, key, ObjectKey("grants/logos", "My Logo.PNG"))

	bare := ObjectKey("", `C:\uploads\logo`)
	_, err = uuid.Parse(bare)
	assert.NoError(t, err)
}

func TestPublicURL(t *testing.T) {
	assert.Equal(t, "https://storage.googleapis.com/bucket/a/b.png", PublicURL("", "bucket", "a/b.png"))
	assert.Equal(t, "https://cdn.example.com/a/b.png", PublicURL("https://cdn.example.com/", "bucket", "/a/b.png"))
}

func TestContentTypeForName(t *testing.T) {
	assert.Equal(t, "image/png", ContentTypeForName("logo.PNG"))
	assert.Equal(t, "image/jpeg", ContentTypeForName("logo.jpeg"))
	assert.Equal(t, "image/svg+xml", ContentTypeForName("logo.svg"))
	assert.Equal(t, "application/octet-stream", ContentTypeForName("logo"))
}

func TestNewGCSStoreRequiresBucket(t *testing.T) {
	_, err := NewGCSStore(context.Background(), config.StorageConfig{})
	assert.Error(t, err)
}
