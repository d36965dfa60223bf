package storage

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/straye-as/pipeline-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLocalStorage_RoundTrip(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	path, size, err := s.Upload(ctx, "reports/2024/03", "pipeline.xlsx", "application/octet-stream", bytes.NewReader([]byte("workbook")))
	require.NoError(t, err)
	assert.Equal(t, int64(8), size)
	assert.True(t, strings.HasPrefix(path, "reports/2024/03/"))
	assert.True(t, strings.HasSuffix(path, "-pipeline.xlsx"))

	rc, err := s.Download(ctx, path)
	require.NoError(t, err)
	content, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "workbook", string(content))

	require.NoError(t, s.Delete(ctx, path))
	require.NoError(t, s.Delete(ctx, path), "deleting twice is not an error")

	_, err = s.Download(ctx, path)
	assert.Error(t, err)
}

func TestLocalStorage_RejectsEscapingPaths(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = s.Download(context.Background(), "../../etc/passwd")
	assert.Error(t, err)
	assert.Error(t, s.Delete(context.Background(), "/etc/passwd"))
}

func TestObjectName(t *testing.T) {
	assert.True(t, strings.HasPrefix(objectName("/reports/", "a.xlsx"), "reports/"))
	assert.NotContains(t, objectName("", "../../a.xlsx"), "..")
	assert.NotEqual(t, objectName("r", "a.xlsx"), objectName("r", "a.xlsx"))
}

func TestNewStorage(t *testing.T) {
	_, err := NewStorage(&config.StorageConfig{Mode: "ftp"}, zap.NewNop())
	assert.Error(t, err)

	_, err = NewStorage(&config.StorageConfig{Mode: "azure"}, zap.NewNop())
	assert.Error(t, err)

	s, err := NewStorage(&config.StorageConfig{Mode: "local", LocalBasePath: t.TempDir()}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &LocalStorage{}, s)
}
