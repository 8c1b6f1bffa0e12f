package content

import (
	"context"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/webdav"
)

func TestHandler(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "5", "content"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "5", "content", "index.html"), []byte("<h1>lesson</h1>"), 0644))

	app := fiber.New()
	h := NewHandler("/pluginfile", dir)
	app.Get("/pluginfile/*", h)
	app.Options("/pluginfile/*", h)

	resp, err := app.Test(httptest.NewRequest("GET", "/pluginfile/5/content/index.html", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "<h1>lesson</h1>", string(b))

	resp, err = app.Test(httptest.NewRequest("GET", "/pluginfile/5/content/missing.html", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("OPTIONS", "/pluginfile/5/content/index.html", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "OPTIONS, GET, HEAD", resp.Header.Get("Allow"))
}

func TestReadOnlyFS(t *testing.T) {
	dir := t.TempDir()
	fs := readOnlyFS{webdav.Dir(dir)}
	ctx := context.Background()

	assert.ErrorIs(t, fs.Mkdir(ctx, "/x", 0755), os.ErrPermission)
	assert.ErrorIs(t, fs.RemoveAll(ctx, "/"), os.ErrPermission)
	assert.ErrorIs(t, fs.Rename(ctx, "/a", "/b"), os.ErrPermission)
	_, err := fs.OpenFile(ctx, "/new.txt", os.O_CREATE|os.O_WRONLY, 0644)
	assert.ErrorIs(t, err, os.ErrPermission)
	_, err = os.Stat(filepath.Join(dir, "new.txt"))
	assert.True(t, os.IsNotExist(err))

	f, err := fs.OpenFile(ctx, "/", os.O_RDONLY, 0)
	require.NoError(t, err)
	f.Close()
}
