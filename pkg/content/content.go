// Package content serves extracted package files read-only over the webdav
// file server.
package content

import (
	"context"
	"net/http"
	"os"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/net/webdav"
)

// NewHandler serves dir below prefix. Only reads are allowed.
func NewHandler(prefix, dir string) fiber.Handler {
	davHandler := &webdav.Handler{
		Prefix:     prefix,
		FileSystem: readOnlyFS{webdav.Dir(dir)},
		LockSystem: webdav.NewMemLS(),
	}

	httpHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
		default:
			w.Header().Set("Allow", "OPTIONS, GET, HEAD")
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if r.Method == http.MethodOptions {
			w.Header().Set("Allow", "OPTIONS, GET, HEAD")
			w.WriteHeader(http.StatusOK)
			return
		}
		davHandler.ServeHTTP(w, r)
	})

	return adaptor.HTTPHandler(httpHandler)
}

// readOnlyFS rejects every change to the wrapped file system.
type readOnlyFS struct {
	webdav.FileSystem
}

func (readOnlyFS) Mkdir(ctx context.Context, name string, perm os.FileMode) error {
	return os.ErrPermission
}

func (fs readOnlyFS) OpenFile(ctx context.Context, name string, flag int, perm os.FileMode) (webdav.File, error) {
	if flag&(os.O_WRONLY|os.O_RDWR|os.O_CREATE|os.O_TRUNC|os.O_APPEND) != 0 {
		return nil, os.ErrPermission
	}
	return fs.FileSystem.OpenFile(ctx, name, flag, perm)
}

func (readOnlyFS) RemoveAll(ctx context.Context, name string) error {
	return os.ErrPermission
}

func (readOnlyFS) Rename(ctx context.Context, oldName, newName string) error {
	return os.ErrPermission
}
