package handlers

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

var mimeTypes = map[string]string{
	".html": "text/html",
	".css":  "text/css",
	".js":   "application/javascript",
	".json": "application/json",
	".svg":  "image/svg+xml",
	".ico":  "image/x-icon",
}

var errOutsideRoot = errors.New("path escapes asset root")

// StaticHandler serves files from a single asset directory.
type StaticHandler struct {
	root string
}

// NewStaticHandler creates a handler rooted at dir.
func NewStaticHandler(dir string) (*StaticHandler, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	return &StaticHandler{root: root}, nil
}

// Serve answers GET requests for assets. It is registered as the router's
// NoRoute handler so API routes always win.
func (h *StaticHandler) Serve(c *gin.Context) {
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		c.String(http.StatusNotFound, "Not found")
		return
	}

	path, err := h.resolve(c.Request.URL.Path)
	if err != nil {
		c.String(http.StatusForbidden, "Forbidden")
		return
	}

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		c.String(http.StatusNotFound, "Not found")
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		c.String(http.StatusNotFound, "Not found")
		return
	}

	c.Data(http.StatusOK, contentType(path), data)
}

// resolve maps a request path onto a file inside the asset root.
func (h *StaticHandler) resolve(urlPath string) (string, error) {
	if urlPath == "" || urlPath == "/" {
		urlPath = "/index.html"
	}

	// Join cleans the result, so ".." segments that climb out of the root
	// show up as a prefix mismatch.
	path := filepath.Join(h.root, filepath.FromSlash(urlPath))
	if path != h.root && !strings.HasPrefix(path, h.root+string(filepath.Separator)) {
		return "", errOutsideRoot
	}
	return path, nil
}

func contentType(path string) string {
	if mime, ok := mimeTypes[strings.ToLower(filepath.Ext(path))]; ok {
		return mime
	}
	return "application/octet-stream"
}
