package blob

import (
	"context"
	"io"
	"path"
	"path/filepath"
	"strings"
)

// Store keeps the original bytes of uploaded files.
type Store interface {
	// Put writes r under key and returns a URI that locates the object.
	Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
}

// ObjectKey lays objects out as prefix/<documentID>/<filename>.
func ObjectKey(prefix, documentID, filename string) string {
	name := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "upload"
	}
	return path.Join(strings.Trim(prefix, "/"), documentID, name)
}
