package server

import (
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

const indexFile = "index.html"

// serveFileHandler serves the browser UI from the configured static directory.
func (s *Server) serveFileHandler() http.HandlerFunc {
	fsys := os.DirFS(s.config.GetStaticDir())
	return func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
		if name == "" {
			name = indexFile
		}
		if !fs.ValidPath(name) {
			http.NotFound(w, r)
			return
		}

		if info, err := fs.Stat(fsys, name); err == nil && info.IsDir() {
			name = path.Join(name, indexFile)
		}

		err := StreamFile(w, fsys, name)
		if errors.Is(err, fs.ErrNotExist) {
			http.NotFound(w, r)
			return
		}
		if err != nil {
			log.Err(err).Str("file", name).Msg("Failed to serve static file")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
	}
}

// StreamFile writes fileName from fsys with a content type derived from its
// extension.
func StreamFile(w http.ResponseWriter, fsys fs.FS, fileName string) error {
	data, err := fs.ReadFile(fsys, fileName)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", fileName, err)
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	ctype := mime.TypeByExtension(ext)
	if ctype == "" {
		// Fallback for unknown extensions
		ctype = http.DetectContentType(data)
	}
	// Ensure UTF-8 for text types when not present
	if strings.HasPrefix(ctype, "text/") && !strings.Contains(strings.ToLower(ctype), "charset=") {
		ctype += "; charset=utf-8"
	}
	w.Header().Set("Content-Type", ctype)
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write %s content: %w", fileName, err)
	}
	return nil
}
