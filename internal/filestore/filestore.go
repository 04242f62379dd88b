// Package filestore persists uploaded document bytes on the local
// filesystem. Stored names are generated, never taken verbatim from the
// client, so uploads cannot collide or escape the upload directory.
package filestore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"procurement/internal/apperr"
)

// Extensions accepted for bid documents.
var allowedExtensions = map[string]bool{
	".pdf":  true,
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".doc":  true,
	".docx": true,
}

// AllowedExtension reports whether name carries an accepted file extension.
func AllowedExtension(name string) bool {
	return allowedExtensions[strings.ToLower(filepath.Ext(name))]
}

type Store struct {
	dir string
}

// New creates the upload directory if needed and returns a Store rooted there.
func New(dir string) (*Store, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, err
	}
	return &Store{dir: abs}, nil
}

func (s *Store) Dir() string { return s.dir }

// StoredName derives a collision-resistant on-disk name from the bid id,
// the current time and the sanitized original name.
func (s *Store) StoredName(bidID int, original string) string {
	return fmt.Sprintf("bid_%d_%d_%s_%s",
		bidID, time.Now().Unix(), uuid.NewString()[:8], Sanitize(original))
}

// Save writes data under the generated name and returns the full path.
func (s *Store) Save(name string, data []byte) (string, error) {
	path := filepath.Join(s.dir, filepath.Base(name))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// Read returns the bytes stored at path. The path must resolve inside the
// upload directory; a missing file surfaces as NotFound.
func (s *Store) Read(path string) ([]byte, error) {
	clean := filepath.Clean(path)
	if !strings.HasPrefix(clean, s.dir+string(filepath.Separator)) {
		return nil, apperr.E(apperr.NotFound, "Document not found")
	}
	data, err := os.ReadFile(clean)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperr.Wrap(apperr.NotFound, "Document not found", err)
		}
		return nil, err
	}
	return data, nil
}

// Remove deletes a stored file. Used to undo writes when the enclosing
// transaction rolls back.
func (s *Store) Remove(path string) error {
	clean := filepath.Clean(path)
	if !strings.HasPrefix(clean, s.dir+string(filepath.Separator)) {
		return nil
	}
	err := os.Remove(clean)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Sanitize strips path components and any character outside a conservative
// set, keeping the extension intact.
func Sanitize(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		out = "file"
	}
	return out
}
