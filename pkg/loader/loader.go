// Package loader resolves a template path on disk, preferring a
// dialect-specific variant over the bare name.
package loader

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/Chahine-tech/sqltwoway/pkg/dialect"
	"github.com/Chahine-tech/sqltwoway/pkg/sqlerr"
)

// Loader reads template files rooted at a fixed base directory.
type Loader struct {
	baseDir string
}

// NewLoader builds a Loader rooted at baseDir.
func NewLoader(baseDir string) *Loader {
	return &Loader{baseDir: baseDir}
}

// BaseDir returns the directory the loader resolves paths against.
func (l *Loader) BaseDir() string {
	return l.baseDir
}

// Load reads the template at path, relative to the loader's base directory.
// When dialect is non-nil it first tries the dialect-qualified variant
// "<name>.<dialect-id>.<ext>" (splitting path at its last '.'), falling back
// to path unchanged if that variant doesn't exist.
func (l *Loader) Load(path string, d *dialect.Dialect) (string, error) {
	var tried []string

	if d != nil {
		qualified := qualify(path, string(d.ID))
		full, err := l.resolve(qualified)
		if err != nil {
			return "", err
		}
		tried = append(tried, full)
		if data, err := os.ReadFile(full); err == nil {
			return string(data), nil
		}
	}

	full, err := l.resolve(path)
	if err != nil {
		return "", err
	}
	tried = append(tried, full)
	data, err := os.ReadFile(full)
	if err != nil {
		return "", sqlerr.Wrap(sqlerr.Loader, "template not found, tried "+strings.Join(tried, ", "), err)
	}
	return string(data), nil
}

// resolve joins path onto the base directory and rejects any result that
// escapes it, guarding against a "../../etc/passwd"-style path.
func (l *Loader) resolve(path string) (string, error) {
	full := filepath.Clean(filepath.Join(l.baseDir, path))
	base := filepath.Clean(l.baseDir)
	if full != base && !strings.HasPrefix(full, base+string(filepath.Separator)) {
		return "", sqlerr.New(sqlerr.Loader, "path escapes base directory: "+path)
	}
	return full, nil
}

// qualify inserts id before the final extension of path: "q.sql" + "oracle"
// -> "q.oracle.sql". A path with no extension gets the id appended with a
// leading dot.
func qualify(path, id string) string {
	ext := filepath.Ext(path)
	if ext == "" {
		return path + "." + id
	}
	name := strings.TrimSuffix(path, ext)
	return name + "." + id + ext
}
