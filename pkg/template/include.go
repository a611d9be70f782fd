package template

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/Chahine-tech/sqltwoway/pkg/sqlerr"
)

var (
	reIncludeBlock = regexp.MustCompile(`(?i)^\s*/\*\s*%include\s+["']([^"']+)["']\s*\*/\s*$`)
	reIncludeDash  = regexp.MustCompile(`(?i)^\s*--\s*%include\s+["']([^"']+)["']\s*$`)
)

// expandIncludes recursively inlines %include directives against baseDir.
// It is a no-op when baseDir is empty, meaning no base directory was
// configured.
func expandIncludes(source, baseDir string) (string, error) {
	if baseDir == "" {
		return source, nil
	}
	return expandIncludesChain(source, baseDir, map[string]bool{})
}

func expandIncludesChain(source, dir string, chain map[string]bool) (string, error) {
	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		path := matchInclude(line)
		if path == "" {
			out = append(out, line)
			continue
		}
		full := filepath.Clean(filepath.Join(dir, path))
		if chain[full] {
			return "", sqlerr.New(sqlerr.IncludeFailure, "circular include: "+path)
		}
		data, err := os.ReadFile(full)
		if err != nil {
			return "", sqlerr.Wrap(sqlerr.IncludeFailure, "include not found: "+path, err)
		}
		nextChain := make(map[string]bool, len(chain)+1)
		for k := range chain {
			nextChain[k] = true
		}
		nextChain[full] = true
		expanded, err := expandIncludesChain(string(data), filepath.Dir(full), nextChain)
		if err != nil {
			return "", err
		}
		out = append(out, expanded)
	}
	return strings.Join(out, "\n"), nil
}

func matchInclude(line string) string {
	if m := reIncludeBlock.FindStringSubmatch(line); m != nil {
		return m[1]
	}
	if m := reIncludeDash.FindStringSubmatch(line); m != nil {
		return m[1]
	}
	return ""
}
