package explorer

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultIgnore lists entries skipped by [NewLocalFS].
var DefaultIgnore = []string{
	".git/",
	".hg/",
	".svn/",
	"node_modules/",
	".DS_Store",
	"Thumbs.db",
	"*.tmp",
	"*.swp",
}

type ignorePattern struct {
	glob    string
	negated bool
	dirOnly bool
}

// Ignore matches gitignore-style patterns against paths relative to a scan
// root. Later patterns win, and "!" negates.
type Ignore struct {
	patterns []ignorePattern
}

// NewIgnore compiles patterns. Blank lines and "#" comments are skipped.
func NewIgnore(patterns ...string) *Ignore {
	ig := &Ignore{}
	for _, p := range patterns {
		ig.Add(p)
	}
	return ig
}

// Add appends one pattern.
func (ig *Ignore) Add(line string) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return
	}
	var p ignorePattern
	if strings.HasPrefix(line, "!") {
		p.negated = true
		line = line[1:]
	}
	if strings.HasSuffix(line, "/") {
		p.dirOnly = true
		line = strings.TrimSuffix(line, "/")
	}
	anchored := strings.HasPrefix(line, "/")
	line = strings.TrimPrefix(line, "/")
	// Patterns without a slash match a name at any depth.
	if !anchored && !strings.Contains(line, "/") {
		line = "**/" + line
	}
	p.glob = line
	ig.patterns = append(ig.patterns, p)
}

// Match reports whether rel (relative to the scan root) is ignored.
func (ig *Ignore) Match(rel string, isDir bool) bool {
	if ig == nil {
		return false
	}
	rel = strings.TrimPrefix(filepath.ToSlash(rel), "./")
	ignored := false
	for _, p := range ig.patterns {
		if p.dirOnly && !isDir {
			continue
		}
		if ok, _ := doublestar.Match(p.glob, rel); ok {
			ignored = !p.negated
		}
	}
	return ignored
}
