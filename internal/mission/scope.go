package mission

import (
	"fmt"
	"path"
	"strings"

	"github.com/kalyank1144/Ordinex-sub008/internal/types"
)

// Fence enforces the out-of-scope deny list. A fenced path is never
// read into context and never written, regardless of what the model
// proposes.
type Fence struct {
	patterns []string
}

// builtinDeny fences paths no mission may touch even when the manifest
// declares nothing out of scope: VCS internals, dependency trees, build
// outputs, lockfiles, secrets, and minified artifacts.
var builtinDeny = []string{
	"**/.git",
	"**/.hg",
	"**/.svn",
	"**/node_modules",
	"**/dist",
	"**/target",
	"**/__pycache__",
	"**/package-lock.json",
	"**/yarn.lock",
	"**/pnpm-lock.yaml",
	"**/Cargo.lock",
	"**/poetry.lock",
	"**/Gemfile.lock",
	"**/go.sum",
	"**/.env",
	"**/.env.*",
	"**/*.pem",
	"**/*.key",
	"**/id_rsa",
	"**/id_ed25519",
	"**/*.min.js",
	"**/*.min.css",
}

// NewFence compiles the built-in deny list merged with the mission's.
func NewFence(scope types.Scope) *Fence {
	patterns := make([]string, 0, len(builtinDeny)+len(scope.OutOfScope))
	patterns = append(patterns, builtinDeny...)
	patterns = append(patterns, scope.OutOfScope...)
	return &Fence{patterns: patterns}
}

// Check returns the matching pattern for a denied path, or "" when the
// path is allowed. Patterns use slash-separated globs; "**" matches
// across directory separators and a bare directory pattern denies
// everything beneath it.
func (f *Fence) Check(rel string) string {
	p := path.Clean(strings.ReplaceAll(rel, "\\", "/"))
	for _, pattern := range f.patterns {
		if matchGlob(pattern, p) {
			return pattern
		}
	}
	return ""
}

// Allow returns an error for denied paths.
func (f *Fence) Allow(rel string) error {
	if pattern := f.Check(rel); pattern != "" {
		return fmt.Errorf("path %s is out of scope (pattern %s)", rel, pattern)
	}
	return nil
}

// Filter partitions paths into allowed and denied.
func (f *Fence) Filter(paths []string) (allowed []string, denied []string) {
	for _, p := range paths {
		if f.Check(p) != "" {
			denied = append(denied, p)
		} else {
			allowed = append(allowed, p)
		}
	}
	return allowed, denied
}

func matchGlob(pattern, p string) bool {
	pattern = path.Clean(strings.ReplaceAll(pattern, "\\", "/"))

	// A directory pattern denies the directory and everything below it.
	if !strings.ContainsAny(pattern, "*?[") {
		return p == pattern || strings.HasPrefix(p, pattern+"/")
	}

	// "dir/**" denies the whole subtree.
	if strings.HasSuffix(pattern, "/**") {
		prefix := strings.TrimSuffix(pattern, "/**")
		if matched, _ := path.Match(prefix, p); matched || p == prefix {
			return true
		}
		return strings.HasPrefix(p, prefix+"/")
	}

	// "**/name" matches name at any depth.
	if strings.HasPrefix(pattern, "**/") {
		suffix := strings.TrimPrefix(pattern, "**/")
		if matchGlob(suffix, p) {
			return true
		}
		for i := 0; i < len(p); i++ {
			if p[i] == '/' && matchGlob(suffix, p[i+1:]) {
				return true
			}
		}
		return false
	}

	matched, err := path.Match(pattern, p)
	return err == nil && matched
}
