package mission

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kalyank1144/Ordinex-sub008/internal/types"
)

func TestFenceCheck(t *testing.T) {
	fence := NewFence(types.Scope{OutOfScope: []string{
		"vendor",
		"build/**",
		"**/secrets.txt",
		"*.pem",
	}})

	tests := []struct {
		path   string
		denied bool
	}{
		{"main.go", false},
		{"vendor", true},
		{"vendor/lib/thing.go", true},
		{"vendored.go", false},
		{"build", true},
		{"build/out/a.o", true},
		{"secrets.txt", true},
		{"config/deep/secrets.txt", true},
		{"secrets.txt.bak", false},
		{"server.pem", true},
	}
	for _, tt := range tests {
		got := fence.Check(tt.path)
		if tt.denied {
			assert.NotEmpty(t, got, "expected %s to be fenced", tt.path)
		} else {
			assert.Empty(t, got, "expected %s to be allowed, matched %q", tt.path, got)
		}
	}
}

func TestFenceAllow(t *testing.T) {
	fence := NewFence(types.Scope{OutOfScope: []string{"vendor"}})
	assert.NoError(t, fence.Allow("main.go"))

	err := fence.Allow("vendor/lib.go")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "out of scope")
}

func TestFenceFilter(t *testing.T) {
	fence := NewFence(types.Scope{OutOfScope: []string{"vendor", "**/generated.go"}})
	allowed, denied := fence.Filter([]string{
		"main.go",
		"vendor/dep.go",
		"pkg/generated.go",
		"pkg/handler.go",
	})
	assert.Equal(t, []string{"main.go", "pkg/handler.go"}, allowed)
	assert.Equal(t, []string{"vendor/dep.go", "pkg/generated.go"}, denied)
}

func TestFenceBuiltinsApplyWithEmptyMissionScope(t *testing.T) {
	fence := NewFence(types.Scope{})

	// Ordinary source paths stay reachable.
	assert.Empty(t, fence.Check("anything/at/all.go"))
	assert.Empty(t, fence.Check("cmd/app/main.go"))

	// VCS internals, lockfiles, secrets, build outputs, and minified
	// artifacts are fenced no matter what the manifest says.
	denied := []string{
		".git/config",
		"sub/project/.git/HEAD",
		"package-lock.json",
		"frontend/yarn.lock",
		"go.sum",
		".env",
		".env.production",
		"certs/server.pem",
		"deploy/id_rsa",
		"node_modules/left-pad/index.js",
		"dist/app.min.js",
		"assets/site.min.css",
		"target/release/app",
	}
	for _, p := range denied {
		assert.NotEmpty(t, fence.Check(p), "expected builtin fence to deny %s", p)
	}
}

func TestFenceMergesMissionPatternsWithBuiltins(t *testing.T) {
	fence := NewFence(types.Scope{OutOfScope: []string{"migrations/**"}})
	assert.NotEmpty(t, fence.Check("migrations/0001_init.sql"))
	assert.NotEmpty(t, fence.Check(".git/config"))
}

func TestFenceNormalizesSeparators(t *testing.T) {
	fence := NewFence(types.Scope{OutOfScope: []string{"vendor"}})
	assert.NotEmpty(t, fence.Check(`vendor\lib.go`))
	assert.NotEmpty(t, fence.Check("./vendor/lib.go"))
}
