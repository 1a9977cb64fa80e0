// Package testutils holds fixtures shared by adapter tests.
package testutils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/loam"
	"github.com/aretw0/loam/pkg/core"
	"github.com/stretchr/testify/require"
)

// NewContentDir initializes a loam repository in a temporary directory and
// writes files (name → markdown with frontmatter) into it. It fails the test
// immediately on error.
func NewContentDir(t *testing.T, files map[string]string, opts ...loam.Option) (string, core.Repository) {
	t.Helper()

	dir, err := filepath.Abs(t.TempDir())
	require.NoError(t, err)

	repo, err := loam.Init(dir, opts...)
	require.NoError(t, err, "init loam content repository")

	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir, repo
}
