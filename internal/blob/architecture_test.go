package blob

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"grantcrm/testutil"
)

// TestOnlyBlobPackageImportsInfra ensures that only the top-level blob
// package wraps the infra-backed blob drivers.
func TestOnlyBlobPackageImportsInfra(t *testing.T) {
	root := filepath.Join("..", "..")
	forbidden := func(p string) bool { return strings.HasPrefix(p, "grantcrm/internal/infra/blob") }
	for _, dir := range []string{"internal/core", "internal/config", "internal/session", "cmd/grantcrm", "pkg/domain"} {
		abs := filepath.Join(root, dir)
		if _, err := os.Stat(abs); err != nil {
			continue
		}
		testutil.AssertNoDirectImports(t, abs, forbidden, dir+" must depend on internal/blob instead of infra blob drivers")
	}
}
