package memory

import (
	"testing"

	"grantcrm/testutil"
)

func TestImportsAreDomainOrStdlib(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.ThirdPartyImportForbidden, "memory byte store must stay dependency free")
	testutil.AssertNoDirectImports(t, ".", testutil.InternalImportForbidden, "infra stores depend on pkg/domain only")
}
