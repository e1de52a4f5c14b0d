package storebackend

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/objectledger/exec-core/pkg/execution/tpkg"
	"github.com/objectledger/exec-core/pkg/vmtype"
)

func TestPackageBytesDeterministic(t *testing.T) {
	id := tpkg.RandObjectID()
	pkg := tpkg.NewTestPackage(id, tpkg.NewTestModule("vault", id.Address(), nil, nil))
	pkg.Linkage = make(map[vmtype.Address]vmtype.Address)
	for i := 0; i < 12; i++ {
		pkg.Linkage[tpkg.RandAddress()] = tpkg.RandAddress()
	}

	first := packageBytes(pkg)
	for i := 0; i < 10; i++ {
		require.Equal(t, first, packageBytes(pkg))
	}

	decoded, err := packageFromBytes(pkg.StorageID, first)
	require.NoError(t, err)
	require.Equal(t, pkg.Linkage, decoded.Linkage)
}
