package execution_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/objectledger/exec-core/pkg/execution"
	"github.com/objectledger/exec-core/pkg/execution/tpkg"
)

func TestUpgradeTicketRoundtrip(t *testing.T) {
	digest := tpkg.Rand32ByteArray()
	ticket := &execution.UpgradeTicket{
		Cap:     tpkg.RandObjectID(),
		Package: tpkg.RandObjectID(),
		Policy:  execution.UpgradePolicyAdditive,
		Digest:  digest[:],
	}

	decoded, err := execution.UpgradeTicketFromBytes(ticket.Bytes())
	require.NoError(t, err)
	require.Equal(t, ticket, decoded)
}

func TestUpgradeTicketFromBytesRejectsMalformed(t *testing.T) {
	digest := tpkg.Rand32ByteArray()
	ticket := &execution.UpgradeTicket{
		Cap:     tpkg.RandObjectID(),
		Package: tpkg.RandObjectID(),
		Policy:  execution.UpgradePolicyCompatible,
		Digest:  digest[:],
	}
	encoded := ticket.Bytes()

	t.Run("truncated", func(t *testing.T) {
		_, err := execution.UpgradeTicketFromBytes(encoded[:len(encoded)-1])
		require.ErrorIs(t, err, execution.ErrInvalidValueBytes)
	})

	t.Run("trailing bytes", func(t *testing.T) {
		_, err := execution.UpgradeTicketFromBytes(append(append([]byte(nil), encoded...), 0x00))
		require.ErrorIs(t, err, execution.ErrInvalidValueBytes)
	})

	t.Run("unknown policy", func(t *testing.T) {
		bad := append([]byte(nil), encoded...)
		bad[64] = 0x07
		_, err := execution.UpgradeTicketFromBytes(bad)
		require.ErrorIs(t, err, execution.ErrUnknownUpgradePolicy)
	})
}

func TestUpgradePolicyFromByte(t *testing.T) {
	for _, valid := range []uint8{0, 128, 192} {
		policy, err := execution.UpgradePolicyFromByte(valid)
		require.NoError(t, err)
		require.Equal(t, execution.UpgradePolicy(valid), policy)
	}

	for _, invalid := range []uint8{1, 64, 127, 255} {
		_, err := execution.UpgradePolicyFromByte(invalid)
		require.ErrorIs(t, err, execution.ErrUnknownUpgradePolicy)
	}
}
