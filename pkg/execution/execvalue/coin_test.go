package execvalue_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/objectledger/exec-core/pkg/execution/execvalue"
	"github.com/objectledger/exec-core/pkg/execution/tpkg"
)

func TestCoinBytesRoundtrip(t *testing.T) {
	coin := &execvalue.Coin{ID: tpkg.RandObjectID(), Balance: 1_000_000}

	decoded, err := execvalue.CoinFromBytes(coin.Bytes())
	require.NoError(t, err)
	require.Equal(t, coin, decoded)
}

func TestCoinFromBytesRejectsWrongSize(t *testing.T) {
	_, err := execvalue.CoinFromBytes(nil)
	require.Error(t, err)
	_, err = execvalue.CoinFromBytes(tpkg.RandBytes(39))
	require.Error(t, err)
	_, err = execvalue.CoinFromBytes(tpkg.RandBytes(41))
	require.Error(t, err)
}

func TestCoinSplit(t *testing.T) {
	coin := &execvalue.Coin{ID: tpkg.RandObjectID(), Balance: 100}
	newID := tpkg.RandObjectID()

	split, err := coin.Split(30, newID)
	require.NoError(t, err)
	require.Equal(t, uint64(70), coin.Balance)
	require.Equal(t, uint64(30), split.Balance)
	require.Equal(t, newID, split.ID)

	// Draining the full balance is allowed.
	_, err = coin.Split(70, tpkg.RandObjectID())
	require.NoError(t, err)
	require.Equal(t, uint64(0), coin.Balance)

	_, err = coin.Split(1, tpkg.RandObjectID())
	require.ErrorIs(t, err, execvalue.ErrInsufficientBalance)
}

func TestCoinAdd(t *testing.T) {
	coin := &execvalue.Coin{ID: tpkg.RandObjectID(), Balance: 40}

	require.NoError(t, coin.Add(2))
	require.Equal(t, uint64(42), coin.Balance)

	coin.Balance = math.MaxUint64 - 1
	require.NoError(t, coin.Add(1))
	require.ErrorIs(t, coin.Add(1), execvalue.ErrBalanceOverflow)
}
