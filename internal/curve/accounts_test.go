package curve

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBondingCurveAccountRoundTrip(t *testing.T) {
	c := newDefaultCurve(t)
	c.StartTime = -42
	_, err := c.ApplyBuy(1_000_000_000)
	require.NoError(t, err)

	data, err := c.MarshalAccount()
	require.NoError(t, err)
	assert.Len(t, data, BondingCurveAccountSize)

	decoded, err := UnmarshalBondingCurve(data)
	require.NoError(t, err)
	assert.Equal(t, *c, *decoded)
}

func TestGlobalAccountRoundTrip(t *testing.T) {
	status := StatusSwapOnly
	receiver := solana.NewWallet().PublicKey()
	cfg := DefaultGlobalConfig().WithSettings(GlobalSettings{Status: &status, FeeReceiver: &receiver})

	data, err := cfg.MarshalAccount()
	require.NoError(t, err)
	assert.Len(t, data, GlobalAccountSize)

	decoded, err := UnmarshalGlobalConfig(data)
	require.NoError(t, err)
	assert.Equal(t, cfg, decoded)
}

func TestUnmarshalRejectsForeignAccount(t *testing.T) {
	data, err := DefaultGlobalConfig().MarshalAccount()
	require.NoError(t, err)

	_, err = UnmarshalBondingCurve(data)
	assert.ErrorIs(t, err, ErrDiscriminatorMismatch)

	_, err = UnmarshalBondingCurve([]byte{1, 2})
	assert.Error(t, err)
}

func TestDeriveAddresses(t *testing.T) {
	mint := solana.NewWallet().PublicKey()

	addr, bump, err := DeriveBondingCurveAddress(DefaultProgramID, mint)
	require.NoError(t, err)

	again, bumpAgain, err := DeriveBondingCurveAddress(DefaultProgramID, mint)
	require.NoError(t, err)
	assert.Equal(t, addr, again)
	assert.Equal(t, bump, bumpAgain)

	custody, err := DeriveCustodyAddress(addr, mint)
	require.NoError(t, err)
	assert.NotEqual(t, addr, custody)

	global, _, err := DeriveGlobalAddress(DefaultProgramID)
	require.NoError(t, err)
	assert.NotEqual(t, addr, global)
}
