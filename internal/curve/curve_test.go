package curve

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDefaultCurve(t testing.TB) *BondingCurve {
	t.Helper()
	c, err := NewBondingCurve(solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(), DefaultGlobalConfig(), 0, 255)
	require.NoError(t, err)
	return c
}

func TestNewBondingCurve(t *testing.T) {
	cfg := DefaultGlobalConfig()
	c := newDefaultCurve(t)

	assert.Equal(t, cfg.InitialVirtualTokenReserves, c.VirtualTokenReserves)
	assert.Equal(t, cfg.InitialVirtualTokenReserves, c.InitialVirtualTokenReserves)
	assert.Equal(t, cfg.InitialVirtualSolReserves, c.VirtualSolReserves)
	assert.Equal(t, cfg.InitialRealTokenReserves, c.RealTokenReserves)
	assert.Equal(t, cfg.TokenTotalSupply, c.TokenTotalSupply)
	assert.Zero(t, c.RealSolReserves)
	assert.False(t, c.Complete)
	assert.Equal(t, uint8(255), c.Bump)
}

func TestGlobalConfigValidate(t *testing.T) {
	zero := uint8(0)
	tiny := uint64(1)
	tooMuch := uint64(2_000_000_000_000_000)
	equal := DefaultGlobalConfig().InitialVirtualTokenReserves

	tests := []struct {
		name     string
		settings GlobalSettings
		field    string
	}{
		{name: "zero decimals", settings: GlobalSettings{MintDecimals: &zero}, field: "mint_decimals"},
		{name: "virtual sol below one unit", settings: GlobalSettings{InitialVirtualSolReserves: &tiny}, field: "initial_virtual_sol_reserves"},
		{name: "virtual token below one unit", settings: GlobalSettings{InitialVirtualTokenReserves: &tiny}, field: "initial_virtual_token_reserves"},
		{name: "real above virtual", settings: GlobalSettings{InitialRealTokenReserves: &tooMuch}, field: "initial_real_token_reserves"},
		// виртуальный резерв после финальной покупки стал бы нулевым
		{name: "real equal to virtual", settings: GlobalSettings{InitialRealTokenReserves: &equal}, field: "initial_real_token_reserves"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultGlobalConfig().WithSettings(tt.settings)
			_, err := NewBondingCurve(solana.PublicKey{}, solana.PublicKey{}, cfg, 0, 0)
			require.ErrorIs(t, err, ErrInvalidConfig)

			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}

	assert.NoError(t, DefaultGlobalConfig().Validate())
}

func TestWithSettingsLeavesReceiver(t *testing.T) {
	base := DefaultGlobalConfig()
	status := StatusPaused
	supply := uint64(5)

	next := base.WithSettings(GlobalSettings{Status: &status, TokenTotalSupply: &supply})

	assert.Equal(t, StatusPaused, next.Status)
	assert.Equal(t, uint64(5), next.TokenTotalSupply)
	assert.Equal(t, StatusRunning, base.Status)
	assert.Equal(t, uint64(1_000_000_000_000_000), base.TokenTotalSupply)
	assert.Equal(t, base.InitialVirtualSolReserves, next.InitialVirtualSolReserves)
}

func TestProgramStatus(t *testing.T) {
	for _, s := range []ProgramStatus{StatusRunning, StatusSwapOnly, StatusSwapOnlyNoLaunch, StatusPaused} {
		parsed, err := ParseProgramStatus(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}

	_, err := ParseProgramStatus("halted")
	assert.Error(t, err)

	assert.True(t, StatusRunning.CanLaunch())
	assert.False(t, StatusSwapOnly.CanLaunch())
	assert.True(t, StatusSwapOnly.CanSwap())
	assert.False(t, StatusPaused.CanSwap())
}
