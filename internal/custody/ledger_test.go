package custody

import (
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRentExemptMinimum(t *testing.T) {
	// bonding curve account: 8 byte discriminator + 122 byte body
	assert.Equal(t, uint64(1_795_680), RentExemptMinimum(130))
	assert.Equal(t, uint64(890_880), RentExemptMinimum(0))
}

func newMintFixture(t *testing.T) (*Ledger, solana.PublicKey, solana.PublicKey) {
	t.Helper()
	l := NewLedger(zap.NewNop())
	mint := solana.NewWallet().PublicKey()
	authority := solana.NewWallet().PublicKey()
	require.NoError(t, l.Update(func(tx *Tx) error {
		return tx.CreateMint(mint, 6, authority, authority)
	}))
	return l, mint, authority
}

func TestLamportTransfer(t *testing.T) {
	l := NewLedger(zap.NewNop())
	alice := solana.NewWallet().PublicKey()
	bob := solana.NewWallet().PublicKey()
	require.NoError(t, l.Airdrop(alice, 100))

	require.NoError(t, l.Update(func(tx *Tx) error {
		return tx.TransferLamports(alice, bob, 40)
	}))
	assert.Equal(t, uint64(60), l.Lamports(alice))
	assert.Equal(t, uint64(40), l.Lamports(bob))

	err := l.Update(func(tx *Tx) error {
		return tx.TransferLamports(alice, bob, 61)
	})
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, uint64(60), l.Lamports(alice))
}

func TestUpdateRollsBack(t *testing.T) {
	l, mint, authority := newMintFixture(t)
	user := solana.NewWallet().PublicKey()
	boom := errors.New("boom")

	var ata solana.PublicKey
	err := l.Update(func(tx *Tx) error {
		var err error
		if ata, err = tx.CreateAssociatedAccount(user, mint); err != nil {
			return err
		}
		if err := tx.MintTo(mint, ata, authority, 500); err != nil {
			return err
		}
		if err := tx.credit(user, 7); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = l.TokenAccount(ata)
	assert.ErrorIs(t, err, ErrAccountNotFound)
	m, err := l.Mint(mint)
	require.NoError(t, err)
	assert.Zero(t, m.Supply)
	assert.Zero(t, l.Lamports(user))
}

func TestTokenLifecycle(t *testing.T) {
	l, mint, authority := newMintFixture(t)
	owner := solana.NewWallet().PublicKey()
	user := solana.NewWallet().PublicKey()

	var custodyATA, userATA solana.PublicKey
	require.NoError(t, l.Update(func(tx *Tx) error {
		var err error
		if custodyATA, err = tx.CreateAssociatedAccount(owner, mint); err != nil {
			return err
		}
		if userATA, err = tx.CreateAssociatedAccount(user, mint); err != nil {
			return err
		}
		if err := tx.MintTo(mint, custodyATA, authority, 1_000); err != nil {
			return err
		}
		if err := tx.RevokeMintAuthority(mint, authority); err != nil {
			return err
		}
		return tx.Freeze(custodyATA, authority)
	}))

	// minting is gone for good
	err := l.Update(func(tx *Tx) error { return tx.MintTo(mint, custodyATA, authority, 1) })
	assert.ErrorIs(t, err, ErrNoMintAuthority)

	// frozen source cannot send
	err = l.Update(func(tx *Tx) error { return tx.Transfer(custodyATA, userATA, owner, 10) })
	assert.ErrorIs(t, err, ErrAccountFrozen)

	require.NoError(t, l.Update(func(tx *Tx) error {
		if err := tx.Thaw(custodyATA, authority); err != nil {
			return err
		}
		if err := tx.Transfer(custodyATA, userATA, owner, 10); err != nil {
			return err
		}
		return tx.Freeze(custodyATA, authority)
	}))

	bal, err := l.TokenBalance(user, mint)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), bal)

	acc, err := l.TokenAccount(custodyATA)
	require.NoError(t, err)
	assert.Equal(t, uint64(990), acc.Amount)
	assert.True(t, acc.Frozen)

	// wrong signer
	err = l.Update(func(tx *Tx) error { return tx.Transfer(userATA, custodyATA, owner, 1) })
	assert.ErrorIs(t, err, ErrOwnerMismatch)

	err = l.Update(func(tx *Tx) error { return tx.Thaw(custodyATA, user) })
	assert.ErrorIs(t, err, ErrFreezeAuthority)

	err = l.Update(func(tx *Tx) error { return tx.Transfer(userATA, custodyATA, user, 11) })
	assert.ErrorIs(t, err, ErrAccountFrozen)
}

func TestTokenBalanceMissingAccount(t *testing.T) {
	l, mint, _ := newMintFixture(t)
	bal, err := l.TokenBalance(solana.NewWallet().PublicKey(), mint)
	require.NoError(t, err)
	assert.Zero(t, bal)
}

func TestFinishedTxIsUnusable(t *testing.T) {
	l := NewLedger(zap.NewNop())
	var leaked *Tx
	require.NoError(t, l.Update(func(tx *Tx) error {
		leaked = tx
		return nil
	}))
	assert.ErrorIs(t, leaked.credit(solana.NewWallet().PublicKey(), 1), ErrTransactionFinished)
}
