// =================================
// File: internal/custody/ledger.go
// =================================
package custody

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrAccountExists       = errors.New("account already exists")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrAccountFrozen       = errors.New("account is frozen")
	ErrOwnerMismatch       = errors.New("owner does not match")
	ErrMintMismatch        = errors.New("mint does not match")
	ErrMintAuthority       = errors.New("invalid mint authority")
	ErrFreezeAuthority     = errors.New("invalid freeze authority")
	ErrNoMintAuthority     = errors.New("mint authority has been revoked")
	ErrTransactionFinished = errors.New("transaction already finished")
)

// Rent parameters: (storage overhead + data length) * lamports per byte-year * exemption years.
const (
	AccountStorageOverhead  = 128
	LamportsPerByteYear     = 3480
	ExemptionThresholdYears = 2
	TokenAccountSize        = 165
	MintAccountSize         = 82
)

// RentExemptMinimum returns the lamports an account of dataLen bytes must hold.
func RentExemptMinimum(dataLen uint64) uint64 {
	return (AccountStorageOverhead + dataLen) * LamportsPerByteYear * ExemptionThresholdYears
}

// Mint is an SPL-style mint.
type Mint struct {
	Address         solana.PublicKey
	Decimals        uint8
	Supply          uint64
	MintAuthority   *solana.PublicKey // nil once revoked
	FreezeAuthority *solana.PublicKey
}

// TokenAccount holds a balance of one mint for one owner.
type TokenAccount struct {
	Address solana.PublicKey
	Mint    solana.PublicKey
	Owner   solana.PublicKey
	Amount  uint64
	Frozen  bool
}

// Ledger is an in-memory lamport and token ledger. All mutations go through
// a Tx so a failed settlement can be rolled back as a unit.
type Ledger struct {
	mu       sync.Mutex
	lamports map[solana.PublicKey]uint64
	mints    map[solana.PublicKey]*Mint
	accounts map[solana.PublicKey]*TokenAccount
	logger   *zap.Logger
}

// NewLedger creates an empty ledger.
func NewLedger(logger *zap.Logger) *Ledger {
	return &Ledger{
		lamports: make(map[solana.PublicKey]uint64),
		mints:    make(map[solana.PublicKey]*Mint),
		accounts: make(map[solana.PublicKey]*TokenAccount),
		logger:   logger.Named("custody"),
	}
}

// Lamports returns the lamport balance of addr.
func (l *Ledger) Lamports(addr solana.PublicKey) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lamports[addr]
}

// TokenAccount returns a copy of the token account at addr.
func (l *Ledger) TokenAccount(addr solana.PublicKey) (TokenAccount, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	acc, ok := l.accounts[addr]
	if !ok {
		return TokenAccount{}, fmt.Errorf("token account %s: %w", addr, ErrAccountNotFound)
	}
	return *acc, nil
}

// TokenBalance returns owner's balance in its associated account for mint,
// zero when the account does not exist.
func (l *Ledger) TokenBalance(owner, mint solana.PublicKey) (uint64, error) {
	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return 0, fmt.Errorf("failed to derive token account: %w", err)
	}
	acc, err := l.TokenAccount(ata)
	if errors.Is(err, ErrAccountNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return acc.Amount, nil
}

// Mint returns a copy of the mint at addr.
func (l *Ledger) Mint(addr solana.PublicKey) (Mint, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.mints[addr]
	if !ok {
		return Mint{}, fmt.Errorf("mint %s: %w", addr, ErrAccountNotFound)
	}
	return *m, nil
}

// Airdrop credits lamports out of thin air. Used by simulations and tests.
func (l *Ledger) Airdrop(addr solana.PublicKey, lamports uint64) error {
	return l.Update(func(tx *Tx) error {
		return tx.credit(addr, lamports)
	})
}

// Update runs fn inside a transaction. The ledger lock is held for the
// duration; any error from fn rolls back every change it made.
func (l *Ledger) Update(fn func(tx *Tx) error) (err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tx := &Tx{ledger: l}
	defer func() {
		if r := recover(); r != nil {
			tx.rollback()
			panic(r)
		}
		if err != nil {
			changes := len(tx.undo)
			tx.rollback()
			l.logger.Debug("Ledger transaction rolled back",
				zap.Int("changes", changes),
				zap.Error(err))
		}
		tx.done = true
	}()

	return fn(tx)
}
