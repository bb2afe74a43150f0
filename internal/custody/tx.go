// =============================
// File: internal/custody/tx.go
// =============================
package custody

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/curve-engine/internal/utils/safemath"
)

// Tx is a journaled view of the ledger. It is only valid inside Ledger.Update.
type Tx struct {
	ledger *Ledger
	undo   []func()
	done   bool
}

func (tx *Tx) rollback() {
	for i := len(tx.undo) - 1; i >= 0; i-- {
		tx.undo[i]()
	}
	tx.undo = nil
}

func (tx *Tx) check() error {
	if tx.done {
		return ErrTransactionFinished
	}
	return nil
}

func (tx *Tx) touchLamports(addr solana.PublicKey) {
	prev, existed := tx.ledger.lamports[addr]
	tx.undo = append(tx.undo, func() {
		if existed {
			tx.ledger.lamports[addr] = prev
		} else {
			delete(tx.ledger.lamports, addr)
		}
	})
}

func (tx *Tx) touchAccount(addr solana.PublicKey) {
	prev, existed := tx.ledger.accounts[addr]
	var saved TokenAccount
	if existed {
		saved = *prev
	}
	tx.undo = append(tx.undo, func() {
		if existed {
			*prev = saved
			tx.ledger.accounts[addr] = prev
		} else {
			delete(tx.ledger.accounts, addr)
		}
	})
}

func (tx *Tx) touchMint(addr solana.PublicKey) {
	prev, existed := tx.ledger.mints[addr]
	var saved Mint
	if existed {
		saved = *prev
	}
	tx.undo = append(tx.undo, func() {
		if existed {
			*prev = saved
			tx.ledger.mints[addr] = prev
		} else {
			delete(tx.ledger.mints, addr)
		}
	})
}

// Lamports returns the balance as seen inside the transaction.
func (tx *Tx) Lamports(addr solana.PublicKey) uint64 {
	return tx.ledger.lamports[addr]
}

// TokenAccount returns a copy of the token account as seen inside the transaction.
func (tx *Tx) TokenAccount(addr solana.PublicKey) (TokenAccount, error) {
	acc, ok := tx.ledger.accounts[addr]
	if !ok {
		return TokenAccount{}, fmt.Errorf("token account %s: %w", addr, ErrAccountNotFound)
	}
	return *acc, nil
}

func (tx *Tx) credit(addr solana.PublicKey, lamports uint64) error {
	if err := tx.check(); err != nil {
		return err
	}
	next, err := safemath.Add64(tx.ledger.lamports[addr], lamports)
	if err != nil {
		return fmt.Errorf("credit %s: %w", addr, err)
	}
	tx.touchLamports(addr)
	tx.ledger.lamports[addr] = next
	return nil
}

// TransferLamports moves lamports between two addresses.
func (tx *Tx) TransferLamports(from, to solana.PublicKey, lamports uint64) error {
	if err := tx.check(); err != nil {
		return err
	}
	if lamports == 0 {
		return nil
	}
	have := tx.ledger.lamports[from]
	if have < lamports {
		return fmt.Errorf("transfer %d lamports from %s (has %d): %w", lamports, from, have, ErrInsufficientFunds)
	}
	tx.touchLamports(from)
	tx.ledger.lamports[from] = have - lamports
	return tx.credit(to, lamports)
}

// CreateMint registers a new mint with both authorities set.
func (tx *Tx) CreateMint(addr solana.PublicKey, decimals uint8, mintAuthority, freezeAuthority solana.PublicKey) error {
	if err := tx.check(); err != nil {
		return err
	}
	if _, ok := tx.ledger.mints[addr]; ok {
		return fmt.Errorf("mint %s: %w", addr, ErrAccountExists)
	}
	tx.touchMint(addr)
	ma, fa := mintAuthority, freezeAuthority
	tx.ledger.mints[addr] = &Mint{
		Address:         addr,
		Decimals:        decimals,
		MintAuthority:   &ma,
		FreezeAuthority: &fa,
	}
	return nil
}

// CreateAssociatedAccount returns owner's associated token account for mint,
// creating an empty one when it does not exist yet.
func (tx *Tx) CreateAssociatedAccount(owner, mint solana.PublicKey) (solana.PublicKey, error) {
	if err := tx.check(); err != nil {
		return solana.PublicKey{}, err
	}
	if _, ok := tx.ledger.mints[mint]; !ok {
		return solana.PublicKey{}, fmt.Errorf("mint %s: %w", mint, ErrAccountNotFound)
	}
	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive token account: %w", err)
	}
	if acc, ok := tx.ledger.accounts[ata]; ok {
		if !acc.Owner.Equals(owner) {
			return solana.PublicKey{}, fmt.Errorf("token account %s: %w", ata, ErrOwnerMismatch)
		}
		return ata, nil
	}
	tx.touchAccount(ata)
	tx.ledger.accounts[ata] = &TokenAccount{Address: ata, Mint: mint, Owner: owner}
	return ata, nil
}

// MintTo issues new tokens into dest.
func (tx *Tx) MintTo(mint, dest, authority solana.PublicKey, amount uint64) error {
	if err := tx.check(); err != nil {
		return err
	}
	m, ok := tx.ledger.mints[mint]
	if !ok {
		return fmt.Errorf("mint %s: %w", mint, ErrAccountNotFound)
	}
	if m.MintAuthority == nil {
		return fmt.Errorf("mint %s: %w", mint, ErrNoMintAuthority)
	}
	if !m.MintAuthority.Equals(authority) {
		return fmt.Errorf("mint %s: %w", mint, ErrMintAuthority)
	}
	acc, err := tx.writableAccount(dest, mint)
	if err != nil {
		return err
	}
	supply, err := safemath.Add64(m.Supply, amount)
	if err != nil {
		return fmt.Errorf("mint supply: %w", err)
	}
	balance, err := safemath.Add64(acc.Amount, amount)
	if err != nil {
		return fmt.Errorf("token account balance: %w", err)
	}
	tx.touchMint(mint)
	tx.touchAccount(dest)
	m.Supply = supply
	acc.Amount = balance
	return nil
}

// Transfer moves tokens between two accounts of the same mint. authority
// must own the source account; neither account may be frozen.
func (tx *Tx) Transfer(source, dest, authority solana.PublicKey, amount uint64) error {
	if err := tx.check(); err != nil {
		return err
	}
	src, ok := tx.ledger.accounts[source]
	if !ok {
		return fmt.Errorf("token account %s: %w", source, ErrAccountNotFound)
	}
	if src.Frozen {
		return fmt.Errorf("token account %s: %w", source, ErrAccountFrozen)
	}
	if !src.Owner.Equals(authority) {
		return fmt.Errorf("token account %s: %w", source, ErrOwnerMismatch)
	}
	dst, err := tx.writableAccount(dest, src.Mint)
	if err != nil {
		return err
	}
	if src.Amount < amount {
		return fmt.Errorf("transfer %d from %s (has %d): %w", amount, source, src.Amount, ErrInsufficientFunds)
	}
	if source.Equals(dest) {
		return nil
	}
	balance, err := safemath.Add64(dst.Amount, amount)
	if err != nil {
		return fmt.Errorf("token account balance: %w", err)
	}
	tx.touchAccount(source)
	tx.touchAccount(dest)
	src.Amount -= amount
	dst.Amount = balance
	return nil
}

func (tx *Tx) writableAccount(addr, mint solana.PublicKey) (*TokenAccount, error) {
	acc, ok := tx.ledger.accounts[addr]
	if !ok {
		return nil, fmt.Errorf("token account %s: %w", addr, ErrAccountNotFound)
	}
	if !acc.Mint.Equals(mint) {
		return nil, fmt.Errorf("token account %s: %w", addr, ErrMintMismatch)
	}
	if acc.Frozen {
		return nil, fmt.Errorf("token account %s: %w", addr, ErrAccountFrozen)
	}
	return acc, nil
}

// Freeze marks a token account frozen. authority must be the mint's freeze authority.
func (tx *Tx) Freeze(account, authority solana.PublicKey) error {
	return tx.setFrozen(account, authority, true)
}

// Thaw clears the frozen flag.
func (tx *Tx) Thaw(account, authority solana.PublicKey) error {
	return tx.setFrozen(account, authority, false)
}

func (tx *Tx) setFrozen(account, authority solana.PublicKey, frozen bool) error {
	if err := tx.check(); err != nil {
		return err
	}
	acc, ok := tx.ledger.accounts[account]
	if !ok {
		return fmt.Errorf("token account %s: %w", account, ErrAccountNotFound)
	}
	m, ok := tx.ledger.mints[acc.Mint]
	if !ok {
		return fmt.Errorf("mint %s: %w", acc.Mint, ErrAccountNotFound)
	}
	if m.FreezeAuthority == nil || !m.FreezeAuthority.Equals(authority) {
		return fmt.Errorf("mint %s: %w", acc.Mint, ErrFreezeAuthority)
	}
	if acc.Frozen == frozen {
		return nil
	}
	tx.touchAccount(account)
	acc.Frozen = frozen
	return nil
}

// RevokeMintAuthority permanently disables minting.
func (tx *Tx) RevokeMintAuthority(mint, authority solana.PublicKey) error {
	if err := tx.check(); err != nil {
		return err
	}
	m, ok := tx.ledger.mints[mint]
	if !ok {
		return fmt.Errorf("mint %s: %w", mint, ErrAccountNotFound)
	}
	if m.MintAuthority == nil {
		return fmt.Errorf("mint %s: %w", mint, ErrNoMintAuthority)
	}
	if !m.MintAuthority.Equals(authority) {
		return fmt.Errorf("mint %s: %w", mint, ErrMintAuthority)
	}
	tx.touchMint(mint)
	m.MintAuthority = nil
	return nil
}
