// ===============================
// File: internal/curve/accounts.go
// ===============================
package curve

import (
	"bytes"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// DefaultProgramID is the address the curves are derived under unless configured otherwise.
var DefaultProgramID = solana.MustPublicKeyFromBase58("GbguYRqMUzErdhvxLL2dNGqi8wLzWnkp87wd7MnCqkZ3")

const (
	BondingCurveSeed = "bonding-curve"
	GlobalSeed       = "global"

	discriminatorSize = 8

	// BondingCurveAccountSize is the serialized curve including its discriminator.
	BondingCurveAccountSize = discriminatorSize + 32 + 32 + 8*6 + 8 + 1 + 1
	// GlobalAccountSize is the serialized config including its discriminator.
	GlobalAccountSize = discriminatorSize + 1 + 1 + 32 + 32 + 8 + 32 + 8*4 + 1 + 32 + 1
)

var (
	bondingCurveDiscriminator = bin.Sighash(bin.SIGHASH_ACCOUNT_NAMESPACE, "BondingCurve")
	globalDiscriminator       = bin.Sighash(bin.SIGHASH_ACCOUNT_NAMESPACE, "Global")

	ErrDiscriminatorMismatch = errors.New("account discriminator mismatch")
)

// DeriveBondingCurveAddress returns the curve PDA for a mint and its bump.
func DeriveBondingCurveAddress(programID, mint solana.PublicKey) (solana.PublicKey, uint8, error) {
	addr, bump, err := solana.FindProgramAddress(
		[][]byte{[]byte(BondingCurveSeed), mint.Bytes()},
		programID,
	)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("failed to derive bonding curve: %w", err)
	}
	return addr, bump, nil
}

// DeriveGlobalAddress returns the PDA of the program-wide config.
func DeriveGlobalAddress(programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	addr, bump, err := solana.FindProgramAddress([][]byte{[]byte(GlobalSeed)}, programID)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("failed to derive global: %w", err)
	}
	return addr, bump, nil
}

// DeriveCustodyAddress returns the curve's associated token account for mint.
func DeriveCustodyAddress(curveAddress, mint solana.PublicKey) (solana.PublicKey, error) {
	ata, _, err := solana.FindAssociatedTokenAddress(curveAddress, mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive custody account: %w", err)
	}
	return ata, nil
}

// MarshalAccount encodes the curve as discriminator + Borsh body.
func (c *BondingCurve) MarshalAccount() ([]byte, error) {
	return marshalAccount(bondingCurveDiscriminator, c)
}

// UnmarshalBondingCurve decodes an account produced by MarshalAccount.
func UnmarshalBondingCurve(data []byte) (*BondingCurve, error) {
	var c BondingCurve
	if err := unmarshalAccount(bondingCurveDiscriminator, data, &c); err != nil {
		return nil, fmt.Errorf("bonding curve: %w", err)
	}
	return &c, nil
}

// MarshalAccount encodes the config as discriminator + Borsh body.
func (g GlobalConfig) MarshalAccount() ([]byte, error) {
	return marshalAccount(globalDiscriminator, &g)
}

// UnmarshalGlobalConfig decodes an account produced by GlobalConfig.MarshalAccount.
func UnmarshalGlobalConfig(data []byte) (GlobalConfig, error) {
	var g GlobalConfig
	if err := unmarshalAccount(globalDiscriminator, data, &g); err != nil {
		return GlobalConfig{}, fmt.Errorf("global config: %w", err)
	}
	return g, nil
}

func marshalAccount(discriminator []byte, v interface{}) ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Write(discriminator)
	if err := bin.NewBorshEncoder(buf).Encode(v); err != nil {
		return nil, fmt.Errorf("borsh encode: %w", err)
	}
	return buf.Bytes(), nil
}

func unmarshalAccount(discriminator, data []byte, v interface{}) error {
	if len(data) < discriminatorSize {
		return fmt.Errorf("invalid account data: insufficient length %d", len(data))
	}
	if !bytes.Equal(data[:discriminatorSize], discriminator) {
		return ErrDiscriminatorMismatch
	}
	if err := bin.NewBorshDecoder(data[discriminatorSize:]).Decode(v); err != nil {
		return fmt.Errorf("borsh decode: %w", err)
	}
	return nil
}
