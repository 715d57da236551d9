// Package layout decodes raw Solana account bytes at named offsets.
//
// Every component that touches account data goes through these
// bounds-checked decoders instead of slicing buffers ad hoc. Undersized or
// malformed buffers produce a DecodeError, never a panic.
package layout

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// SPL token account layout offsets.
// Full account: mint(32) | owner(32) | amount(8) | delegate(36) | state(1) | ...
const (
	TokenAccountMintOffset   = 0
	TokenAccountOwnerOffset  = 32
	TokenAccountAmountOffset = 64
	// TokenAccountSliceLen is the minimal prefix carrying mint, owner and
	// amount. getProgramAccounts calls request exactly this slice to keep
	// transfer size down.
	TokenAccountSliceLen = 80
	// tokenAccountMinLen is the smallest buffer the slice decoder accepts.
	tokenAccountMinLen = TokenAccountAmountOffset + 8
)

// SPL mint account layout offsets.
// mintAuthorityOption(4) | mintAuthority(32) | supply(8) | decimals(1) | ...
const (
	MintSupplyOffset   = 36
	MintDecimalsOffset = 44
	MintAccountMinLen  = MintDecimalsOffset + 1
)

// DecodeError reports a malformed or undersized account buffer.
type DecodeError struct {
	What string
	Want int
	Got  int
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: need %d bytes, got %d", e.What, e.Want, e.Got)
}

// TokenAccount is the decoded prefix of an SPL token account.
type TokenAccount struct {
	Mint   string
	Owner  string
	Amount uint64
}

// MintAccount is the decoded prefix of an SPL mint account.
type MintAccount struct {
	Supply   uint64
	Decimals uint8
}

// DecodeTokenAccount decodes the first 72+ bytes of an SPL token account.
// Accepts both full accounts and 80-byte dataSlice responses.
func DecodeTokenAccount(data []byte) (TokenAccount, error) {
	if len(data) < tokenAccountMinLen {
		return TokenAccount{}, &DecodeError{What: "token account", Want: tokenAccountMinLen, Got: len(data)}
	}
	return TokenAccount{
		Mint:   base58.Encode(data[TokenAccountMintOffset : TokenAccountMintOffset+32]),
		Owner:  base58.Encode(data[TokenAccountOwnerOffset : TokenAccountOwnerOffset+32]),
		Amount: binary.LittleEndian.Uint64(data[TokenAccountAmountOffset : TokenAccountAmountOffset+8]),
	}, nil
}

// DecodeMintAccount decodes supply and decimals from a raw mint account.
func DecodeMintAccount(data []byte) (MintAccount, error) {
	if len(data) < MintAccountMinLen {
		return MintAccount{}, &DecodeError{What: "mint account", Want: MintAccountMinLen, Got: len(data)}
	}
	return MintAccount{
		Supply:   binary.LittleEndian.Uint64(data[MintSupplyOffset : MintSupplyOffset+8]),
		Decimals: data[MintDecimalsOffset],
	}, nil
}

// DecodeBase64TokenAccount decodes base64-encoded account data as returned
// by getAccountInfo/getProgramAccounts with base64 encoding.
func DecodeBase64TokenAccount(data string) (TokenAccount, error) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return TokenAccount{}, fmt.Errorf("base64 token account: %w", err)
	}
	return DecodeTokenAccount(raw)
}

// DecodeBase64MintAccount decodes base64-encoded mint account data.
func DecodeBase64MintAccount(data string) (MintAccount, error) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return MintAccount{}, fmt.Errorf("base64 mint account: %w", err)
	}
	return DecodeMintAccount(raw)
}

// ReadUint64LE reads a little-endian uint64 at offset with bounds checking.
func ReadUint64LE(data []byte, offset int) (uint64, error) {
	if offset < 0 || offset+8 > len(data) {
		return 0, &DecodeError{What: "u64 field", Want: offset + 8, Got: len(data)}
	}
	return binary.LittleEndian.Uint64(data[offset : offset+8]), nil
}

// ValidAddress reports whether s is a base58 string decoding to 32 bytes.
func ValidAddress(s string) bool {
	raw, err := base58.Decode(s)
	return err == nil && len(raw) == 32
}

// IsOnCurve reports whether the address is a valid ed25519 curve point.
// Program-derived addresses are intentionally off-curve, so this
// distinguishes wallet owners from PDAs.
func IsOnCurve(address string) bool {
	raw, err := base58.Decode(address)
	if err != nil || len(raw) != 32 {
		return false
	}
	_, err = new(edwards25519.Point).SetBytes(raw)
	return err == nil
}
