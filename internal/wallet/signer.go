// Package wallet proves address ownership with personal_sign (EIP-191)
// signatures over secp256k1 keys.
package wallet

import (
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// ErrBadSignature is returned when a signature is malformed or does not
// recover to a public key.
var ErrBadSignature = errors.New("wallet: bad signature")

// MessageHash returns keccak256("\x19Ethereum Signed Message:\n" || len || msg),
// the digest wallets sign for personal_sign.
func MessageHash(message string) []byte {
	prefix := fmt.Sprintf("\x19Ethereum Signed Message:\n%d", len(message))
	return ethcrypto.Keccak256([]byte(prefix), []byte(message))
}

// NormalizeAddress validates a hex address and returns it lowercased.
func NormalizeAddress(address string) (string, bool) {
	address = strings.TrimSpace(address)
	if !common.IsHexAddress(address) {
		return "", false
	}
	return strings.ToLower(common.HexToAddress(address).Hex()), true
}

// RecoverAddress returns the lowercased address that produced signature over
// message. signature is 65 hex-encoded bytes (r || s || v), with or without
// the 0x prefix; v may be 0/1 or 27/28.
func RecoverAddress(message, signature string) (string, error) {
	sig, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(signature), "0x"))
	if err != nil || len(sig) != 65 {
		return "", ErrBadSignature
	}
	if sig[64] >= 27 {
		sig[64] -= 27
	}
	if sig[64] > 1 {
		return "", ErrBadSignature
	}

	pub, err := ethcrypto.SigToPub(MessageHash(message), sig)
	if err != nil {
		return "", ErrBadSignature
	}
	return strings.ToLower(ethcrypto.PubkeyToAddress(*pub).Hex()), nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Signer
// ──────────────────────────────────────────────────────────────────────────────

// Signer holds a private key and signs login messages with it.
type Signer struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewSigner creates a Signer from a hex-encoded secp256k1 private key.
func NewSigner(privateKeyHex string) (*Signer, error) {
	key, err := ethcrypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("wallet: invalid private key: %w", err)
	}
	return &Signer{key: key, address: ethcrypto.PubkeyToAddress(key.PublicKey)}, nil
}

// GenerateSigner creates a Signer over a fresh random key.
func GenerateSigner() (*Signer, error) {
	key, err := ethcrypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("wallet: generate key: %w", err)
	}
	return &Signer{key: key, address: ethcrypto.PubkeyToAddress(key.PublicKey)}, nil
}

// Address returns the signer's address, lowercased.
func (s *Signer) Address() string {
	return strings.ToLower(s.address.Hex())
}

// SignMessage signs message the way personal_sign does and returns the
// hex-encoded 65-byte signature with v in {27,28}.
func (s *Signer) SignMessage(message string) (string, error) {
	sig, err := ethcrypto.Sign(MessageHash(message), s.key)
	if err != nil {
		return "", fmt.Errorf("wallet: signing: %w", err)
	}
	sig[64] += 27
	return "0x" + hex.EncodeToString(sig), nil
}
