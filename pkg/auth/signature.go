package auth

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/enkryptcom/enkrypt-backend/pkg/backup"
)

// personalSignPrefix is the Ethereum "personal-sign" domain separator.
const personalSignPrefix = "\x19Ethereum Signed Message:\n"

// Signature is a parsed Ethereum personal-sign ECDSA signature in its
// 65-byte r‖s‖v RPC form.
type Signature struct {
	raw [65]byte
}

// ParseSignature validates and decodes the 65-byte hex-prefixed RPC
// signature form, normalizing v from {27,28} or EIP-155 form to {0,1}.
func ParseSignature(raw string) (Signature, error) {
	if !strings.HasPrefix(raw, "0x") {
		return Signature{}, fmt.Errorf("signature must be 0x-prefixed")
	}
	b, err := hex.DecodeString(strings.ToLower(raw[2:]))
	if err != nil {
		return Signature{}, fmt.Errorf("invalid signature hex: %w", err)
	}
	if len(b) != 65 {
		return Signature{}, fmt.Errorf("signature must decode to 65 bytes, got %d", len(b))
	}

	var sig Signature
	copy(sig.raw[:], b)

	v := sig.raw[64]
	switch {
	case v == 27 || v == 28:
		sig.raw[64] = v - 27
	case v == 0 || v == 1:
		// already normalized
	case v >= 35:
		// EIP-155: v = chainId*2 + 35 + {0,1}
		sig.raw[64] = (v - 35) % 2
	default:
		return Signature{}, fmt.Errorf("unsupported signature recovery id %d", v)
	}
	return sig, nil
}

// personalSignHash computes keccak256("\x19Ethereum Signed Message:\n" ||
// len(msg) || msg).
func personalSignHash(msg []byte) []byte {
	prefixed := fmt.Sprintf("%s%d", personalSignPrefix, len(msg))
	return crypto.Keccak256([]byte(prefixed), msg)
}

// Recover recovers the secp256k1 public key that produced sig over msg under
// Ethereum personal-sign hashing.
func Recover(msg []byte, sig Signature) (backup.PublicKey, error) {
	hash := personalSignHash(msg)
	pub, err := crypto.Ecrecover(hash, sig.raw[:])
	if err != nil {
		return backup.PublicKey{}, fmt.Errorf("signature recovery failed: %w", err)
	}
	// Ecrecover returns 65 bytes: a leading 0x04 uncompressed-point marker
	// followed by the 64-byte X||Y public key our PublicKey type carries.
	if len(pub) != 65 || pub[0] != 0x04 {
		return backup.PublicKey{}, fmt.Errorf("unexpected recovered public key encoding")
	}
	return backup.ParsePublicKey("0x" + hex.EncodeToString(pub[1:]))
}

// Verify recovers the signer of msg and reports whether it matches want.
func Verify(msg []byte, sig Signature, want backup.PublicKey) (bool, error) {
	got, err := Recover(msg, sig)
	if err != nil {
		return false, err
	}
	return got.Hex() == want.Hex(), nil
}
