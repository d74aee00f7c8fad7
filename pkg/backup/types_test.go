package backup

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePublicKey(t *testing.T) {
	valid := "0x" + strings.Repeat("ab", 64)

	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"valid", valid, false},
		{"missing prefix", strings.Repeat("ab", 64), true},
		{"wrong length", "0x" + strings.Repeat("ab", 10), true},
		{"uppercase hex rejected", "0x" + strings.ToUpper(strings.Repeat("ab", 64)), true},
		{"non-hex chars", "0x" + strings.Repeat("zz", 64), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pk, err := ParsePublicKey(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.raw, pk.Hex())
			assert.Len(t, pk.Bytes(), 64)
		})
	}
}

func TestPublicKeyHash(t *testing.T) {
	pk, err := ParsePublicKey("0x" + strings.Repeat("ab", 64))
	require.NoError(t, err)

	h1 := pk.Hash()
	h2 := pk.Hash()
	assert.Equal(t, h1.Hex(), h2.Hex(), "hashing is deterministic")
	assert.True(t, strings.HasPrefix(h1.Hex(), "0x"))
	assert.Len(t, h1.Bytes(), 32)
	assert.Equal(t, h1.Hex()[2:], h1.HexDigits())

	other, err := ParsePublicKey("0x" + strings.Repeat("cd", 64))
	require.NoError(t, err)
	assert.NotEqual(t, h1.Hex(), other.Hash().Hex())
}

func TestParseUserId(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"valid", "550e8400-e29b-41d4-a716-446655440000", false},
		{"uppercase rejected", "550E8400-e29b-41d4-a716-446655440000", true},
		{"not a uuid", "not-a-uuid", true},
		{"wrong dashes", "550e8400e29b41d4a716446655440000", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := ParseUserId(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.raw, id.String())
		})
	}
}

func TestHexBytesRoundTrip(t *testing.T) {
	b, err := ParseHexBytes("0xdeadbeef")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, b)
	assert.Equal(t, "0xdeadbeef", EncodeHexBytes(b))

	empty, err := ParseHexBytes("0x")
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = ParseHexBytes("not-hex")
	assert.Error(t, err)
}

func TestBackupEnvelope(t *testing.T) {
	userId, err := ParseUserId("550e8400-e29b-41d4-a716-446655440000")
	require.NoError(t, err)
	pk, err := ParsePublicKey("0x" + strings.Repeat("ab", 64))
	require.NoError(t, err)

	b := Backup{
		UserId:    userId,
		Pubkey:    pk,
		UpdatedAt: "2026-07-31T00:00:00.000Z",
		Payload:   []byte{1, 2, 3},
	}
	env := b.Envelope()
	assert.Equal(t, userId.String(), env.UserId)
	assert.Equal(t, pk.Hex(), env.Pubkey)
	assert.Equal(t, "0x010203", env.Payload)
}
