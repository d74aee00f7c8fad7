package auth

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enkryptcom/enkrypt-backend/pkg/backup"
)

// sign produces a 0x-prefixed 65-byte RPC signature over msg under
// personal-sign hashing, with v in the {27,28} wire form.
func sign(t *testing.T, priv []byte, msg []byte) (string, backup.PublicKey) {
	t.Helper()
	key, err := crypto.ToECDSA(priv)
	require.NoError(t, err)

	hash := personalSignHash(msg)
	sig, err := crypto.Sign(hash, key)
	require.NoError(t, err)
	sig[64] += 27

	pubBytes := crypto.FromECDSAPub(&key.PublicKey)
	pub, err := backup.ParsePublicKey("0x" + hexEncode(pubBytes[1:]))
	require.NoError(t, err)

	return "0x" + hexEncode(sig), pub
}

func hexEncode(b []byte) string {
	const digits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = digits[c>>4]
		out[i*2+1] = digits[c&0xf]
	}
	return string(out)
}

func testKey(t *testing.T) []byte {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return crypto.FromECDSA(key)
}

func TestParseSignature(t *testing.T) {
	priv := testKey(t)
	raw, _ := sign(t, priv, []byte("hello"))

	sig, err := ParseSignature(raw)
	require.NoError(t, err)
	assert.True(t, sig.raw[64] == 0 || sig.raw[64] == 1)

	_, err = ParseSignature("deadbeef")
	assert.Error(t, err, "missing 0x prefix")

	_, err = ParseSignature("0xzz")
	assert.Error(t, err, "invalid hex")

	_, err = ParseSignature("0x" + hexEncode(make([]byte, 10)))
	assert.Error(t, err, "wrong length")
}

func TestRecoverAndVerify(t *testing.T) {
	priv := testKey(t)
	msg := []byte("create-backup-payload")
	raw, pub := sign(t, priv, msg)

	sig, err := ParseSignature(raw)
	require.NoError(t, err)

	got, err := Recover(msg, sig)
	require.NoError(t, err)
	assert.Equal(t, pub.Hex(), got.Hex())

	ok, err := Verify(msg, sig, pub)
	require.NoError(t, err)
	assert.True(t, ok)

	other := testKey(t)
	_, otherPub := sign(t, other, msg)
	ok, err = Verify(msg, sig, otherPub)
	require.NoError(t, err)
	assert.False(t, ok, "signature must not verify against a different key")
}

func TestDatedMessage(t *testing.T) {
	day := time.Date(2026, time.July, 31, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		op   Operation
		want string
	}{
		{OpGetBackup, "user123-GET-BACKUP-07-31-2026"},
		{OpListBackups, "user123-GET-BACKUPS-07-31-2026"},
		{OpDeleteBackup, "user123-DELETE-BACKUP-07-31-2026"},
	}
	for _, tt := range tests {
		msg, err := DatedMessage(tt.op, "user123", day)
		require.NoError(t, err)
		assert.Equal(t, tt.want, string(msg))
	}

	_, err := DatedMessage(OpCreateBackup, "user123", day)
	assert.Error(t, err, "create has no dated message form")
}

func TestCandidateMessages(t *testing.T) {
	now := time.Date(2026, time.July, 31, 12, 0, 0, 0, time.UTC)
	msgs, err := CandidateMessages(OpGetBackup, "user123", now)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "user123-GET-BACKUP-07-30-2026", string(msgs[0]))
	assert.Equal(t, "user123-GET-BACKUP-07-31-2026", string(msgs[1]))
	assert.Equal(t, "user123-GET-BACKUP-08-01-2026", string(msgs[2]))
}
