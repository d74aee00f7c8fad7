package auth

import (
	"time"

	"github.com/enkryptcom/enkrypt-backend/pkg/apierrors"
	"github.com/enkryptcom/enkrypt-backend/pkg/backup"
)

// Verifier proves ownership of a public key over a signed, per-operation
// canonical message.
type Verifier struct {
	// Now defaults to time.Now when nil; overridable for deterministic tests.
	Now func() time.Time
}

func (v *Verifier) now() time.Time {
	if v.Now != nil {
		return v.Now()
	}
	return time.Now()
}

// VerifyCreate checks the signature over the raw payload bytes proves
// ownership of pubkey.
func (v *Verifier) VerifyCreate(payload []byte, sig Signature, pubkey backup.PublicKey) *apierrors.Error {
	ok, err := Verify(CreateMessage(payload), sig, pubkey)
	if err != nil || !ok {
		return apierrors.SignatureMismatch()
	}
	return nil
}

// VerifyDated checks the signature against the three candidate dated
// messages (yesterday/today/tomorrow UTC); any match proves ownership.
func (v *Verifier) VerifyDated(op Operation, subject string, sig Signature, pubkey backup.PublicKey) *apierrors.Error {
	candidates, err := CandidateMessages(op, subject, v.now())
	if err != nil {
		return apierrors.Internal(err)
	}
	for _, msg := range candidates {
		ok, err := Verify(msg, sig, pubkey)
		if err == nil && ok {
			return nil
		}
	}
	return apierrors.SignatureMismatch()
}
