package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/enkryptcom/enkrypt-backend/pkg/apierrors"
	"github.com/enkryptcom/enkrypt-backend/pkg/auth"
	"github.com/enkryptcom/enkrypt-backend/pkg/backup"
	"github.com/enkryptcom/enkrypt-backend/pkg/blobstore"
	"github.com/enkryptcom/enkrypt-backend/pkg/pipeline"
)

// parsePublicKey validates the publicKey path segment (parseUserId does the
// same for userId), rendering 400 with a machine-readable errors array on
// failure.
func (s *Server) parsePublicKey(w http.ResponseWriter, r *http.Request) (backup.PublicKey, bool) {
	raw := r.PathValue("publicKey")
	pk, err := backup.ParsePublicKey(raw)
	if err != nil {
		pipeline.SetError(r, apierrors.BadRequest("INVALID_PUBLIC_KEY", "malformed publicKey",
			apierrors.FieldError{Field: "publicKey", Message: err.Error()}))
		return backup.PublicKey{}, false
	}
	return pk, true
}

func (s *Server) parseUserId(w http.ResponseWriter, r *http.Request) (backup.UserId, bool) {
	raw := r.PathValue("userId")
	uid, err := backup.ParseUserId(raw)
	if err != nil {
		pipeline.SetError(r, apierrors.BadRequest("INVALID_USER_ID", "malformed userId",
			apierrors.FieldError{Field: "userId", Message: err.Error()}))
		return backup.UserId{}, false
	}
	return uid, true
}

// parseSignature reads the signature from the query parameter (every route
// except Create, which also accepts it in the body).
func parseSignature(r *http.Request) (auth.Signature, error) {
	return auth.ParseSignature(r.URL.Query().Get("signature"))
}

// handleListBackups: GET /backups/{publicKey}?signature=...
func (s *Server) handleListBackups(w http.ResponseWriter, r *http.Request) {
	pk, ok := s.parsePublicKey(w, r)
	if !ok {
		return
	}
	sig, err := parseSignature(r)
	if err != nil {
		pipeline.SetError(r, apierrors.BadRequest("INVALID_SIGNATURE", err.Error()))
		return
	}
	if apiErr := s.Verifier.VerifyDated(auth.OpListBackups, pk.Hex(), sig, pk); apiErr != nil {
		pipeline.SetError(r, apiErr)
		return
	}

	backups, err := s.Store.GetUserBackups(r.Context(), pk.Hash())
	if err != nil {
		pipeline.SetError(r, storageErr(r.Context(), err))
		return
	}
	if len(backups) == 0 {
		pipeline.SetError(r, apierrors.NotFound("NO_BACKUPS_FOUND", "no backups found for this public key"))
		return
	}

	summaries := make([]backup.Summary, 0, len(backups))
	for _, b := range backups {
		summaries = append(summaries, backup.Summary{UserId: b.UserId.String(), UpdatedAt: b.UpdatedAt})
	}
	pipeline.WriteJSON(w, http.StatusOK, summaries)
}

// handleGetBackup: GET /backups/{publicKey}/users/{userId}?signature=...
func (s *Server) handleGetBackup(w http.ResponseWriter, r *http.Request) {
	pk, ok := s.parsePublicKey(w, r)
	if !ok {
		return
	}
	uid, ok := s.parseUserId(w, r)
	if !ok {
		return
	}
	sig, err := parseSignature(r)
	if err != nil {
		pipeline.SetError(r, apierrors.BadRequest("INVALID_SIGNATURE", err.Error()))
		return
	}
	if apiErr := s.Verifier.VerifyDated(auth.OpGetBackup, uid.String(), sig, pk); apiErr != nil {
		pipeline.SetError(r, apiErr)
		return
	}

	b, err := s.Store.GetUserBackup(r.Context(), pk.Hash(), uid)
	if err != nil {
		if blobstore.IsNotFound(err) {
			pipeline.SetError(r, apierrors.NotFound("BACKUP_NOT_FOUND", "no backup for this user"))
			return
		}
		pipeline.SetError(r, storageErr(r.Context(), err))
		return
	}
	pipeline.WriteJSON(w, http.StatusOK, b.Envelope())
}

type createBackupBody struct {
	Payload   string `json:"payload"`
	Signature string `json:"signature,omitempty"`
}

// handleCreateBackup: POST /backups/{publicKey}/users/{userId}
func (s *Server) handleCreateBackup(w http.ResponseWriter, r *http.Request) {
	pk, ok := s.parsePublicKey(w, r)
	if !ok {
		return
	}
	uid, ok := s.parseUserId(w, r)
	if !ok {
		return
	}

	var body createBackupBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			pipeline.SetError(r, apierrors.PayloadTooLarge())
			return
		}
		pipeline.SetError(r, apierrors.BadRequest("INVALID_BODY", "malformed JSON body"))
		return
	}

	payload, err := backup.ParseHexBytes(body.Payload)
	if err != nil {
		pipeline.SetError(r, apierrors.BadRequest("INVALID_PAYLOAD", "malformed payload",
			apierrors.FieldError{Field: "payload", Message: err.Error()}))
		return
	}

	sigRaw := r.URL.Query().Get("signature")
	if sigRaw == "" {
		sigRaw = body.Signature
	}
	sig, err := auth.ParseSignature(sigRaw)
	if err != nil {
		pipeline.SetError(r, apierrors.BadRequest("INVALID_SIGNATURE", err.Error()))
		return
	}
	if apiErr := s.Verifier.VerifyCreate(payload, sig, pk); apiErr != nil {
		pipeline.SetError(r, apiErr)
		return
	}

	b := backup.Backup{
		UserId:    uid,
		Pubkey:    pk,
		UpdatedAt: nowISO(),
		Payload:   payload,
	}
	if err := s.Store.SaveUserBackup(r.Context(), pk.Hash(), uid, b); err != nil {
		pipeline.SetError(r, storageErr(r.Context(), err))
		return
	}
	pipeline.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleDeleteBackup: DELETE /backups/{publicKey}/users/{userId}?signature=...
func (s *Server) handleDeleteBackup(w http.ResponseWriter, r *http.Request) {
	pk, ok := s.parsePublicKey(w, r)
	if !ok {
		return
	}
	uid, ok := s.parseUserId(w, r)
	if !ok {
		return
	}
	sig, err := parseSignature(r)
	if err != nil {
		pipeline.SetError(r, apierrors.BadRequest("INVALID_SIGNATURE", err.Error()))
		return
	}
	if apiErr := s.Verifier.VerifyDated(auth.OpDeleteBackup, uid.String(), sig, pk); apiErr != nil {
		pipeline.SetError(r, apiErr)
		return
	}

	if err := s.Store.DeleteUserBackup(r.Context(), pk.Hash(), uid); err != nil {
		pipeline.SetError(r, storageErr(r.Context(), err))
		return
	}
	pipeline.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// storageErr maps a blobstore error to the API error taxonomy. A storage
// call that failed because the request's own context was cancelled or
// deadline-exceeded (the soft-timeout sweeper, or a client disconnect) is
// reported as RequestTimeout rather than Internal; everything else
// (unavailable, corrupt storage) surfaces as 500, logged with its cause
// intact.
func storageErr(ctx context.Context, err error) *apierrors.Error {
	if ctx.Err() != nil {
		return apierrors.RequestTimeout()
	}
	return apierrors.Internal(err)
}
