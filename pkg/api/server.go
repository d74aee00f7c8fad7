// Package api implements the service's HTTP endpoints: health, version,
// schema, and the backup CRUD routes. It follows the teacher's
// api.HealthServer shape — a struct holding its dependencies, with one
// method per route registered on an http.ServeMux — rather than adopting a
// third-party router, consistent with the teacher never using one.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/enkryptcom/enkrypt-backend/internal/openapi"
	"github.com/enkryptcom/enkrypt-backend/pkg/auth"
	"github.com/enkryptcom/enkrypt-backend/pkg/blobstore"
)

// Server holds the dependencies every backup-API handler needs.
type Server struct {
	Store    blobstore.Store
	Verifier *auth.Verifier
	Version  string
}

// NewMux registers every route from the endpoint table onto a fresh
// http.ServeMux, using Go 1.22's method-and-pattern routing.
func NewMux(s *Server) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /version", s.handleVersion)
	mux.HandleFunc("GET /schema", s.handleSchemaJSON)
	mux.HandleFunc("GET /schema.json", s.handleSchemaJSON)
	mux.HandleFunc("GET /schema.yml", s.handleSchemaYAML)
	mux.HandleFunc("GET /schema.yaml", s.handleSchemaYAML)

	mux.HandleFunc("GET /backups/{publicKey}", s.handleListBackups)
	mux.HandleFunc("GET /backups/{publicKey}/users/{userId}", s.handleGetBackup)
	mux.HandleFunc("POST /backups/{publicKey}/users/{userId}", s.handleCreateBackup)
	mux.HandleFunc("DELETE /backups/{publicKey}/users/{userId}", s.handleDeleteBackup)

	return mux
}

type healthBody struct {
	Message string `json:"message"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthBody{Message: "Ok"})
}

type versionBody struct {
	Version string `json:"version"`
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, versionBody{Version: s.Version})
}

func (s *Server) handleSchemaJSON(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(openapi.JSON())
}

func (s *Server) handleSchemaYAML(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(openapi.YAML())
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
