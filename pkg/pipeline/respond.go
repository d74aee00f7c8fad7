package pipeline

import (
	"encoding/json"
	"net/http"

	"github.com/enkryptcom/enkrypt-backend/pkg/apierrors"
)

// writeErr renders an apierrors.Error directly onto the response. Used by
// pipeline stages that reject a request before routing (CORS, body limit,
// injected errors) where there's no downstream handler left to ask the
// error-handler middleware to render on their behalf.
func writeErr(w http.ResponseWriter, r *http.Request, err *apierrors.Error) {
	debug := false
	if v, ok := r.Context().Value(debugErrorsKey{}).(bool); ok {
		debug = v
	}
	status, body := apierrors.Render(err, debug)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type debugErrorsKey struct{}
