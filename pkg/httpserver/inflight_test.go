package httpserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeoutWriterDiscardsWritesAfterTimeout(t *testing.T) {
	rec := httptest.NewRecorder()
	tw := &timeoutWriter{w: rec}
	tw.renderTimeout(false)
	assert.Equal(t, http.StatusRequestTimeout, rec.Code)

	tw.WriteHeader(http.StatusOK)
	n, err := tw.Write([]byte("late"))
	require.NoError(t, err)
	assert.Equal(t, 4, n, "late writes report success to the handler so it doesn't error out")
	assert.Equal(t, http.StatusRequestTimeout, rec.Code, "a late write must not override the timeout response")
}

func TestRenderTimeoutNoopsIfHandlerAlreadyResponded(t *testing.T) {
	rec := httptest.NewRecorder()
	tw := &timeoutWriter{w: rec}
	tw.WriteHeader(http.StatusOK)
	_, _ = tw.Write([]byte("ok"))

	tw.renderTimeout(false)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestSweepWritesTimeoutResponseAndCancelsContext(t *testing.T) {
	set := &inflightSet{entries: make(map[string]*inflightRequest)}

	unblocked := make(chan struct{})
	handler := set.wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
		close(unblocked)
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	done := make(chan struct{})
	go func() {
		handler.ServeHTTP(rec, req)
		close(done)
	}()

	require.Eventually(t, func() bool {
		set.mu.Lock()
		defer set.mu.Unlock()
		return len(set.entries) == 1
	}, time.Second, time.Millisecond)

	set.sweep(time.Now().Add(time.Hour), time.Millisecond)

	select {
	case <-unblocked:
	case <-time.After(time.Second):
		t.Fatal("sweep did not cancel the in-flight request's context")
	}
	<-done

	assert.Equal(t, http.StatusRequestTimeout, rec.Code)

	set.mu.Lock()
	defer set.mu.Unlock()
	assert.Empty(t, set.entries, "swept request must be removed from the in-flight set")
}

func TestSweepIgnoresRequestsWithinSoftTimeout(t *testing.T) {
	set := &inflightSet{entries: make(map[string]*inflightRequest)}
	rec := httptest.NewRecorder()
	tw := &timeoutWriter{w: rec}
	_, cancel := context.WithCancel(context.Background())
	defer cancel()

	set.entries["fresh"] = &inflightRequest{startedAt: time.Now(), cancel: cancel, tw: tw}

	set.sweep(time.Now(), time.Hour)

	set.mu.Lock()
	defer set.mu.Unlock()
	assert.Len(t, set.entries, 1, "a request younger than the soft timeout must not be swept")
	assert.Zero(t, rec.Body.Len(), "nothing should have been written yet")
}
