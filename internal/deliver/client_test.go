package deliver

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leetsync/internal/extract"
	"leetsync/internal/store"
)

// fakeRecorder captures status transitions and sync marks.
type fakeRecorder struct {
	statuses []store.Status
	synced   []string
}

func (f *fakeRecorder) SetStatus(status store.Status) error {
	f.statuses = append(f.statuses, status)
	return nil
}

func (f *fakeRecorder) MarkSynced(slug, title, language string, at time.Time) (int, error) {
	f.synced = append(f.synced, slug)
	return len(f.synced), nil
}

func testRecord() *extract.SubmissionRecord {
	return extract.NewRecord("two-sum", "Two Sum", "python", "def twoSum(): pass")
}

func TestDeliver_Success(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "Bearer tok-abc", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer srv.Close()

	rec := &fakeRecorder{}
	client := New(Options{SubmitURL: srv.URL, Attempts: 3, BaseDelay: time.Millisecond, State: rec})

	payload, err := client.Deliver(context.Background(), testRecord(), "tok-abc")
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, true, payload["ok"])
	assert.Equal(t, []store.Status{store.StatusSyncing}, rec.statuses)
	assert.Equal(t, []string{"two-sum"}, rec.synced)
}

func TestDeliver_RetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer srv.Close()

	rec := &fakeRecorder{}
	client := New(Options{SubmitURL: srv.URL, Attempts: 3, BaseDelay: time.Millisecond, State: rec})

	_, err := client.Deliver(context.Background(), testRecord(), "tok-abc")
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, []string{"two-sum"}, rec.synced)
}

func TestDeliver_ExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	rec := &fakeRecorder{}
	client := New(Options{SubmitURL: srv.URL, Attempts: 3, BaseDelay: time.Millisecond, State: rec})

	_, err := client.Deliver(context.Background(), testRecord(), "tok-abc")
	require.Error(t, err)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusInternalServerError, statusErr.Code)

	// Exactly the configured number of attempts, then status Error.
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, []store.Status{store.StatusSyncing, store.StatusError}, rec.statuses)
	assert.Empty(t, rec.synced)
}

func TestDeliver_MissingCredential(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	rec := &fakeRecorder{}
	client := New(Options{SubmitURL: srv.URL, State: rec})

	_, err := client.Deliver(context.Background(), testRecord(), "")
	require.ErrorIs(t, err, ErrMissingCredential)

	// No network traffic and no status churn before the credential check.
	assert.Equal(t, int32(0), calls.Load())
	assert.Empty(t, rec.statuses)
}

func TestDeliver_ContextCancelledDuringBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	client := New(Options{SubmitURL: srv.URL, Attempts: 3, BaseDelay: time.Hour})

	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := client.Deliver(ctx, testRecord(), "tok-abc")
	require.ErrorIs(t, err, context.Canceled)
}
