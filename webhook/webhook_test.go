package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/dodf/models"
)

func TestEventType(t *testing.T) {
	assert.Equal(t, "run.completed", EventType(models.RunCompleted))
	assert.Equal(t, "run.empty", EventType(models.RunEmpty))
	assert.Equal(t, "run.failed", EventType(models.RunFailed))
}

func TestNotifier_DeliverSigned(t *testing.T) {
	var got Event
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.Equal(t, Sign("s3cret", body), r.Header.Get(SignatureHeader))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := New(srv.URL, "s3cret")
	n.Notify(context.Background(), "run-1", &models.RunResult{Date: "2025-03-28", Status: models.RunCompleted, Processed: 3})

	assert.Equal(t, "run.completed", got.Type)
	assert.Equal(t, "run-1", got.RunID)
	require.NotNil(t, got.Data)
	assert.Equal(t, 3, got.Data.Processed)
}

func TestNotifier_Unsigned(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get(SignatureHeader))
	}))
	defer srv.Close()

	require.NoError(t, New(srv.URL, "").Deliver(context.Background(), &Event{Type: "run.empty"}))
}

func TestNotifier_Retries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := New(srv.URL, "")
	n.Retries = []time.Duration{time.Millisecond, time.Millisecond, time.Millisecond}
	n.Notify(context.Background(), "run-2", &models.RunResult{Status: models.RunEmpty})

	assert.Equal(t, int32(3), calls.Load())
}

func TestNotifier_StopsWhenContextDone(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	n := New(srv.URL, "")
	n.Retries = []time.Duration{time.Hour}

	done := make(chan struct{})
	go func() {
		n.Notify(ctx, "run-3", &models.RunResult{Status: models.RunFailed})
		close(done)
	}()

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify did not return after cancel")
	}
}
