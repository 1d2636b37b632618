package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTTSNarratorDisabledNeverDials(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	n := NewTTSNarrator(TTSConfig{Enabled: false, BaseURL: srv.URL, Timeout: time.Second})
	n.Narrate("hello")
	assert.False(t, called)
}

func TestTTSNarratorUnavailableServerIsSilent(t *testing.T) {
	n := NewTTSNarrator(TTSConfig{Enabled: true, BaseURL: "http://127.0.0.1:0", Timeout: 50 * time.Millisecond})
	assert.False(t, n.isAvailable())
}

func TestTTSNarratorLifecycleMethodsAreNoOps(t *testing.T) {
	n := NewTTSNarrator(TTSConfig{Enabled: false})
	n.LogTaskStarted(nil)
	n.LogTaskCompleted(nil)
	n.LogTaskFailed(nil, nil)
	n.LogTaskRetryScheduled(nil, time.Second)
}
