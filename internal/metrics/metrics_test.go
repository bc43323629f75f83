package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.NativeCall("CreateMenu", nil)
	r.NativeCall("CreateMenu", errors.New("boom"))
	r.Activation("remote", "pressed")
	r.Expansion("ok")
	r.SessionStarted()
	r.SessionStarted()
	r.SessionEnded()

	if got := testutil.ToFloat64(r.nativeCalls.WithLabelValues("CreateMenu", "error")); got != 1 {
		t.Fatalf("expected 1 failed call, got %v", got)
	}
	if got := testutil.ToFloat64(r.activeSession); got != 1 {
		t.Fatalf("expected 1 active session, got %v", got)
	}
}

func TestNilRecorderIsSafe(t *testing.T) {
	var r *Recorder
	r.NativeCall("x", nil)
	r.Activation("remote", "ignored")
	r.Expansion("stale")
	r.SessionStarted()
	r.SessionEnded()
}
