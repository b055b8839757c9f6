package events

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

func TestNew_StampsIDAndTime(t *testing.T) {
	a := New(LoadReady, "m1", map[string]any{"device": "cpu"})
	b := New(LoadReady, "m1", nil)
	if a.ID == "" || a.ID == b.ID {
		t.Fatalf("expected unique ids, got %q and %q", a.ID, b.ID)
	}
	if a.Time.IsZero() {
		t.Fatalf("time not set")
	}
}

func TestMemory_SnapshotCopy(t *testing.T) {
	p := NewMemory()
	p.Publish(New(LoadStart, "m1", nil))
	evs := p.Events()
	evs[0].Name = "mutated"
	if p.Names()[0] != LoadStart {
		t.Fatalf("Events must return a copy")
	}
}

type fakeConn struct {
	mu     sync.Mutex
	subjs  []string
	bodies [][]byte
	err    error
	closed bool
}

func (f *fakeConn) Publish(subj string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.subjs = append(f.subjs, subj)
	f.bodies = append(f.bodies, data)
	return nil
}

func (f *fakeConn) Close() { f.closed = true }

func TestNATS_PublishesJSONOnSubject(t *testing.T) {
	fc := &fakeConn{}
	n := newNATS(fc, "embedd.models.", zerolog.Nop())
	n.Publish(New(LoadFailed, "m2", map[string]any{"error": "boom"}))
	if len(fc.subjs) != 1 || fc.subjs[0] != "embedd.models.load_failed" {
		t.Fatalf("unexpected subjects: %v", fc.subjs)
	}
	var got Event
	if err := json.Unmarshal(fc.bodies[0], &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Model != "m2" || got.Fields["error"] != "boom" {
		t.Fatalf("unexpected payload: %+v", got)
	}
	n.Close()
	if !fc.closed {
		t.Fatalf("close not forwarded")
	}
}

func TestNATS_PublishErrorIsSwallowed(t *testing.T) {
	n := newNATS(&fakeConn{err: errors.New("down")}, "", zerolog.Nop())
	n.Publish(New(LoadSummary, "", nil))
	if n.Subject("x") != "x" {
		t.Fatalf("empty prefix subject = %q", n.Subject("x"))
	}
}

func TestMulti(t *testing.T) {
	a, b := NewMemory(), NewMemory()
	Multi{a, Noop{}, b}.Publish(New(LoadStart, "m", nil))
	if len(a.Events()) != 1 || len(b.Events()) != 1 {
		t.Fatalf("fan-out failed")
	}
}

func TestLog_WritesDebugRecord(t *testing.T) {
	var buf bytes.Buffer
	l := NewLog(zerolog.New(&buf).Level(zerolog.DebugLevel))
	e := New(LoadFailed, "m1", map[string]any{"error": "no config.json"})
	l.Publish(e)
	out := buf.String()
	for _, want := range []string{`"level":"debug"`, `"event":"load_failed"`, `"model":"m1"`, `"error":"no config.json"`, e.ID} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %s in %q", want, out)
		}
	}

	buf.Reset()
	NewLog(zerolog.New(&buf).Level(zerolog.InfoLevel)).Publish(e)
	if buf.Len() != 0 {
		t.Fatalf("debug event should be filtered at info: %q", buf.String())
	}
}
