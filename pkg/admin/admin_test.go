package admin

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/clusterfs/plockd/pkg/checkpoint"
	"github.com/clusterfs/plockd/pkg/rangelock"
	badger "github.com/dgraph-io/badger/v4"
)

func newTestServer(t *testing.T) (*Server, *rangelock.Engine) {
	t.Helper()
	store, err := checkpoint.OpenWithOptions(badger.DefaultOptions("").WithInMemory(true).WithLoggingLevel(badger.ERROR))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	engine := rangelock.NewEngine()
	return New(engine, store), engine
}

func TestHandleHealthz(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestHandleDump(t *testing.T) {
	t.Parallel()
	s, engine := newTestServer(t)

	if err := engine.DoLock("group1", rangelock.LockRequest{
		Identity: rangelock.Identity{NodeID: 1, Owner: 1},
		Number:   1, Start: 0, End: 9, Exclusive: true,
	}); err != nil {
		t.Fatalf("DoLock: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/dump/group1", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.Len() == 0 {
		t.Fatal("expected non-empty dump body")
	}
}

func TestHandleCheckpoint(t *testing.T) {
	t.Parallel()
	s, engine := newTestServer(t)

	if err := engine.DoLock("group1", rangelock.LockRequest{
		Identity: rangelock.Identity{NodeID: 1, Owner: 1},
		Number:   1, Start: 0, End: 9, Exclusive: true,
	}); err != nil {
		t.Fatalf("DoLock: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/checkpoint/group1", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", rec.Code, rec.Body.String())
	}
}
