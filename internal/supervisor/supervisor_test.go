package supervisor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestSupervisor(t *testing.T, specs []ServiceSpec) *Supervisor {
	t.Helper()
	s := New(specs,
		WithLogDir(t.TempDir()),
		WithPollInterval(25*time.Millisecond),
		WithStopWait(500*time.Millisecond),
	)
	t.Cleanup(s.StopAll)
	return s
}

func sleepSpec(name, url string) ServiceSpec {
	return ServiceSpec{
		Name:         name,
		Command:      []string{"sleep", "60"},
		URL:          url,
		StartTimeout: 2 * time.Second,
	}
}

func TestStartAllHealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	s := newTestSupervisor(t, []ServiceSpec{sleepSpec("files", srv.URL)})
	if err := s.StartAll(context.Background()); err != nil {
		t.Fatalf("StartAll: %v", err)
	}
	if got := s.Running(); len(got) != 1 || got[0] != "files" {
		t.Fatalf("Running = %v, want [files]", got)
	}

	s.StopAll()
	if got := s.Running(); len(got) != 0 {
		t.Fatalf("Running after StopAll = %v, want empty", got)
	}
}

func TestStartAllRootFallback(t *testing.T) {
	var healthHits, rootHits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			healthHits++
			w.WriteHeader(http.StatusNotFound)
			return
		}
		rootHits++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	s := newTestSupervisor(t, []ServiceSpec{sleepSpec("legacy", srv.URL)})
	if err := s.StartAll(context.Background()); err != nil {
		t.Fatalf("StartAll: %v", err)
	}
	if healthHits != 1 {
		t.Errorf("health path probed %d times, want exactly 1 before fallback", healthHits)
	}
	if rootHits == 0 {
		t.Error("root URL never probed after 404 fallback")
	}
}

func TestStartAllTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	spec := sleepSpec("flaky", srv.URL)
	spec.StartTimeout = 300 * time.Millisecond
	s := newTestSupervisor(t, []ServiceSpec{spec})

	err := s.StartAll(context.Background())
	if err == nil {
		t.Fatal("StartAll succeeded, want timeout error")
	}
	if !strings.Contains(err.Error(), "not healthy after") {
		t.Errorf("error = %q, want timeout message", err)
	}
	if got := s.Running(); len(got) != 0 {
		t.Fatalf("Running after failed start = %v, want empty", got)
	}
}

func TestStartAllProcessExitCarriesLogTail(t *testing.T) {
	spec := ServiceSpec{
		Name:         "crasher",
		Command:      []string{"sh", "-c", "echo listen tcp: address already in use >&2; exit 3"},
		URL:          "http://127.0.0.1:1", // nothing listens here
		StartTimeout: 2 * time.Second,
	}
	s := newTestSupervisor(t, []ServiceSpec{spec})

	err := s.StartAll(context.Background())
	if err == nil {
		t.Fatal("StartAll succeeded, want process-exit error")
	}
	if !strings.Contains(err.Error(), "exited during startup") {
		t.Errorf("error = %q, want exit message", err)
	}
	if !strings.Contains(err.Error(), "address already in use") {
		t.Errorf("error = %q, want log tail included", err)
	}
}

func TestStartAllAggregateError(t *testing.T) {
	bad := func(name string) ServiceSpec {
		return ServiceSpec{
			Name:         name,
			Command:      []string{"sh", "-c", "exit 1"},
			URL:          "http://127.0.0.1:1",
			StartTimeout: 2 * time.Second,
		}
	}
	s := newTestSupervisor(t, []ServiceSpec{bad("first"), bad("second")})

	err := s.StartAll(context.Background())
	if err == nil {
		t.Fatal("StartAll succeeded, want aggregate error")
	}
	for _, name := range []string{"first", "second"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error %q does not mention %s", err, name)
		}
	}
	if got := s.Running(); len(got) != 0 {
		t.Fatalf("Running after failed start = %v, want empty", got)
	}
}

func TestStartAllPartialFailureStopsHealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	bad := ServiceSpec{
		Name:         "broken",
		Command:      []string{"sh", "-c", "exit 1"},
		URL:          "http://127.0.0.1:1",
		StartTimeout: 2 * time.Second,
	}
	s := newTestSupervisor(t, []ServiceSpec{sleepSpec("good", srv.URL), bad})

	if err := s.StartAll(context.Background()); err == nil {
		t.Fatal("StartAll succeeded, want error from broken service")
	}
	if got := s.Running(); len(got) != 0 {
		t.Fatalf("healthy service left running after aggregate failure: %v", got)
	}
}

func TestSecondStartAllIsNoOp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := newTestSupervisor(t, []ServiceSpec{sleepSpec("files", srv.URL)})
	if err := s.StartAll(context.Background()); err != nil {
		t.Fatalf("first StartAll: %v", err)
	}

	if err := s.StartAll(context.Background()); err != nil {
		t.Fatalf("second StartAll = %v, want nil no-op", err)
	}
	if got := s.Running(); len(got) != 1 || got[0] != "files" {
		t.Fatalf("Running after repeated StartAll = %v, services must survive", got)
	}
}

func TestStartAllAfterStopAllRestarts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := newTestSupervisor(t, []ServiceSpec{sleepSpec("files", srv.URL)})
	if err := s.StartAll(context.Background()); err != nil {
		t.Fatalf("StartAll: %v", err)
	}
	s.StopAll()

	if err := s.StartAll(context.Background()); err != nil {
		t.Fatalf("StartAll after StopAll: %v", err)
	}
	if got := s.Running(); len(got) != 1 {
		t.Fatalf("Running after restart = %v, want one service", got)
	}
}

func TestStopAllIdempotent(t *testing.T) {
	s := newTestSupervisor(t, nil)
	s.StopAll()
	s.StopAll()
}

func TestStopAllKillsStubbornProcess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	spec := ServiceSpec{
		Name:         "stubborn",
		Command:      []string{"sh", "-c", `trap "" TERM; sleep 60`},
		URL:          srv.URL,
		StartTimeout: 5 * time.Second,
	}
	s := newTestSupervisor(t, []ServiceSpec{spec})
	if err := s.StartAll(context.Background()); err != nil {
		t.Fatalf("StartAll: %v", err)
	}

	start := time.Now()
	s.StopAll()
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Fatalf("StopAll took %s, teardown not bounded", elapsed)
	}
	if got := s.Running(); len(got) != 0 {
		t.Fatalf("Running after StopAll = %v, want empty", got)
	}
}

func TestStartAllEmptyRegistry(t *testing.T) {
	s := newTestSupervisor(t, nil)
	if err := s.StartAll(context.Background()); err != nil {
		t.Fatalf("StartAll on empty registry: %v", err)
	}
	s.StopAll()
}

func TestChildOutputReachesLogSink(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	logDir := t.TempDir()
	spec := ServiceSpec{
		Name:         "chatty",
		Command:      []string{"sh", "-c", "echo from-stdout; echo from-stderr >&2; sleep 60"},
		URL:          srv.URL,
		StartTimeout: 5 * time.Second,
	}
	s := New([]ServiceSpec{spec}, WithLogDir(logDir), WithPollInterval(25*time.Millisecond), WithStopWait(500*time.Millisecond))
	defer s.StopAll()

	if err := s.StartAll(context.Background()); err != nil {
		t.Fatalf("StartAll: %v", err)
	}

	logPath := filepath.Join(logDir, "chatty.log")
	deadline := time.Now().Add(3 * time.Second)
	for {
		data, err := os.ReadFile(logPath)
		if err == nil && strings.Contains(string(data), "from-stdout") && strings.Contains(string(data), "from-stderr") {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("log sink %s missing child output: %q (err %v)", logPath, data, err)
		}
		time.Sleep(25 * time.Millisecond)
	}
}

func TestChildRunsInSpecDir(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	workDir := t.TempDir()
	spec := ServiceSpec{
		Name:         "anchored",
		Command:      []string{"sh", "-c", "touch marker; sleep 60"},
		URL:          srv.URL,
		Dir:          workDir,
		StartTimeout: 5 * time.Second,
	}
	s := newTestSupervisor(t, []ServiceSpec{spec})
	if err := s.StartAll(context.Background()); err != nil {
		t.Fatalf("StartAll: %v", err)
	}

	marker := filepath.Join(workDir, "marker")
	deadline := time.Now().Add(3 * time.Second)
	for {
		if _, err := os.Stat(marker); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("child did not run in %s: marker file missing", workDir)
		}
		time.Sleep(25 * time.Millisecond)
	}
}

func TestLogTail(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
		n       int
		want    string
	}{
		{"empty file", "", 10, "(no log output)"},
		{"short file", "one\ntwo\n", 10, "one\ntwo"},
		{"truncated", "1\n2\n3\n4\n5\n", 3, "3\n4\n5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, strings.ReplaceAll(tt.name, " ", "_"))
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			if got := logTail(path, tt.n); got != tt.want {
				t.Errorf("logTail = %q, want %q", got, tt.want)
			}
		})
	}

	if got := logTail(filepath.Join(dir, "missing"), 10); got != "(no log output)" {
		t.Errorf("logTail(missing) = %q", got)
	}
}
