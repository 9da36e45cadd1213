package store

import (
	"errors"
	"strings"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(Config{DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestStore(t)

	sess, err := s.CreateSession("meal planning for families")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if sess.ID == "" {
		t.Fatal("session has no id")
	}
	if sess.Status != StatusRunning {
		t.Errorf("status = %s, want running", sess.Status)
	}

	if err := s.SetPhase(sess.ID, "research"); err != nil {
		t.Fatalf("SetPhase: %v", err)
	}
	if err := s.CompleteSession(sess.ID, "/tmp/mvp_meal_planning.zip"); err != nil {
		t.Fatalf("CompleteSession: %v", err)
	}

	got, err := s.GetSession(sess.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.Status != StatusCompleted {
		t.Errorf("status = %s, want completed", got.Status)
	}
	if got.ZipPath == nil || *got.ZipPath != "/tmp/mvp_meal_planning.zip" {
		t.Errorf("zip_path = %v", got.ZipPath)
	}
}

func TestFailSession(t *testing.T) {
	s := newTestStore(t)

	sess, err := s.CreateSession("an idea that will not work out")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.FailSession(sess.ID, "all models failed"); err != nil {
		t.Fatalf("FailSession: %v", err)
	}

	got, err := s.GetSession(sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != StatusFailed {
		t.Errorf("status = %s, want failed", got.Status)
	}
	if got.Error == nil || !strings.Contains(*got.Error, "all models failed") {
		t.Errorf("error = %v", got.Error)
	}
}

func TestUnknownSession(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.GetSession("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetSession(unknown) = %v, want ErrNotFound", err)
	}
	if err := s.SetPhase("nope", "research"); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetPhase(unknown) = %v, want ErrNotFound", err)
	}
}

func TestListSessions(t *testing.T) {
	s := newTestStore(t)

	ids := map[string]bool{}
	for _, idea := range []string{
		"first idea with enough length",
		"second idea with enough length",
		"third idea with enough length",
	} {
		sess, err := s.CreateSession(idea)
		if err != nil {
			t.Fatal(err)
		}
		ids[sess.ID] = true
	}

	all, err := s.ListSessions(10)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len = %d, want 3", len(all))
	}
	for _, sess := range all {
		if !ids[sess.ID] {
			t.Errorf("unexpected session %s", sess.ID)
		}
	}

	limited, err := s.ListSessions(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 2 {
		t.Errorf("limited len = %d, want 2", len(limited))
	}
}

func TestSettings(t *testing.T) {
	s := newTestStore(t)

	got, err := s.GetSetting(SettingOutputDir, "output")
	if err != nil || got != "output" {
		t.Fatalf("GetSetting default = %q, %v", got, err)
	}

	if err := s.SetSetting(SettingOutputDir, "/data/plans"); err != nil {
		t.Fatalf("SetSetting: %v", err)
	}
	got, err = s.GetSetting(SettingOutputDir, "output")
	if err != nil || got != "/data/plans" {
		t.Fatalf("GetSetting = %q, %v", got, err)
	}

	// Overwrite.
	if err := s.SetSetting(SettingOutputDir, "/data/other"); err != nil {
		t.Fatal(err)
	}
	got, _ = s.GetSetting(SettingOutputDir, "")
	if got != "/data/other" {
		t.Errorf("after overwrite = %q", got)
	}
}

func TestSecretsNeverPersisted(t *testing.T) {
	s := newTestStore(t)

	for _, key := range []string{"gemini_api_key", "API_KEY", "auth_token", "client_secret"} {
		if err := s.SetSetting(key, "value"); !errors.Is(err, ErrSecretSetting) {
			t.Errorf("SetSetting(%s) = %v, want ErrSecretSetting", key, err)
		}
	}
}

func TestResolveAPIKey(t *testing.T) {
	t.Setenv(GeminiKeyEnv, "")
	if _, err := ResolveAPIKey(""); err == nil {
		t.Error("ResolveAPIKey with nothing set succeeded")
	}

	t.Setenv(GeminiKeyEnv, "AIzaFromEnv")
	key, err := ResolveAPIKey("")
	if err != nil || key != "AIzaFromEnv" {
		t.Errorf("env key = %q, %v", key, err)
	}

	key, err = ResolveAPIKey("AIzaOverride")
	if err != nil || key != "AIzaOverride" {
		t.Errorf("override key = %q, %v", key, err)
	}
}
