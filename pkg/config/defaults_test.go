package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

func TestLoadEnvFileHandlesQuotesAndExport(t *testing.T) {
	dir := t.TempDir()
	body := "# overrides\nexport FOLIO_TEST_QUOTED=\"a b\"\nFOLIO_TEST_PLAIN=plain\nFOLIO_TEST_KEPT=from-file\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(body), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	chdir(t, dir)

	t.Setenv("FOLIO_TEST_KEPT", "from-env")
	for _, key := range []string{"FOLIO_TEST_QUOTED", "FOLIO_TEST_PLAIN"} {
		key := key
		os.Unsetenv(key)
		t.Cleanup(func() { os.Unsetenv(key) })
	}

	envLoaded = sync.Once{}
	loadEnvFile()

	if got := os.Getenv("FOLIO_TEST_QUOTED"); got != "a b" {
		t.Fatalf("quoted value = %q, want %q", got, "a b")
	}
	if got := os.Getenv("FOLIO_TEST_PLAIN"); got != "plain" {
		t.Fatalf("plain value = %q, want %q", got, "plain")
	}
	if got := os.Getenv("FOLIO_TEST_KEPT"); got != "from-env" {
		t.Fatalf("existing env was overwritten: %q", got)
	}
}

func TestLoadEnvFileMissingIsNotFatal(t *testing.T) {
	chdir(t, t.TempDir())
	envLoaded = sync.Once{}
	loadEnvFile()
}

func TestGetEnvDurationFallsBackOnGarbage(t *testing.T) {
	t.Setenv("FOLIO_TEST_DURATION", "soon")
	if got := getEnvDuration("FOLIO_TEST_DURATION", 3*time.Second); got != 3*time.Second {
		t.Fatalf("got %s, want default", got)
	}
	t.Setenv("FOLIO_TEST_DURATION", "250ms")
	if got := getEnvDuration("FOLIO_TEST_DURATION", 3*time.Second); got != 250*time.Millisecond {
		t.Fatalf("got %s, want 250ms", got)
	}
}
