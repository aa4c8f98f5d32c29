package cron

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestUploadSweepJobRemovesStaleUploads(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	write := func(name string, modTime time.Time) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("code,name\n"), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		if err := os.Chtimes(path, modTime, modTime); err != nil {
			t.Fatalf("chtimes %s: %v", name, err)
		}
		return path
	}
	stale := write("upload_1.csv", now.Add(-7*time.Hour))
	fresh := write("upload_2.csv", now.Add(-time.Hour))
	other := write("catalog.csv", now.Add(-48*time.Hour))

	job, err := NewUploadSweepJob(UploadSweepJobParams{Logger: testLogger(), Dir: dir, Retention: 6 * time.Hour})
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	job.(*uploadSweepJob).now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("stale upload should be removed")
	}
	for _, path := range []string{fresh, other} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("%s should be kept: %v", filepath.Base(path), err)
		}
	}
}

func TestUploadSweepJobMissingDir(t *testing.T) {
	job, err := NewUploadSweepJob(UploadSweepJobParams{Logger: testLogger(), Dir: filepath.Join(t.TempDir(), "absent")})
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("missing dir should be a no-op: %v", err)
	}
}

func TestNewUploadSweepJobValidates(t *testing.T) {
	if _, err := NewUploadSweepJob(UploadSweepJobParams{Dir: "tmp"}); err == nil {
		t.Fatalf("expected logger error")
	}
	if _, err := NewUploadSweepJob(UploadSweepJobParams{Logger: testLogger()}); err == nil {
		t.Fatalf("expected dir error")
	}
}
