package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"facewatch/internal/model"
	"facewatch/internal/repository/sqlite"
	"facewatch/internal/service/capture"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out, errOut bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func seedLedger(t *testing.T, path string) {
	t.Helper()

	db, err := sqlite.New(path)
	if err != nil {
		t.Fatalf("Failed to create ledger: %v", err)
	}
	defer db.Close()

	repo := sqlite.NewCaptureRepository(db)
	base := time.Date(2025, 4, 1, 10, 0, 0, 0, time.Local)
	rows := []model.Capture{
		{Filename: "face_1.jpg", FilePath: "/x/face_1.jpg", Faces: 1, Status: model.CaptureStatusUploaded, RemoteID: "drive-1", CreatedAt: base},
		{Filename: "face_2.jpg", FilePath: "/x/face_2.jpg", Faces: 2, Status: model.CaptureStatusFailed, LastError: "timeout", CreatedAt: base.Add(time.Minute)},
	}
	for i := range rows {
		if _, err := repo.Insert(&rows[i]); err != nil {
			t.Fatalf("Failed to insert capture: %v", err)
		}
	}
}

func TestCapturesCommand(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "ledger.db")
	seedLedger(t, dbPath)
	t.Setenv("DB_PATH", dbPath)

	out, err := execute(t, "captures")
	if err != nil {
		t.Fatalf("captures failed: %v", err)
	}
	for _, want := range []string{"face_1.jpg", "drive-1", "face_2.jpg", "timeout", "STATUS"} {
		if !strings.Contains(out, want) {
			t.Errorf("Output missing %q:\n%s", want, out)
		}
	}

	out, err = execute(t, "captures", "--status", "failed")
	if err != nil {
		t.Fatalf("captures --status failed: %v", err)
	}
	if strings.Contains(out, "face_1.jpg") || !strings.Contains(out, "face_2.jpg") {
		t.Errorf("Status filter not applied:\n%s", out)
	}
}

func TestCapturesCommand_InvalidStatus(t *testing.T) {
	t.Setenv("DB_PATH", filepath.Join(t.TempDir(), "ledger.db"))

	if _, err := execute(t, "captures", "--status", "lost"); err == nil {
		t.Error("Expected error for unknown status")
	}
}

func TestCapturesCommand_LedgerDisabled(t *testing.T) {
	t.Setenv("DB_PATH", "")

	_, err := execute(t, "captures")
	if err == nil || !strings.Contains(err.Error(), "no ledger configured") {
		t.Errorf("Expected disabled ledger error, got %v", err)
	}
}

func TestCapturesCommand_EnvFile(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "from-env.db")
	seedLedger(t, dbPath)

	envFile := filepath.Join(dir, "test.env")
	os.WriteFile(envFile, []byte("DB_PATH="+dbPath+"\n"), 0644)
	// godotenv does not override variables that are already set.
	t.Setenv("DB_PATH", "")
	os.Unsetenv("DB_PATH")

	out, err := execute(t, "--env", envFile, "captures", "--limit", "1")
	if err != nil {
		t.Fatalf("captures failed: %v", err)
	}
	if !strings.Contains(out, "face_2.jpg") || strings.Contains(out, "face_1.jpg") {
		t.Errorf("Expected only the newest capture:\n%s", out)
	}
}

func TestRetryCommand_NothingPending(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DB_PATH", filepath.Join(dir, "ledger.db"))
	t.Setenv("SCRATCH_DIR", filepath.Join(dir, "captures"))
	t.Setenv("DRIVE_CREDENTIALS", filepath.Join(dir, "missing.json"))

	out, err := execute(t, "retry")
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if !strings.Contains(out, "Nothing to upload") {
		t.Errorf("Unexpected output %q", out)
	}
}

func TestRetryCommand_NoCredentials(t *testing.T) {
	dir := t.TempDir()
	scratch := filepath.Join(dir, "captures")
	os.MkdirAll(scratch, 0755)
	os.WriteFile(filepath.Join(scratch, "face_2025-04-01_10-00-00.000.jpg"), []byte("jpeg"), 0644)

	t.Setenv("DB_PATH", filepath.Join(dir, "ledger.db"))
	t.Setenv("SCRATCH_DIR", scratch)
	t.Setenv("DRIVE_CREDENTIALS", filepath.Join(dir, "missing.json"))

	if _, err := execute(t, "retry"); err == nil {
		t.Error("Expected error without Drive credentials")
	}
	if _, err := os.Stat(filepath.Join(scratch, "face_2025-04-01_10-00-00.000.jpg")); err != nil {
		t.Errorf("Pending capture must stay on disk: %v", err)
	}

	// The orphan is adopted into the ledger even though nothing was uploaded.
	out, err := execute(t, "captures", "--status", "pending")
	if err != nil {
		t.Fatalf("captures failed: %v", err)
	}
	if !strings.Contains(out, "face_2025-04-01_10-00-00.000.jpg") {
		t.Errorf("Expected adopted capture in ledger:\n%s", out)
	}
}

func TestRetryCommand_ScratchInUse(t *testing.T) {
	dir := t.TempDir()
	scratch := filepath.Join(dir, "captures")
	lock, err := capture.LockScratch(scratch)
	if err != nil {
		t.Fatalf("LockScratch failed: %v", err)
	}
	defer lock.Release()
	os.WriteFile(filepath.Join(scratch, "face_2025-04-01_10-00-00.000.jpg"), []byte("jpeg"), 0644)

	t.Setenv("DB_PATH", filepath.Join(dir, "ledger.db"))
	t.Setenv("SCRATCH_DIR", scratch)

	if _, err := execute(t, "retry"); !errors.Is(err, capture.ErrScratchBusy) {
		t.Fatalf("Expected ErrScratchBusy, got %v", err)
	}

	// Nothing was adopted behind the live run's back.
	out, err := execute(t, "captures")
	if err != nil {
		t.Fatalf("captures failed: %v", err)
	}
	if !strings.Contains(out, "No captures found") {
		t.Errorf("Expected untouched ledger:\n%s", out)
	}
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "--version")
	if err != nil {
		t.Fatalf("--version failed: %v", err)
	}
	if strings.TrimSpace(out) != Version {
		t.Errorf("Expected %s, got %q", Version, out)
	}
}
