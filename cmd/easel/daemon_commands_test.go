package main

import (
	"context"
	"testing"

	"easel/internal/runstore"
	"easel/internal/testsupport"
)

func startDaemonForCLI(t *testing.T) *testsupport.DaemonFixture {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	return testsupport.StartDaemon(t, testsupport.NewConfig(t))
}

func TestStatusCommandAgainstDaemon(t *testing.T) {
	f := startDaemonForCLI(t)

	out, _, err := runCLI(t, "--address", f.Addr, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Daemon:      running")
	requireContains(t, out, "Active runs: 0")
	requireContains(t, out, f.Cfg.Paths.DataDir)
}

func TestRunsCommandListsRecords(t *testing.T) {
	f := startDaemonForCLI(t)

	ctx := context.Background()
	if _, err := f.Store.Create(ctx, "run-done", runstore.Options{DPI: 300, Mockups: true}); err != nil {
		t.Fatalf("create run: %v", err)
	}
	if err := f.Store.Finish(ctx, "run-done", runstore.StatusCompleted, "", "", "runs/run-done.zip", 1024); err != nil {
		t.Fatalf("finish run: %v", err)
	}
	if _, err := f.Store.Create(ctx, "run-live", runstore.Options{DPI: 300}); err != nil {
		t.Fatalf("create run: %v", err)
	}

	out, _, err := runCLI(t, "--address", f.Addr, "runs")
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	requireContains(t, out, "run-done")
	requireContains(t, out, "run-live")
	requireContains(t, out, "mockups")
	requireContains(t, out, "runs/run-done.zip (1024 bytes)")

	out, _, err = runCLI(t, "--address", f.Addr, "runs", "--status", "running")
	if err != nil {
		t.Fatalf("runs --status running: %v", err)
	}
	requireContains(t, out, "run-live")
	if out, _, err = runCLI(t, "--address", f.Addr, "runs", "--status", "failed"); err != nil {
		t.Fatalf("runs --status failed: %v", err)
	} else {
		requireContains(t, out, "No runs recorded.")
	}
}

func TestCancelCommandReportsFinishedRun(t *testing.T) {
	f := startDaemonForCLI(t)

	ctx := context.Background()
	if _, err := f.Store.Create(ctx, "run-done", runstore.Options{DPI: 300}); err != nil {
		t.Fatalf("create run: %v", err)
	}
	if err := f.Store.Finish(ctx, "run-done", runstore.StatusCompleted, "", "", "runs/run-done.zip", 10); err != nil {
		t.Fatalf("finish run: %v", err)
	}

	out, _, err := runCLI(t, "--address", f.Addr, "cancel", "run-done")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	requireContains(t, out, "Run run-done:")
}

func TestCancelCommandAcknowledgesUnknownRun(t *testing.T) {
	f := startDaemonForCLI(t)

	out, _, err := runCLI(t, "--address", f.Addr, "cancel", "missing")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	requireContains(t, out, "Cancellation requested for missing")
}
