package store_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"cutagent/internal/media/ffprobe"
	"cutagent/internal/store"
	"cutagent/internal/testsupport"
)

func sampleInfo(path string) ffprobe.Info {
	return ffprobe.Info{
		Path:       path,
		Duration:   12.5,
		FormatName: "mov,mp4,m4a,3gp,3g2,mj2",
		SizeBytes:  4096,
		Streams: []ffprobe.StreamInfo{
			{Index: 0, CodecType: "video", CodecName: "h264", Width: 1280, Height: 720},
			{Index: 1, CodecType: "audio", CodecName: "aac"},
		},
	}
}

func TestOpenCreatesDatabase(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	if st.Path() != cfg.DatabasePath() {
		t.Fatalf("expected path %q, got %q", cfg.DatabasePath(), st.Path())
	}
	if filepath.Dir(st.Path()) != cfg.Paths.StateDir {
		t.Fatalf("database should live in the state dir, got %q", st.Path())
	}
}

func TestReopenKeepsData(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx := context.Background()

	first, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	run := store.Run{
		ID:         "run-1",
		EDLSHA256:  "abc",
		OutputPath: "/tmp/out.mp4",
		Status:     store.RunSucceeded,
		OpCount:    2,
		StartedAt:  time.Now().Add(-time.Minute),
		FinishedAt: time.Now(),
	}
	if err := first.RecordRun(ctx, run); err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	second := testsupport.MustOpenStore(t, cfg)
	runs, err := second.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != "run-1" {
		t.Fatalf("expected the recorded run after reopening, got %#v", runs)
	}
}

func TestProbeCacheHonoursFileStamp(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	path := "/media/clip.mp4"
	mtime := time.Date(2026, 3, 1, 10, 0, 0, 123456789, time.UTC)
	stamp := store.FileStamp{Size: 4096, ModTime: mtime}

	if _, ok, err := st.LookupProbe(ctx, path, stamp); err != nil || ok {
		t.Fatalf("expected miss on empty cache, got ok=%v err=%v", ok, err)
	}

	if err := st.SaveProbe(ctx, path, stamp, sampleInfo(path)); err != nil {
		t.Fatalf("SaveProbe failed: %v", err)
	}

	info, ok, err := st.LookupProbe(ctx, path, stamp)
	if err != nil || !ok {
		t.Fatalf("expected cache hit, got ok=%v err=%v", ok, err)
	}
	if info.Duration != 12.5 || len(info.Streams) != 2 || !info.HasAudio() {
		t.Fatalf("unexpected cached info: %#v", info)
	}

	cases := []struct {
		name  string
		stamp store.FileStamp
	}{
		{name: "size changed", stamp: store.FileStamp{Size: 4097, ModTime: mtime}},
		{name: "mtime changed", stamp: store.FileStamp{Size: 4096, ModTime: mtime.Add(time.Nanosecond)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, ok, err := st.LookupProbe(ctx, path, tc.stamp); err != nil || ok {
				t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
			}
		})
	}
}

func TestSaveProbeReplacesEntry(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	path := "/media/clip.mp4"
	old := store.FileStamp{Size: 1, ModTime: time.Unix(100, 0)}
	fresh := store.FileStamp{Size: 2, ModTime: time.Unix(200, 0)}

	if err := st.SaveProbe(ctx, path, old, sampleInfo(path)); err != nil {
		t.Fatalf("SaveProbe failed: %v", err)
	}
	updated := sampleInfo(path)
	updated.Duration = 30
	if err := st.SaveProbe(ctx, path, fresh, updated); err != nil {
		t.Fatalf("SaveProbe failed: %v", err)
	}

	if _, ok, _ := st.LookupProbe(ctx, path, old); ok {
		t.Fatal("old stamp should no longer hit")
	}
	info, ok, err := st.LookupProbe(ctx, path, fresh)
	if err != nil || !ok {
		t.Fatalf("expected hit for fresh stamp, got ok=%v err=%v", ok, err)
	}
	if info.Duration != 30 {
		t.Fatalf("expected updated duration 30, got %v", info.Duration)
	}
}

func TestPruneProbes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	stamp := store.FileStamp{Size: 1, ModTime: time.Unix(100, 0)}
	if err := st.SaveProbe(ctx, "/media/a.mp4", stamp, sampleInfo("/media/a.mp4")); err != nil {
		t.Fatalf("SaveProbe failed: %v", err)
	}
	if err := st.PruneProbes(ctx, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("PruneProbes failed: %v", err)
	}
	if _, ok, _ := st.LookupProbe(ctx, "/media/a.mp4", stamp); ok {
		t.Fatal("expected pruned entry to be gone")
	}
}

func TestListRunsNewestFirstWithLimit(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		run := store.Run{
			ID:         fmt.Sprintf("run-%d", i),
			EDLSHA256:  "sha",
			OutputPath: "/out/final.mp4",
			Status:     store.RunSucceeded,
			OpCount:    i + 1,
			StartedAt:  base.Add(time.Duration(i) * time.Minute),
			FinishedAt: base.Add(time.Duration(i)*time.Minute + 30*time.Second),
		}
		if i == 3 {
			run.Status = store.RunFailed
			run.ErrorCode = "FFMPEG_FAILED"
			run.Warnings = []string{"Op 0: trim start snapped"}
		}
		if err := st.RecordRun(ctx, run); err != nil {
			t.Fatalf("RecordRun %d failed: %v", i, err)
		}
	}

	runs, err := st.ListRuns(ctx, 3)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}
	want := []string{"run-4", "run-3", "run-2"}
	for i, id := range want {
		if runs[i].ID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, runs[i].ID)
		}
	}

	failed := runs[1]
	if failed.Status != store.RunFailed || failed.ErrorCode != "FFMPEG_FAILED" {
		t.Fatalf("unexpected failed run: %#v", failed)
	}
	if len(failed.Warnings) != 1 {
		t.Fatalf("expected one warning, got %v", failed.Warnings)
	}
	if !failed.StartedAt.Equal(base.Add(3 * time.Minute)) {
		t.Fatalf("started_at not preserved: %v", failed.StartedAt)
	}
	if runs[0].Warnings == nil || len(runs[0].Warnings) != 0 {
		t.Fatalf("expected empty warning list, got %#v", runs[0].Warnings)
	}
	if runs[0].ErrorCode != "" {
		t.Fatalf("expected no error code, got %q", runs[0].ErrorCode)
	}
}

func TestOpenRejectsNewerSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	bumpSchemaVersion(t, cfg.DatabasePath())

	if _, err := store.Open(cfg); !errors.Is(err, store.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func bumpSchemaVersion(t *testing.T, path string) {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open raw db: %v", err)
	}
	defer db.Close()
	if _, err := db.Exec("UPDATE schema_version SET version = version + 1"); err != nil {
		t.Fatalf("bump schema version: %v", err)
	}
}
