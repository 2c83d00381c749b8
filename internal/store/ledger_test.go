package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/roach88/voxraw/internal/frame"
	"github.com/roach88/voxraw/internal/grid"
)

func TestBeginRun_AssignsIDAndSeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	id1, err := s.BeginRun(ctx, RunInfo{InputDir: "vdb", OutputDir: "raw", Settings: map[string]any{"dog": true}})
	if err != nil {
		t.Fatalf("BeginRun() failed: %v", err)
	}
	id2, err := s.BeginRun(ctx, RunInfo{InputDir: "vdb2", OutputDir: "raw2"})
	if err != nil {
		t.Fatalf("BeginRun() failed: %v", err)
	}
	if id1 != "run-1" || id2 != "run-2" {
		t.Fatalf("ids = %q, %q", id1, id2)
	}

	runs, err := s.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns() failed: %v", err)
	}
	want := []RunRecord{
		{
			ID: "run-1", Seq: 1, InputDir: "vdb", OutputDir: "raw",
			Settings: `{"dog":true}`, Status: StatusRunning,
			StartedAt: testEpoch.Add(1 * time.Second),
		},
		{
			ID: "run-2", Seq: 2, InputDir: "vdb2", OutputDir: "raw2",
			Settings: `null`, Status: StatusRunning,
			StartedAt: testEpoch.Add(2 * time.Second),
		},
	}
	if diff := cmp.Diff(want, runs); diff != "" {
		t.Errorf("ListRuns() mismatch (-want +got):\n%s", diff)
	}
}

func TestRecorder_WritesFramesAndOutputs(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	id, err := s.BeginRun(ctx, RunInfo{InputDir: "vdb", OutputDir: "raw"})
	if err != nil {
		t.Fatalf("BeginRun() failed: %v", err)
	}
	rec := s.Recorder(id)

	// Recorded out of lexical order; reads must follow processing order.
	frames := []frame.FrameResult{
		createTestFrame("0002", []string{"foo"}, frame.Red, frame.Alpha),
		createTestFrame("0001", []string{"bar", "foo"}, frame.Red, frame.Green, frame.Blue, frame.Alpha),
		{Frame: "0003"},
	}
	frames[0].Skipped = []string{"broken.vdb"}
	frames[0].Failed = 2
	for _, fr := range frames {
		if err := rec.RecordFrame(ctx, fr); err != nil {
			t.Fatalf("RecordFrame(%s) failed: %v", fr.Frame, err)
		}
	}

	gotFrames, err := s.ReadFrames(ctx, id)
	if err != nil {
		t.Fatalf("ReadFrames() failed: %v", err)
	}
	wantFrames := []FrameRecord{
		{Frame: "0002", Models: []string{"foo"}, Skipped: []string{"broken.vdb"}, Failed: 2},
		{Frame: "0001", Models: []string{"bar", "foo"}},
		{Frame: "0003", Models: []string{}},
	}
	if diff := cmp.Diff(wantFrames, gotFrames); diff != "" {
		t.Errorf("ReadFrames() mismatch (-want +got):\n%s", diff)
	}

	outputs, err := s.ReadOutputs(ctx, id)
	if err != nil {
		t.Fatalf("ReadOutputs() failed: %v", err)
	}
	var got []string
	for _, o := range outputs {
		got = append(got, o.Frame+"/"+o.Channel)
	}
	want := []string{"0002/red", "0002/alpha", "0001/red", "0001/green", "0001/blue", "0001/alpha"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("output order mismatch (-want +got):\n%s", diff)
	}
	if outputs[0].Dim != (grid.Coord{X: 1, Y: 1, Z: 1}) || outputs[0].Bytes != 1 {
		t.Errorf("output[0] = %+v", outputs[0])
	}
}

func TestRecorder_DuplicateFrameFails(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	id, _ := s.BeginRun(ctx, RunInfo{})
	rec := s.Recorder(id)
	if err := rec.RecordFrame(ctx, createTestFrame("0001", []string{"a"}, frame.Red)); err != nil {
		t.Fatalf("first RecordFrame() failed: %v", err)
	}
	if err := rec.RecordFrame(ctx, createTestFrame("0001", []string{"a"}, frame.Red)); err == nil {
		t.Error("expected error recording the same frame twice")
	}

	outputs, err := s.ReadOutputs(ctx, id)
	if err != nil {
		t.Fatalf("ReadOutputs() failed: %v", err)
	}
	if len(outputs) != 1 {
		t.Errorf("got %d outputs, want 1 (failed frame must roll back)", len(outputs))
	}
}

func TestRecorder_UnknownRunViolatesForeignKey(t *testing.T) {
	s := createTestStore(t)
	err := s.Recorder("missing").RecordFrame(context.Background(), frame.FrameResult{Frame: "0001"})
	if err == nil {
		t.Error("expected foreign key error for unknown run")
	}
}

func TestFinishRun(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	ok, _ := s.BeginRun(ctx, RunInfo{})
	bad, _ := s.BeginRun(ctx, RunInfo{})

	sum := frame.Summary{Frames: 3, EmptyFrames: 1, Models: 4, SkippedModels: 1, Files: 8, FailedFiles: 0}
	if err := s.FinishRun(ctx, ok, sum, nil); err != nil {
		t.Fatalf("FinishRun(ok) failed: %v", err)
	}
	if err := s.FinishRun(ctx, bad, frame.Summary{Frames: 1}, errors.New("frame 0002: bad magic")); err != nil {
		t.Fatalf("FinishRun(bad) failed: %v", err)
	}

	got, err := s.GetRun(ctx, ok)
	if err != nil {
		t.Fatalf("GetRun() failed: %v", err)
	}
	if got.Status != StatusOK || got.Summary != sum || got.Error != "" {
		t.Errorf("ok run = %+v", got)
	}
	if !got.FinishedAt.Equal(testEpoch.Add(3 * time.Second)) {
		t.Errorf("FinishedAt = %v", got.FinishedAt)
	}

	got, err = s.GetRun(ctx, bad)
	if err != nil {
		t.Fatalf("GetRun() failed: %v", err)
	}
	if got.Status != StatusFailed || got.Error != "frame 0002: bad magic" {
		t.Errorf("failed run = %+v", got)
	}
}

func TestFinishRun_UnknownRun(t *testing.T) {
	s := createTestStore(t)
	err := s.FinishRun(context.Background(), "nope", frame.Summary{}, nil)
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("err = %v, want ErrRunNotFound", err)
	}
	_, err = s.GetRun(context.Background(), "nope")
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("err = %v, want ErrRunNotFound", err)
	}
}

func TestListRuns_Empty(t *testing.T) {
	s := createTestStore(t)
	runs, err := s.ListRuns(context.Background())
	if err != nil {
		t.Fatalf("ListRuns() failed: %v", err)
	}
	if runs == nil || len(runs) != 0 {
		t.Errorf("ListRuns() = %#v, want empty non-nil slice", runs)
	}
}

func TestOutputsByHash(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"0001", "0002"} {
		id, err := s.BeginRun(ctx, RunInfo{})
		if err != nil {
			t.Fatalf("BeginRun() failed: %v", err)
		}
		if err := s.Recorder(id).RecordFrame(ctx, createTestFrame(name, []string{"m"}, frame.Red, frame.Green)); err != nil {
			t.Fatalf("RecordFrame() failed: %v", err)
		}
	}

	got, err := s.OutputsByHash(ctx, "sha-green")
	if err != nil {
		t.Fatalf("OutputsByHash() failed: %v", err)
	}
	var ids []string
	for _, o := range got {
		ids = append(ids, o.RunID+":"+o.Frame)
	}
	if diff := cmp.Diff([]string{"run-1:0001", "run-2:0002"}, ids); diff != "" {
		t.Errorf("OutputsByHash() mismatch (-want +got):\n%s", diff)
	}
}

func TestUUIDv7Generator(t *testing.T) {
	var g UUIDv7Generator
	a, b := g.Generate(), g.Generate()
	if len(a) != 36 || a == b {
		t.Errorf("Generate() = %q, %q", a, b)
	}
	if a[14] != '7' {
		t.Errorf("Generate() = %q, want version 7", a)
	}
}

func TestFixedGenerator_Exhausted(t *testing.T) {
	g := NewFixedGenerator("only")
	if got := g.Generate(); got != "only" {
		t.Fatalf("Generate() = %q", got)
	}
	defer func() {
		if recover() == nil {
			t.Error("expected panic after ids exhausted")
		}
	}()
	g.Generate()
}
