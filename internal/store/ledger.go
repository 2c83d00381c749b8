package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/voxraw/internal/frame"
	"github.com/roach88/voxraw/internal/grid"
)

// ErrRunNotFound is returned when a run ID is not in the ledger.
var ErrRunNotFound = errors.New("run not found")

// Run statuses.
const (
	StatusRunning = "running"
	StatusOK      = "ok"
	StatusFailed  = "failed"
)

// RunInfo describes a run at the moment it starts.
type RunInfo struct {
	InputDir  string
	OutputDir string
	// Settings is stored as JSON.
	Settings any
}

// RunRecord is one row of the runs table.
type RunRecord struct {
	ID         string        `json:"id"`
	Seq        int64         `json:"seq"`
	InputDir   string        `json:"input_dir"`
	OutputDir  string        `json:"output_dir"`
	Settings   string        `json:"settings"`
	Status     string        `json:"status"`
	Error      string        `json:"error,omitempty"`
	Summary    frame.Summary `json:"summary"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at,omitzero"`
}

// FrameRecord is one row of the frames table.
type FrameRecord struct {
	Frame   string   `json:"frame"`
	Models  []string `json:"models"`
	Skipped []string `json:"skipped,omitempty"`
	Failed  int      `json:"failed"`
}

// OutputRecord is one row of the outputs table.
type OutputRecord struct {
	RunID   string     `json:"run_id"`
	Frame   string     `json:"frame"`
	Channel string     `json:"channel"`
	Path    string     `json:"path"`
	Dim     grid.Coord `json:"dim"`
	Bytes   int64      `json:"bytes"`
	SHA256  string     `json:"sha256"`
}

// BeginRun inserts a new run in the running state and returns its ID.
func (s *Store) BeginRun(ctx context.Context, info RunInfo) (string, error) {
	settings, err := json.Marshal(info.Settings)
	if err != nil {
		return "", fmt.Errorf("begin run: marshal settings: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin run: begin tx: %w", err)
	}
	defer tx.Rollback()

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM runs`).Scan(&seq); err != nil {
		return "", fmt.Errorf("begin run: next seq: %w", err)
	}

	id := s.ids.Generate()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, seq, input_dir, output_dir, settings, status, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, id, seq, info.InputDir, info.OutputDir, string(settings), StatusRunning, formatTime(s.now()))
	if err != nil {
		return "", fmt.Errorf("begin run: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("begin run: commit: %w", err)
	}
	return id, nil
}

// FinishRun stores the run's summary. A non-nil runErr marks it failed.
func (s *Store) FinishRun(ctx context.Context, runID string, sum frame.Summary, runErr error) error {
	status, msg := StatusOK, ""
	if runErr != nil {
		status, msg = StatusFailed, runErr.Error()
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET
			status = ?, error = ?,
			frames = ?, empty_frames = ?, models = ?, skipped = ?, files = ?, failed_files = ?,
			finished_at = ?
		WHERE id = ?
	`, status, msg,
		sum.Frames, sum.EmptyFrames, sum.Models, sum.SkippedModels, sum.Files, sum.FailedFiles,
		formatTime(s.now()), runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish run %s: %w", runID, ErrRunNotFound)
	}
	return nil
}

// Recorder returns a frame.Recorder that writes into the given run.
func (s *Store) Recorder(runID string) frame.Recorder {
	return &runRecorder{s: s, runID: runID}
}

type runRecorder struct {
	s     *Store
	runID string
	seq   int64
}

func (r *runRecorder) RecordFrame(ctx context.Context, fr frame.FrameResult) error {
	r.seq++
	return r.s.writeFrame(ctx, r.runID, r.seq, fr)
}

// writeFrame inserts a frame and its outputs in one transaction.
func (s *Store) writeFrame(ctx context.Context, runID string, seq int64, fr frame.FrameResult) error {
	models, err := json.Marshal(nonNil(fr.Models))
	if err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	skipped, err := json.Marshal(nonNil(fr.Skipped))
	if err != nil {
		return fmt.Errorf("write frame: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write frame: begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO frames (run_id, seq, frame, models, skipped, failed)
		VALUES (?, ?, ?, ?, ?, ?)
	`, runID, seq, fr.Frame, string(models), string(skipped), fr.Failed)
	if err != nil {
		return fmt.Errorf("write frame %s: %w", fr.Frame, err)
	}

	for _, out := range fr.Outputs {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO outputs (run_id, frame, channel_idx, channel, path, dx, dy, dz, bytes, sha256)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, runID, fr.Frame, int(out.Channel), out.Channel.String(), out.Path,
			out.Dim.X, out.Dim.Y, out.Dim.Z, out.Bytes, out.SHA256)
		if err != nil {
			return fmt.Errorf("write output %s: %w", out.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write frame: commit: %w", err)
	}
	return nil
}

const runColumns = `
	id, seq, input_dir, output_dir, settings, status, error,
	frames, empty_frames, models, skipped, files, failed_files,
	started_at, finished_at`

// ListRuns returns every run ordered by seq.
//
// Returns an empty slice (not nil) if the ledger is empty.
func (s *Store) ListRuns(ctx context.Context) ([]RunRecord, error) {
	rows, err := s.Query(ctx, `SELECT `+runColumns+` FROM runs ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []RunRecord{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// GetRun returns one run by ID.
func (s *Store) GetRun(ctx context.Context, runID string) (RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, fmt.Errorf("get run %s: %w", runID, ErrRunNotFound)
	}
	return run, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (RunRecord, error) {
	var (
		r        RunRecord
		started  string
		finished sql.NullString
	)
	err := row.Scan(&r.ID, &r.Seq, &r.InputDir, &r.OutputDir, &r.Settings, &r.Status, &r.Error,
		&r.Summary.Frames, &r.Summary.EmptyFrames, &r.Summary.Models, &r.Summary.SkippedModels,
		&r.Summary.Files, &r.Summary.FailedFiles, &started, &finished)
	if err != nil {
		return r, fmt.Errorf("scan run: %w", err)
	}
	if r.StartedAt, err = parseTime(started); err != nil {
		return r, err
	}
	if finished.Valid {
		if r.FinishedAt, err = parseTime(finished.String); err != nil {
			return r, err
		}
	}
	return r, nil
}

// ReadFrames returns the frames of a run in processing order.
func (s *Store) ReadFrames(ctx context.Context, runID string) ([]FrameRecord, error) {
	rows, err := s.Query(ctx, `
		SELECT frame, models, skipped, failed
		FROM frames
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query frames: %w", err)
	}
	defer rows.Close()

	frames := []FrameRecord{}
	for rows.Next() {
		var (
			f               FrameRecord
			models, skipped string
		)
		if err := rows.Scan(&f.Frame, &models, &skipped, &f.Failed); err != nil {
			return nil, fmt.Errorf("scan frame: %w", err)
		}
		if err := json.Unmarshal([]byte(models), &f.Models); err != nil {
			return nil, fmt.Errorf("decode frame models: %w", err)
		}
		if err := json.Unmarshal([]byte(skipped), &f.Skipped); err != nil {
			return nil, fmt.Errorf("decode frame skipped: %w", err)
		}
		if len(f.Skipped) == 0 {
			f.Skipped = nil
		}
		frames = append(frames, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate frames: %w", err)
	}
	return frames, nil
}

// ReadOutputs returns a run's outputs ordered by frame, then channel.
func (s *Store) ReadOutputs(ctx context.Context, runID string) ([]OutputRecord, error) {
	return s.queryOutputs(ctx, `
		SELECT o.run_id, o.frame, o.channel, o.path, o.dx, o.dy, o.dz, o.bytes, o.sha256
		FROM outputs o
		JOIN frames f ON f.run_id = o.run_id AND f.frame = o.frame
		WHERE o.run_id = ?
		ORDER BY f.seq ASC, o.channel_idx ASC
	`, runID)
}

// OutputsByHash returns every recorded output with the given SHA-256,
// oldest run first.
func (s *Store) OutputsByHash(ctx context.Context, sha string) ([]OutputRecord, error) {
	return s.queryOutputs(ctx, `
		SELECT o.run_id, o.frame, o.channel, o.path, o.dx, o.dy, o.dz, o.bytes, o.sha256
		FROM outputs o
		JOIN runs r ON r.id = o.run_id
		WHERE o.sha256 = ?
		ORDER BY r.seq ASC, o.frame COLLATE BINARY ASC, o.channel_idx ASC
	`, sha)
}

func (s *Store) queryOutputs(ctx context.Context, query string, args ...any) ([]OutputRecord, error) {
	rows, err := s.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query outputs: %w", err)
	}
	defer rows.Close()

	outputs := []OutputRecord{}
	for rows.Next() {
		var o OutputRecord
		if err := rows.Scan(&o.RunID, &o.Frame, &o.Channel, &o.Path,
			&o.Dim.X, &o.Dim.Y, &o.Dim.Z, &o.Bytes, &o.SHA256); err != nil {
			return nil, fmt.Errorf("scan output: %w", err)
		}
		outputs = append(outputs, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outputs: %w", err)
	}
	return outputs, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return t, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
