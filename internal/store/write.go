package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/roach88/profilegen/internal/engine"
	"github.com/roach88/profilegen/internal/fieldspec"
	"github.com/roach88/profilegen/internal/ir"
)

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// RecordFromRun returns the run record of an engine run.
func RecordFromRun(run *engine.Run) RunRecord {
	return RunRecord{
		ID:            run.ID,
		ProfileHash:   run.ProfileHash,
		Description:   run.Description,
		Fields:        run.Fields.Names(),
		Settings:      run.Settings,
		StartedAt:     run.StartedAt,
		EngineVersion: ir.EngineVersion,
		RowSpecCount:  len(run.RowSpecs),
		RowCount:      len(run.Rows),
	}
}

// SaveRun writes a run, its RowSpecs and its rows in one transaction.
// Either everything is stored or nothing is.
func (s *Store) SaveRun(ctx context.Context, run *engine.Run) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := writeRun(ctx, tx, RecordFromRun(run)); err != nil {
			return err
		}
		if err := writeRowSpecs(ctx, tx, run.ID, run.RowSpecs); err != nil {
			return err
		}
		return writeRows(ctx, tx, run.ID, run.Rows)
	})
}

// WriteRun inserts a run record.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - duplicate IDs are silently ignored.
func (s *Store) WriteRun(ctx context.Context, rec RunRecord) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return writeRun(ctx, tx, rec)
	})
}

// WriteRowSpecs inserts the RowSpecs of a run, indexed in slice order.
//
// Note: The run must exist (foreign key constraint).
func (s *Store) WriteRowSpecs(ctx context.Context, runID string, specs []fieldspec.RowSpec) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return writeRowSpecs(ctx, tx, runID, specs)
	})
}

// WriteRows inserts generated rows.
//
// Note: Each row's RowSpec must already be stored (foreign key constraint).
func (s *Store) WriteRows(ctx context.Context, runID string, rows []engine.Row) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return writeRows(ctx, tx, runID, rows)
	})
}

func writeRun(ctx context.Context, db execer, rec RunRecord) error {
	fields, err := marshalFields(rec.Fields)
	if err != nil {
		return errors.Wrap(err, "write run")
	}
	settings, err := marshalSettings(rec.Settings)
	if err != nil {
		return errors.Wrap(err, "write run")
	}
	version := rec.EngineVersion
	if version == "" {
		version = ir.EngineVersion
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO runs
		(id, profile_hash, description, fields, settings, started_at, engine_version)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		rec.ID,
		rec.ProfileHash,
		rec.Description,
		fields,
		settings,
		rec.StartedAt.UTC().Format(time.RFC3339Nano),
		version,
	)
	return errors.Wrapf(err, "write run %s", rec.ID)
}

func writeRowSpecs(ctx context.Context, db execer, runID string, specs []fieldspec.RowSpec) error {
	for i, rs := range specs {
		spec, hash, err := marshalRowSpec(rs)
		if err != nil {
			return errors.Wrapf(err, "write row spec %d", i)
		}
		_, err = db.ExecContext(ctx, `
			INSERT INTO row_specs (run_id, idx, hash, spec)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(run_id, idx) DO NOTHING
		`, runID, i, hash, spec)
		if err != nil {
			return errors.Wrapf(err, "write row spec %d", i)
		}
	}
	return nil
}

func writeRows(ctx context.Context, db execer, runID string, rows []engine.Row) error {
	for _, r := range rows {
		data, hash, err := marshalRow(r.Values)
		if err != nil {
			return errors.Wrapf(err, "write row %d", r.Seq)
		}
		_, err = db.ExecContext(ctx, `
			INSERT INTO rows (run_id, seq, row_spec, violated, hash, data)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(run_id, seq) DO NOTHING
		`, runID, r.Seq, r.RowSpec, r.Violated, hash, data)
		if err != nil {
			return errors.Wrapf(err, "write row %d", r.Seq)
		}
	}
	return nil
}
