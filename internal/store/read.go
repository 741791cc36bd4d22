package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/roach88/profilegen/internal/engine"
	"github.com/roach88/profilegen/internal/ir"
)

// ErrRunNotFound is returned by ReadRun for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// RunRecord is a stored run. The counts are filled in on read.
type RunRecord struct {
	ID            string          `json:"id"`
	ProfileHash   string          `json:"profile_hash"`
	Description   string          `json:"description,omitempty"`
	Fields        []string        `json:"fields"`
	Settings      engine.Settings `json:"settings"`
	StartedAt     time.Time       `json:"started_at"`
	EngineVersion string          `json:"engine_version"`
	RowSpecCount  int             `json:"row_specs"`
	RowCount      int             `json:"rows"`
}

// RowSpecRecord is a stored RowSpec: its walk index, content hash and
// canonical JSON description.
type RowSpecRecord struct {
	Index int
	Hash  string
	Spec  string
}

// RowRecord is a stored row.
type RowRecord struct {
	Seq      int64
	RowSpec  int
	Violated string
	Hash     string
	Values   ir.Row
}

const runColumns = `
	r.id, r.profile_hash, r.description, r.fields, r.settings, r.started_at, r.engine_version,
	(SELECT COUNT(*) FROM row_specs s WHERE s.run_id = r.id),
	(SELECT COUNT(*) FROM rows w WHERE w.run_id = r.id)
`

// ReadRun returns a run by ID, or ErrRunNotFound.
func (s *Store) ReadRun(ctx context.Context, id string) (RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs r WHERE r.id = ?`, id)
	rec, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, errors.Wrapf(ErrRunNotFound, "read run %s", id)
	}
	return rec, err
}

// ListRuns returns every stored run, oldest first.
// Returns an empty slice (not nil) when the store holds no runs.
func (s *Store) ListRuns(ctx context.Context) ([]RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM runs r
		ORDER BY r.started_at ASC, r.id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, errors.Wrap(err, "query runs")
	}
	defer rows.Close()

	runs := []RunRecord{}
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate runs")
	}
	return runs, nil
}

// ReadRowSpecs returns the RowSpecs of a run in walk order.
func (s *Store) ReadRowSpecs(ctx context.Context, runID string) ([]RowSpecRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT idx, hash, spec
		FROM row_specs
		WHERE run_id = ?
		ORDER BY idx ASC
	`, runID)
	if err != nil {
		return nil, errors.Wrap(err, "query row specs")
	}
	defer rows.Close()

	specs := []RowSpecRecord{}
	for rows.Next() {
		var rec RowSpecRecord
		if err := rows.Scan(&rec.Index, &rec.Hash, &rec.Spec); err != nil {
			return nil, errors.Wrap(err, "scan row spec")
		}
		specs = append(specs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate row specs")
	}
	return specs, nil
}

// ReadRows returns the rows of a run ordered by seq.
func (s *Store) ReadRows(ctx context.Context, runID string) ([]RowRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, row_spec, violated, hash, data
		FROM rows
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, errors.Wrap(err, "query rows")
	}
	defer rows.Close()

	out := []RowRecord{}
	for rows.Next() {
		var rec RowRecord
		var data string
		if err := rows.Scan(&rec.Seq, &rec.RowSpec, &rec.Violated, &rec.Hash, &data); err != nil {
			return nil, errors.Wrap(err, "scan row")
		}
		values, err := unmarshalRow(data)
		if err != nil {
			return nil, errors.Wrapf(err, "row %d", rec.Seq)
		}
		rec.Values = values
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate rows")
	}
	return out, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (RunRecord, error) {
	var rec RunRecord
	var fields, settings, startedAt string
	if err := row.Scan(
		&rec.ID, &rec.ProfileHash, &rec.Description, &fields, &settings, &startedAt,
		&rec.EngineVersion, &rec.RowSpecCount, &rec.RowCount,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RunRecord{}, err
		}
		return RunRecord{}, errors.Wrap(err, "scan run")
	}

	var err error
	if rec.Fields, err = unmarshalFields(fields); err != nil {
		return RunRecord{}, err
	}
	if rec.Settings, err = unmarshalSettings(settings); err != nil {
		return RunRecord{}, err
	}
	if rec.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
		return RunRecord{}, errors.Wrap(err, "parse started_at")
	}
	return rec, nil
}
