package persist

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/forgesim/server/internal/sim"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// JournalRepo stores one row per published tick plus its inputs, so a run
// can be replayed and its checksums compared against a rerun.
type JournalRepo struct {
	db *DB
}

func NewJournalRepo(db *DB) *JournalRepo {
	return &JournalRepo{db: db}
}

var _ sim.Recorder = (*JournalRepo)(nil)

// Record writes a tick and its inputs in a single transaction.
func (r *JournalRepo) Record(ctx context.Context, rec sim.TickRecord) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("journal begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO tick_journal (run_id, tick, checksum, active, input_count)
		 VALUES ($1, $2, $3, $4, $5)`,
		rec.RunID.String(), int64(rec.Tick), int64(rec.Checksum), rec.Active, len(rec.Inputs),
	); err != nil {
		return fmt.Errorf("journal insert tick %d: %w", rec.Tick, err)
	}

	for seq, in := range rec.Inputs {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("journal encode %s input: %w", in.Kind(), err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO tick_inputs (run_id, tick, seq, kind, payload)
			 VALUES ($1, $2, $3, $4, $5)`,
			rec.RunID.String(), int64(rec.Tick), seq, in.Kind(), payload,
		); err != nil {
			return fmt.Errorf("journal insert input %d: %w", seq, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("journal commit: %w", err)
	}
	r.db.log.Debug("tick journaled",
		zap.Uint64("tick", rec.Tick),
		zap.Int("inputs", len(rec.Inputs)),
	)
	return nil
}

// TickChecksum is one journaled checksum.
type TickChecksum struct {
	Tick     uint64
	Checksum uint64
}

// Checksums returns every journaled checksum of a run in tick order.
func (r *JournalRepo) Checksums(ctx context.Context, runID uuid.UUID) ([]TickChecksum, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT tick, checksum FROM tick_journal WHERE run_id = $1 ORDER BY tick`,
		runID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("query checksums: %w", err)
	}
	defer rows.Close()

	var out []TickChecksum
	for rows.Next() {
		var tick, sum int64
		if err := rows.Scan(&tick, &sum); err != nil {
			return nil, fmt.Errorf("scan checksum: %w", err)
		}
		out = append(out, TickChecksum{Tick: uint64(tick), Checksum: uint64(sum)})
	}
	return out, rows.Err()
}

// JournaledInput is one input row as stored.
type JournaledInput struct {
	Seq     int
	Kind    string
	Payload json.RawMessage
}

// Inputs returns the inputs journaled for one tick in submission order.
func (r *JournalRepo) Inputs(ctx context.Context, runID uuid.UUID, tick uint64) ([]JournaledInput, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT seq, kind, payload FROM tick_inputs
		 WHERE run_id = $1 AND tick = $2 ORDER BY seq`,
		runID.String(), int64(tick),
	)
	if err != nil {
		return nil, fmt.Errorf("query inputs: %w", err)
	}
	defer rows.Close()

	var out []JournaledInput
	for rows.Next() {
		var in JournaledInput
		var payload []byte
		if err := rows.Scan(&in.Seq, &in.Kind, &payload); err != nil {
			return nil, fmt.Errorf("scan input: %w", err)
		}
		in.Payload = payload
		out = append(out, in)
	}
	return out, rows.Err()
}

// DeleteRun removes every row of a run.
func (r *JournalRepo) DeleteRun(ctx context.Context, runID uuid.UUID) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM tick_journal WHERE run_id = $1`, runID.String())
	return err
}
