package postgres

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/jmoiron/sqlx"

	"github.com/matchpulse/trophy-tracker/internal/domain/tournament"
	qb "github.com/matchpulse/trophy-tracker/internal/platform/querybuilder"
)

// RecordRepository persists finished-tournament records in Postgres. The full
// record lives in a JSONB payload; the columns next to it exist so sweeps and
// stats can query without decoding every row.
type RecordRepository struct {
	db *sqlx.DB
}

func NewRecordRepository(db *sqlx.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

func (r *RecordRepository) Get(ctx context.Context, id int64) (tournament.Record, error) {
	query, args, err := qb.Select("*").From("finished_tournaments").
		Where(
			qb.Eq("league_id", id),
			qb.IsNull("deleted_at"),
		).
		ToSQL()
	if err != nil {
		return tournament.Record{}, fmt.Errorf("build get record query: %w", err)
	}

	var row recordTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return tournament.Record{}, tournament.ErrRecordNotFound
		}
		return tournament.Record{}, fmt.Errorf("get record league_id=%d: %w", id, err)
	}

	return decodeRecordRow(row)
}

func (r *RecordRepository) Set(ctx context.Context, record tournament.Record) error {
	payload, err := sonic.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode record league_id=%d: %w", record.ID, err)
	}

	insertModel := recordInsertModel{
		LeagueID:     record.ID,
		Name:         record.Name,
		Country:      nullableText(record.Country),
		Year:         record.Year,
		Payload:      string(payload),
		ShouldRemove: record.ShouldRemoveFromFinished,
	}
	if record.Validation != nil {
		insertModel.Confidence = nullableText(string(record.Validation.Confidence))
		insertModel.NextCheck = nullableText(record.Validation.NextCheck)
		insertModel.ChecksPerformed = record.Validation.ChecksPerformed
	}

	query, args, err := qb.InsertModel("finished_tournaments", insertModel, `ON CONFLICT (league_id)
DO UPDATE SET
    name = EXCLUDED.name,
    country = EXCLUDED.country,
    year = EXCLUDED.year,
    payload = EXCLUDED.payload,
    confidence = EXCLUDED.confidence,
    next_check = EXCLUDED.next_check,
    checks_performed = EXCLUDED.checks_performed,
    should_remove = EXCLUDED.should_remove,
    updated_at = NOW(),
    deleted_at = NULL`)
	if err != nil {
		return fmt.Errorf("build upsert record query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert record league_id=%d: %w", record.ID, err)
	}

	return nil
}

func (r *RecordRepository) Delete(ctx context.Context, id int64) error {
	query, args, err := qb.Update("finished_tournaments").
		SetExpr("deleted_at", "NOW()").
		SetExpr("updated_at", "NOW()").
		Where(
			qb.Eq("league_id", id),
			qb.IsNull("deleted_at"),
		).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build delete record query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete record league_id=%d: %w", id, err)
	}

	return nil
}

func (r *RecordRepository) Keys(ctx context.Context) ([]int64, error) {
	query, args, err := qb.Select("league_id").From("finished_tournaments").
		Where(qb.IsNull("deleted_at")).
		OrderBy("league_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list record keys query: %w", err)
	}

	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, query, args...); err != nil {
		return nil, fmt.Errorf("select record keys: %w", err)
	}

	return ids, nil
}

func (r *RecordRepository) List(ctx context.Context) ([]tournament.Record, error) {
	query, args, err := qb.Select("*").From("finished_tournaments").
		Where(qb.IsNull("deleted_at")).
		OrderBy("league_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list records query: %w", err)
	}

	var rows []recordTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select records: %w", err)
	}

	out := make([]tournament.Record, 0, len(rows))
	for _, row := range rows {
		record, err := decodeRecordRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}

	return out, nil
}

func decodeRecordRow(row recordTableModel) (tournament.Record, error) {
	var record tournament.Record
	if err := sonic.Unmarshal([]byte(row.Payload), &record); err != nil {
		return tournament.Record{}, fmt.Errorf("decode record payload league_id=%d: %w", row.LeagueID, err)
	}
	if record.ID == 0 {
		record.ID = row.LeagueID
	}
	record.ShouldRemoveFromFinished = row.ShouldRemove

	return record, nil
}
