package ingest

import (
	"context"
	"database/sql"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Save(ctx context.Context, run *Run) error {
	query := `INSERT INTO ingestion_runs (input_dir, sample_limit, status) VALUES ($1, $2, $3) RETURNING id, created_at, updated_at`
	return r.db.QueryRowContext(ctx, query, run.InputDir, run.SampleLimit, run.Status).
		Scan(&run.ID, &run.CreatedAt, &run.UpdatedAt)
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (*Run, error) {
	run := &Run{}
	query := `SELECT id, input_dir, sample_limit, status, documents, indexed, skipped, chunks, COALESCE(error, ''), created_at, updated_at FROM ingestion_runs WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&run.ID, &run.InputDir, &run.SampleLimit, &run.Status,
		&run.Documents, &run.Indexed, &run.Skipped, &run.Chunks,
		&run.Error, &run.CreatedAt, &run.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return run, nil
}

func (r *PostgresRepo) List(ctx context.Context) ([]Run, error) {
	query := `SELECT id, input_dir, sample_limit, status, documents, indexed, skipped, chunks, COALESCE(error, ''), created_at, updated_at FROM ingestion_runs ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(
			&run.ID, &run.InputDir, &run.SampleLimit, &run.Status,
			&run.Documents, &run.Indexed, &run.Skipped, &run.Chunks,
			&run.Error, &run.CreatedAt, &run.UpdatedAt); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (r *PostgresRepo) MarkProcessing(ctx context.Context, id string) error {
	query := `UPDATE ingestion_runs SET status = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, StatusProcessing, id)
	return err
}

func (r *PostgresRepo) Complete(ctx context.Context, id string, documents, indexed, skipped, chunks int) error {
	query := `UPDATE ingestion_runs SET status = $1, documents = $2, indexed = $3, skipped = $4, chunks = $5, updated_at = NOW() WHERE id = $6`
	_, err := r.db.ExecContext(ctx, query, StatusCompleted, documents, indexed, skipped, chunks, id)
	return err
}

func (r *PostgresRepo) Fail(ctx context.Context, id, message string) error {
	query := `UPDATE ingestion_runs SET status = $1, error = $2, updated_at = NOW() WHERE id = $3`
	_, err := r.db.ExecContext(ctx, query, StatusFailed, message, id)
	return err
}

func (r *PostgresRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ingestion_runs`).Scan(&count)
	return count, err
}
