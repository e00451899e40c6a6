package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"restaurant-foh/internal/domain"
)

type PrintRepository struct {
	pool *pgxpool.Pool
}

func NewPrintRepository(pool *pgxpool.Pool) *PrintRepository {
	return &PrintRepository{pool: pool}
}

const jobColumns = `id, order_item_id, status, attempts, created_at, updated_at`

func scanJob(row pgx.Row) (domain.PrintJob, error) {
	var j domain.PrintJob
	err := row.Scan(&j.ID, &j.OrderItemID, &j.Status, &j.Attempts, &j.CreatedAt, &j.UpdatedAt)
	return j, err
}

func (r *PrintRepository) CreateJob(ctx context.Context, orderItemID int64) (domain.PrintJob, error) {
	j, err := scanJob(r.pool.QueryRow(ctx, `
		INSERT INTO print_jobs (order_item_id) VALUES ($1)
		RETURNING `+jobColumns, orderItemID))
	if err != nil {
		return domain.PrintJob{}, fmt.Errorf("create print job: %w", err)
	}
	return j, nil
}

func (r *PrintRepository) JobsByItem(ctx context.Context, orderItemID int64) ([]domain.PrintJob, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+jobColumns+` FROM print_jobs
		WHERE order_item_id = $1
		ORDER BY id DESC
	`, orderItemID)
	if err != nil {
		return nil, fmt.Errorf("list print jobs: %w", err)
	}
	defer rows.Close()

	var out []domain.PrintJob
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan print job: %w", err)
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func (r *PrintRepository) JobByID(ctx context.Context, id int64) (domain.PrintJob, error) {
	j, err := scanJob(r.pool.QueryRow(ctx, `
		SELECT `+jobColumns+` FROM print_jobs WHERE id = $1
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.PrintJob{}, fmt.Errorf("print job %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return domain.PrintJob{}, fmt.Errorf("get print job: %w", err)
	}
	return j, nil
}

func (r *PrintRepository) SetJobStatus(ctx context.Context, id int64, status domain.PrintJobStatus) (domain.PrintJob, error) {
	j, err := scanJob(r.pool.QueryRow(ctx, `
		UPDATE print_jobs SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+jobColumns, id, status))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.PrintJob{}, fmt.Errorf("print job %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return domain.PrintJob{}, fmt.Errorf("update print job: %w", err)
	}
	return j, nil
}

// RetryJob requeues a job and counts the new attempt.
func (r *PrintRepository) RetryJob(ctx context.Context, id int64) (domain.PrintJob, error) {
	j, err := scanJob(r.pool.QueryRow(ctx, `
		UPDATE print_jobs SET status = $2, attempts = attempts + 1, updated_at = now()
		WHERE id = $1
		RETURNING `+jobColumns, id, domain.PrintPending))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.PrintJob{}, fmt.Errorf("print job %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return domain.PrintJob{}, fmt.Errorf("retry print job: %w", err)
	}
	return j, nil
}

func (r *PrintRepository) CancelOpenJobsForItem(ctx context.Context, orderItemID int64) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE print_jobs SET status = $2, updated_at = now()
		WHERE order_item_id = $1 AND status IN ('pending', 'in_progress', 'failed')
	`, orderItemID, domain.PrintCancelled)
	if err != nil {
		return fmt.Errorf("cancel print jobs: %w", err)
	}
	return nil
}
