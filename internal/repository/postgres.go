package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/minisoc-systems/minisoc/internal/models"
)

// PostgresAlertRepository implements AlertRepository using PostgreSQL.
// The single-open-alert invariant is enforced by a partial unique index on
// (alert_type, source_ip) WHERE status = 'OPEN'; Create relies on it via
// ON CONFLICT DO NOTHING so concurrent detection cycles cannot both insert.
type PostgresAlertRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresAlertRepository connects to PostgreSQL and verifies the
// connection with a ping.
func NewPostgresAlertRepository(ctx context.Context, connString string) (*PostgresAlertRepository, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresAlertRepository{pool: pool}, nil
}

const alertColumns = `id, alert_type, severity, source_ip, event_count,
	first_seen, last_seen, related_events, status, created_at, updated_at`

func (r *PostgresAlertRepository) Create(ctx context.Context, alert *models.Alert) error {
	query := `
		INSERT INTO alerts (id, alert_type, severity, source_ip, event_count,
			first_seen, last_seen, related_events, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (alert_type, source_ip) WHERE status = 'OPEN' DO NOTHING
		RETURNING created_at, updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		alert.ID, alert.AlertType, alert.Severity, alert.SourceIP,
		alert.EventCount, alert.FirstSeen, alert.LastSeen,
		alert.RelatedEvents, alert.Status,
	).Scan(&alert.CreatedAt, &alert.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrDuplicateAlert
		}
		return fmt.Errorf("failed to create alert: %w", err)
	}

	return nil
}

func (r *PostgresAlertRepository) FindOpen(ctx context.Context, alertType, sourceIP string) (*models.Alert, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM alerts
		WHERE alert_type = $1 AND source_ip = $2 AND status = 'OPEN'
		LIMIT 1
	`, alertColumns)

	alert, err := r.scanAlert(r.pool.QueryRow(ctx, query, alertType, sourceIP))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAlertNotFound
		}
		return nil, fmt.Errorf("failed to find open alert: %w", err)
	}
	return alert, nil
}

func (r *PostgresAlertRepository) List(ctx context.Context, limit int) ([]models.Alert, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM alerts
		ORDER BY created_at DESC, id
		LIMIT $1
	`, alertColumns)

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	alerts := []models.Alert{}
	for rows.Next() {
		alert, err := r.scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, *alert)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read alerts: %w", err)
	}

	return alerts, nil
}

func (r *PostgresAlertRepository) GetByID(ctx context.Context, id string) (*models.Alert, error) {
	query := fmt.Sprintf(`SELECT %s FROM alerts WHERE id = $1`, alertColumns)

	alert, err := r.scanAlert(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAlertNotFound
		}
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}
	return alert, nil
}

func (r *PostgresAlertRepository) UpdateStatus(ctx context.Context, id string, status models.AlertStatus) (*models.Alert, error) {
	query := fmt.Sprintf(`
		UPDATE alerts SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING %s
	`, alertColumns)

	alert, err := r.scanAlert(r.pool.QueryRow(ctx, query, id, status))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAlertNotFound
		}
		return nil, fmt.Errorf("failed to update alert status: %w", err)
	}
	return alert, nil
}

func (r *PostgresAlertRepository) Close() error {
	r.pool.Close()
	return nil
}

func (r *PostgresAlertRepository) scanAlert(row pgx.Row) (*models.Alert, error) {
	a := &models.Alert{}
	err := row.Scan(
		&a.ID, &a.AlertType, &a.Severity, &a.SourceIP, &a.EventCount,
		&a.FirstSeen, &a.LastSeen, &a.RelatedEvents, &a.Status,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}
