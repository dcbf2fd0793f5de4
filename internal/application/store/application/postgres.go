package application

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"leaseguard/internal/application/models"
	id "leaseguard/pkg/domain"
	"leaseguard/pkg/platform/sentinel"
)

// PostgresStore persists applications.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const applicationColumns = `id, applicant_id, applicant_name, applicant_email,
	applicant_phone, status, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, app *models.Application) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO applications (
			id, applicant_id, applicant_name, applicant_email,
			applicant_phone, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		app.ID.String(),
		nullableUserID(app.ApplicantID),
		app.ApplicantName,
		app.ApplicantEmail,
		app.ApplicantPhone,
		app.Status.String(),
		app.CreatedAt,
		app.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert application: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetByID(ctx context.Context, appID id.ApplicationID) (*models.Application, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+applicationColumns+`
		FROM applications
		WHERE id = $1`,
		appID.String(),
	)

	app, err := scanApplication(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query application: %w", err)
	}
	return app, nil
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, appID id.ApplicationID, status models.Status, updatedAt time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE applications
		SET status = $2, updated_at = $3
		WHERE id = $1`,
		appID.String(),
		status.String(),
		updatedAt,
	)
	if err != nil {
		return fmt.Errorf("update application status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update application status: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, filter ListFilter) ([]*models.Application, error) {
	filter.Clamp()

	query := `SELECT ` + applicationColumns + ` FROM applications`
	args := []any{}
	if filter.Status != nil {
		query += ` WHERE status = $1`
		args = append(args, filter.Status.String())
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query applications: %w", err)
	}
	defer rows.Close()

	var apps []*models.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("scan application: %w", err)
		}
		apps = append(apps, app)
	}
	return apps, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanApplication(row rowScanner) (*models.Application, error) {
	var (
		app         models.Application
		appID       string
		applicantID sql.NullString
		status      string
	)

	err := row.Scan(
		&appID,
		&applicantID,
		&app.ApplicantName,
		&app.ApplicantEmail,
		&app.ApplicantPhone,
		&status,
		&app.CreatedAt,
		&app.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	app.ID, err = id.ParseApplicationID(appID)
	if err != nil {
		return nil, err
	}
	if applicantID.Valid {
		app.ApplicantID, err = id.ParseUserID(applicantID.String)
		if err != nil {
			return nil, err
		}
	}
	app.Status = models.Status(status)
	return &app, nil
}

// nullableUserID maps the nil UUID onto SQL NULL so unlinked applications
// don't reference a phantom account.
func nullableUserID(userID id.UserID) any {
	if userID.IsNil() {
		return nil
	}
	return userID.String()
}
