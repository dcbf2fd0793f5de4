package document

import (
	"context"
	"database/sql"
	"fmt"

	"leaseguard/internal/application/models"
	id "leaseguard/pkg/domain"
)

// PostgresStore persists document metadata.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// CreateAll inserts a document batch in one transaction so a submission's
// document set is all-or-nothing.
func (s *PostgresStore) CreateAll(ctx context.Context, documents []models.Document) error {
	if len(documents) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin document insert: %w", err)
	}
	defer tx.Rollback()

	for _, doc := range documents {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO documents (
				id, application_id, filename, mime_type, size_bytes, created_at
			) VALUES ($1, $2, $3, $4, $5, $6)`,
			doc.ID.String(),
			doc.ApplicationID.String(),
			doc.Filename,
			doc.MimeType,
			doc.SizeBytes,
			doc.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert document: %w", err)
		}
	}
	return tx.Commit()
}

func (s *PostgresStore) ListByApplication(ctx context.Context, appID id.ApplicationID) ([]models.Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, application_id, filename, mime_type, size_bytes, created_at
		FROM documents
		WHERE application_id = $1
		ORDER BY created_at, id`,
		appID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var documents []models.Document
	for rows.Next() {
		var (
			doc   models.Document
			docID string
			appID string
		)
		if err := rows.Scan(&docID, &appID, &doc.Filename, &doc.MimeType, &doc.SizeBytes, &doc.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		doc.ID, err = id.ParseDocumentID(docID)
		if err != nil {
			return nil, err
		}
		doc.ApplicationID, err = id.ParseApplicationID(appID)
		if err != nil {
			return nil, err
		}
		documents = append(documents, doc)
	}
	return documents, rows.Err()
}
