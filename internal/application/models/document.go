package models

import (
	"strings"
	"time"

	id "leaseguard/pkg/domain"
	dErrors "leaseguard/pkg/domain-errors"
)

// Document is declared metadata for one uploaded file. No binary content is
// stored. Immutable after creation.
type Document struct {
	ID            id.DocumentID    `json:"id"`
	ApplicationID id.ApplicationID `json:"application_id"`
	Filename      string           `json:"filename"`
	MimeType      string           `json:"mime_type"`
	SizeBytes     int64            `json:"size_bytes"`
	CreatedAt     time.Time        `json:"created_at"`
}

// NewDocument validates declared metadata and constructs a document.
func NewDocument(docID id.DocumentID, appID id.ApplicationID, filename, mimeType string, sizeBytes int64, now time.Time) (*Document, error) {
	filename = strings.TrimSpace(filename)
	mimeType = strings.TrimSpace(mimeType)

	if filename == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "document filename is required")
	}
	if len(filename) > 512 {
		return nil, dErrors.New(dErrors.CodeValidation, "document filename must be 512 characters or less")
	}
	if mimeType == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "document mime type is required")
	}
	if sizeBytes <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "document size must be positive")
	}

	return &Document{
		ID:            docID,
		ApplicationID: appID,
		Filename:      filename,
		MimeType:      mimeType,
		SizeBytes:     sizeBytes,
		CreatedAt:     now,
	}, nil
}
