// Package application provides the persistence layer for the Application
// aggregate, with an in-memory store for tests and a Postgres store for
// production.
package application

import (
	"leaseguard/internal/application/models"
)

// ListFilter scopes a listing query. A nil Status means all statuses.
type ListFilter struct {
	Status *models.Status
	Limit  int
	Offset int
}

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// Clamp normalizes pagination bounds into the supported range.
func (f *ListFilter) Clamp() {
	if f.Limit <= 0 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}
