package audit

import (
	"context"

	id "leaseguard/pkg/domain"
)

// Store persists audit events. Implementations must be append-only: no
// update or delete surface exists by design.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByApplication(ctx context.Context, appID id.ApplicationID) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}
