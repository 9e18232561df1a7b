package api

import (
	"context"

	"github.com/neexbeast/outage-ledger/internal/outage"
)

// LocationService defines the location operations needed by handlers.
type LocationService interface {
	Create(ctx context.Context, userID int64, in outage.LocationInput) (*outage.Location, error)
	Get(ctx context.Context, userID, id int64) (*outage.Location, error)
	Update(ctx context.Context, userID, id int64, p outage.LocationPatch) (*outage.Location, error)
	Delete(ctx context.Context, userID, id int64) error
	List(ctx context.Context, userID int64, f outage.LocationFilter, sort outage.Sort, page outage.Page) (outage.PageResult[outage.Location], error)
}

// OutageService defines the outage operations needed by handlers.
type OutageService interface {
	Create(ctx context.Context, userID int64, in outage.OutageInput) (*outage.Outage, error)
	Get(ctx context.Context, userID, id int64) (*outage.Outage, error)
	Update(ctx context.Context, userID, id int64, p outage.OutagePatch) (*outage.Outage, error)
	End(ctx context.Context, userID, id int64, in outage.EndInput) (*outage.Outage, error)
	Delete(ctx context.Context, userID, id int64) error
	List(ctx context.Context, userID int64, f outage.OutageFilter, sort outage.Sort, page outage.Page) (outage.PageResult[outage.Outage], error)
}

// Pinger is satisfied by anything the health check can probe.
type Pinger interface {
	Ping(ctx context.Context) error
}
