package analytics

import (
	"context"
	"time"
)

// Event is a single request observation, recorded after the response
// has been written.
type Event struct {
	Time        time.Time
	ClientIP    string
	Fingerprint string
	ClientName  string
	Method      string
	Path        string
	RouteClass  string
	Status      int
	UserAgent   string
}

// EventStore persists request events. Implemented by the db package.
type EventStore interface {
	InsertRequestEvent(ctx context.Context, event Event) error
}
