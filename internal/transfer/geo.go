package transfer

import (
	"context"
	"time"
)

// Position is a device fix from the geolocation provider.
type Position struct {
	Latitude  float64
	Longitude float64
	Accuracy  float64
}

// Locator is the optional geolocation collaborator. Both calls are
// best-effort: any failure degrades to empty address fields and never blocks
// a transfer.
type Locator interface {
	Locate(ctx context.Context) (Position, error)
	ReverseGeocode(ctx context.Context, pos Position) (string, error)
}

// geoTimeout caps how long a transfer waits on the locator.
const geoTimeout = 3 * time.Second

// locate resolves the current position and address, swallowing failures.
func locate(ctx context.Context, l Locator) (pos Position, address string) {
	if l == nil {
		return Position{}, ""
	}
	ctx, cancel := context.WithTimeout(ctx, geoTimeout)
	defer cancel()
	pos, err := l.Locate(ctx)
	if err != nil {
		return Position{}, ""
	}
	address, err = l.ReverseGeocode(ctx, pos)
	if err != nil {
		return pos, ""
	}
	return pos, address
}
