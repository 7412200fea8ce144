package geo

import (
	"context"
	"fmt"

	"github.com/rozadev/roza/pkg/logger"
	"github.com/rozadev/roza/pkg/rozalib"
)

// Geocoder is implemented by *Client.
type Geocoder interface {
	Search(ctx context.Context, query string) (rozalib.Location, error)
	Reverse(ctx context.Context, lat, lon float64) (rozalib.Location, error)
}

// Resolver produces the location the daemon tracks. Fixed coordinates play
// the role of a device position; City is looked up when no coordinates are
// known.
type Resolver struct {
	Fixed    *rozalib.Location
	City     string
	Geocoder Geocoder
	Log      logger.Logger
}

// Resolve returns the current location. Reverse lookup failures only cost
// the display name; a failing forward lookup is an ErrLocation.
func (r *Resolver) Resolve(ctx context.Context) (rozalib.Location, error) {
	log := r.Log
	if log == nil {
		log = logger.NewNopLogger()
	}
	if r.Fixed != nil {
		loc := *r.Fixed
		if (loc.Name == "" || loc.CountryCode == "") && r.Geocoder != nil {
			named, err := r.Geocoder.Reverse(ctx, loc.Latitude, loc.Longitude)
			if err != nil {
				log.Warning("reverse geocoding %.4f,%.4f failed: %v", loc.Latitude, loc.Longitude, err)
				return loc, nil
			}
			if loc.Name == "" {
				loc.Name = named.Name
			}
			if loc.CountryCode == "" {
				loc.CountryCode = named.CountryCode
			}
		}
		return loc, nil
	}
	if r.City != "" && r.Geocoder != nil {
		loc, err := r.Geocoder.Search(ctx, r.City)
		if err != nil {
			return rozalib.Location{}, fmt.Errorf("%w: %q: %w", ErrLocation, r.City, err)
		}
		return loc, nil
	}
	return rozalib.Location{}, fmt.Errorf("%w: no coordinates or city configured, set one with \"roza location set <city>\"", ErrLocation)
}
