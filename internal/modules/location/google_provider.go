// README: Google Geolocation-backed provider with a small freshness cache.
package location

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"googlemaps.github.io/maps"

	"valetlink/internal/types"
)

type GoogleProvider struct {
	client *maps.Client

	mu       sync.Mutex
	last     Fix
	haveLast bool
}

func NewGoogleProvider(apiKey string) (*GoogleProvider, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &GoogleProvider{client: client}, nil
}

func (p *GoogleProvider) Current(ctx context.Context, timeout, maxAge time.Duration) (Fix, error) {
	if maxAge > 0 {
		p.mu.Lock()
		if p.haveLast && time.Since(p.last.RecordedAt) <= maxAge {
			fix := p.last
			p.mu.Unlock()
			return fix, nil
		}
		p.mu.Unlock()
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	resp, err := p.client.Geolocate(ctx, &maps.GeolocationRequest{ConsiderIP: true})
	if err != nil {
		return Fix{}, &Error{Kind: classifyGeolocateErr(err), Cause: err}
	}

	fix := Fix{
		Position:   types.Point{Lat: resp.Location.Lat, Lng: resp.Location.Lng},
		AccuracyM:  resp.Accuracy,
		RecordedAt: time.Now(),
	}

	p.mu.Lock()
	p.last = fix
	p.haveLast = true
	p.mu.Unlock()

	return fix, nil
}

func classifyGeolocateErr(err error) ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindTimeout
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "permission") || strings.Contains(msg, "keyinvalid") || strings.Contains(msg, "denied"):
		return KindPermissionDenied
	case strings.Contains(msg, "notfound") || strings.Contains(msg, "not found"):
		return KindPositionUnavailable
	default:
		return KindUnknown
	}
}
