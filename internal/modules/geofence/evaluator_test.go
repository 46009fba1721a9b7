package geofence

import (
	"math"
	"testing"

	"valetlink/internal/types"
)

func TestEvaluate_KnownDistances(t *testing.T) {
	tests := []struct {
		name        string
		workerLat   float64
		workerLng   float64
		refLat      float64
		refLng      float64
		threshold   float64
		wantAllowed bool
		wantMeters  float64
		tolerance   float64
	}{
		{
			name:      "worker a metre from the depot",
			workerLat: 17.5304, workerLng: 78.4402,
			refLat: 17.530411, refLng: 78.440178,
			threshold:   DepotRadiusMeters,
			wantAllowed: true,
			wantMeters:  2.5,
			tolerance:   2.5,
		},
		{
			name:      "worker across town from the depot",
			workerLat: 17.54, workerLng: 78.45,
			refLat: 17.530411, refLng: 78.440178,
			threshold:   DepotRadiusMeters,
			wantAllowed: false,
			wantMeters:  1450,
			tolerance:   120,
		},
		{
			name:      "same point",
			workerLat: 17.4, workerLng: 78.5,
			refLat: 17.4, refLng: 78.5,
			threshold:   ParkOriginRadiusMeters,
			wantAllowed: true,
			wantMeters:  0,
			tolerance:   0.01,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.workerLat, tt.workerLng, tt.refLat, tt.refLng, tt.threshold)
			if got.Allowed != tt.wantAllowed {
				t.Errorf("Evaluate() allowed = %v, want %v (distance %f)", got.Allowed, tt.wantAllowed, got.DistanceMeters)
			}
			if math.Abs(got.DistanceMeters-tt.wantMeters) > tt.tolerance {
				t.Errorf("Evaluate() distance = %f, want %f (±%f)", got.DistanceMeters, tt.wantMeters, tt.tolerance)
			}
		})
	}
}

func TestEvaluate_Symmetry(t *testing.T) {
	d1 := Evaluate(17.53, 78.44, 17.54, 78.45, DepotRadiusMeters)
	d2 := Evaluate(17.54, 78.45, 17.53, 78.44, DepotRadiusMeters)
	if math.Abs(d1.DistanceMeters-d2.DistanceMeters) > 0.0001 {
		t.Errorf("distance is not symmetric: %f vs %f", d1.DistanceMeters, d2.DistanceMeters)
	}
	if d1.Allowed != d2.Allowed {
		t.Errorf("decision is not symmetric: %v vs %v", d1.Allowed, d2.Allowed)
	}
}

func TestEvaluate_ThresholdBoundary(t *testing.T) {
	// A distance exactly at the threshold is allowed; denial requires strictly greater.
	got := Evaluate(17.5, 78.4, 17.5, 78.4, 0)
	if !got.Allowed {
		t.Errorf("zero distance against zero threshold should be allowed")
	}
}

func TestPolicyHelpers(t *testing.T) {
	depot := types.Point{Lat: 17.530411, Lng: 78.440178}
	near := types.Point{Lat: 17.5304, Lng: 78.4402}
	far := types.Point{Lat: 17.54, Lng: 78.45}

	if d := AtDepot(near, depot); !d.Allowed {
		t.Errorf("AtDepot near: denied at %f m", d.DistanceMeters)
	}
	if d := AtDepot(far, depot); d.Allowed {
		t.Errorf("AtDepot far: allowed at %f m", d.DistanceMeters)
	}

	// The origin radius is looser in absolute policy terms but still denies a
	// worker a kilometre away.
	if d := AtParkOrigin(far, depot); d.Allowed {
		t.Errorf("AtParkOrigin far: allowed at %f m", d.DistanceMeters)
	}
	if d := AtParkOrigin(near, depot); !d.Allowed {
		t.Errorf("AtParkOrigin near: denied at %f m", d.DistanceMeters)
	}
}
