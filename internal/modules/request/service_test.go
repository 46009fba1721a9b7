// README: Action flow tests with fake executor, locator, and emitter.
package request

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"valetlink/internal/modules/location"
	"valetlink/internal/types"
)

var (
	depot      = types.Point{Lat: 17.530411, Lng: 78.440178}
	nearDepot  = types.Point{Lat: 17.5304, Lng: 78.4402}
	acrossTown = types.Point{Lat: 17.54, Lng: 78.45}
)

type fakeExecutor struct {
	acceptErr   error
	completeErr error
	verifyErr   error
	selfErr     error
	listResult  []*Request
	listErr     error

	acceptCalls  int
	verifyCalls  int
	listCalls    int
	genericCalls int
}

func (f *fakeExecutor) Accept(ctx context.Context, id types.ID) error {
	f.acceptCalls++
	return f.acceptErr
}

func (f *fakeExecutor) MarkCompleted(ctx context.Context, id types.ID) error {
	f.genericCalls++
	return f.completeErr
}

func (f *fakeExecutor) Verify(ctx context.Context, vehicleRef string) error {
	f.verifyCalls++
	return f.verifyErr
}

func (f *fakeExecutor) MarkSelfPark(ctx context.Context, id types.ID) error {
	f.genericCalls++
	return f.selfErr
}

func (f *fakeExecutor) MarkSelfPickup(ctx context.Context, id types.ID) error {
	f.genericCalls++
	return f.selfErr
}

func (f *fakeExecutor) List(ctx context.Context) ([]*Request, error) {
	f.listCalls++
	return f.listResult, f.listErr
}

type fakeLocator struct {
	fix location.Fix
	err error
}

func (f fakeLocator) Current(ctx context.Context, timeout, maxAge time.Duration) (location.Fix, error) {
	return f.fix, f.err
}

type fakeEmitter struct {
	events []string
}

func (e *fakeEmitter) Emit(event string, payload any) error {
	e.events = append(e.events, event)
	return nil
}

func testService(t *testing.T, exec *fakeExecutor, at types.Point) (*Service, *Coordinator, *fakeEmitter) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	coord := NewCoordinator("w1", log)
	emitter := &fakeEmitter{}
	svc := NewService(ServiceDeps{
		Coord:   coord,
		Exec:    exec,
		Locator: fakeLocator{fix: location.Fix{Position: at, RecordedAt: time.Now()}},
		Emitter: emitter,
		Depot:   depot,
		Self:    "w1",
		Log:     log,
	})
	return svc, coord, emitter
}

func TestAccept_PickupAtDepotSucceeds(t *testing.T) {
	exec := &fakeExecutor{}
	svc, coord, emitter := testService(t, exec, nearDepot)
	mustApply(t, coord, EventNewPickupRequest, Push{RequestID: "r1"})

	dec, err := svc.Accept(context.Background(), "r1")
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if !dec.Allowed {
		t.Fatalf("expected geofence allowed at %f m", dec.DistanceMeters)
	}
	if exec.acceptCalls != 1 {
		t.Fatalf("expected 1 executor call, got %d", exec.acceptCalls)
	}
	mustStatus(t, coord, "r1", StatusAccepted)

	if len(emitter.events) != 1 || emitter.events[0] != EventAcceptRequest {
		t.Fatalf("expected accept_request emit, got %v", emitter.events)
	}
}

func TestAccept_GeofenceDenialNeverSubmits(t *testing.T) {
	exec := &fakeExecutor{}
	svc, coord, _ := testService(t, exec, acrossTown)
	mustApply(t, coord, EventNewPickupRequest, Push{RequestID: "r1"})

	dec, err := svc.Accept(context.Background(), "r1")
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if dec.Allowed {
		t.Fatal("expected geofence denial across town")
	}
	if dec.DistanceMeters < 1000 {
		t.Fatalf("expected reported distance over a kilometre, got %f", dec.DistanceMeters)
	}
	if exec.acceptCalls != 0 {
		t.Fatal("a geofence-denied action must never reach the executor")
	}
	mustStatus(t, coord, "r1", StatusPending)
}

func TestAccept_ParkGatedAgainstOrigin(t *testing.T) {
	exec := &fakeExecutor{}
	// Worker is across town from the depot but right at the customer origin.
	svc, coord, _ := testService(t, exec, acrossTown)
	origin := acrossTown
	mustApply(t, coord, EventNewParkRequest, Push{RequestID: "r1", Origin: &origin})

	dec, err := svc.Accept(context.Background(), "r1")
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if !dec.Allowed {
		t.Fatalf("park accept should be gated against the origin, denied at %f m", dec.DistanceMeters)
	}
	if exec.acceptCalls != 1 {
		t.Fatalf("expected 1 executor call, got %d", exec.acceptCalls)
	}
}

func TestAccept_ConflictRollsBack(t *testing.T) {
	exec := &fakeExecutor{acceptErr: &ActionError{Kind: ActionConflict}}
	svc, coord, emitter := testService(t, exec, nearDepot)
	mustApply(t, coord, EventNewPickupRequest, Push{RequestID: "r1"})

	_, err := svc.Accept(context.Background(), "r1")
	if KindOf(err) != ActionConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
	mustStatus(t, coord, "r1", StatusPending)
	r, _ := coord.Get("r1")
	if r.AssignedWorkerRef != nil {
		t.Fatal("conflict rollback must clear the optimistic assignment")
	}
	if len(emitter.events) != 0 {
		t.Fatalf("no outbound event on a failed action, got %v", emitter.events)
	}
}

func TestAccept_LocationErrorPropagates(t *testing.T) {
	exec := &fakeExecutor{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	coord := NewCoordinator("w1", log)
	svc := NewService(ServiceDeps{
		Coord:   coord,
		Exec:    exec,
		Locator: fakeLocator{err: &location.Error{Kind: location.KindTimeout}},
		Depot:   depot,
		Self:    "w1",
		Log:     log,
	})
	mustApply(t, coord, EventNewPickupRequest, Push{RequestID: "r1"})

	_, err := svc.Accept(context.Background(), "r1")
	var locErr *location.Error
	if !errors.As(err, &locErr) || locErr.Kind != location.KindTimeout {
		t.Fatalf("expected timeout location error, got %v", err)
	}
	if exec.acceptCalls != 0 {
		t.Fatal("location failure must resolve before any network action")
	}
	mustStatus(t, coord, "r1", StatusPending)
}

func TestComplete_AtDepot(t *testing.T) {
	exec := &fakeExecutor{}
	svc, coord, _ := testService(t, exec, nearDepot)
	mustApply(t, coord, EventNewParkRequest, Push{RequestID: "r1"})
	mustApply(t, coord, EventRequestAccepted, Push{RequestID: "r1", WorkerRef: "w1"})

	dec, err := svc.Complete(context.Background(), "r1")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if !dec.Allowed {
		t.Fatalf("expected allowed at depot, denied at %f m", dec.DistanceMeters)
	}
	mustStatus(t, coord, "r1", StatusParked)
}

func TestVerify_ByVehicleRef(t *testing.T) {
	exec := &fakeExecutor{}
	svc, coord, emitter := testService(t, exec, nearDepot)
	mustApply(t, coord, EventNewPickupRequest, Push{RequestID: "r1", VehicleRef: "KA-01"})
	mustApply(t, coord, EventRequestAccepted, Push{RequestID: "r1", WorkerRef: "w1"})

	dec, err := svc.Verify(context.Background(), "KA-01")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !dec.Allowed {
		t.Fatalf("expected allowed, denied at %f m", dec.DistanceMeters)
	}
	mustStatus(t, coord, "r1", StatusVerified)
	if exec.verifyCalls != 1 {
		t.Fatalf("expected 1 verify call, got %d", exec.verifyCalls)
	}
	found := false
	for _, e := range emitter.events {
		if e == EventVerifyVehicle {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected verify_vehicle emit, got %v", emitter.events)
	}
}

func TestMarkSelfPickup_RequiresVerifiedVehicle(t *testing.T) {
	exec := &fakeExecutor{}
	svc, coord, _ := testService(t, exec, nearDepot)
	mustApply(t, coord, EventNewPickupRequest, Push{RequestID: "r1"})

	if err := svc.MarkSelfPickup(context.Background(), "r1"); err != ErrInvalidState {
		t.Fatalf("self-pickup before verification: expected ErrInvalidState, got %v", err)
	}

	mustApply(t, coord, EventRequestAccepted, Push{RequestID: "r1", WorkerRef: "w1"})
	mustApply(t, coord, EventVehicleVerified, Push{RequestID: "r1"})
	if err := svc.MarkSelfPickup(context.Background(), "r1"); err != nil {
		t.Fatalf("self-pickup: %v", err)
	}
	mustStatus(t, coord, "r1", StatusSelfPickup)
}

func TestMarkSelfPark_FromPending(t *testing.T) {
	exec := &fakeExecutor{}
	svc, coord, _ := testService(t, exec, nearDepot)
	mustApply(t, coord, EventNewParkRequest, Push{RequestID: "r1"})

	if err := svc.MarkSelfPark(context.Background(), "r1"); err != nil {
		t.Fatalf("self-park: %v", err)
	}
	mustStatus(t, coord, "r1", StatusSelfParked)
}

func TestRefresh_ReconcilesSnapshot(t *testing.T) {
	exec := &fakeExecutor{listResult: []*Request{
		{ID: "r7", Kind: KindPickup, Status: StatusAccepted},
	}}
	svc, coord, _ := testService(t, exec, nearDepot)
	mustApply(t, coord, EventNewParkRequest, Push{RequestID: "r1"})

	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if _, ok := coord.Get("r1"); ok {
		t.Fatal("refresh should drop requests absent from the snapshot")
	}
	mustStatus(t, coord, "r7", StatusAccepted)
}

func TestCreatePark_EmitsActionEvent(t *testing.T) {
	exec := &fakeExecutor{}
	svc, _, emitter := testService(t, exec, nearDepot)

	if err := svc.CreatePark("KA-05", depot, "98xxxx"); err != nil {
		t.Fatalf("create park: %v", err)
	}
	if err := svc.CreatePickup("KA-05", "98xxxx"); err != nil {
		t.Fatalf("create pickup: %v", err)
	}
	if len(emitter.events) != 2 ||
		emitter.events[0] != EventCreateParkRequest ||
		emitter.events[1] != EventCreatePickupRequest {
		t.Fatalf("unexpected emits: %v", emitter.events)
	}
}
