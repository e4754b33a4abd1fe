package assignment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"phlebo/internal/modules/capacity"
	"phlebo/internal/modules/collector"
	"phlebo/internal/modules/order"
	"phlebo/internal/types"
)

// memOrders mirrors the CAS semantics of the Postgres order store.
type memOrders struct {
	mu     sync.Mutex
	orders map[types.ID]*order.Order
	events []order.Event
}

func newMemOrders(orders ...*order.Order) *memOrders {
	m := &memOrders{orders: make(map[types.ID]*order.Order)}
	for _, o := range orders {
		cp := *o
		m.orders[o.ID] = &cp
	}
	return m
}

func (m *memOrders) Get(_ context.Context, id types.ID) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memOrders) BindSlot(_ context.Context, id types.ID, version int, collectorID types.ID, date string, hour int, distanceKm *float64, fare *types.Money) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok || o.Status != order.StatusPending || o.StatusVersion != version {
		return false, nil
	}
	o.Status = order.StatusAssigned
	o.StatusVersion++
	o.CollectorID = &collectorID
	o.SlotDate = &date
	o.SlotHour = &hour
	o.DistanceKm = distanceKm
	o.Fare = fare
	return true, nil
}

func (m *memOrders) ClearSlot(_ context.Context, id types.ID, version int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok || o.Status != order.StatusAssigned || o.StatusVersion != version {
		return false, nil
	}
	o.Status = order.StatusPending
	o.StatusVersion++
	o.CollectorID = nil
	o.SlotDate = nil
	o.SlotHour = nil
	o.DistanceKm = nil
	o.Fare = nil
	return true, nil
}

func (m *memOrders) AppendEvent(_ context.Context, e *order.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, *e)
	return nil
}

type memCollectors struct {
	profiles map[types.ID]*collector.Profile
}

func (m *memCollectors) Get(_ context.Context, id types.ID) (*collector.Profile, error) {
	p, ok := m.profiles[id]
	if !ok {
		return nil, collector.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

type memLocations struct {
	positions map[types.ID]types.Point
}

func (m *memLocations) Position(_ context.Context, id types.ID) (types.Point, bool, error) {
	pos, ok := m.positions[id]
	return pos, ok, nil
}

type flatFare struct{}

func (flatFare) Estimate(_ context.Context, distanceKm float64) (types.Money, error) {
	return types.Money{Amount: 10000 + int64(distanceKm*1500), Currency: "INR"}, nil
}

func pendingOrder(id string) *order.Order {
	return &order.Order{
		ID:            types.ID(id),
		CustomerID:    "cust-1",
		Status:        order.StatusPending,
		Location:      &types.Point{Lat: 12.97, Lng: 77.60},
		Pincode:       "560001",
		RequestedDate: "2025-02-05",
		RequestedHour: 10,
		Amount:        types.Money{Amount: 120000, Currency: "INR"},
	}
}

func activeProfile(id string, cap int, pins ...string) *collector.Profile {
	return &collector.Profile{
		ID:              types.ID(id),
		Name:            id,
		Pincodes:        pins,
		StartHour:       8,
		EndHour:         20,
		CapacityPerHour: cap,
		Active:          true,
	}
}

type fixture struct {
	svc        *Service
	orders     *memOrders
	ledger     *capacity.MemoryLedger
	collectors *memCollectors
	locations  *memLocations
}

func newFixture(orders *memOrders, profiles ...*collector.Profile) *fixture {
	cols := &memCollectors{profiles: make(map[types.ID]*collector.Profile)}
	locs := &memLocations{positions: make(map[types.ID]types.Point)}
	for _, p := range profiles {
		cols.profiles[p.ID] = p
		locs.positions[p.ID] = types.Point{Lat: 12.95, Lng: 77.58}
	}
	ledger := capacity.NewMemoryLedger()
	return &fixture{
		svc:        NewService(orders, cols, ledger, locs, flatFare{}, nil),
		orders:     orders,
		ledger:     ledger,
		collectors: cols,
		locations:  locs,
	}
}

var admin = order.Actor{Type: "admin", ID: "adm-1"}

func TestAssign_BindsAndSnapshots(t *testing.T) {
	orders := newMemOrders(pendingOrder("ord-1"))
	f := newFixture(orders, activeProfile("col-1", 2, "560001"))

	res, err := f.svc.Assign(context.Background(), "ord-1", "col-1", "2025-02-05", 10, admin)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if res.CollectorID != "col-1" || res.Date != "2025-02-05" || res.Hour != 10 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.DistanceKm == nil || res.Fare == nil {
		t.Fatal("expected distance and fare snapshot")
	}

	o, _ := orders.Get(context.Background(), "ord-1")
	if o.Status != order.StatusAssigned || !o.SlotBound() {
		t.Fatalf("order not bound: %+v", o)
	}
	if o.DistanceKm == nil || o.Fare == nil {
		t.Fatal("snapshot not written onto order")
	}

	key := capacity.SlotKey{CollectorID: "col-1", Date: "2025-02-05", Hour: 10}
	avail, _ := f.ledger.Available(context.Background(), key, 2)
	if avail != 1 {
		t.Fatalf("expected 1 unit left, got %d", avail)
	}
}

func TestAssign_WriteOnce(t *testing.T) {
	orders := newMemOrders(pendingOrder("ord-1"))
	f := newFixture(orders, activeProfile("col-1", 2, "560001"), activeProfile("col-2", 2, "560001"))
	ctx := context.Background()

	if _, err := f.svc.Assign(ctx, "ord-1", "col-1", "2025-02-05", 10, admin); err != nil {
		t.Fatalf("first assign: %v", err)
	}
	// Any parameters at all: still AlreadyAssigned, nothing mutated.
	if _, err := f.svc.Assign(ctx, "ord-1", "col-2", "2025-02-06", 11, admin); err != ErrAlreadyAssigned {
		t.Fatalf("expected ErrAlreadyAssigned, got %v", err)
	}
	o, _ := orders.Get(ctx, "ord-1")
	if *o.CollectorID != "col-1" {
		t.Fatalf("binding mutated by rejected assign: %+v", o)
	}
	key := capacity.SlotKey{CollectorID: "col-2", Date: "2025-02-06", Hour: 11}
	if avail, _ := f.ledger.Available(ctx, key, 2); avail != 2 {
		t.Fatalf("rejected assign must not consume capacity, got %d", avail)
	}
}

func TestAssign_NotEligible(t *testing.T) {
	inactive := activeProfile("col-inactive", 2, "560001")
	inactive.Active = false
	offHours := activeProfile("col-early", 2, "560001")
	offHours.StartHour, offHours.EndHour = 6, 9

	orders := newMemOrders(pendingOrder("ord-1"))
	f := newFixture(orders,
		activeProfile("col-wrong-pin", 2, "110011"),
		inactive,
		offHours,
	)
	ctx := context.Background()

	tests := []struct {
		name        string
		collectorID types.ID
	}{
		{"pincode mismatch", "col-wrong-pin"},
		{"inactive collector", "col-inactive"},
		{"outside working hours", "col-early"},
		{"unknown collector", "col-ghost"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.svc.Assign(ctx, "ord-1", tt.collectorID, "2025-02-05", 10, admin); err != ErrNotEligible {
				t.Fatalf("expected ErrNotEligible, got %v", err)
			}
		})
	}
}

// Capacity 2, three orders racing for the same bucket: exactly two win.
func TestAssign_ConcurrentRaceForLastUnits(t *testing.T) {
	var orderList []*order.Order
	for i := 0; i < 3; i++ {
		orderList = append(orderList, pendingOrder(fmt.Sprintf("ord-%d", i)))
	}
	orders := newMemOrders(orderList...)
	f := newFixture(orders, activeProfile("col-1", 2, "560001", "560002"))
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 3)
	for i := 0; i < 3; i++ {
		id := types.ID(fmt.Sprintf("ord-%d", i))
		wg.Add(1)
		go func(oid types.ID) {
			defer wg.Done()
			_, err := f.svc.Assign(ctx, oid, "col-1", "2025-02-05", 10, admin)
			errs <- err
		}(id)
	}
	wg.Wait()
	close(errs)

	success, exceeded := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			success++
		case errors.Is(err, capacity.ErrCapacityExceeded):
			exceeded++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if success != 2 || exceeded != 1 {
		t.Fatalf("expected 2 successes and 1 rejection, got %d/%d", success, exceeded)
	}
}

func TestReassign_MovesUnit(t *testing.T) {
	orders := newMemOrders(pendingOrder("ord-1"))
	f := newFixture(orders, activeProfile("col-a", 2, "560001"), activeProfile("col-b", 2, "560001"))
	ctx := context.Background()

	if _, err := f.svc.Assign(ctx, "ord-1", "col-a", "2025-02-05", 10, admin); err != nil {
		t.Fatalf("assign: %v", err)
	}
	res, err := f.svc.Reassign(ctx, "ord-1", "col-b", "2025-02-05", 11, admin)
	if err != nil {
		t.Fatalf("reassign: %v", err)
	}
	if res.CollectorID != "col-b" || res.Hour != 11 {
		t.Fatalf("unexpected result: %+v", res)
	}

	keyA := capacity.SlotKey{CollectorID: "col-a", Date: "2025-02-05", Hour: 10}
	if avail, _ := f.ledger.Available(ctx, keyA, 2); avail != 2 {
		t.Fatalf("old slot not released, availability %d", avail)
	}
	keyB := capacity.SlotKey{CollectorID: "col-b", Date: "2025-02-05", Hour: 11}
	if avail, _ := f.ledger.Available(ctx, keyB, 2); avail != 1 {
		t.Fatalf("new slot not reserved, availability %d", avail)
	}
}

// Reassigning to a full collector releases the old unit and leaves the
// order explicitly unassigned rather than silently keeping the old slot.
func TestReassign_TargetFullLeavesOrderUnassigned(t *testing.T) {
	orders := newMemOrders(pendingOrder("ord-1"))
	full := activeProfile("col-b", 1, "560001")
	f := newFixture(orders, activeProfile("col-a", 2, "560001"), full)
	ctx := context.Background()

	// Fill col-b's bucket first.
	keyB := capacity.SlotKey{CollectorID: "col-b", Date: "2025-02-05", Hour: 10}
	if _, err := f.ledger.TryReserve(ctx, keyB, 1); err != nil {
		t.Fatalf("seed reserve: %v", err)
	}

	if _, err := f.svc.Assign(ctx, "ord-1", "col-a", "2025-02-05", 10, admin); err != nil {
		t.Fatalf("assign: %v", err)
	}
	_, err := f.svc.Reassign(ctx, "ord-1", "col-b", "2025-02-05", 10, admin)
	if !errors.Is(err, capacity.ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}

	o, _ := orders.Get(ctx, "ord-1")
	if o.Status != order.StatusPending || o.Assigned() {
		t.Fatalf("order must be explicitly unassigned, got %+v", o)
	}
	keyA := capacity.SlotKey{CollectorID: "col-a", Date: "2025-02-05", Hour: 10}
	if avail, _ := f.ledger.Available(ctx, keyA, 2); avail != 2 {
		t.Fatalf("old reservation must be released, availability %d", avail)
	}
}

func TestReassign_UnboundOrder(t *testing.T) {
	orders := newMemOrders(pendingOrder("ord-1"))
	f := newFixture(orders, activeProfile("col-a", 2, "560001"))
	_, err := f.svc.Reassign(context.Background(), "ord-1", "col-a", "2025-02-05", 10, admin)
	if err != ErrNotAssigned {
		t.Fatalf("expected ErrNotAssigned, got %v", err)
	}
}

func TestUnassign_ReturnsCapacityAndClearsBinding(t *testing.T) {
	orders := newMemOrders(pendingOrder("ord-1"))
	f := newFixture(orders, activeProfile("col-a", 1, "560001"))
	ctx := context.Background()

	if _, err := f.svc.Assign(ctx, "ord-1", "col-a", "2025-02-05", 10, admin); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if err := f.svc.Unassign(ctx, "ord-1", admin); err != nil {
		t.Fatalf("unassign: %v", err)
	}

	o, _ := orders.Get(ctx, "ord-1")
	if o.Status != order.StatusPending || o.Assigned() {
		t.Fatalf("expected unbound pending order, got %+v", o)
	}
	key := capacity.SlotKey{CollectorID: "col-a", Date: "2025-02-05", Hour: 10}
	if avail, _ := f.ledger.Available(ctx, key, 1); avail != 1 {
		t.Fatalf("capacity not returned, availability %d", avail)
	}
	// Slot is free for the next order again.
	orders.orders["ord-2"] = pendingOrder("ord-2")
	if _, err := f.svc.Assign(ctx, "ord-2", "col-a", "2025-02-05", 10, admin); err != nil {
		t.Fatalf("assign after unassign: %v", err)
	}
}

func TestAssign_NoCollectorPositionStillBinds(t *testing.T) {
	orders := newMemOrders(pendingOrder("ord-1"))
	f := newFixture(orders, activeProfile("col-1", 2, "560001"))
	delete(f.locations.positions, "col-1")

	res, err := f.svc.Assign(context.Background(), "ord-1", "col-1", "2025-02-05", 10, admin)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if res.DistanceKm != nil || res.Fare != nil {
		t.Fatal("expected empty snapshot when collector has no position")
	}
}
