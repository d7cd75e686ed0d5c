package tracking

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fbstrack/backend/internal/domain/integration"
	"github.com/fbstrack/backend/internal/domain/tracking"
)

// ---------------------------------------------------------------------------
// In-memory test doubles
// ---------------------------------------------------------------------------

// fakeOrderRepo is an in-memory OrderRepository for service tests.
type fakeOrderRepo struct {
	mu     sync.Mutex
	nextID int64
	orders map[int64]*tracking.Order
	events []tracking.OrderEvent

	createErr error
	updateErr error
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[int64]*tracking.Order)}
}

func (f *fakeOrderRepo) FindByExternalID(_ context.Context, marketplace tracking.Marketplace, externalID string) (*tracking.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, order := range f.orders {
		if order.Marketplace == marketplace && order.ExternalID == externalID {
			clone := *order
			return &clone, nil
		}
	}
	return nil, tracking.ErrOrderNotFound
}

func (f *fakeOrderRepo) FindByCorrelationToken(_ context.Context, marketplace tracking.Marketplace, token string) (*tracking.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if token == "" {
		return nil, tracking.ErrOrderNotFound
	}
	for _, order := range f.orders {
		if order.Marketplace == marketplace && order.CorrelationToken == token {
			clone := *order
			return &clone, nil
		}
	}
	return nil, tracking.ErrOrderNotFound
}

func (f *fakeOrderRepo) FindByID(_ context.Context, id int64) (*tracking.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok {
		return nil, tracking.ErrOrderNotFound
	}
	clone := *order
	for _, event := range f.events {
		if event.OrderID == id {
			clone.Events = append(clone.Events, event)
		}
	}
	return &clone, nil
}

func (f *fakeOrderRepo) Create(_ context.Context, order *tracking.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	order.ID = f.nextID
	order.CreatedAt = time.Now().UTC()
	order.UpdatedAt = order.CreatedAt
	clone := *order
	f.orders[order.ID] = &clone
	return nil
}

func (f *fakeOrderRepo) Update(_ context.Context, order *tracking.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.orders[order.ID]; !ok {
		return tracking.ErrOrderNotFound
	}
	order.UpdatedAt = time.Now().UTC()
	clone := *order
	f.orders[order.ID] = &clone
	return nil
}

func (f *fakeOrderRepo) AppendEvent(_ context.Context, event *tracking.OrderEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	event.ID = int64(len(f.events) + 1)
	event.CreatedAt = time.Now().UTC()
	f.events = append(f.events, *event)
	return nil
}

func (f *fakeOrderRepo) HasEventNear(_ context.Context, orderID int64, status tracking.Status, at time.Time, tolerance time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, event := range f.events {
		if event.OrderID != orderID || event.Status != status {
			continue
		}
		delta := event.EventAt.Sub(at)
		if delta < 0 {
			delta = -delta
		}
		if delta <= tolerance {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeOrderRepo) List(_ context.Context, filter tracking.OrderFilter) ([]tracking.Order, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []tracking.Order
	for _, order := range f.orders {
		if filter.Marketplace != nil && order.Marketplace != *filter.Marketplace {
			continue
		}
		if filter.Status != nil && order.CurrentStatus != *filter.Status {
			continue
		}
		if filter.ActiveOnly && order.CurrentStatus.IsTerminal() {
			continue
		}
		if filter.Search != "" {
			needle := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(order.ExternalID), needle) &&
				!strings.Contains(strings.ToLower(order.ProductName), needle) &&
				!strings.Contains(strings.ToLower(order.SKU), needle) {
				continue
			}
		}
		matched = append(matched, *order)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].UpdatedAt.After(matched[j].UpdatedAt)
	})

	total := int64(len(matched))
	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return nil, total, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, total, nil
}

func (f *fakeOrderRepo) Summarize(_ context.Context, marketplace *tracking.Marketplace, now time.Time) (*tracking.Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	summary := &tracking.Summary{Marketplace: marketplace}
	byStatus := make(map[tracking.Status]int64)
	for _, order := range f.orders {
		if marketplace != nil && order.Marketplace != *marketplace {
			continue
		}
		summary.Total++
		if !order.CurrentStatus.IsTerminal() {
			summary.Active++
		}
		if order.IsOverdue(now) {
			summary.OverdueToShip++
		}
		byStatus[order.CurrentStatus]++
		switch order.CurrentStatus {
		case tracking.StatusBuyout:
			summary.Buyouts++
		case tracking.StatusRejection:
			summary.Rejections++
		case tracking.StatusDefect:
			summary.Defects++
		case tracking.StatusReturnStarted, tracking.StatusReturnInTransitFromBuyer,
			tracking.StatusReturnArrivedToSellerPickup, tracking.StatusSellerPickedUp:
			summary.Returns++
		}
	}
	for _, status := range tracking.AllStatuses() {
		if count := byStatus[status]; count > 0 {
			summary.ByStatus = append(summary.ByStatus, tracking.StatusCount{Status: status, Count: count})
		}
	}
	return summary, nil
}

func (f *fakeOrderRepo) Transaction(_ context.Context, fn func(repo tracking.OrderRepository) error) error {
	return fn(f)
}

func (f *fakeOrderRepo) eventsFor(orderID int64) []tracking.OrderEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var events []tracking.OrderEvent
	for _, event := range f.events {
		if event.OrderID == orderID {
			events = append(events, event)
		}
	}
	return events
}

// fakeCredsRepo is an in-memory CredentialsRepository.
type fakeCredsRepo struct {
	mu    sync.Mutex
	creds *integration.Credentials
	err   error
}

func (f *fakeCredsRepo) Get(_ context.Context) (*integration.Credentials, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if f.creds == nil {
		return nil, integration.ErrCredentialsNotFound
	}
	clone := *f.creds
	return &clone, nil
}

func (f *fakeCredsRepo) Save(_ context.Context, creds *integration.Credentials) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *creds
	f.creds = &clone
	return nil
}

// fakeConnector returns canned snapshots, an error, or panics.
type fakeConnector struct {
	marketplace tracking.Marketplace
	snapshots   []tracking.Snapshot
	err         error
	panics      bool
}

func (f *fakeConnector) Marketplace() tracking.Marketplace { return f.marketplace }

func (f *fakeConnector) FetchSnapshots(context.Context, integration.Credentials) ([]tracking.Snapshot, error) {
	if f.panics {
		panic("connector exploded")
	}
	return f.snapshots, f.err
}

// fakeLocker is an in-memory Locker with a switch to simulate a held lock.
type fakeLocker struct {
	mu     sync.Mutex
	held   bool
	busy   bool
	tryErr error
}

func (f *fakeLocker) TryLock(context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tryErr != nil {
		return false, f.tryErr
	}
	if f.busy || f.held {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLocker) Unlock(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.held = false
	return nil
}
