package transfer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"FleetStock/internal/mirror"
	"FleetStock/internal/model"
	"FleetStock/internal/sheets"
)

// Validation failures: surfaced synchronously, no remote call is issued.
var (
	ErrUnknownPart       = errors.New("unknown part")
	ErrUnknownTruck      = errors.New("unknown or inactive truck")
	ErrBadQuantity       = errors.New("quantity must be a positive integer")
	ErrInsufficientStock = errors.New("not enough stock at source location")
	ErrSameLocation      = errors.New("source and destination are the same")
)

// ErrAuditNotRecorded wraps a failure of the audit append that happened
// after the quantity change already committed remotely. The quantity set and
// the history append are two independent commands with no atomicity between
// them; this error makes the gap visible instead of hiding it.
var ErrAuditNotRecorded = errors.New("quantities updated but audit entry not recorded")

// Engine executes stock movements against the remote store. Every operation
// re-checks its precondition against a freshly fetched quantity snapshot,
// issues one absolute-value quantity-set command, then appends one audit
// entry. Failed operations are never retried here (retrying a command that
// may have landed would double-apply); the mirror is left untouched and the
// caller re-syncs.
type Engine struct {
	client *sheets.Client
	mirror *mirror.Mirror
	geo    Locator
	log    *zap.SugaredLogger
	now    func() time.Time
}

func NewEngine(client *sheets.Client, m *mirror.Mirror, geo Locator, log *zap.SugaredLogger) *Engine {
	return &Engine{client: client, mirror: m, geo: geo, log: log, now: time.Now}
}

// WithNow overrides the clock, for tests.
func (e *Engine) WithNow(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Load moves stock shop → truck.
func (e *Engine) Load(ctx context.Context, actor model.User, partID string, qty int, truckID string) error {
	truck, err := e.activeTruck(truckID)
	if err != nil {
		return err
	}
	return e.move(ctx, moveSpec{
		actor: actor, partID: partID, qty: qty,
		src: model.LocationShop, dst: truckID,
		action:  model.ActionLoadedTruck,
		details: func(p model.Part) string { return fmt.Sprintf("%s: %d loaded onto %s", p.Name, qty, truck.Name) },
		from:    "Shop", to: truck.Name,
	})
}

// Return moves stock truck → shop.
func (e *Engine) Return(ctx context.Context, actor model.User, partID string, qty int, truckID string) error {
	truck, err := e.activeTruck(truckID)
	if err != nil {
		return err
	}
	return e.move(ctx, moveSpec{
		actor: actor, partID: partID, qty: qty,
		src: truckID, dst: model.LocationShop,
		action:  model.ActionReturned,
		details: func(p model.Part) string { return fmt.Sprintf("%s: %d returned from %s", p.Name, qty, truck.Name) },
		from:    truck.Name, to: "Shop",
	})
}

// Transfer moves stock truck → truck. Transferring a truck to itself is
// rejected.
func (e *Engine) Transfer(ctx context.Context, actor model.User, partID string, qty int, fromTruckID, toTruckID string) error {
	if fromTruckID == toTruckID {
		return ErrSameLocation
	}
	from, err := e.activeTruck(fromTruckID)
	if err != nil {
		return err
	}
	to, err := e.activeTruck(toTruckID)
	if err != nil {
		return err
	}
	return e.move(ctx, moveSpec{
		actor: actor, partID: partID, qty: qty,
		src: fromTruckID, dst: toTruckID,
		action: model.ActionTransferred,
		details: func(p model.Part) string {
			return fmt.Sprintf("%s: %d from %s to %s", p.Name, qty, from.Name, to.Name)
		},
		from: from.Name, to: to.Name,
	})
}

// Receive books external supplier stock into the shop. There is no source
// precondition: the supplier is outside the quantity map.
func (e *Engine) Receive(ctx context.Context, actor model.User, partID string, qty int) error {
	return e.move(ctx, moveSpec{
		actor: actor, partID: partID, qty: qty,
		dst:     model.LocationShop,
		action:  model.ActionReceivedStock,
		details: func(p model.Part) string { return fmt.Sprintf("%s: %d received to shop", p.Name, qty) },
		from:    model.EndpointSupplier, to: "Shop",
	})
}

// UseOnJob consumes stock from a truck against a job (truck → customer).
func (e *Engine) UseOnJob(ctx context.Context, actor model.User, partID string, qty int, truckID, jobName string) error {
	truck, err := e.activeTruck(truckID)
	if err != nil {
		return err
	}
	if jobName == "" {
		jobName = "Job"
	}
	return e.move(ctx, moveSpec{
		actor: actor, partID: partID, qty: qty,
		src:     truckID,
		action:  model.ActionUsedOnJob,
		details: func(p model.Part) string { return fmt.Sprintf("%s: %d used from %s", p.Name, qty, truck.Name) },
		from:    truck.Name, to: model.EndpointCustomer,
		job: jobName,
	})
}

// moveSpec describes one movement. src=="" means external inflow, dst==""
// means external outflow; both set is a conserved internal move.
type moveSpec struct {
	actor   model.User
	partID  string
	qty     int
	src     string
	dst     string
	action  string
	details func(model.Part) string
	from    string
	to      string
	job     string
}

func (e *Engine) move(ctx context.Context, spec moveSpec) error {
	if spec.qty <= 0 {
		return ErrBadQuantity
	}

	// precondition check runs against a snapshot fetched right now, never
	// against the possibly stale mirror
	part, err := e.fetchPart(ctx, spec.partID)
	if err != nil {
		return err
	}

	updates := map[string]any{}
	if spec.src != "" {
		have := part.Qty(spec.src)
		if have < spec.qty {
			return fmt.Errorf("%w: %d available, %d requested", ErrInsufficientStock, have, spec.qty)
		}
		updates[spec.src] = have - spec.qty
	}
	if spec.dst != "" {
		updates[spec.dst] = part.Qty(spec.dst) + spec.qty
	}

	// absolute-value overwrite: last write wins by contract of the backing
	// store, concurrent sessions can still race (documented limitation)
	err = e.client.Command(ctx, sheets.CmdUpdateQuantity, map[string]any{
		"partId":  spec.partID,
		"updates": updates,
	})
	if err != nil {
		return fmt.Errorf("quantity update failed: %w", err)
	}

	entry := model.HistoryEntry{
		Timestamp: e.now().Format("1/2/2006, 3:04:05 PM"),
		Tech:      spec.actor.Name,
		Action:    spec.action,
		Details:   spec.details(part),
		Quantity:  spec.qty,
		From:      spec.from,
		To:        spec.to,
		JobName:   spec.job,
		OpID:      uuid.NewString(),
	}
	pos, address := locate(ctx, e.geo)
	entry.Address = address
	entry.Latitude = pos.Latitude
	entry.Longitude = pos.Longitude

	if err := e.appendHistory(ctx, entry); err != nil {
		// the quantity change already landed; report the gap, don't retry
		e.log.Errorw("audit append failed after quantity update",
			"part", spec.partID, "op", entry.OpID, "error", err)
		return fmt.Errorf("%w: %v", ErrAuditNotRecorded, err)
	}
	return nil
}

func (e *Engine) appendHistory(ctx context.Context, entry model.HistoryEntry) error {
	return e.client.Command(ctx, sheets.CmdAddTransaction, map[string]any{
		"transaction": entry,
	})
}

// fetchPart re-fetches the inventory table and returns the requested part.
func (e *Engine) fetchPart(ctx context.Context, partID string) (model.Part, error) {
	table, err := e.client.Query(ctx, sheets.QueryInventory)
	if err != nil {
		return model.Part{}, err
	}
	parts := sheets.DecodeInventory(table, e.mirror.TruckIDs(), e.log)
	p, ok := parts[partID]
	if !ok {
		return model.Part{}, fmt.Errorf("%w: %q", ErrUnknownPart, partID)
	}
	return p, nil
}

func (e *Engine) activeTruck(id string) (model.Truck, error) {
	t, ok := e.mirror.Truck(id)
	if !ok || !t.Active {
		return model.Truck{}, fmt.Errorf("%w: %q", ErrUnknownTruck, id)
	}
	return t, nil
}
