package transfer

import (
	"context"
	"errors"
	"fmt"

	"FleetStock/internal/model"
	"FleetStock/internal/sheets"
)

// lowStockView is the wire shape of the precomputed low-stock query.
type lowStockView struct {
	Shop   []lowStockItem            `json:"shop"`
	Trucks map[string][]lowStockItem `json:"trucks"`
}

type lowStockItem struct {
	ID      string `json:"id"`
	Current int    `json:"current"`
	Minimum int    `json:"minimum"`
	Needed  int    `json:"needed"`
	ShopQty int    `json:"shopQty"`
}

// PlanItem is one suggested restock line for a location.
type PlanItem struct {
	PartID  string `json:"partId"`
	Name    string `json:"name"`
	Current int    `json:"current"`
	Minimum int    `json:"minimum"`
	Needed  int    `json:"needed"`
	ShopQty int    `json:"shopQty"` // available in shop (caps truck loads)
}

// Move is one accepted line of a quick-load batch.
type Move struct {
	PartID   string `json:"partId"`
	Quantity int    `json:"quantity"`
}

// ErrUnknownLocation rejects quick-load requests for locations outside the
// registry.
var ErrUnknownLocation = errors.New("unknown location")

// QuickLoadPlan asks the remote store for its precomputed low-stock view and
// filters it down to the given location and the active seasons. Parts the
// mirror does not know yet are skipped (the next full load picks them up).
func (e *Engine) QuickLoadPlan(ctx context.Context, location string) ([]PlanItem, error) {
	if location != model.LocationShop {
		if _, err := e.activeTruck(location); err != nil {
			return nil, ErrUnknownLocation
		}
	}
	var view lowStockView
	if err := e.client.QueryRaw(ctx, sheets.QueryLowStock, &view); err != nil {
		return nil, err
	}
	items := view.Shop
	if location != model.LocationShop {
		items = view.Trucks[location]
	}

	seasons := e.mirror.ActiveSeasons()
	plan := make([]PlanItem, 0, len(items))
	for _, it := range items {
		part, ok := e.mirror.Part(it.ID)
		if !ok || !seasons[part.Season] {
			continue
		}
		plan = append(plan, PlanItem{
			PartID:  it.ID,
			Name:    part.Name,
			Current: it.Current,
			Minimum: it.Minimum,
			Needed:  it.Needed,
			ShopQty: it.ShopQty,
		})
	}
	return plan, nil
}

// ApplyQuickLoad executes a batch of restock moves sequentially. Loading a
// truck skips lines the shop cannot cover (logged, not fatal); a remote
// failure aborts the remainder of the batch — already applied lines stay
// applied, matching the non-transactional backing store.
func (e *Engine) ApplyQuickLoad(ctx context.Context, actor model.User, location string, moves []Move) (applied int, err error) {
	for _, mv := range moves {
		if mv.Quantity <= 0 {
			continue
		}
		if location == model.LocationShop {
			err = e.restockShop(ctx, actor, mv.PartID, mv.Quantity)
		} else {
			err = e.quickLoadTruck(ctx, actor, mv.PartID, mv.Quantity, location)
		}
		switch {
		case errors.Is(err, ErrInsufficientStock):
			e.log.Warnw("quick load line skipped, shop cannot cover it",
				"part", mv.PartID, "qty", mv.Quantity)
			err = nil
		case err != nil:
			return applied, fmt.Errorf("quick load aborted at part %s: %w", mv.PartID, err)
		default:
			applied++
		}
	}
	return applied, nil
}

func (e *Engine) restockShop(ctx context.Context, actor model.User, partID string, qty int) error {
	return e.move(ctx, moveSpec{
		actor: actor, partID: partID, qty: qty,
		dst:     model.LocationShop,
		action:  model.ActionRestockedShop,
		details: func(p model.Part) string { return fmt.Sprintf("%s: %d added to shop", p.Name, qty) },
		from:    model.EndpointSupplier, to: "Shop",
	})
}

func (e *Engine) quickLoadTruck(ctx context.Context, actor model.User, partID string, qty int, truckID string) error {
	truck, err := e.activeTruck(truckID)
	if err != nil {
		return err
	}
	return e.move(ctx, moveSpec{
		actor: actor, partID: partID, qty: qty,
		src: model.LocationShop, dst: truckID,
		action:  model.ActionQuickLoad,
		details: func(p model.Part) string { return fmt.Sprintf("%s: %d loaded onto %s", p.Name, qty, truck.Name) },
		from:    "Shop", to: truck.Name,
	})
}
