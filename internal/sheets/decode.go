package sheets

import (
	"go.uber.org/zap"

	"FleetStock/internal/model"
)

// Decoding is pure: the same header+rows always produce identical records.
// Rows whose first cell is empty are skipped in every table.

// DecodeSettings converts the settings table into a key/value map.
func DecodeSettings(t Table) map[string]string {
	out := make(map[string]string, len(t.Rows))
	for _, row := range t.Rows {
		key := t.Cell(row, 0)
		if key.Empty() {
			continue
		}
		out[key.String()] = t.Cell(row, 1).String()
	}
	if out[model.SettingActiveSeasons] == "" {
		out[model.SettingActiveSeasons] = model.DefaultActiveSeasons
	}
	return out
}

// DecodeCategories converts the categories table. Parents are referenced by
// id; rows naming a missing parent become roots rather than dangling.
func DecodeCategories(t Table) map[string]model.Category {
	out := make(map[string]model.Category, len(t.Rows))
	for _, row := range t.Rows {
		id := t.Cell(row, 0)
		if id.Empty() {
			continue
		}
		out[id.String()] = model.Category{
			ID:       id.String(),
			Name:     t.Cell(row, 1).String(),
			ParentID: t.Cell(row, 2).String(),
			Order:    t.Cell(row, 3).Int(),
			ImageURL: t.Cell(row, 4).String(),
		}
	}
	for id, c := range out {
		if c.ParentID != "" {
			if _, ok := out[c.ParentID]; !ok {
				c.ParentID = ""
				out[id] = c
			}
		}
	}
	return out
}

// DecodeTrucks converts the trucks table, preserving sheet row order — the
// row order is the stable truck registry order used to resolve inventory
// columns.
func DecodeTrucks(t Table) []model.Truck {
	out := make([]model.Truck, 0, len(t.Rows))
	for _, row := range t.Rows {
		id := t.Cell(row, 0)
		if id.Empty() {
			continue
		}
		out = append(out, model.Truck{
			ID:     id.String(),
			Name:   t.Cell(row, 1).String(),
			Active: t.Cell(row, 2).Bool(),
		})
	}
	return out
}

// DecodeUsers converts the users table keyed by PIN.
func DecodeUsers(t Table) map[string]model.User {
	out := make(map[string]model.User, len(t.Rows))
	for _, row := range t.Rows {
		pin := t.Cell(row, 0)
		if pin.Empty() {
			continue
		}
		out[pin.String()] = model.User{
			PIN:        pin.String(),
			Name:       t.Cell(row, 1).String(),
			TruckID:    t.Cell(row, 2).String(),
			IsOwner:    t.Cell(row, 3).Bool(),
			CanEditPIN: t.Cell(row, 4).Bool(),
		}
	}
	return out
}

// DecodeHistory converts the history table, newest entry first.
func DecodeHistory(t Table) []model.HistoryEntry {
	out := make([]model.HistoryEntry, 0, len(t.Rows))
	for i := len(t.Rows) - 1; i >= 0; i-- {
		row := t.Rows[i]
		if t.Cell(row, 0).Empty() {
			continue
		}
		out = append(out, model.HistoryEntry{
			Timestamp: t.Cell(row, 0).String(),
			Tech:      t.Cell(row, 1).String(),
			Action:    t.Cell(row, 2).String(),
			Details:   t.Cell(row, 3).String(),
			Quantity:  t.Cell(row, 4).Int(),
			From:      t.Cell(row, 5).String(),
			To:        t.Cell(row, 6).String(),
			JobName:   t.Cell(row, 7).String(),
			Address:   t.Cell(row, 8).String(),
			Latitude:  t.Cell(row, 9).Float(),
			Longitude: t.Cell(row, 10).Float(),
			OpID:      t.Cell(row, 11).String(),
		})
	}
	return out
}

// DecodeInventory converts the inventory table into parts. truckIDs is the
// current truck registry in sheet order; every part gets a quantity and
// minimum entry for every known truck, defaulting to 0 when the column is
// absent. Anomalies (missing MinStock anchor, unknown columns) default the
// affected numeric fields to 0 and are logged once per decode.
func DecodeInventory(t Table, truckIDs []string, log *zap.SugaredLogger) map[string]model.Part {
	cols, missing := InventorySchema(truckIDs).Resolve(t)
	if len(missing) > 0 && log != nil && len(t.Rows) > 0 {
		log.Warnw("inventory sheet layout incomplete, affected fields default to zero",
			"missing", missing)
	}

	out := make(map[string]model.Part, len(t.Rows))
	for _, row := range t.Rows {
		id := t.Cell(row, cols[fID])
		if id.Empty() {
			continue
		}
		p := model.Part{
			ID:           id.String(),
			Name:         t.Cell(row, cols[fName]).String(),
			CategoryID:   t.Cell(row, cols[fCategory]).String(),
			Barcode:      t.Cell(row, cols[fBarcode]).String(),
			ImageURL:     t.Cell(row, cols[fImage]).String(),
			Season:       model.ParseSeason(t.Cell(row, cols[fSeason]).String()),
			Price:        t.Cell(row, cols[fPrice]).Decimal(),
			PurchaseLink: t.Cell(row, cols[fLink]).String(),
			Quantities:   make(map[string]int, len(truckIDs)+1),
			Minimums:     make(map[string]int, len(truckIDs)+1),
		}
		if p.CategoryID == "" {
			p.CategoryID = "other"
		}
		p.Quantities[model.LocationShop] = t.Cell(row, cols[fShop]).Int()
		p.Minimums[model.LocationShop] = t.Cell(row, cols[fMinStock]).Int()
		for _, truck := range truckIDs {
			p.Quantities[truck] = t.Cell(row, cols["qty:"+truck]).Int()
			p.Minimums[truck] = t.Cell(row, cols["min:"+truck]).Int()
		}
		out[p.ID] = p
	}
	return out
}
