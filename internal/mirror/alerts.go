package mirror

import (
	"sort"

	"FleetStock/internal/model"
)

// AlertItem is one part below its configured minimum at one location.
type AlertItem struct {
	Part     model.Part `json:"part"`
	Location string     `json:"location"`
	Current  int        `json:"current"`
	Minimum  int        `json:"minimum"`
	Needed   int        `json:"needed"`
	Critical bool       `json:"critical"` // quantity is exactly 0
}

// AlertSection groups low-stock items for one location.
type AlertSection struct {
	Location string      `json:"location"`
	Label    string      `json:"label"`
	OwnTruck bool        `json:"ownTruck,omitempty"`
	Items    []AlertItem `json:"items"`
}

// AlertReport is the evaluator output. AllGood distinguishes "nothing is
// low" from "no data": an empty report with AllGood=false never leaves the
// evaluator.
type AlertReport struct {
	Sections []AlertSection `json:"sections"`
	AllGood  bool           `json:"allGood"`
}

// EvaluateAlerts derives the low-stock report under the active-season
// filter. Section order: the viewer's own truck first (when assigned and
// active), remaining active trucks by id, the shop last.
func (m *Mirror) EvaluateAlerts(viewerTruckID string) (AlertReport, error) {
	if !m.Loaded() {
		return AlertReport{}, ErrNotLoaded
	}
	seasons := m.ActiveSeasons()

	m.mu.RLock()
	defer m.mu.RUnlock()

	own, ownOK := m.truckByID[viewerTruckID]
	if !ownOK || !own.Active {
		viewerTruckID = ""
	}

	var order []model.Truck
	if viewerTruckID != "" {
		order = append(order, own)
	}
	rest := make([]model.Truck, 0, len(m.trucks))
	for _, t := range m.trucks {
		if t.Active && t.ID != viewerTruckID {
			rest = append(rest, t)
		}
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i].ID < rest[j].ID })
	order = append(order, rest...)

	var report AlertReport
	for _, t := range order {
		items := m.lowAt(t.ID, seasons)
		if len(items) == 0 {
			continue
		}
		report.Sections = append(report.Sections, AlertSection{
			Location: t.ID,
			Label:    t.Name,
			OwnTruck: t.ID == viewerTruckID,
			Items:    items,
		})
	}
	if items := m.lowAt(model.LocationShop, seasons); len(items) > 0 {
		report.Sections = append(report.Sections, AlertSection{
			Location: model.LocationShop,
			Label:    "Shop",
			Items:    items,
		})
	}
	report.AllGood = len(report.Sections) == 0
	return report, nil
}

// lowAt collects parts strictly below their minimum at a location, filtered
// by active seasons, sorted by name. Caller holds at least the read lock.
func (m *Mirror) lowAt(location string, seasons map[model.Season]bool) []AlertItem {
	var out []AlertItem
	for _, p := range m.parts {
		if !seasons[p.Season] {
			continue
		}
		cur, min := p.Qty(location), p.Min(location)
		if cur >= min {
			continue
		}
		out = append(out, AlertItem{
			Part:     p.Clone(),
			Location: location,
			Current:  cur,
			Minimum:  min,
			Needed:   min - cur,
			Critical: cur == 0,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Part.Name < out[j].Part.Name })
	return out
}
