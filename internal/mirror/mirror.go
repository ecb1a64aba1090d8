package mirror

import (
	"errors"
	"sort"
	"strings"
	"sync"

	"FleetStock/internal/model"
)

// ErrNotLoaded is returned by read operations that need the inventory before
// the first successful load built it.
var ErrNotLoaded = errors.New("inventory mirror not loaded yet")

// Mirror is the local, rebuildable copy of the remote store: parts with
// fresh quantities, plus the slow-changing catalog around them. It is shared
// between the synchronizer, the alert evaluator, the transfer engine and the
// HTTP handlers, so access goes through a RWMutex.
type Mirror struct {
	mu         sync.RWMutex
	parts      map[string]model.Part
	categories map[string]model.Category
	trucks     []model.Truck
	truckByID  map[string]model.Truck
	users      map[string]model.User
	settings   map[string]string
	history    []model.HistoryEntry
	loaded     bool
}

func New() *Mirror {
	return &Mirror{
		parts:      map[string]model.Part{},
		categories: map[string]model.Category{},
		truckByID:  map[string]model.Truck{},
		users:      map[string]model.User{},
		settings:   map[string]string{},
	}
}

// Loaded reports whether the inventory has been populated at least once.
func (m *Mirror) Loaded() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loaded
}

// SetParts replaces the whole part set (first load or full refresh).
func (m *Mirror) SetParts(parts map[string]model.Part) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.parts = make(map[string]model.Part, len(parts))
	for id, p := range parts {
		m.parts[id] = p.Clone()
	}
	m.loaded = true
}

// OverlayQuantities copies only the quantity-bearing fields of fresh onto
// parts already present in the mirror. Static fields stay untouched; parts
// unknown to the mirror are ignored until the next full load picks them up.
func (m *Mirror) OverlayQuantities(fresh map[string]model.Part) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, f := range fresh {
		p, ok := m.parts[id]
		if !ok {
			continue
		}
		q := make(map[string]int, len(f.Quantities))
		for k, v := range f.Quantities {
			q[k] = v
		}
		mins := make(map[string]int, len(f.Minimums))
		for k, v := range f.Minimums {
			mins[k] = v
		}
		p.Quantities = q
		p.Minimums = mins
		m.parts[id] = p
	}
}

// Part returns a copy of one part.
func (m *Mirror) Part(id string) (model.Part, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.parts[id]
	if !ok {
		return model.Part{}, false
	}
	return p.Clone(), true
}

// Parts returns copies of all parts sorted by name (case-sensitive).
func (m *Mirror) Parts() []model.Part {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Part, 0, len(m.parts))
	for _, p := range m.parts {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// PartByBarcode looks a part up by its barcode.
func (m *Mirror) PartByBarcode(code string) (model.Part, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if code == "" {
		return model.Part{}, false
	}
	for _, p := range m.parts {
		if p.Barcode == code {
			return p.Clone(), true
		}
	}
	return model.Part{}, false
}

// SetTrucks replaces the truck registry, preserving the given (sheet) order.
func (m *Mirror) SetTrucks(trucks []model.Truck) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trucks = append([]model.Truck(nil), trucks...)
	m.truckByID = make(map[string]model.Truck, len(trucks))
	for _, t := range trucks {
		m.truckByID[t.ID] = t
	}
}

// Trucks returns the registry in stable order.
func (m *Mirror) Trucks() []model.Truck {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]model.Truck(nil), m.trucks...)
}

// ActiveTrucks returns active trucks in registry order.
func (m *Mirror) ActiveTrucks() []model.Truck {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Truck, 0, len(m.trucks))
	for _, t := range m.trucks {
		if t.Active {
			out = append(out, t)
		}
	}
	return out
}

// TruckIDs returns every known truck id in registry order (active or not) —
// the decoder needs all of them so quantities default to 0 rather than
// disappearing.
func (m *Mirror) TruckIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.trucks))
	for i, t := range m.trucks {
		out[i] = t.ID
	}
	return out
}

// Truck returns one truck by id.
func (m *Mirror) Truck(id string) (model.Truck, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.truckByID[id]
	return t, ok
}

// SetUsers replaces the user table.
func (m *Mirror) SetUsers(users map[string]model.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users = users
}

// Technicians returns the known users sorted by name. PINs are the map keys
// of the remote table and never leave this accessor.
func (m *Mirror) Technicians() []model.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.User, 0, len(m.users))
	for _, u := range m.users {
		u.PIN = ""
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// SetSettings replaces the settings map.
func (m *Mirror) SetSettings(settings map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings = settings
}

// Setting returns one settings value.
func (m *Mirror) Setting(key string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings[key]
}

// ActiveSeasons parses the administrator-configured season filter.
func (m *Mirror) ActiveSeasons() map[model.Season]bool {
	m.mu.RLock()
	raw := m.settings[model.SettingActiveSeasons]
	m.mu.RUnlock()
	if raw == "" {
		raw = model.DefaultActiveSeasons
	}
	out := make(map[model.Season]bool)
	for _, s := range strings.Split(raw, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			out[model.Season(s)] = true
		}
	}
	return out
}

// SetHistory replaces the audit list (already newest-first).
func (m *Mirror) SetHistory(entries []model.HistoryEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = entries
}

// History returns up to limit entries, newest first (all when limit <= 0).
func (m *Mirror) History(limit int) []model.HistoryEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := len(m.history)
	if limit > 0 && limit < n {
		n = limit
	}
	return append([]model.HistoryEntry(nil), m.history[:n]...)
}
