package mirror

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FleetStock/internal/model"
)

func part(id, name string, qty map[string]int) model.Part {
	return model.Part{
		ID:         id,
		Name:       name,
		CategoryID: "other",
		Season:     model.SeasonYearRound,
		Quantities: qty,
		Minimums:   map[string]int{},
	}
}

func TestMirror_NotLoadedUntilFirstSetParts(t *testing.T) {
	m := New()
	assert.False(t, m.Loaded())
	_, err := m.EvaluateAlerts("")
	assert.ErrorIs(t, err, ErrNotLoaded)

	m.SetParts(map[string]model.Part{})
	assert.True(t, m.Loaded())
}

// Оверлей обновляет только количества и минимумы; статические поля и цена
// остаются прежними, неизвестные детали игнорируются до полной перезагрузки.
func TestMirror_OverlayQuantitiesKeepsStaticFields(t *testing.T) {
	m := New()
	original := part("p1", "Igniter", map[string]int{model.LocationShop: 5})
	original.Price = decimal.RequireFromString("49.90")
	original.Barcode = "123"
	m.SetParts(map[string]model.Part{"p1": original})

	fresh := part("p1", "RENAMED", map[string]int{model.LocationShop: 2, "t1": 3})
	fresh.Price = decimal.RequireFromString("0.01")
	ghost := part("p9", "Ghost", map[string]int{model.LocationShop: 1})
	m.OverlayQuantities(map[string]model.Part{"p1": fresh, "p9": ghost})

	p, ok := m.Part("p1")
	require.True(t, ok)
	assert.Equal(t, "Igniter", p.Name, "static fields must not be overlaid")
	assert.Equal(t, "49.9", p.Price.String())
	assert.Equal(t, "123", p.Barcode)
	assert.Equal(t, 2, p.Qty(model.LocationShop))
	assert.Equal(t, 3, p.Qty("t1"))

	_, ok = m.Part("p9")
	assert.False(t, ok, "unknown parts are picked up by the next full load, not the overlay")
}

// Копии наружу: мутация полученной детали не трогает зеркало.
func TestMirror_PartReturnsClone(t *testing.T) {
	m := New()
	m.SetParts(map[string]model.Part{"p1": part("p1", "Igniter", map[string]int{model.LocationShop: 5})})

	p, _ := m.Part("p1")
	p.Quantities[model.LocationShop] = 999

	again, _ := m.Part("p1")
	assert.Equal(t, 5, again.Qty(model.LocationShop))
}

func TestMirror_PartsSortedByName(t *testing.T) {
	m := New()
	m.SetParts(map[string]model.Part{
		"b": part("b", "Zeta", nil),
		"a": part("a", "Alpha", nil),
		"c": part("c", "Mid", nil),
	})
	parts := m.Parts()
	require.Len(t, parts, 3)
	assert.Equal(t, []string{"Alpha", "Mid", "Zeta"}, []string{parts[0].Name, parts[1].Name, parts[2].Name})
}

func TestMirror_PartByBarcode(t *testing.T) {
	m := New()
	p := part("p1", "Igniter", nil)
	p.Barcode = "40123"
	m.SetParts(map[string]model.Part{"p1": p})

	found, ok := m.PartByBarcode("40123")
	require.True(t, ok)
	assert.Equal(t, "p1", found.ID)

	_, ok = m.PartByBarcode("")
	assert.False(t, ok, "empty barcode must never match")
}

func TestMirror_TruckRegistryOrderAndIDs(t *testing.T) {
	m := New()
	m.SetTrucks([]model.Truck{
		{ID: "t2", Name: "Van 2", Active: true},
		{ID: "t1", Name: "Van 1", Active: false},
	})
	assert.Equal(t, []string{"t2", "t1"}, m.TruckIDs(), "registry order is sheet order, inactive included")

	active := m.ActiveTrucks()
	require.Len(t, active, 1)
	assert.Equal(t, "t2", active[0].ID)
}

func TestMirror_ActiveSeasonsDefault(t *testing.T) {
	m := New()
	seasons := m.ActiveSeasons()
	assert.True(t, seasons[model.SeasonHeating])
	assert.True(t, seasons[model.SeasonCooling])
	assert.True(t, seasons[model.SeasonYearRound])

	m.SetSettings(map[string]string{model.SettingActiveSeasons: "heating, year-round"})
	seasons = m.ActiveSeasons()
	assert.True(t, seasons[model.SeasonHeating])
	assert.False(t, seasons[model.SeasonCooling])
	assert.True(t, seasons[model.SeasonYearRound])
}

func TestMirror_HistoryLimit(t *testing.T) {
	m := New()
	m.SetHistory([]model.HistoryEntry{{Tech: "c"}, {Tech: "b"}, {Tech: "a"}})

	assert.Len(t, m.History(0), 3)
	limited := m.History(2)
	require.Len(t, limited, 2)
	assert.Equal(t, "c", limited[0].Tech, "limit keeps the newest entries")
}
