package sheets

// The inventory sheet is only partly self-describing: per-truck quantity
// columns carry the truck id in the header, while price, purchase link and
// season live at fixed offsets after the MinStock column, shifted by the
// number of known trucks. Rather than spreading index arithmetic through the
// decoder, the layout is declared once as a Schema and resolved against the
// actual header row.

type FieldKind int

const (
	// ByIndex — fixed column position from the start of the row.
	ByIndex FieldKind = iota
	// ByHeader — column located by exact header text.
	ByHeader
	// ByOffset — column located relative to a named anchor column.
	ByOffset
)

type Field struct {
	Name   string
	Kind   FieldKind
	Index  int    // ByIndex
	Header string // ByHeader
	Anchor string // ByOffset: header text of the anchor column
	Delta  int    // ByOffset: distance from the anchor
}

type Schema []Field

// Resolve maps every field name to a column index against the given table.
// Missing headers and missing anchors resolve to -1; reading column -1
// yields the empty cell, so numeric fields silently default to 0 downstream.
// The second result lists fields that could not be located, for logging.
func (s Schema) Resolve(t Table) (map[string]int, []string) {
	cols := make(map[string]int, len(s))
	var missing []string
	for _, f := range s {
		idx := -1
		switch f.Kind {
		case ByIndex:
			if f.Index < len(t.Header) {
				idx = f.Index
			}
		case ByHeader:
			idx = t.Col(f.Header)
		case ByOffset:
			if a := t.Col(f.Anchor); a != -1 {
				if cand := a + f.Delta; cand < len(t.Header) {
					idx = cand
				}
			}
		}
		if idx == -1 {
			missing = append(missing, f.Name)
		}
		cols[f.Name] = idx
	}
	return cols, missing
}

// Inventory field names reused by the decoder.
const (
	fID       = "id"
	fName     = "name"
	fCategory = "category"
	fBarcode  = "barcode"
	fImage    = "imageUrl"
	fShop     = "shop"
	fMinStock = "minStock"
	fPrice    = "price"
	fLink     = "purchaseLink"
	fSeason   = "season"
)

// anchorColumn is the named column the positional tail of the inventory
// layout hangs off.
const anchorColumn = "MinStock"

// minTruckHeader is the header of a per-truck minimum column.
func minTruckHeader(truckID string) string { return "MinTruck-" + truckID }

// InventorySchema builds the inventory layout for the current truck
// registry. Truck quantity and minimum columns are found by header; the
// price/link/season tail sits after MinStock and the per-truck minimums.
func InventorySchema(truckIDs []string) Schema {
	s := Schema{
		{Name: fID, Kind: ByIndex, Index: 0},
		{Name: fName, Kind: ByIndex, Index: 1},
		{Name: fCategory, Kind: ByIndex, Index: 2},
		{Name: fBarcode, Kind: ByIndex, Index: 3},
		{Name: fImage, Kind: ByIndex, Index: 4},
		{Name: fShop, Kind: ByIndex, Index: 5},
		{Name: fMinStock, Kind: ByHeader, Header: anchorColumn},
	}
	for _, id := range truckIDs {
		s = append(s,
			Field{Name: "qty:" + id, Kind: ByHeader, Header: id},
			Field{Name: "min:" + id, Kind: ByHeader, Header: minTruckHeader(id)},
		)
	}
	n := len(truckIDs)
	s = append(s,
		Field{Name: fPrice, Kind: ByOffset, Anchor: anchorColumn, Delta: n + 1},
		Field{Name: fLink, Kind: ByOffset, Anchor: anchorColumn, Delta: n + 2},
		Field{Name: fSeason, Kind: ByOffset, Anchor: anchorColumn, Delta: n + 3},
	)
	return s
}
