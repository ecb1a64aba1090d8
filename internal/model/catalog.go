package model

// Category — узел дерева категорий. ParentID пустой у корневых категорий.
type Category struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ParentID string `json:"parent,omitempty"`
	ImageURL string `json:"imageUrl,omitempty"`
	Order    int    `json:"order"`
}

// Root reports whether the category sits at the top of the forest.
func (c Category) Root() bool { return c.ParentID == "" }

// Truck — mobile stock location. Inactive trucks keep their history but are
// excluded from dropdowns, alerts and aggregates.
type Truck struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// User — технический специалист. PIN одновременно является первичным ключом
// в удалённой таблице пользователей.
type User struct {
	PIN        string `json:"-"`
	Name       string `json:"name"`
	TruckID    string `json:"truck"`
	IsOwner    bool   `json:"isOwner"`
	CanEditPIN bool   `json:"canEditPin"`
}

// Setting keys that carry engine semantics.
const (
	SettingActiveSeasons = "ActiveSeasons"

	// DefaultActiveSeasons is applied when the remote settings table has no
	// ActiveSeasons row.
	DefaultActiveSeasons = "heating,cooling,year-round"
)
