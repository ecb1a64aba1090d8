package mirror

import (
	"errors"
	"fmt"
	"sort"

	"FleetStock/internal/model"
)

// ErrCategoryCycle means the category parent graph is not a forest. The
// remote sheet never validates this, so it is treated as a fatal
// configuration error at load time instead of looping forever.
var ErrCategoryCycle = errors.New("category parent graph contains a cycle")

// SetCategories replaces the category forest after validating it is acyclic.
func (m *Mirror) SetCategories(categories map[string]model.Category) error {
	if err := validateForest(categories); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.categories = categories
	return nil
}

func validateForest(categories map[string]model.Category) error {
	for id := range categories {
		seen := map[string]bool{}
		cur := id
		for cur != "" {
			if seen[cur] {
				return fmt.Errorf("%w: at %q", ErrCategoryCycle, cur)
			}
			seen[cur] = true
			cur = categories[cur].ParentID
		}
	}
	return nil
}

// Category returns one category by id.
func (m *Mirror) Category(id string) (model.Category, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.categories[id]
	return c, ok
}

// RootCategories returns categories without a parent, sorted by name.
func (m *Mirror) RootCategories() []model.Category {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Category
	for _, c := range m.categories {
		if c.Root() {
			out = append(out, c)
		}
	}
	sortByName(out)
	return out
}

// Children returns direct subcategories of the given id, sorted by name.
func (m *Mirror) Children(categoryID string) []model.Category {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Category
	for _, c := range m.categories {
		if c.ParentID != "" && c.ParentID == categoryID {
			out = append(out, c)
		}
	}
	sortByName(out)
	return out
}

// Breadcrumb returns the root-to-node path for a category. A cycle that
// slipped past load validation aborts instead of walking forever.
func (m *Mirror) Breadcrumb(categoryID string) ([]model.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.categories[categoryID]
	if !ok {
		return nil, fmt.Errorf("unknown category %q", categoryID)
	}
	var trail []model.Category
	seen := map[string]bool{}
	for {
		if seen[c.ID] {
			return nil, fmt.Errorf("%w: at %q", ErrCategoryCycle, c.ID)
		}
		seen[c.ID] = true
		trail = append([]model.Category{c}, trail...)
		if c.ParentID == "" {
			return trail, nil
		}
		parent, ok := m.categories[c.ParentID]
		if !ok {
			return trail, nil
		}
		c = parent
	}
}

// ExactMembers returns parts whose category is exactly the given id,
// excluding descendants, sorted by name.
func (m *Mirror) ExactMembers(categoryID string) []model.Part {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Part
	for _, p := range m.parts {
		if p.CategoryID == categoryID {
			out = append(out, p.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// SubtreeMembers returns parts in the category and every descendant,
// sorted by name.
func (m *Mirror) SubtreeMembers(categoryID string) []model.Part {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := map[string]bool{categoryID: true}
	// expand until fixpoint; the visited set guards against cycles
	for changed := true; changed; {
		changed = false
		for _, c := range m.categories {
			if c.ParentID != "" && ids[c.ParentID] && !ids[c.ID] {
				ids[c.ID] = true
				changed = true
			}
		}
	}

	var out []model.Part
	for _, p := range m.parts {
		if ids[p.CategoryID] {
			out = append(out, p.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func sortByName(cs []model.Category) {
	sort.Slice(cs, func(i, j int) bool { return cs[i].Name < cs[j].Name })
}
