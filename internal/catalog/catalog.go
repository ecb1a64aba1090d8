package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"FleetStock/internal/cache"
	"FleetStock/internal/mirror"
	"FleetStock/internal/model"
	"FleetStock/internal/sheets"
)

var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrDuplicatePart    = errors.New("part id already exists")
	ErrBadInput         = errors.New("invalid input")
	// ErrCategoryInUse rejects deleting a category that still has children
	// or member parts.
	ErrCategoryInUse = errors.New("category still has children or parts")
)

// Service carries the administrative catalog operations: parts, categories,
// trucks and engine settings. Writes go straight to the remote store; the
// matching cache tier is purged so the next sync re-fetches the entity
// instead of serving the stale copy.
type Service struct {
	client *sheets.Client
	mirror *mirror.Mirror
	cache  *cache.Cache
	log    *zap.SugaredLogger
	now    func() time.Time
}

func NewService(client *sheets.Client, m *mirror.Mirror, c *cache.Cache, log *zap.SugaredLogger) *Service {
	return &Service{client: client, mirror: m, cache: c, log: log, now: time.Now}
}

// WithNow overrides the clock, for tests.
func (s *Service) WithNow(now func() time.Time) *Service {
	s.now = now
	return s
}

// AddPart registers a new part with zero quantities everywhere and appends
// an audit entry for the initial shop stock. Any authenticated technician may
// add parts.
func (s *Service) AddPart(ctx context.Context, actor model.User, p model.Part) error {
	if p.ID == "" || p.Name == "" {
		return fmt.Errorf("%w: part needs an id and a name", ErrBadInput)
	}
	if _, exists := s.mirror.Part(p.ID); exists {
		return fmt.Errorf("%w: %q", ErrDuplicatePart, p.ID)
	}
	if p.CategoryID == "" {
		p.CategoryID = "other"
	}
	err := s.client.Command(ctx, sheets.CmdAddPart, map[string]any{
		"id":       p.ID,
		"name":     p.Name,
		"category": p.CategoryID,
		"barcode":  p.Barcode,
		"imageUrl": p.ImageURL,
		"season":   string(p.Season),
		"price":    p.Price.String(),
		"link":     p.PurchaseLink,
		"shopQty":  p.Qty(model.LocationShop),
		"minStock": p.Min(model.LocationShop),
	})
	if err != nil {
		return err
	}
	s.purge(cache.KeyPartsStatic)

	categoryName := p.CategoryID
	if c, ok := s.mirror.Category(p.CategoryID); ok {
		categoryName = c.Name
	}
	entry := model.HistoryEntry{
		Timestamp: s.now().Format("1/2/2006, 3:04:05 PM"),
		Tech:      actor.Name,
		Action:    model.ActionAddedPart,
		Details:   fmt.Sprintf("%s (%s)", p.Name, categoryName),
		Quantity:  p.Qty(model.LocationShop),
		To:        "Shop",
		OpID:      uuid.NewString(),
	}
	err = s.client.Command(ctx, sheets.CmdAddTransaction, map[string]any{
		"transaction": entry,
	})
	if err != nil {
		// деталь уже создана, откатывать нечего: фиксируем пробел в журнале
		s.log.Warnw("audit append failed after addPart",
			"part", p.ID, "op", entry.OpID, "error", err)
	}
	return nil
}

// SaveCategory creates or updates a category, owner only. The parent must
// exist (or be empty for a root) and must not create a cycle.
func (s *Service) SaveCategory(ctx context.Context, actor model.User, c model.Category) error {
	if !actor.IsOwner {
		return ErrPermissionDenied
	}
	if c.ID == "" || c.Name == "" {
		return fmt.Errorf("%w: category needs an id and a name", ErrBadInput)
	}
	if c.ParentID != "" {
		if c.ParentID == c.ID {
			return fmt.Errorf("%w: category cannot be its own parent", ErrBadInput)
		}
		crumbs, err := s.mirror.Breadcrumb(c.ParentID)
		if err != nil {
			return fmt.Errorf("%w: unknown parent %q", ErrBadInput, c.ParentID)
		}
		for _, anc := range crumbs {
			if anc.ID == c.ID {
				return fmt.Errorf("%w: parent %q is a descendant of %q", ErrBadInput, c.ParentID, c.ID)
			}
		}
	}
	err := s.client.Command(ctx, sheets.CmdSaveCategory, map[string]any{
		"id":       c.ID,
		"name":     c.Name,
		"parent":   c.ParentID,
		"order":    c.Order,
		"imageUrl": c.ImageURL,
	})
	if err != nil {
		return err
	}
	s.purge(cache.KeyCategories)
	return nil
}

// DeleteCategory removes an empty leaf category, owner only.
func (s *Service) DeleteCategory(ctx context.Context, actor model.User, id string) error {
	if !actor.IsOwner {
		return ErrPermissionDenied
	}
	if len(s.mirror.Children(id)) > 0 {
		return ErrCategoryInUse
	}
	if len(s.mirror.ExactMembers(id)) > 0 {
		return ErrCategoryInUse
	}
	if err := s.client.Command(ctx, sheets.CmdDeleteCategory, map[string]any{"id": id}); err != nil {
		return err
	}
	s.purge(cache.KeyCategories)
	return nil
}

// SaveTruck creates or updates a truck, owner only. Deactivation goes
// through here too (Active=false keeps the history but hides the truck).
func (s *Service) SaveTruck(ctx context.Context, actor model.User, t model.Truck) error {
	if !actor.IsOwner {
		return ErrPermissionDenied
	}
	if t.ID == "" || t.Name == "" {
		return fmt.Errorf("%w: truck needs an id and a name", ErrBadInput)
	}
	err := s.client.Command(ctx, sheets.CmdSaveTruck, map[string]any{
		"id":     t.ID,
		"name":   t.Name,
		"active": t.Active,
	})
	if err != nil {
		return err
	}
	s.purge(cache.KeyTrucks)
	return nil
}

// DeleteTruck removes a truck row, owner only. Stock still on the truck is
// rejected: return or transfer it first.
func (s *Service) DeleteTruck(ctx context.Context, actor model.User, id string) error {
	if !actor.IsOwner {
		return ErrPermissionDenied
	}
	for _, p := range s.mirror.Parts() {
		if p.Qty(id) > 0 {
			return fmt.Errorf("%w: truck %q still carries %s", ErrBadInput, id, p.Name)
		}
	}
	if err := s.client.Command(ctx, sheets.CmdDeleteTruck, map[string]any{"id": id}); err != nil {
		return err
	}
	s.purge(cache.KeyTrucks)
	return nil
}

// SaveActiveSeasons persists the season filter, owner only. At least one
// valid season must remain, otherwise every alert would vanish silently.
func (s *Service) SaveActiveSeasons(ctx context.Context, actor model.User, seasons []model.Season) error {
	if !actor.IsOwner {
		return ErrPermissionDenied
	}
	known := map[model.Season]bool{model.SeasonHeating: true, model.SeasonCooling: true, model.SeasonYearRound: true}
	parts := make([]string, 0, len(seasons))
	for _, season := range seasons {
		if !known[season] {
			return fmt.Errorf("%w: unknown season %q", ErrBadInput, season)
		}
		parts = append(parts, string(season))
	}
	if len(parts) == 0 {
		return fmt.Errorf("%w: at least one season must stay active", ErrBadInput)
	}
	value := strings.Join(parts, ",")
	err := s.client.Command(ctx, sheets.CmdSaveSetting, map[string]any{
		"key":   model.SettingActiveSeasons,
		"value": value,
	})
	if err != nil {
		return err
	}
	s.purge(cache.KeySettings)
	return nil
}

// purge drops a cache tier; a failure only delays freshness until the TTL.
func (s *Service) purge(key string) {
	if err := s.cache.Purge(key); err != nil {
		s.log.Warnw("cache purge failed", "key", key, "error", err)
	}
}
