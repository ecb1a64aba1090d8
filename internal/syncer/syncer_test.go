package syncer

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"FleetStock/internal/cache"
	"FleetStock/internal/mirror"
	"FleetStock/internal/model"
	"FleetStock/internal/sheets"
	"FleetStock/internal/sheets/sheetstest"
	"FleetStock/internal/store"
)

type fixture struct {
	remote *sheetstest.Server
	mirror *mirror.Mirror
	cache  *cache.Cache
	syncer *Syncer
	now    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	remote := sheetstest.New()
	t.Cleanup(remote.Close)

	remote.SetTable(sheets.QuerySettings, [][]any{
		{"Key", "Value"},
		{model.SettingActiveSeasons, "heating,cooling,year-round"},
	})
	remote.SetTable(sheets.QueryCategories, [][]any{
		{"ID", "Name", "Parent", "Order", "Image"},
		{"heat", "Heating", "", 1, ""},
	})
	remote.SetTable(sheets.QueryTrucks, [][]any{
		{"ID", "Name", "Active"},
		{"t1", "Van 1", true},
	})
	remote.SetTable(sheets.QueryInventory, [][]any{
		{"ID", "Name", "Category", "Barcode", "Image", "Shop", "MinStock", "t1", "Price", "Link", "Season", "MinTruck-t1"},
		{"p1", "Igniter", "heat", "", "", 5, 2, 1, "10", "", "heating", 1},
	})
	remote.SetTable(sheets.QueryHistory, [][]any{
		{"Timestamp", "Tech", "Action"},
		{"1/1/2026, 9:00:00 AM", "Alex", "Loaded Truck"},
	})

	kv, _, err := store.Open(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, kv.Migrate())
	t.Cleanup(func() { _ = kv.Close() })

	f := &fixture{
		remote: remote,
		mirror: mirror.New(),
		cache:  cache.New(kv, time.Hour),
		now:    time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
	}
	client := sheets.NewClient(remote.URL, 100, zap.NewNop().Sugar())
	f.syncer = New(client, f.mirror, f.cache, time.Second, zap.NewNop().Sugar()).
		WithNow(func() time.Time { return f.now })
	return f
}

func TestBootstrap_PopulatesMirrorAndCache(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.syncer.Bootstrap(context.Background()))

	assert.True(t, f.mirror.Loaded())
	p, ok := f.mirror.Part("p1")
	require.True(t, ok)
	assert.Equal(t, 5, p.Qty(model.LocationShop))
	assert.Equal(t, 1, p.Qty("t1"))
	assert.Len(t, f.mirror.History(0), 1)

	var trucks []model.Truck
	ok, err := f.cache.Get(cache.KeyTrucks, &trucks)
	require.NoError(t, err)
	assert.True(t, ok, "slow-changing entities must land in the cache")
}

// Повторный bootstrap при живом кэше не ходит за медленными сущностями.
func TestBootstrap_ServesSlowEntitiesFromCache(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.syncer.Bootstrap(context.Background()))

	// ломаем удалённые таблицы: если кто-то пойдёт за ними, bootstrap упадёт
	f.remote.FailStatus[sheets.QueryTrucks] = http.StatusInternalServerError
	f.remote.FailStatus[sheets.QueryCategories] = http.StatusInternalServerError
	f.remote.FailStatus[sheets.QuerySettings] = http.StatusInternalServerError

	f2 := New(sheets.NewClient(f.remote.URL, 100, zap.NewNop().Sugar()), mirror.New(), f.cache, time.Second, zap.NewNop().Sugar())
	require.NoError(t, f2.Bootstrap(context.Background()))
}

// Poll обновляет только количества; статические поля переживают его.
func TestPoll_OverlaysQuantitiesOnly(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.syncer.Bootstrap(context.Background()))

	f.remote.SetTable(sheets.QueryInventory, [][]any{
		{"ID", "Name", "Category", "Barcode", "Image", "Shop", "MinStock", "t1", "Price", "Link", "Season", "MinTruck-t1"},
		{"p1", "RENAMED", "heat", "", "", 2, 2, 4, "999", "", "heating", 1},
	})
	require.NoError(t, f.syncer.Poll(context.Background()))

	p, _ := f.mirror.Part("p1")
	assert.Equal(t, "Igniter", p.Name, "poll must not rewrite static fields")
	assert.Equal(t, "10", p.Price.String())
	assert.Equal(t, 2, p.Qty(model.LocationShop))
	assert.Equal(t, 4, p.Qty("t1"))
}

// Три транспортных сбоя подряд приостанавливают опрос на пять минут; после
// окна опрос сам возобновляется.
func TestPoll_SuspendsAfterConsecutiveFailures(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.syncer.Bootstrap(context.Background()))

	f.remote.FailStatus[sheets.QueryInventory] = http.StatusInternalServerError
	for i := 0; i < 3; i++ {
		assert.Error(t, f.syncer.Poll(context.Background()))
	}
	require.False(t, f.syncer.SuspendedUntil().IsZero())
	assert.Equal(t, f.now.Add(5*time.Minute), f.syncer.SuspendedUntil())

	// внутри окна тик пропускается молча, даже когда удалёнка уже жива
	delete(f.remote.FailStatus, sheets.QueryInventory)
	f.now = f.now.Add(4 * time.Minute)
	require.NoError(t, f.syncer.Poll(context.Background()))
	assert.Equal(t, 3, f.syncer.Failures(), "a skipped tick must not touch the counter")

	// окно истекло: опрос возобновляется и счётчик сбрасывается
	f.now = f.now.Add(2 * time.Minute)
	require.NoError(t, f.syncer.Poll(context.Background()))
	assert.Zero(t, f.syncer.Failures())
	assert.True(t, f.syncer.SuspendedUntil().IsZero())
}

// 429 весит как два обычных сбоя.
func TestPoll_RateLimitWeighsDouble(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.syncer.Bootstrap(context.Background()))

	f.remote.FailStatus[sheets.QueryInventory] = http.StatusTooManyRequests
	assert.Error(t, f.syncer.Poll(context.Background()))
	assert.Equal(t, 2, f.syncer.Failures())
	assert.True(t, f.syncer.SuspendedUntil().IsZero())

	f.remote.FailStatus[sheets.QueryInventory] = http.StatusInternalServerError
	assert.Error(t, f.syncer.Poll(context.Background()))
	assert.False(t, f.syncer.SuspendedUntil().IsZero(), "2+1 reaches the threshold")
}

// Успешный опрос сбрасывает счётчик до порога.
func TestPoll_SuccessResetsFailures(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.syncer.Bootstrap(context.Background()))

	f.remote.FailStatus[sheets.QueryInventory] = http.StatusInternalServerError
	assert.Error(t, f.syncer.Poll(context.Background()))
	assert.Error(t, f.syncer.Poll(context.Background()))
	assert.Equal(t, 2, f.syncer.Failures())

	delete(f.remote.FailStatus, sheets.QueryInventory)
	require.NoError(t, f.syncer.Poll(context.Background()))
	assert.Zero(t, f.syncer.Failures())
}

// Отказ самого сервиса (success=false) — не транспортный сбой и к бэкоффу
// не ведёт.
func TestPoll_RemoteRejectionDoesNotCount(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.syncer.Bootstrap(context.Background()))

	f.remote.Reject[sheets.QueryInventory] = "sheet busy"
	assert.Error(t, f.syncer.Poll(context.Background()))
	assert.Zero(t, f.syncer.Failures())
}

// Цикл в категориях — фатальная ошибка загрузки, без бэкоффа.
func TestBootstrap_CategoryCycleIsFatal(t *testing.T) {
	f := newFixture(t)
	f.remote.SetTable(sheets.QueryCategories, [][]any{
		{"ID", "Name", "Parent", "Order", "Image"},
		{"a", "A", "b", 1, ""},
		{"b", "B", "a", 2, ""},
	})
	err := f.syncer.Bootstrap(context.Background())
	assert.ErrorIs(t, err, mirror.ErrCategoryCycle)
	assert.Zero(t, f.syncer.Failures())
}

// Refresh чистит кэш: после него сущности перечитываются заново.
func TestRefresh_PurgesCache(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.syncer.Bootstrap(context.Background()))

	f.remote.SetTable(sheets.QueryTrucks, [][]any{
		{"ID", "Name", "Active"},
		{"t1", "Van 1", true},
		{"t2", "Van 2", true},
	})
	require.NoError(t, f.syncer.Refresh(context.Background()))
	assert.Len(t, f.mirror.Trucks(), 2, "refresh must bypass the cached truck registry")
}
