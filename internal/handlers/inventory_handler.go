package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"FleetStock/internal/mirror"
	"FleetStock/internal/syncer"
)

// InventoryHandler отдаёт данные зеркала: детали, алерты, историю.
type InventoryHandler struct {
	Mirror *mirror.Mirror
	Sync   *syncer.Syncer
	Logger *zap.SugaredLogger
}

func NewInventoryHandler(m *mirror.Mirror, s *syncer.Syncer, logger *zap.SugaredLogger) *InventoryHandler {
	return &InventoryHandler{Mirror: m, Sync: s, Logger: logger}
}

// Parts отдаёт все детали, либо одну по ?barcode=.
func (h *InventoryHandler) Parts(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}
	if !h.Mirror.Loaded() {
		writeError(w, mirror.ErrNotLoaded)
		return
	}
	if code := r.URL.Query().Get("barcode"); code != "" {
		part, found := h.Mirror.PartByBarcode(code)
		if !found {
			http.Error(w, "no part with this barcode", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, part)
		return
	}
	writeJSON(w, http.StatusOK, h.Mirror.Parts())
}

// Part отдаёт одну деталь по id.
func (h *InventoryHandler) Part(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}
	part, found := h.Mirror.Part(chi.URLParam(r, "id"))
	if !found {
		http.Error(w, "unknown part", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, part)
}

// Alerts отдаёт отчёт о дефиците с секцией своего грузовика первой.
func (h *InventoryHandler) Alerts(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	report, err := h.Mirror.EvaluateAlerts(user.TruckID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// History отдаёт журнал перемещений, новые записи первыми (?limit=).
func (h *InventoryHandler) History(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	writeJSON(w, http.StatusOK, h.Mirror.History(limit))
}

// Trucks отдаёт активные грузовики в порядке реестра.
func (h *InventoryHandler) Trucks(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.Mirror.ActiveTrucks())
}

// Technicians отдаёт имена техников для выпадающих списков UI, без PIN.
func (h *InventoryHandler) Technicians(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.Mirror.Technicians())
}

// Refresh — принудительная полная перезагрузка: кэш чистится, все сущности
// перечитываются из удалённого хранилища.
func (h *InventoryHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}
	if err := h.Sync.Refresh(r.Context()); err != nil {
		h.Logger.Warnw("manual refresh failed", "error", err)
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
