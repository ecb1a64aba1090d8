package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"FleetStock/internal/model"
	"FleetStock/internal/syncer"
	"FleetStock/internal/transfer"
)

// TransferHandler обрабатывает перемещения деталей.
type TransferHandler struct {
	Engine *transfer.Engine
	Sync   *syncer.Syncer
	Logger *zap.SugaredLogger
}

func NewTransferHandler(e *transfer.Engine, s *syncer.Syncer, logger *zap.SugaredLogger) *TransferHandler {
	return &TransferHandler{Engine: e, Sync: s, Logger: logger}
}

type transferRequest struct {
	PartID   string `json:"partId"`
	Quantity int    `json:"quantity"`
	Truck    string `json:"truck,omitempty"`
	ToTruck  string `json:"toTruck,omitempty"`
	JobName  string `json:"jobName,omitempty"`
}

// Load: склад → грузовик.
func (h *TransferHandler) Load(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, func(ctx context.Context, user model.User, req transferRequest) error {
		return h.Engine.Load(ctx, user, req.PartID, req.Quantity, req.Truck)
	})
}

// Return: грузовик → склад.
func (h *TransferHandler) Return(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, func(ctx context.Context, user model.User, req transferRequest) error {
		return h.Engine.Return(ctx, user, req.PartID, req.Quantity, req.Truck)
	})
}

// Transfer: грузовик → грузовик.
func (h *TransferHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, func(ctx context.Context, user model.User, req transferRequest) error {
		return h.Engine.Transfer(ctx, user, req.PartID, req.Quantity, req.Truck, req.ToTruck)
	})
}

// Receive: поставщик → склад.
func (h *TransferHandler) Receive(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, func(ctx context.Context, user model.User, req transferRequest) error {
		return h.Engine.Receive(ctx, user, req.PartID, req.Quantity)
	})
}

// UseOnJob: грузовик → заказ клиента.
func (h *TransferHandler) UseOnJob(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, func(ctx context.Context, user model.User, req transferRequest) error {
		return h.Engine.UseOnJob(ctx, user, req.PartID, req.Quantity, req.Truck, req.JobName)
	})
}

// run — общий каркас: декодировать, выполнить, подтянуть свежие количества.
func (h *TransferHandler) run(w http.ResponseWriter, r *http.Request, op func(context.Context, model.User, transferRequest) error) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req transferRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := op(r.Context(), user, req); err != nil {
		writeError(w, err)
		return
	}
	h.pollAfter(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// pollAfter подтягивает количества сразу после успешной операции, не
// дожидаясь тика. Совпавший с тиком вызов просто будет пропущен.
func (h *TransferHandler) pollAfter(ctx context.Context) {
	if err := h.Sync.Poll(ctx); err != nil {
		h.Logger.Warnw("post-transfer poll failed", "error", err)
	}
}

// QuickLoadPlan отдаёт план пополнения для ?location= (склад или грузовик).
func (h *TransferHandler) QuickLoadPlan(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}
	location := r.URL.Query().Get("location")
	if location == "" {
		location = model.LocationShop
	}
	plan, err := h.Engine.QuickLoadPlan(r.Context(), location)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

type quickLoadRequest struct {
	Location string          `json:"location"`
	Moves    []transfer.Move `json:"moves"`
}

// ApplyQuickLoad выполняет пакет пополнения. Ответ включает число успешно
// применённых строк даже при обрыве пакета.
func (h *TransferHandler) ApplyQuickLoad(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req quickLoadRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Location == "" {
		req.Location = model.LocationShop
	}
	applied, err := h.Engine.ApplyQuickLoad(r.Context(), user, req.Location, req.Moves)
	if err != nil {
		h.Logger.Warnw("quick load batch aborted", "applied", applied, "error", err)
		writeJSON(w, statusFor(w, err), map[string]any{"applied": applied, "error": err.Error()})
		return
	}
	h.pollAfter(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"applied": applied})
}
