package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"FleetStock/internal/mirror"
)

// CategoryHandler отдаёт дерево категорий и её состав.
type CategoryHandler struct {
	Mirror *mirror.Mirror
	Logger *zap.SugaredLogger
}

func NewCategoryHandler(m *mirror.Mirror, logger *zap.SugaredLogger) *CategoryHandler {
	return &CategoryHandler{Mirror: m, Logger: logger}
}

// Roots отдаёт корневые категории.
func (h *CategoryHandler) Roots(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.Mirror.RootCategories())
}

// Children отдаёт прямых потомков категории.
func (h *CategoryHandler) Children(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if _, found := h.Mirror.Category(id); !found {
		http.Error(w, "unknown category", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, h.Mirror.Children(id))
}

// Breadcrumb отдаёт путь от корня до категории.
func (h *CategoryHandler) Breadcrumb(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}
	trail, err := h.Mirror.Breadcrumb(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, trail)
}

// Parts отдаёт детали категории; ?subtree=true включает потомков.
func (h *CategoryHandler) Parts(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if _, found := h.Mirror.Category(id); !found && id != "other" {
		http.Error(w, "unknown category", http.StatusNotFound)
		return
	}
	if r.URL.Query().Get("subtree") == "true" {
		writeJSON(w, http.StatusOK, h.Mirror.SubtreeMembers(id))
		return
	}
	writeJSON(w, http.StatusOK, h.Mirror.ExactMembers(id))
}
