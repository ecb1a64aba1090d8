package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"FleetStock/internal/auth"
	"FleetStock/internal/catalog"
	"FleetStock/internal/model"
)

// AdminHandler — административные операции над каталогом и пользователями.
// Проверка прав живёт в сервисах, хендлер только транслирует.
type AdminHandler struct {
	Catalog *catalog.Service
	Auth    *auth.Service
	Logger  *zap.SugaredLogger
}

func NewAdminHandler(c *catalog.Service, a *auth.Service, logger *zap.SugaredLogger) *AdminHandler {
	return &AdminHandler{Catalog: c, Auth: a, Logger: logger}
}

type addPartRequest struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Category     string `json:"category"`
	Barcode      string `json:"barcode"`
	ImageURL     string `json:"imageUrl"`
	Season       string `json:"season"`
	Price        string `json:"price"`
	PurchaseLink string `json:"purchaseLink"`
	ShopQty      int    `json:"shopQty"`
	MinStock     int    `json:"minStock"`
}

// AddPart регистрирует новую деталь с нулевыми остатками на грузовиках.
func (h *AdminHandler) AddPart(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req addPartRequest
	if !decodeBody(w, r, &req) {
		return
	}
	part := model.Part{
		ID:           req.ID,
		Name:         req.Name,
		CategoryID:   req.Category,
		Barcode:      req.Barcode,
		ImageURL:     req.ImageURL,
		Season:       model.ParseSeason(req.Season),
		PurchaseLink: req.PurchaseLink,
		Quantities:   map[string]int{model.LocationShop: req.ShopQty},
		Minimums:     map[string]int{model.LocationShop: req.MinStock},
	}
	if req.Price != "" {
		price, err := model.ParsePrice(req.Price)
		if err != nil {
			http.Error(w, "invalid price", http.StatusBadRequest)
			return
		}
		part.Price = price
	}
	if err := h.Catalog.AddPart(r.Context(), actor, part); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// SaveCategory создаёт или обновляет категорию.
func (h *AdminHandler) SaveCategory(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireUser(w, r)
	if !ok {
		return
	}
	var c model.Category
	if !decodeBody(w, r, &c) {
		return
	}
	if err := h.Catalog.SaveCategory(r.Context(), actor, c); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteCategory удаляет пустую листовую категорию.
func (h *AdminHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := h.Catalog.DeleteCategory(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SaveTruck создаёт, переименовывает или деактивирует грузовик.
func (h *AdminHandler) SaveTruck(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireUser(w, r)
	if !ok {
		return
	}
	var t model.Truck
	if !decodeBody(w, r, &t) {
		return
	}
	if err := h.Catalog.SaveTruck(r.Context(), actor, t); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteTruck удаляет пустой грузовик.
func (h *AdminHandler) DeleteTruck(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := h.Catalog.DeleteTruck(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type seasonsRequest struct {
	Seasons []model.Season `json:"seasons"`
}

// SaveSeasons сохраняет фильтр активных сезонов.
func (h *AdminHandler) SaveSeasons(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req seasonsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.Catalog.SaveActiveSeasons(r.Context(), actor, req.Seasons); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// userDTO — учётка для владельца. PIN наружу уходит только здесь; в модели
// он помечен json:"-", чтобы не утекать через другие ответы.
type userDTO struct {
	PIN        string `json:"pin"`
	Name       string `json:"name"`
	TruckID    string `json:"truck"`
	IsOwner    bool   `json:"isOwner"`
	CanEditPIN bool   `json:"canEditPin"`
}

// Users отдаёт все учётки (только владельцу).
func (h *AdminHandler) Users(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireUser(w, r)
	if !ok {
		return
	}
	users, err := h.Auth.Users(r.Context(), actor)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]userDTO, 0, len(users))
	for _, u := range users {
		out = append(out, userDTO{
			PIN:        u.PIN,
			Name:       u.Name,
			TruckID:    u.TruckID,
			IsOwner:    u.IsOwner,
			CanEditPIN: u.CanEditPIN,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type saveUserRequest struct {
	PIN        string `json:"pin"`
	Name       string `json:"name"`
	TruckID    string `json:"truck"`
	IsOwner    bool   `json:"isOwner"`
	CanEditPIN bool   `json:"canEditPin"`
	IsNew      bool   `json:"isNew"`
}

// SaveUser создаёт или обновляет учётку (только владельцу).
func (h *AdminHandler) SaveUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req saveUserRequest
	if !decodeBody(w, r, &req) {
		return
	}
	u := model.User{
		PIN:        req.PIN,
		Name:       req.Name,
		TruckID:    req.TruckID,
		IsOwner:    req.IsOwner,
		CanEditPIN: req.CanEditPIN,
	}
	if err := h.Auth.SaveUser(r.Context(), actor, u, req.IsNew); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteUser удаляет учётку (только владельцу, себя удалить нельзя).
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := h.Auth.DeleteUser(r.Context(), actor, chi.URLParam(r, "pin")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
