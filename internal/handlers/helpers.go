package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"FleetStock/internal/auth"
	"FleetStock/internal/catalog"
	"FleetStock/internal/middleware"
	"FleetStock/internal/mirror"
	"FleetStock/internal/model"
	"FleetStock/internal/sheets"
	"FleetStock/internal/transfer"
)

// writeJSON сериализует ответ; ошибка кодирования уже не исправима.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError переводит ошибку домена в HTTP-статус с читаемым сообщением.
// Зеркало при любой ошибке остаётся нетронутым, клиенту достаточно текста.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(w, err), map[string]string{"error": err.Error()})
}

func statusFor(w http.ResponseWriter, err error) int {
	var locked *auth.LockedOutError
	switch {
	case errors.As(err, &locked):
		retry := time.Until(locked.Until).Seconds()
		if retry > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int(retry)+1))
		}
		return http.StatusTooManyRequests
	case errors.Is(err, auth.ErrMalformedPIN):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrWrongPIN):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrPermissionDenied), errors.Is(err, catalog.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, auth.ErrDuplicatePIN), errors.Is(err, catalog.ErrDuplicatePart),
		errors.Is(err, catalog.ErrCategoryInUse):
		return http.StatusConflict
	case errors.Is(err, transfer.ErrUnknownPart):
		return http.StatusNotFound
	case errors.Is(err, transfer.ErrUnknownTruck), errors.Is(err, transfer.ErrUnknownLocation),
		errors.Is(err, transfer.ErrBadQuantity), errors.Is(err, transfer.ErrSameLocation),
		errors.Is(err, catalog.ErrBadInput):
		return http.StatusBadRequest
	case errors.Is(err, transfer.ErrInsufficientStock):
		return http.StatusConflict
	case errors.Is(err, mirror.ErrNotLoaded):
		return http.StatusServiceUnavailable
	case sheets.IsTransport(err):
		return http.StatusBadGateway
	default:
		var remote *sheets.RemoteError
		if errors.As(err, &remote) {
			return http.StatusBadGateway
		}
		return http.StatusInternalServerError
	}
}

// requireUser достаёт пользователя сессии или отвечает 401.
func requireUser(w http.ResponseWriter, r *http.Request) (model.User, bool) {
	user, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return model.User{}, false
	}
	return user, true
}

// decodeBody разбирает JSON-тело запроса.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return false
	}
	return true
}
