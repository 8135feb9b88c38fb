package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/xtding233/gacha-forge/internal/game"
	"github.com/xtding233/gacha-forge/internal/pricing"
	"github.com/xtding233/gacha-forge/internal/service"
	"github.com/xtding233/gacha-forge/internal/store"
	"github.com/xtding233/gacha-forge/internal/token"
)

// errBadRequest marks malformed request parameters.
var errBadRequest = errors.New("bad request")

// StatusCode maps an error from the service layer onto an HTTP status.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	case errors.Is(err, store.ErrNotFound), errors.Is(err, service.ErrItemNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, token.ErrInsufficientTokens), errors.Is(err, service.ErrNoProtection):
		return http.StatusPaymentRequired
	case errors.Is(err, service.ErrInvalidCount), errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, pricing.ErrEmptyCatalog):
		return http.StatusNotFound
	case errors.Is(err, game.ErrInvalidConfig):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

type errResp struct {
	Err string `json:"err"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusCode(err)
	switch {
	case status >= 500:
		s.log.ErrorContext(r.Context(), "request failed", slog.Any("err", err))
	case status == http.StatusRequestTimeout || status == http.StatusConflict:
		s.log.WarnContext(r.Context(), "request rejected", slog.Any("err", err))
	}
	writeJSON(w, status, errResp{Err: err.Error()})
}
