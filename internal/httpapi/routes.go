package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/gemduel/gemduel-backend/internal/room"
	"github.com/gemduel/gemduel-backend/internal/ws"
)

func SetupRoutes(reg *room.Registry, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Post("/rooms", SuggestRoomCode(reg))
	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(reg, log))
	return r
}
