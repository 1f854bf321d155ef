package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/facturador-sunat/internal/domain/entity"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Transmissions transmissionUseCase
	Batch         batchUseCase
	JWTSecret     string
	Log           zerolog.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Rutas protegidas (requieren Bearer Token)
	sunat := api.Group("/sunat", AuthMiddleware(deps.JWTSecret))
	h := NewTransmissionHandler(deps.Transmissions, deps.Batch, deps.Log)

	sunat.Post("/documents", h.Send)
	sunat.Post("/documents/batch", h.SendBatch)
	sunat.Get("/transmissions/:id", h.Get)
	sunat.Post("/transmissions/:id/retry", RequireRole(entity.RoleOrgAdmin, entity.RoleSuperAdmin), h.Retry)
	sunat.Get("/correlatives/next", h.NextCorrelative)
}
