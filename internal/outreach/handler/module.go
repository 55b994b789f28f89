package handler

import (
	apphttp "outreach_backend/internal/http"
)

// Module adapts the handler to the HTTP module registration contract.
type Module struct {
	h *Handler
}

func NewModule(h *Handler) *Module {
	return &Module{h: h}
}

func (m *Module) Name() string { return "outreach" }

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.h.RegisterRoutes(ctx.V1)
}
