package handler

import (
	"go.uber.org/zap"

	"hostelwatch/backend/internal/eventhub"
	"hostelwatch/backend/internal/ledger"
	"hostelwatch/backend/internal/storage"
)

// Handler wires the HTTP layer to the ledger and the event hub.
type Handler struct {
	Ledger  *ledger.Service
	Hub     *eventhub.ManagerService
	Storage *storage.Service
	Logger  *zap.Logger
}

func NewHandler(l *ledger.Service, hub *eventhub.ManagerService, s *storage.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Ledger: l, Hub: hub, Storage: s, Logger: logger}
}
