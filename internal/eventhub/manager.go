// Package eventhub pushes committed ledger events to connected staff clients.
// Events arrive over Redis Pub/Sub so every backend instance sees appends
// committed by its peers.
package eventhub

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"hostelwatch/backend/internal/config"
	"hostelwatch/backend/internal/models"
)

// Client is one connected event subscriber.
type Client interface {
	GetID() string
	GetSendChannel() chan models.LogEvent
	Close()
}

// ManagerService owns the client set. All map access happens on the Run
// goroutine; handlers only touch the channels.
type ManagerService struct {
	Redis        *redis.Client
	Clients      map[string]Client
	RegisterCh   chan Client
	UnregisterCh chan Client

	eventCh chan models.LogEvent
	logger  *zap.Logger
}

func NewManagerService(rdb *redis.Client, logger *zap.Logger) *ManagerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ManagerService{
		Redis:        rdb,
		Clients:      make(map[string]Client),
		RegisterCh:   make(chan Client),
		UnregisterCh: make(chan Client),
		eventCh:      make(chan models.LogEvent, 64),
		logger:       logger,
	}
}

// StartPubSubListener subscribes to the ledger events channel and feeds the
// hub's event channel.
func (m *ManagerService) StartPubSubListener() {
	go func() {
		ctx := context.Background()
		pubsub := m.Redis.Subscribe(ctx, config.LedgerEventsChannel)
		defer pubsub.Close()

		for msg := range pubsub.Channel() {
			var ev models.LogEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				m.logger.Warn("bad ledger event payload", zap.Error(err))
				continue
			}
			m.eventCh <- ev
		}
	}()
}

// Run is the hub's main dispatch loop.
func (m *ManagerService) Run() {
	if m.Redis != nil {
		m.StartPubSubListener()
	}

	for {
		select {
		case client := <-m.RegisterCh:
			m.Clients[client.GetID()] = client
			m.logger.Info("event client connected", zap.String("client", client.GetID()))

		case client := <-m.UnregisterCh:
			if _, ok := m.Clients[client.GetID()]; ok {
				delete(m.Clients, client.GetID())
				client.Close()
			}

		case ev := <-m.eventCh:
			m.Broadcast(ev)
		}
	}
}

// Broadcast fans an event out to every connected client. Slow clients are
// dropped rather than allowed to stall the loop.
func (m *ManagerService) Broadcast(ev models.LogEvent) {
	for id, client := range m.Clients {
		select {
		case client.GetSendChannel() <- ev:
		default:
			delete(m.Clients, id)
			client.Close()
			m.logger.Warn("dropped slow event client", zap.String("client", id))
		}
	}
}
