// Package notify forwards high-signal ledger events (escalations, locks) to
// the wardens' Telegram channel.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"hostelwatch/backend/internal/config"
	"hostelwatch/backend/internal/models"
)

// BotService relays ledger events into a Telegram chat. It consumes the same
// Redis channel as the event hub, so notifications fire no matter which
// backend instance committed the record.
type BotService struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	redis  *redis.Client
	logger *zap.Logger
}

func NewBotService(token string, chatID int64, rdb *redis.Client, logger *zap.Logger) (*BotService, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("notify: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BotService{bot: bot, chatID: chatID, redis: rdb, logger: logger}, nil
}

// Run blocks, consuming ledger events and forwarding the alert-worthy ones.
func (b *BotService) Run() {
	ctx := context.Background()
	pubsub := b.redis.Subscribe(ctx, config.LedgerEventsChannel)
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		var ev models.LogEvent
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			b.logger.Warn("bad ledger event payload", zap.Error(err))
			continue
		}
		if text, ok := alertText(ev); ok {
			if _, err := b.bot.Send(tgbotapi.NewMessage(b.chatID, text)); err != nil {
				b.logger.Warn("telegram send failed",
					zap.String("complaint_id", ev.ComplaintID),
					zap.Error(err),
				)
			}
		}
	}
}

func alertText(ev models.LogEvent) (string, bool) {
	switch ev.Action {
	case "escalated":
		return fmt.Sprintf("⚠️ Complaint %s escalated by %s", ev.ComplaintID, ev.ActorVitID), true
	case "locked":
		return fmt.Sprintf("🔒 Complaint %s locked by %s", ev.ComplaintID, ev.ActorVitID), true
	case "unlocked":
		return fmt.Sprintf("🔓 Complaint %s unlocked by %s", ev.ComplaintID, ev.ActorVitID), true
	default:
		return "", false
	}
}
