package notify

import (
	"fmt"

	"hoteldesk/internal/config"
	"hoteldesk/internal/domain"
	"hoteldesk/internal/events"
	"hoteldesk/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// NewBot connects to the Telegram Bot API. It returns nil when no token is configured.
func NewBot(cfg config.TelegramConfig) (*tgbotapi.BotAPI, error) {
	if cfg.BotToken == "" {
		return nil, nil
	}
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	bot.Debug = cfg.Debug
	return bot, nil
}

// Notifier tells managers about late checkout fines and low stock.
type Notifier struct {
	sender domain.TelegramSender
	chats  []int64
	logger *zerolog.Logger
}

func NewNotifier(sender domain.TelegramSender, chats []int64, logger *zerolog.Logger) *Notifier {
	return &Notifier{sender: sender, chats: chats, logger: logger}
}

// Enabled reports whether there is a bot and at least one chat to notify.
func (n *Notifier) Enabled() bool {
	return n != nil && n.sender != nil && len(n.chats) > 0
}

// Subscribe registers the notifier for fine and low stock events on bus.
func (n *Notifier) Subscribe(bus *events.EventBus) {
	if !n.Enabled() || bus == nil {
		return
	}
	bus.Subscribe(events.EventLateFineApplied, n.HandleEvent)
	bus.Subscribe(events.EventLateFineWaived, n.HandleEvent)
	bus.Subscribe(events.EventStockLow, n.HandleEvent)
}

func (n *Notifier) HandleEvent(e *events.Event) error {
	var (
		text string
		ref  string
	)
	switch e.Type {
	case events.EventLateFineApplied, events.EventLateFineWaived:
		var p events.BookingEventPayload
		if err := e.Decode(&p); err != nil {
			return fmt.Errorf("decode %s: %w", e.Type, err)
		}
		ref = p.BookingNo
		if e.Type == events.EventLateFineApplied {
			text = fineAppliedText(&p)
		} else {
			text = fineWaivedText(&p)
		}
	case events.EventStockLow:
		var p events.StockEventPayload
		if err := e.Decode(&p); err != nil {
			return fmt.Errorf("decode %s: %w", e.Type, err)
		}
		ref = p.ItemName
		text = lowStockText(&p)
	default:
		return nil
	}

	var firstErr error
	for _, chatID := range n.chats {
		msg := tgbotapi.NewMessage(chatID, text)
		if _, err := n.sender.Send(msg); err != nil {
			n.logger.Error().Err(err).Int64("chat_id", chatID).Str("ref", ref).Msg("Failed to notify manager")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func fineAppliedText(p *events.BookingEventPayload) string {
	out := "-"
	if p.ActualOut != nil {
		out = p.ActualOut.Format(models.TimestampLayout)
	}
	return fmt.Sprintf(`Late checkout fine applied

Booking: %s
Invoice: %s
Guest: %s
Room: %s
Checked out: %s
Minutes late: %d
Fine: %.2f`,
		p.BookingNo, p.InvoiceNumber, p.GuestName, p.RoomNumber, out, p.MinutesLate, p.FineAmount)
}

func fineWaivedText(p *events.BookingEventPayload) string {
	return fmt.Sprintf(`Late checkout fine waived

Booking: %s
Guest: %s
Waived by: %s
Reason: %s`,
		p.BookingNo, p.GuestName, p.ChangedBy, p.Reason)
}

func lowStockText(p *events.StockEventPayload) string {
	code := p.ItemCode
	if code == "" {
		code = "-"
	}
	return fmt.Sprintf(`Low stock

Item: %s
Code: %s
In stock: %d
Reorder level: %d`,
		p.ItemName, code, p.CurrentStock, p.MinStockLevel)
}
