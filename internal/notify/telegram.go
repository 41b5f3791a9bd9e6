package notify

import (
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"ai-interviewer/internal/interview"
)

// Notifier alerts an operator channel about terminated sessions.
type Notifier interface {
	SessionTerminated(payload interview.HandoffPayload)
}

// TelegramNotifier sends proctoring alerts to an admin chat.
type TelegramNotifier struct {
	api    *tgbotapi.BotAPI
	chatID int64
}

func NewTelegram(token string, chatID int64) (*TelegramNotifier, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &TelegramNotifier{api: api, chatID: chatID}, nil
}

func (n *TelegramNotifier) SessionTerminated(payload interview.HandoffPayload) {
	text := fmt.Sprintf("🚨 Interview terminated\nSession: %s\nCompany: %s\nRole: %s\nReason: %s",
		payload.SessionID, payload.Params.Company, payload.Params.Role, payload.Reason)
	msg := tgbotapi.NewMessage(n.chatID, text)
	if _, err := n.api.Send(msg); err != nil {
		log.Printf("failed to send termination alert: %v", err)
	}
}
