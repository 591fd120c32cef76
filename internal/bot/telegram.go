package bot

import (
	"context"
	"fmt"
	"strconv"

	"github.com/bowerhall/faqdesk/internal/agent"
	"github.com/bowerhall/faqdesk/internal/logger"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func newTelegram(token string, agent *agent.Agent) (Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	return &telegram{api: api, agent: agent}, nil
}

func (t *telegram) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := t.api.GetUpdatesChan(u)

	logger.Info("telegram bot started", "user", t.api.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			t.api.StopReceivingUpdates()
			return ctx.Err()
		case update := <-updates:
			if update.Message == nil || update.Message.From == nil || update.Message.From.IsBot {
				continue
			}

			go t.handleMessage(ctx, update.Message)
		}
	}
}

func (t *telegram) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	userID := fmt.Sprintf("telegram:%d", msg.From.ID)
	logger.Info("message received", "user", userID, "from", msg.From.UserName, "text", truncate(msg.Text, 50))

	var response string
	if cmd := parseCommand(msg.Text); cmd != cmdNone {
		response = runCommand(t.agent, cmd, userID)
	} else {
		t.api.Request(tgbotapi.NewChatAction(msg.Chat.ID, tgbotapi.ChatTyping))
		response = answer(ctx, t.agent, userID, msg.Text)
	}

	reply := tgbotapi.NewMessage(msg.Chat.ID, response)
	reply.ReplyToMessageID = msg.MessageID

	if _, err := t.api.Send(reply); err != nil {
		logger.Error("send failed", "error", err)
	} else {
		logger.Info("reply sent", "user", userID, "chars", len(response))
	}
}

// Send posts to a chat given by its numeric id.
func (t *telegram) Send(channel, message string) error {
	chatID, err := strconv.ParseInt(channel, 10, 64)
	if err != nil {
		return fmt.Errorf("telegram: invalid chat id %q: %w", channel, err)
	}

	msg := tgbotapi.NewMessage(chatID, message)
	_, err = t.api.Send(msg)
	if err != nil {
		logger.Error("proactive send failed", "error", err, "chatID", chatID)
	} else {
		logger.Info("proactive message sent", "chatID", chatID, "chars", len(message))
	}
	return err
}
