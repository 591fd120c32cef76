package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bowerhall/faqdesk/internal/agent"
	"github.com/bowerhall/faqdesk/internal/logger"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
)

const homeText = `🤖 *Welcome to the FAQ bot!*

This bot answers questions about the bootcamp.

*Topics:* attendance, daily missions, assignments, capstone projects, peer sessions, curriculum, completion criteria and the LMS.

*How to use:*
• Mention the bot in a channel. Answers appear in a thread.
• Send the bot a direct message.
• ` + "`/reset_chat`" + ` resets your chat history, ` + "`/help`" + ` shows usage.`

func newSlack(botToken, appToken, apiURL string, agent *agent.Agent) (Bot, error) {
	if botToken == "" || appToken == "" {
		return nil, fmt.Errorf("slack: bot token and app token are required")
	}

	opts := []slack.Option{slack.OptionAppLevelToken(appToken)}
	if apiURL != "" {
		opts = append(opts, slack.OptionAPIURL(apiURL))
	}

	api := slack.New(botToken, opts...)
	socket := socketmode.New(api,
		socketmode.OptionLog(slog.NewLogLogger(logger.Logger().Handler(), slog.LevelDebug)),
	)

	return &slackBot{api: api, socket: socket, agent: agent}, nil
}

func (s *slackBot) Start(ctx context.Context) error {
	auth, err := s.api.AuthTestContext(ctx)
	if err != nil {
		return fmt.Errorf("slack auth: %w", err)
	}

	s.botUserID = auth.UserID
	logger.Info("slack bot authenticated", "user", auth.UserID, "team", auth.Team)

	go s.loop(ctx)

	return s.socket.RunContext(ctx)
}

func (s *slackBot) Send(channel, message string) error {
	_, _, err := s.api.PostMessage(channel, slack.MsgOptionText(message, false))
	if err != nil {
		logger.Error("slack send failed", "error", err, "channel", channel)
	}
	return err
}

func (s *slackBot) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-s.socket.Events:
			if !ok {
				return
			}
			s.dispatch(ctx, evt)
		}
	}
}

func (s *slackBot) dispatch(ctx context.Context, evt socketmode.Event) {
	switch evt.Type {
	case socketmode.EventTypeConnecting:
		logger.Info("connecting to slack")
	case socketmode.EventTypeConnected:
		logger.Info("connected to slack")
	case socketmode.EventTypeConnectionError:
		logger.Warn("slack connection error", "data", evt.Data)
	case socketmode.EventTypeEventsAPI:
		event, ok := evt.Data.(slackevents.EventsAPIEvent)
		if !ok {
			return
		}
		s.socket.Ack(*evt.Request)

		switch ev := event.InnerEvent.Data.(type) {
		case *slackevents.AppMentionEvent:
			go s.handleMention(ctx, ev)
		case *slackevents.MessageEvent:
			go s.handleDirectMessage(ctx, ev)
		case *slackevents.AppHomeOpenedEvent:
			go s.publishHome(ctx, ev.User)
		}
	case socketmode.EventTypeSlashCommand:
		cmd, ok := evt.Data.(slack.SlashCommand)
		if !ok {
			return
		}
		s.socket.Ack(*evt.Request, map[string]any{
			"response_type": "ephemeral",
			"text":          s.slashReply(cmd),
		})
	}
}

func (s *slackBot) handleMention(ctx context.Context, ev *slackevents.AppMentionEvent) {
	if ev.BotID != "" || ev.User == "" {
		return
	}

	if !mentions(ev.Text, s.botUserID) {
		return
	}

	text := stripMentions(ev.Text)
	logger.Info("mention received", "user", ev.User, "channel", ev.Channel, "text", truncate(text, 50))

	if text == "" {
		s.post(ctx, ev.Channel, ev.TimeStamp, greetingMessage)
		return
	}

	sessions := s.agent.Sessions()
	if !sessions.TryAcquire(ev.User) {
		s.post(ctx, ev.Channel, ev.TimeStamp, busyMessage)
		return
	}
	defer sessions.Release(ev.User)

	loadingTS := s.post(ctx, ev.Channel, ev.TimeStamp, loadingMessage)

	reply := s.agent.Process(ctx, ev.User, text)
	s.replace(ctx, ev.Channel, ev.TimeStamp, loadingTS, "🤖 "+reply)
}

func (s *slackBot) handleDirectMessage(ctx context.Context, ev *slackevents.MessageEvent) {
	if ev.ChannelType != "im" || ev.BotID != "" || ev.SubType != "" || ev.User == "" {
		return
	}

	text := strings.TrimSpace(ev.Text)
	logger.Info("direct message received", "user", ev.User, "text", truncate(text, 50))

	if text == "" {
		s.post(ctx, ev.Channel, "", greetingMessage)
		return
	}

	sessions := s.agent.Sessions()
	if !sessions.TryAcquire(ev.User) {
		s.post(ctx, ev.Channel, "", busyMessage)
		return
	}
	defer sessions.Release(ev.User)

	loadingTS := s.post(ctx, ev.Channel, "", thinkingMessage)

	reply := s.agent.Process(ctx, ev.User, text)
	s.replace(ctx, ev.Channel, "", loadingTS, formatDirectReply(text, reply))
}

func (s *slackBot) slashReply(cmd slack.SlashCommand) string {
	logger.Info("slash command received", "command", cmd.Command, "user", cmd.UserID)

	switch cmd.Command {
	case "/reset_chat":
		return runCommand(s.agent, cmdReset, cmd.UserID)
	case "/help":
		return runCommand(s.agent, cmdHelp, cmd.UserID)
	default:
		return fmt.Sprintf("Unknown command: %s", cmd.Command)
	}
}

func (s *slackBot) publishHome(ctx context.Context, userID string) {
	view := slack.HomeTabViewRequest{
		Type: slack.VTHomeTab,
		Blocks: slack.Blocks{BlockSet: []slack.Block{
			slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, homeText, false, false), nil, nil),
		}},
	}

	if _, err := s.api.PublishViewContext(ctx, slack.PublishViewContextRequest{UserID: userID, View: view}); err != nil {
		logger.Error("home tab publish failed", "user", userID, "error", err)
	}
}

// post sends text to the channel, in a thread when threadTS is set, and
// returns the new message timestamp.
func (s *slackBot) post(ctx context.Context, channel, threadTS, text string) string {
	opts := []slack.MsgOption{slack.MsgOptionText(text, false)}
	if threadTS != "" {
		opts = append(opts, slack.MsgOptionTS(threadTS))
	}

	_, ts, err := s.api.PostMessageContext(ctx, channel, opts...)
	if err != nil {
		logger.Error("slack post failed", "channel", channel, "error", err)
		return ""
	}

	return ts
}

// replace edits the loading message in place, falling back to a new message
// when the loading message could not be posted or updated.
func (s *slackBot) replace(ctx context.Context, channel, threadTS, ts, text string) {
	if ts != "" {
		_, _, _, err := s.api.UpdateMessageContext(ctx, channel, ts, slack.MsgOptionText(text, false))
		if err == nil {
			logger.Info("reply sent", "channel", channel, "chars", len(text))
			return
		}
		logger.Warn("slack update failed, posting instead", "channel", channel, "error", err)
	}

	s.post(ctx, channel, threadTS, text)
}

func formatDirectReply(question, answer string) string {
	return fmt.Sprintf("💬 *Question:* %s\n\n🤖 *Answer:*\n%s", question, answer)
}
