package bot

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/bowerhall/faqdesk/internal/agent"
	"github.com/bowerhall/faqdesk/internal/logger"
	"github.com/bowerhall/faqdesk/internal/runner"
	"github.com/bowerhall/faqdesk/internal/session"
)

const (
	greetingMessage  = "Hi! 🤖 What can I help you with?"
	busyMessage      = runner.WarningMarker + " I'm still working on your previous question. Please wait a moment."
	loadingMessage   = "🤔 Generating an answer..."
	thinkingMessage  = "🤔 Thinking..."
	resetDoneMessage = "🔄 Your chat history has been reset!"
	resetNoneMessage = "ℹ️ There is no chat history to reset."
)

const helpText = `🤖 *FAQ bot*

*Topics I can answer:*
• Attendance (absence, lateness, leaving early)
• Daily missions and assignment submission
• Capstone projects
• Peer sessions
• Curriculum and session schedule
• Completion criteria and grading
• LMS usage and administration

*How to ask:*
*1. Mention me (recommended):* ` + "`@faq-bot What is the attendance policy?`" + `
   Answers appear in a thread.
*2. Direct message:* send me a DM.
*3. Commands:*
   • ` + "`/reset_chat`" + ` resets your chat history
   • ` + "`/help`" + ` shows this message

*Note:* only bootcamp questions are answered. Please contact the staff for anything else.`

var mentionPattern = regexp.MustCompile(`<@!?[A-Z0-9]+>`)

// stripMentions removes user mentions and surrounding whitespace.
func stripMentions(text string) string {
	return strings.TrimSpace(mentionPattern.ReplaceAllString(text, ""))
}

// mentions reports whether text mentions userID.
func mentions(text, userID string) bool {
	if userID == "" {
		return true
	}
	return strings.Contains(text, "<@"+userID+">") || strings.Contains(text, "<@!"+userID+">")
}

type command int

const (
	cmdNone command = iota
	cmdReset
	cmdHelp
)

// parseCommand recognises "/reset", "/reset_chat", "/start" and "/help",
// including Telegram's "/help@botname" form.
func parseCommand(text string) command {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return cmdNone
	}

	name, _, _ := strings.Cut(strings.ToLower(fields[0]), "@")
	switch name {
	case "/reset", "/reset_chat":
		return cmdReset
	case "/help", "/start":
		return cmdHelp
	default:
		return cmdNone
	}
}

// runCommand executes a chat command and returns the reply.
func runCommand(a *agent.Agent, cmd command, userID string) string {
	switch cmd {
	case cmdReset:
		if a.Forget(userID) {
			logger.Info("chat history reset", "user", userID)
			return resetDoneMessage
		}
		return resetNoneMessage
	case cmdHelp:
		return helpText
	default:
		return ""
	}
}

// answer runs a question through the agent under the user's processing lock.
func answer(ctx context.Context, a *agent.Agent, userID, text string) string {
	if strings.TrimSpace(text) == "" {
		return greetingMessage
	}

	reply, err := a.TryProcess(ctx, userID, text)
	if errors.Is(err, session.ErrBusy) {
		return busyMessage
	}

	return reply
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}

	return string([]rune(s)[:limit]) + "..."
}
