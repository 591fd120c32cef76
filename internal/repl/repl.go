// Package repl is the terminal tester: a line-oriented chat with the
// assistant that bypasses the relevance rules.
package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bowerhall/faqdesk/internal/agent"
	"github.com/bowerhall/faqdesk/internal/assistant"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

const userID = "terminal"

const helpText = `
🤖 Assistant terminal tester

Commands:
  <message>         talk to the assistant
  /help             show this help
  /reset            start a new conversation
  /status           show connection and usage
  /multiline        enter a message over several lines, end with an empty line
  /quit, /exit      leave

Ctrl+C or Ctrl+D also leaves.
`

type REPL struct {
	agent    *agent.Agent
	in       io.Reader
	out      io.Writer
	markdown *glamour.TermRenderer
	prompt   lipgloss.Style
	dim      lipgloss.Style
	count    int
}

// New returns a REPL reading from in and writing to out. Replies are
// rendered as markdown when out is a terminal.
func New(a *agent.Agent, in io.Reader, out io.Writer) *REPL {
	style := lipgloss.NewRenderer(out)

	r := &REPL{
		agent:  a,
		in:     in,
		out:    out,
		prompt: style.NewStyle().Foreground(lipgloss.Color("12")).Bold(true),
		dim:    style.NewStyle().Foreground(lipgloss.Color("8")),
	}

	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		r.markdown, _ = glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(80),
		)
	}

	return r
}

// Progress returns a poll observer that prints run status lines to w.
func Progress(w io.Writer) func(status assistant.RunStatus, attempt, limit int) {
	return func(status assistant.RunStatus, attempt, limit int) {
		fmt.Fprintf(w, "⏳ status: %s (%d/%d)\n", status, attempt, limit)
	}
}

// Run drives the conversation until the user quits, input ends or ctx is
// cancelled. It fails only when the assistant cannot be reached at startup.
func (r *REPL) Run(ctx context.Context) error {
	fmt.Fprintln(r.out, "🚀 Assistant terminal tester")
	fmt.Fprintln(r.out, strings.Repeat("=", 50))

	if err := r.connect(ctx); err != nil {
		return err
	}

	fmt.Fprintln(r.out, "\n✨ Ready. Type /help for commands.")
	fmt.Fprintln(r.out, strings.Repeat("-", 50))

	lines, stop := readLines(r.in)
	defer stop()

	for {
		fmt.Fprint(r.out, "\n"+r.prompt.Render(fmt.Sprintf("[%d] 💬 You:", r.count+1))+" ")

		var line string
		var ok bool
		select {
		case <-ctx.Done():
			fmt.Fprintln(r.out, "\n👋 Bye.")
			return nil
		case line, ok = <-lines:
		}
		if !ok {
			fmt.Fprintln(r.out, "\n👋 Bye.")
			return nil
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		switch strings.ToLower(input) {
		case "/quit", "/exit":
			fmt.Fprintln(r.out, "👋 Bye.")
			return nil
		case "/help":
			fmt.Fprint(r.out, helpText)
			continue
		case "/reset":
			r.reset(ctx)
			continue
		case "/status":
			r.status(ctx)
			continue
		case "/multiline":
			fmt.Fprintln(r.out, "Enter your message, finish with an empty line:")
			input = readMultiline(ctx, lines)
			if input == "" {
				continue
			}
		}

		r.ask(ctx, input)
	}
}

func (r *REPL) connect(ctx context.Context) error {
	fmt.Fprintln(r.out, "🔄 Fetching assistant...")

	info, err := r.agent.Info(ctx)
	if err != nil {
		fmt.Fprintf(r.out, "❌ Initialisation failed: %v\n", err)
		return err
	}

	fmt.Fprintf(r.out, "✅ Assistant '%s' connected\n", info.Name)
	if info.Description != "" {
		fmt.Fprintf(r.out, "📝 %s\n", info.Description)
	}

	threadID, err := r.agent.Reset(ctx, userID)
	if err != nil {
		fmt.Fprintf(r.out, "❌ Thread creation failed: %v\n", err)
		return err
	}

	fmt.Fprintf(r.out, "🆔 Thread ID: %s\n", threadID)
	return nil
}

func (r *REPL) ask(ctx context.Context, input string) {
	fmt.Fprintln(r.out, r.dim.Render("\n🤔 The assistant is thinking..."))

	reply := r.agent.Process(ctx, userID, input)

	fmt.Fprintln(r.out, "\n🤖 Assistant:")
	fmt.Fprintln(r.out, strings.Repeat("-", 30))
	fmt.Fprintln(r.out, r.render(reply))
	fmt.Fprintln(r.out, strings.Repeat("-", 30))

	r.count++
}

func (r *REPL) render(text string) string {
	if r.markdown == nil {
		return text
	}

	out, err := r.markdown.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}

func (r *REPL) reset(ctx context.Context) {
	threadID, err := r.agent.Reset(ctx, userID)
	if err != nil {
		fmt.Fprintf(r.out, "❌ Could not start a new conversation: %v\n", err)
		return
	}

	r.count = 0
	fmt.Fprintln(r.out, "🔄 A new conversation has started.")
	fmt.Fprintf(r.out, "🆔 New thread ID: %s\n", threadID)
}

func (r *REPL) status(ctx context.Context) {
	st := r.agent.Status(ctx)

	fmt.Fprintln(r.out, "\n📊 Status:")
	if st.Assistant != nil {
		fmt.Fprintf(r.out, "• Assistant: %s (%s, %s)\n", st.Assistant.Name, st.Assistant.ID, st.Assistant.Model)
	} else {
		fmt.Fprintln(r.out, "• Assistant: ❌ unreachable")
	}

	if threadID, ok := r.agent.Thread(userID); ok {
		fmt.Fprintf(r.out, "• Thread ID: %s\n", threadID)
	} else {
		fmt.Fprintln(r.out, "• Thread ID: ❌ none")
	}

	fmt.Fprintf(r.out, "• Messages: %d\n", r.count)

	if st.Usage.Runs > 0 {
		fmt.Fprintf(r.out, "• Tokens today: %d ($%.4f)\n", st.Usage.TotalTokens, st.Usage.CostUSD)
	}

	if len(st.Alerts) > 0 {
		latest := st.Alerts[0]
		fmt.Fprintf(r.out, "• Alerts: %d (latest: %s %s)\n", len(st.Alerts), latest.Component, latest.Message)
	}
}

// readLines scans in on its own goroutine so the loop can also watch ctx.
func readLines(in io.Reader) (<-chan string, func()) {
	lines := make(chan string)
	done := make(chan struct{})

	go func() {
		defer close(lines)

		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
	}()

	return lines, func() { close(done) }
}

func readMultiline(ctx context.Context, lines <-chan string) string {
	var parts []string

	for {
		select {
		case <-ctx.Done():
			return strings.TrimSpace(strings.Join(parts, "\n"))
		case line, ok := <-lines:
			if !ok || (line == "" && len(parts) > 0) {
				return strings.TrimSpace(strings.Join(parts, "\n"))
			}
			parts = append(parts, line)
		}
	}
}
