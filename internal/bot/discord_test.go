package bot

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/bowerhall/faqdesk/internal/assistant/assistanttest"
	"github.com/bwmarrin/discordgo"
)

type discordCall struct {
	path    string
	content string
	replyTo string
}

type fakeDiscord struct {
	mu    sync.Mutex
	calls []discordCall
}

func (f *fakeDiscord) handler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Content   string `json:"content"`
		Reference *struct {
			MessageID string `json:"message_id"`
		} `json:"message_reference"`
	}
	json.NewDecoder(r.Body).Decode(&body)

	call := discordCall{path: r.URL.Path, content: body.Content}
	if body.Reference != nil {
		call.replyTo = body.Reference.MessageID
	}

	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()

	if strings.HasSuffix(r.URL.Path, "/typing") {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"id":"m2","channel_id":"C1"}`))
}

// replies returns the message posts, skipping typing indicators.
func (f *fakeDiscord) replies() []discordCall {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []discordCall
	for _, c := range f.calls {
		if strings.HasSuffix(c.path, "/messages") {
			out = append(out, c)
		}
	}
	return out
}

func newTestDiscord(t *testing.T, fake *assistanttest.Fake) (*discord, *discordgo.Session, *fakeDiscord) {
	t.Helper()

	recorder := &fakeDiscord{}
	srv := httptest.NewServer(http.HandlerFunc(recorder.handler))
	t.Cleanup(srv.Close)

	// discordgo builds its endpoints from package variables
	saved := discordgo.EndpointChannels
	discordgo.EndpointChannels = srv.URL + "/channels/"
	t.Cleanup(func() { discordgo.EndpointChannels = saved })

	session, err := discordgo.New("Bot test")
	if err != nil {
		t.Fatalf("discordgo.New failed: %v", err)
	}
	session.State.User = &discordgo.User{ID: "B0T"}

	d := &discord{session: session, agent: newTestAgent(fake), ctx: context.Background()}
	return d, session, recorder
}

func discordMessage(guildID, authorID, content string) *discordgo.MessageCreate {
	return &discordgo.MessageCreate{Message: &discordgo.Message{
		ID:        "m1",
		ChannelID: "C1",
		GuildID:   guildID,
		Content:   content,
		Author:    &discordgo.User{ID: authorID, Username: "kim"},
	}}
}

func TestDiscordDirectMessage(t *testing.T) {
	fake := assistanttest.Completing("Attendance is checked at 9am.")
	d, session, recorder := newTestDiscord(t, fake)

	d.handleMessage(session, discordMessage("", "U1", "what is the attendance policy?"))

	replies := recorder.replies()
	if len(replies) != 1 {
		t.Fatalf("expected 1 reply, got %d", len(replies))
	}

	if replies[0].content != "Attendance is checked at 9am." || replies[0].replyTo != "m1" {
		t.Errorf("unexpected reply %+v", replies[0])
	}
	if replies[0].path != "/channels/C1/messages" {
		t.Errorf("unexpected path %s", replies[0].path)
	}
}

func TestDiscordGuildNeedsMention(t *testing.T) {
	fake := assistanttest.Completing("ok")
	d, session, recorder := newTestDiscord(t, fake)

	d.handleMessage(session, discordMessage("G1", "U1", "what is the attendance policy?"))
	if len(recorder.replies()) != 0 {
		t.Fatal("guild messages without a mention should be ignored")
	}

	d.handleMessage(session, discordMessage("G1", "U1", "<@B0T> what is the attendance policy?"))

	replies := recorder.replies()
	if len(replies) != 1 || replies[0].content != "ok" {
		t.Fatalf("expected a reply to the mention, got %+v", replies)
	}

	if len(fake.Messages) != 1 || fake.Messages[0] != "what is the attendance policy?" {
		t.Errorf("expected mention to be stripped, got %v", fake.Messages)
	}
}

func TestDiscordIgnoresBots(t *testing.T) {
	d, session, recorder := newTestDiscord(t, assistanttest.Completing("ok"))

	d.handleMessage(session, discordMessage("", "B0T", "hello"))

	other := discordMessage("", "U9", "hello")
	other.Author.Bot = true
	d.handleMessage(session, other)

	if len(recorder.replies()) != 0 {
		t.Error("bot authors should be ignored")
	}
}

func TestDiscordHelpCommand(t *testing.T) {
	fake := assistanttest.Completing("ok")
	d, session, recorder := newTestDiscord(t, fake)

	d.handleMessage(session, discordMessage("", "U1", "/help"))

	replies := recorder.replies()
	if len(replies) != 1 || replies[0].content != truncate(helpText, discordMessageLimit-3) {
		t.Errorf("expected help text, got %+v", replies)
	}

	if len(fake.Messages) != 0 {
		t.Errorf("commands should not reach the assistant, got %v", fake.Messages)
	}
}
