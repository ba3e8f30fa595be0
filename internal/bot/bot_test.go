package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/xaenox/sentiment-bot/internal/chat"
	"github.com/xaenox/sentiment-bot/internal/models"
	"github.com/xaenox/sentiment-bot/internal/session"
	"go.uber.org/zap"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []tgbotapi.MessageConfig
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) last(t *testing.T) tgbotapi.MessageConfig {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		t.Fatal("nothing was sent")
	}
	return f.sent[len(f.sent)-1]
}

type fixedPredictor struct{}

func (fixedPredictor) Predict(_ context.Context, text string) (models.PredictionResult, error) {
	return models.PredictionResult{Label: models.Positive, Confidence: 0.9, ModelVersion: "test"}, nil
}

const userID = 42

func setupBot() (*Bot, *fakeSender, *chat.Service) {
	sender := &fakeSender{}
	svc := chat.NewService(session.NewDirectory(), fixedPredictor{}, zap.NewNop())
	return newBot(sender, svc, zap.NewNop()), sender, svc
}

func textMessage(text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID: 7,
		Text:      text,
		Chat:      &tgbotapi.Chat{ID: 1},
		From:      &tgbotapi.User{ID: userID},
	}
}

func commandMessage(text string) *tgbotapi.Message {
	msg := textMessage(text)
	length := strings.IndexByte(text, ' ')
	if length < 0 {
		length = len(text)
	}
	msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: length}}
	return msg
}

func testIdentity() models.Identity {
	return models.Identity{ID: "telegram:42"}
}

func TestPlainTextIsClassified(t *testing.T) {
	b, sender, svc := setupBot()

	b.handleMessage(context.Background(), textMessage("بہت اچھا"))

	reply := sender.last(t)
	if !strings.Contains(reply.Text, "Positive") || reply.ReplyToMessageID != 7 {
		t.Fatalf("unexpected reply %+v", reply)
	}
	if got := svc.Sessions().Manager(testIdentity()).Search(""); len(got) != 1 {
		t.Fatalf("expected the exchange to be saved, got %+v", got)
	}
}

func TestNewAndChatsCommands(t *testing.T) {
	b, sender, _ := setupBot()

	b.handleMessage(context.Background(), textMessage("پہلی بات"))
	b.handleMessage(context.Background(), commandMessage("/new"))
	if got := sender.last(t).Text; got != "Started chat #2." {
		t.Fatalf("unexpected /new reply %q", got)
	}

	b.handleMessage(context.Background(), commandMessage("/chats"))
	list := sender.last(t)
	if list.ParseMode != tgbotapi.ModeMarkdownV2 || !strings.Contains(list.Text, "\\#1 پہلی بات \\(2\\)") {
		t.Fatalf("unexpected /chats reply %q", list.Text)
	}

	b.handleMessage(context.Background(), commandMessage("/chats missing"))
	if got := sender.last(t).Text; got != "No chats match your search." {
		t.Fatalf("unexpected filtered reply %q", got)
	}
}

func TestOpenAndDeleteCommands(t *testing.T) {
	b, sender, svc := setupBot()
	manager := svc.Sessions().Manager(testIdentity())

	b.handleMessage(context.Background(), textMessage("اچھا"))
	b.handleMessage(context.Background(), commandMessage("/new"))

	b.handleMessage(context.Background(), commandMessage("/open 1"))
	if manager.Active().ID != 1 {
		t.Fatalf("expected chat 1 to be active, got %d", manager.Active().ID)
	}

	b.handleMessage(context.Background(), commandMessage("/delete 1"))
	if !strings.HasPrefix(sender.last(t).Text, "Deleted chat #1.") {
		t.Fatalf("unexpected /delete reply %q", sender.last(t).Text)
	}
	if manager.Active().ID == 1 {
		t.Fatal("deleted chat must not stay active")
	}

	b.handleMessage(context.Background(), commandMessage("/open 1"))
	if !strings.HasPrefix(sender.last(t).Text, "Chat not found") {
		t.Fatalf("unexpected reply %q", sender.last(t).Text)
	}

	b.handleMessage(context.Background(), commandMessage("/open abc"))
	if got := sender.last(t).Text; got != "Usage: /open <chat id>" {
		t.Fatalf("unexpected usage reply %q", got)
	}
}

func TestUnknownCommand(t *testing.T) {
	b, sender, _ := setupBot()
	b.handleMessage(context.Background(), commandMessage("/tags"))
	if !strings.HasPrefix(sender.last(t).Text, "Unknown command") {
		t.Fatalf("unexpected reply %q", sender.last(t).Text)
	}
}

func TestEscapeMarkdown(t *testing.T) {
	got := escapeMarkdown("#1 (a.b)!")
	want := "\\#1 \\(a\\.b\\)\\!"
	if got != want {
		t.Fatalf("escapeMarkdown = %q, want %q", got, want)
	}
}

func TestFormatChatListTruncates(t *testing.T) {
	chats := make([]session.Summary, maxListedChats+3)
	for i := range chats {
		chats[i] = session.Summary{ID: models.SessionID(i + 1), Title: "x", MessageCount: 2}
	}
	got := formatChatList(chats)
	if !strings.Contains(got, "and 3 more") {
		t.Fatalf("expected truncation note, got %q", got)
	}
}

// jitterPredictor answers earlier messages more slowly than later ones.
type jitterPredictor struct{}

func (jitterPredictor) Predict(_ context.Context, text string) (models.PredictionResult, error) {
	if n, err := strconv.Atoi(strings.TrimPrefix(text, "پیغام ")); err == nil {
		time.Sleep(time.Duration(20-n) * time.Millisecond)
	}
	return models.PredictionResult{Label: models.Positive, Confidence: 0.9, ModelVersion: "test"}, nil
}

func TestDispatchKeepsArrivalOrderPerUser(t *testing.T) {
	sender := &fakeSender{}
	svc := chat.NewService(session.NewDirectory(), jitterPredictor{}, zap.NewNop())
	b := newBot(sender, svc, zap.NewNop())

	d := newDispatcher(func(message *tgbotapi.Message) {
		b.handleMessage(context.Background(), message)
	})
	const n = 20
	for i := 0; i < n; i++ {
		d.dispatch(textMessage(fmt.Sprintf("پیغام %d", i)))
	}
	other := textMessage("دوسرا صارف")
	other.From = &tgbotapi.User{ID: userID + 1}
	d.dispatch(other)
	d.dispatch(commandMessage("/new"))
	d.wait()

	manager := svc.Sessions().Manager(testIdentity())
	saved := manager.Search("")
	if len(saved) != 1 || saved[0].ID != 1 || saved[0].MessageCount != 2*n {
		t.Fatalf("expected every message in chat #1 before /new, got %+v", saved)
	}
	if manager.Active().ID != 2 {
		t.Fatalf("expected /new to run last, active is #%d", manager.Active().ID)
	}

	loaded, err := manager.LoadSession(1)
	if err != nil {
		t.Fatalf("LoadSession: %v", err)
	}
	var got []string
	for _, msg := range loaded.Messages {
		if msg.Role == models.RoleUser {
			got = append(got, msg.Content)
		}
	}
	for i := 0; i < n; i++ {
		if want := fmt.Sprintf("پیغام %d", i); got[i] != want {
			t.Fatalf("message %d out of order: got %q, want %q (all: %v)", i, got[i], want, got)
		}
	}

	if others := svc.Sessions().Manager(models.Identity{ID: "telegram:43"}).Active(); others.MessageCount() != 2 {
		t.Fatalf("expected the other user's exchange to be handled, got %+v", others)
	}
}

func TestDispatchReleasesIdleQueues(t *testing.T) {
	var mu sync.Mutex
	var handled int
	d := newDispatcher(func(*tgbotapi.Message) {
		mu.Lock()
		handled++
		mu.Unlock()
	})

	d.dispatch(textMessage("ایک"))
	d.wait()
	d.dispatch(textMessage("دو"))
	d.wait()

	d.mu.Lock()
	queued := len(d.queues)
	d.mu.Unlock()
	if handled != 2 || queued != 0 {
		t.Fatalf("expected 2 handled and no idle queues, got %d and %d", handled, queued)
	}
}
