package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/xaenox/sentiment-bot/internal/chat"
	"github.com/xaenox/sentiment-bot/internal/models"
	"github.com/xaenox/sentiment-bot/internal/session"
	"go.uber.org/zap"
)

const maxListedChats = 10

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Bot struct {
	api    *tgbotapi.BotAPI
	sender sender
	chat   *chat.Service
	logger *zap.Logger
}

func New(token string, chat *chat.Service, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b := newBot(api, chat, logger)
	b.api = api
	return b, nil
}

func newBot(s sender, chat *chat.Service, logger *zap.Logger) *Bot {
	return &Bot{
		sender: s,
		chat:   chat,
		logger: logger,
	}
}

// Start polls for updates until ctx is canceled, then waits for in-flight
// messages to finish. Each user's messages are handled in the order they
// arrive.
func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	b.logger.Info("Bot started", zap.String("username", b.api.Self.UserName))

	d := newDispatcher(func(message *tgbotapi.Message) {
		b.handleMessage(ctx, message)
	})
	defer d.wait()

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			d.dispatch(update.Message)
		}
	}
}

func identityOf(user *tgbotapi.User) models.Identity {
	return models.Identity{ID: "telegram:" + strconv.FormatInt(user.ID, 10)}
}

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	if message.From == nil {
		return
	}

	if message.IsCommand() {
		b.handleCommand(message)
		return
	}

	// Get content from message
	content := message.Text
	if message.Caption != "" {
		content = message.Caption
	}
	if strings.TrimSpace(content) == "" {
		b.sendMessage(message.Chat.ID, "Please send me some text to analyse.")
		return
	}

	exchange, err := b.chat.HandleMessage(ctx, identityOf(message.From), content)
	if err != nil && exchange.Reply.Content == "" {
		b.logger.Error("Failed to handle message",
			zap.Error(err),
			zap.Int64("user_id", message.From.ID))
		b.sendErrorMessage(message.Chat.ID, "Sorry, I couldn't process your message. Please try again.")
		return
	}

	b.sendReply(message.Chat.ID, message.MessageID, exchange.Reply.Content)
}

func (b *Bot) handleCommand(message *tgbotapi.Message) {
	switch message.Command() {
	case "start":
		b.handleStart(message)
	case "help":
		b.handleHelp(message)
	case "new":
		b.handleNew(message)
	case "chats":
		b.handleChats(message)
	case "open":
		b.handleOpen(message)
	case "delete":
		b.handleDelete(message)
	default:
		b.sendMessage(message.Chat.ID, "Unknown command. Use /help to see available commands.")
	}
}

func (b *Bot) handleStart(message *tgbotapi.Message) {
	welcome := `Welcome to the Urdu Sentiment Bot! 💬
Send me a review or any text in Urdu and I'll tell you whether it sounds positive or negative.

Your conversations are saved as chats. Use /help to see all available commands.`

	b.sendMessage(message.Chat.ID, welcome)
}

func (b *Bot) handleHelp(message *tgbotapi.Message) {
	help := `Available commands:
/start - Start the bot
/help - Show this help message
/new - Start a new chat
/chats [query] - List your saved chats, optionally filtered by title
/open <id> - Continue a saved chat
/delete <id> - Delete a chat

Any other text is analysed in your current chat.`

	b.sendMessage(message.Chat.ID, help)
}

func (b *Bot) handleNew(message *tgbotapi.Message) {
	manager, unlock := b.chat.Sessions().Lock(identityOf(message.From))
	defer unlock()

	created := manager.CreateSession()
	b.sendMessage(message.Chat.ID, fmt.Sprintf("Started chat #%d.", created.ID))
}

func (b *Bot) handleChats(message *tgbotapi.Message) {
	query := strings.TrimSpace(message.CommandArguments())
	chats := b.chat.Sessions().Manager(identityOf(message.From)).Search(query)

	if len(chats) == 0 {
		if query != "" {
			b.sendMessage(message.Chat.ID, "No chats match your search.")
			return
		}
		b.sendMessage(message.Chat.ID, "You don't have any saved chats yet.")
		return
	}

	b.sendMarkdown(message.Chat.ID, formatChatList(chats))
}

func (b *Bot) handleOpen(message *tgbotapi.Message) {
	id, ok := b.parseChatID(message)
	if !ok {
		return
	}

	manager, unlock := b.chat.Sessions().Lock(identityOf(message.From))
	defer unlock()

	loaded, err := manager.LoadSession(id)
	if err != nil {
		b.sendSessionError(message, err)
		return
	}
	b.sendMessage(message.Chat.ID, fmt.Sprintf("Opened chat #%d: %s (%d messages).",
		loaded.ID, loaded.Title, loaded.MessageCount()))
}

func (b *Bot) handleDelete(message *tgbotapi.Message) {
	id, ok := b.parseChatID(message)
	if !ok {
		return
	}

	manager, unlock := b.chat.Sessions().Lock(identityOf(message.From))
	defer unlock()

	if err := manager.DeleteSession(id); err != nil {
		b.sendSessionError(message, err)
		return
	}
	b.sendMessage(message.Chat.ID, fmt.Sprintf("Deleted chat #%d. Current chat is #%d.", id, manager.Active().ID))
}

func (b *Bot) parseChatID(message *tgbotapi.Message) (models.SessionID, bool) {
	arg := strings.TrimSpace(message.CommandArguments())
	n, err := strconv.ParseInt(strings.TrimPrefix(arg, "#"), 10, 64)
	if err != nil || n <= 0 {
		b.sendMessage(message.Chat.ID, fmt.Sprintf("Usage: /%s <chat id>", message.Command()))
		return 0, false
	}
	return models.SessionID(n), true
}

func (b *Bot) sendSessionError(message *tgbotapi.Message, err error) {
	if errors.Is(err, session.ErrSessionNotFound) {
		b.sendMessage(message.Chat.ID, "Chat not found. Use /chats to see your chats.")
		return
	}
	b.logger.Error("Session command failed",
		zap.Error(err),
		zap.String("command", message.Command()),
		zap.Int64("user_id", message.From.ID))
	b.sendErrorMessage(message.Chat.ID, "Sorry, something went wrong. Please try again.")
}

func formatChatList(chats []session.Summary) string {
	response := "*Your chats:*\n"
	for i, c := range chats {
		if i == maxListedChats {
			response += escapeMarkdown(fmt.Sprintf("…and %d more", len(chats)-maxListedChats)) + "\n"
			break
		}
		response += fmt.Sprintf("%s %s \\(%d\\)\n",
			escapeMarkdown(fmt.Sprintf("#%d", c.ID)),
			escapeMarkdown(c.Title),
			c.MessageCount)
	}
	return response
}

// escapeMarkdown escapes the characters MarkdownV2 reserves.
func escapeMarkdown(text string) string {
	specialChars := []string{"\\", "_", "*", "[", "]", "(", ")", "~", "`", ">", "#", "+", "-", "=", "|", "{", "}", ".", "!"}
	escaped := text
	for _, char := range specialChars {
		escaped = strings.ReplaceAll(escaped, char, "\\"+char)
	}
	return escaped
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.sender.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) sendMarkdown(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	if _, err := b.sender.Send(msg); err != nil {
		b.logger.Error("Failed to send markdown message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) sendReply(chatID int64, replyToID int, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyToMessageID = replyToID
	if _, err := b.sender.Send(msg); err != nil {
		b.logger.Error("Failed to send sentiment reply",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) sendErrorMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, "⚠️ "+text)
	if _, err := b.sender.Send(msg); err != nil {
		b.logger.Error("Failed to send error message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}
