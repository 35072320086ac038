package bot

import (
	"context"
	"log"
	"sync"

	"github.com/example/edubot/internal/ai"
	"github.com/example/edubot/internal/database"
	"github.com/example/edubot/internal/progress"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// sender is the slice of the Telegram API the bot needs to reply
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// completer is the language-model call: messages in, text out, can fail
type completer interface {
	Complete(ctx context.Context, messages []ai.Message, temperature float64) (string, error)
}

// Bot represents the Telegram bot application
type Bot struct {
	api     sender
	token   string
	config  *Config
	gpt     completer
	store   *progress.Store
	users   *database.VerificationRepository
	history *database.HistoryRepository

	// One mailbox per chat: messages of a chat are handled strictly in
	// arrival order while different chats run concurrently.
	mu      sync.Mutex
	inboxes map[int64]chan tgbotapi.Update
	wg      sync.WaitGroup
}

// New creates a new bot instance
func New(token string, config *Config, gpt completer, store *progress.Store,
	users *database.VerificationRepository, history *database.HistoryRepository) *Bot {
	return &Bot{
		token:   token,
		config:  config,
		gpt:     gpt,
		store:   store,
		users:   users,
		history: history,
		inboxes: make(map[int64]chan tgbotapi.Update),
	}
}

// Start connects to Telegram and processes updates until ctx is done.
func (b *Bot) Start(ctx context.Context) error {
	api, err := tgbotapi.NewBotAPI(b.token)
	if err != nil {
		return err
	}
	b.api = api
	log.Printf("Authorized on account %s", api.Self.UserName)

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := api.GetUpdatesChan(updateConfig)

	for {
		select {
		case <-ctx.Done():
			api.StopReceivingUpdates()
			b.closeInboxes()
			b.wg.Wait()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				b.closeInboxes()
				b.wg.Wait()
				return nil
			}
			b.dispatch(ctx, update)
		}
	}
}

// dispatch routes an update to its chat's worker, starting one on demand.
func (b *Bot) dispatch(ctx context.Context, update tgbotapi.Update) {
	if update.Message == nil || update.Message.Chat == nil {
		return
	}
	chatID := update.Message.Chat.ID

	b.mu.Lock()
	inbox, ok := b.inboxes[chatID]
	if !ok {
		inbox = make(chan tgbotapi.Update, 16)
		b.inboxes[chatID] = inbox
		b.wg.Add(1)
		go b.chatWorker(ctx, inbox)
	}
	b.mu.Unlock()

	select {
	case inbox <- update:
	default:
		// Mailbox full: the chat is flooding faster than the model
		// answers, drop instead of stalling other chats
		log.Printf("Dropping update for chat %d: inbox full", chatID)
	}
}

// chatWorker handles one chat's updates sequentially.
func (b *Bot) chatWorker(ctx context.Context, inbox chan tgbotapi.Update) {
	defer b.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-inbox:
			if !ok {
				return
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) closeInboxes() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for chatID, inbox := range b.inboxes {
		close(inbox)
		delete(b.inboxes, chatID)
	}
}

// handleUpdate handles a single incoming update
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	message := update.Message
	if message == nil || message.Text == "" {
		return
	}

	if message.IsCommand() {
		switch message.Command() {
		case "start":
			b.handleStartCommand(ctx, message)
		default:
			b.reply(message.Chat.ID, "Unknown command. Send /start to begin.")
		}
		return
	}

	b.handleTextMessage(ctx, message)
}

// reply sends plain text to a chat; send failures are logged, never fatal
func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("Error sending message to chat %d: %v", chatID, err)
	}
}
