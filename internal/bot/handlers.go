package bot

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/example/edubot/internal/ai"
	"github.com/example/edubot/internal/database"
	"github.com/example/edubot/internal/progress"
	"github.com/example/edubot/pkg/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Canned replies used when the model call or the lookup fails.
const (
	fallbackGreeting = "Hi! I'm your course assistant. Send me the email you used to enroll " +
		"and I'll find your progress."
	fallbackModelError = "Что-то пошло не так. Попробуйте позже."
	notFoundReply      = "I couldn't find that email among our students. " +
		"Please check the spelling and send it again."
	emailTakenReply = "This email is already registered with another chat."
)

// handleStartCommand handles the /start command. A verified chat keeps
// its binding forever; an unverified chat is greeted and asked for an
// email.
func (b *Bot) handleStartCommand(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID

	rec, err := b.users.GetByChat(ctx, chatID)
	if err != nil {
		log.Printf("Error looking up chat %d: %v", chatID, err)
		b.reply(chatID, fallbackModelError)
		return
	}

	if rec != nil && rec.Verified {
		b.reply(chatID, fmt.Sprintf("You are already verified as %s. The email cannot be changed.", rec.Email))
		return
	}

	messages := []ai.Message{
		{Role: "system", Content: b.config.Persona},
		{Role: "user", Content: "Greet a new student and ask for the email they used to enroll, so their progress can be found."},
	}
	greeting, err := b.gpt.Complete(ctx, messages, b.config.Temperature)
	if err != nil {
		log.Printf("Error generating greeting for chat %d: %v", chatID, err)
		greeting = fallbackGreeting
	}
	b.reply(chatID, greeting)
}

// handleTextMessage routes free text depending on the chat's state:
// unverified chats are in the verification flow, verified chats talk to
// the model.
func (b *Bot) handleTextMessage(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID

	rec, err := b.users.GetByChat(ctx, chatID)
	if err != nil {
		log.Printf("Error looking up chat %d: %v", chatID, err)
		b.reply(chatID, fallbackModelError)
		return
	}

	if rec == nil || !rec.Verified {
		b.handleVerification(ctx, message)
		return
	}
	b.handleChat(ctx, message, rec)
}

// handleVerification treats the message text as a candidate email and
// tries to bind it to the chat.
func (b *Bot) handleVerification(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	email := models.NormalizeEmail(message.Text)

	// Claimed by another chat already?
	if existing, err := b.users.GetByEmail(ctx, email); err != nil {
		log.Printf("Error looking up email for chat %d: %v", chatID, err)
		b.reply(chatID, fallbackModelError)
		return
	} else if existing != nil && existing.ChatID != chatID {
		log.Printf("Verification rejected for chat %d: email already bound", chatID)
		b.reply(chatID, emailTakenReply)
		return
	}

	sp, ok := b.store.Get(email)
	if !ok {
		log.Printf("Verification failed for chat %d: email not found", chatID)
		b.reply(chatID, notFoundReply)
		return
	}

	if _, err := b.users.Bind(ctx, chatID, email); err != nil {
		// Lost a race for the same email: same user-visible outcome as
		// the pre-check above.
		if errors.Is(err, database.ErrIdentityTaken) || errors.Is(err, database.ErrAlreadyVerified) {
			b.reply(chatID, emailTakenReply)
			return
		}
		log.Printf("Error binding chat %d: %v", chatID, err)
		b.reply(chatID, fallbackModelError)
		return
	}
	log.Printf("User verification successful - chat %d, email %s", chatID, email)

	tier := progress.Classify(sp.ExpectedResult)
	messages := []ai.Message{
		{Role: "system", Content: b.config.Persona},
		{Role: "user", Content: progress.Prompt(sp.ExpectedResult) +
			" This is the student's first message after verification, so start by welcoming them to the chat."},
	}

	welcome, err := b.gpt.Complete(ctx, messages, b.config.Temperature)
	if err != nil {
		log.Printf("Error generating welcome for chat %d: %v", chatID, err)
		welcome = "You are verified. Ask me anything about your course!"
	}
	b.reply(chatID, fmt.Sprintf("✅ Verified as %s\nStatus: %s\n\n%s", email, tier, welcome))
}

// handleChat is the normal dialog turn of a verified chat: record the
// user turn, build a bounded context window, ask the model, record and
// send the answer.
func (b *Bot) handleChat(ctx context.Context, message *tgbotapi.Message, rec *models.VerificationRecord) {
	chatID := message.Chat.ID

	userTurn := &models.ConversationTurn{
		ChatID:    chatID,
		MessageID: int64(message.MessageID),
		UserID:    message.From.ID,
		Role:      models.RoleUser,
		Content:   message.Text,
	}
	if _, err := b.history.Append(ctx, userTurn); err != nil {
		log.Printf("Error recording user turn for chat %d: %v", chatID, err)
		b.reply(chatID, fallbackModelError)
		return
	}

	tail, err := b.history.Tail(ctx, chatID, b.config.Tail)
	if err != nil {
		log.Printf("Error loading history for chat %d: %v", chatID, err)
		b.reply(chatID, fallbackModelError)
		return
	}

	messages := make([]ai.Message, 0, len(tail)+1)
	messages = append(messages, ai.Message{Role: "system", Content: b.config.Persona})
	for _, turn := range tail {
		messages = append(messages, ai.Message{Role: turn.Role, Content: turn.Content})
	}

	answer, err := b.gpt.Complete(ctx, messages, b.config.Temperature)
	if err != nil {
		// The user turn stays recorded; the exchange is not retried
		log.Printf("GPT interaction failed - chat %d: %v", chatID, err)
		b.reply(chatID, fallbackModelError)
		return
	}

	assistantTurn := &models.ConversationTurn{
		ChatID:    chatID,
		MessageID: int64(message.MessageID) + 1,
		Role:      models.RoleAssistant,
		Content:   answer,
	}
	if _, err := b.history.Append(ctx, assistantTurn); err != nil {
		log.Printf("Error recording assistant turn for chat %d: %v", chatID, err)
	}

	b.reply(chatID, answer)
}

// RefreshProgress re-fetches the student data and pushes tier-flavored
// notifications to every verified chat whose metric moved by at least
// epsilon. Implements the scheduler's job interface.
func (b *Bot) RefreshProgress(ctx context.Context) error {
	previous := b.store.Snapshot()

	count, err := b.store.Refresh()
	if err != nil {
		// Operator-facing only; users keep the previous snapshot
		return err
	}
	log.Printf("Student progress refreshed: %d records", count)

	changes := b.store.DiffSince(previous)
	if len(changes) == 0 {
		return nil
	}

	for _, change := range changes {
		if err := b.notifyChange(ctx, change); err != nil {
			// One chat's failure must not block the rest
			log.Printf("Error notifying about %s: %v", change.Email, err)
		}
	}
	return nil
}

// notifyChange sends one unsolicited progress update, if the student has
// a verified chat.
func (b *Bot) notifyChange(ctx context.Context, change progress.Change) error {
	rec, err := b.users.GetByEmail(ctx, change.Email)
	if err != nil {
		return err
	}
	if rec == nil || !rec.Verified {
		return nil
	}

	messages := []ai.Message{
		{Role: "system", Content: b.config.Persona},
		{Role: "user", Content: progress.Prompt(change.NewMetric) +
			" This is an automatic update: the student's progress data was just refreshed, " +
			"so mention that you are checking in with their latest standing."},
	}

	text, err := b.gpt.Complete(ctx, messages, b.config.Temperature)
	if err != nil {
		return err
	}

	tier := progress.Classify(change.NewMetric)
	b.reply(rec.ChatID, fmt.Sprintf("📈 Progress update — %s\n\n%s", tier, text))
	log.Printf("Student progress notification sent - email %s, metric %g", change.Email, change.NewMetric)
	return nil
}
