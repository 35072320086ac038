package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/edubot/internal/ai"
	"github.com/example/edubot/internal/bot"
	"github.com/example/edubot/internal/database"
	"github.com/example/edubot/internal/excel"
	"github.com/example/edubot/internal/progress"
	"github.com/example/edubot/internal/scheduler"
	"github.com/example/edubot/internal/scraper"
	"github.com/joho/godotenv"
)

func main() {
	// .env is optional, real deployments use the environment
	_ = godotenv.Load()

	// Создаем канал для сигналов
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Подключаемся к базе данных
	db, err := database.Connect()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		log.Fatal("TELEGRAM_BOT_TOKEN environment variable is not set")
	}

	cfg := bot.LoadConfig()

	gpt, err := ai.New(os.Getenv("OPENAI_API_KEY"), cfg.Model, cfg.Temperature)
	if err != nil {
		log.Fatalf("Failed to create OpenAI client: %v", err)
	}

	source, err := buildSource()
	if err != nil {
		log.Fatalf("Failed to configure student data source: %v", err)
	}

	store := progress.NewStore(source, cfg.Epsilon)
	users := database.NewVerificationRepository(db)
	history := database.NewHistoryRepository(db)

	b := bot.New(token, cfg, gpt, store, users, history)

	// Первичная загрузка данных студентов
	if count, err := store.Refresh(); err != nil {
		log.Printf("Initial student data load failed: %v", err)
	} else {
		log.Printf("Loaded %d student records", count)
	}

	// Периодическое обновление данных и уведомления
	sched := scheduler.New(b, cfg.RefreshInterval)
	sched.Start(ctx)
	defer sched.Stop()

	go func() {
		sig := <-sigChan
		log.Printf("Received signal: %v", sig)
		cancel()
	}()

	log.Println("Bot started. Press Ctrl+C to stop.")
	if err := b.Start(ctx); err != nil && err != context.Canceled {
		log.Fatalf("Bot error: %v", err)
	}
	log.Println("Bot stopped successfully")
}

// buildSource selects the student data backend: the course portal when
// its credentials are configured, otherwise a local spreadsheet.
func buildSource() (progress.Source, error) {
	if loginURL := os.Getenv("PORTAL_LOGIN_URL"); loginURL != "" {
		return scraper.New(scraper.Config{
			LoginURL: loginURL,
			DataURL:  os.Getenv("PORTAL_DATA_URL"),
			Username: os.Getenv("PORTAL_USERNAME"),
			Password: os.Getenv("PORTAL_PASSWORD"),
			Timeout:  30 * time.Second,
		})
	}

	filePath := os.Getenv("PROGRESS_FILE")
	if filePath == "" {
		filePath = "data/analytics.xlsx"
	}
	return excel.New(excel.DefaultConfig(filePath)), nil
}
