package bot

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/example/edubot/internal/progress"
)

// defaultPersona is the base system prompt used when no role file is
// configured.
const defaultPersona = "You are a friendly study assistant of an online school. " +
	"You talk to one student at a time, answer questions about their course " +
	"and keep them motivated. Be concise, warm and a little informal."

// Config represents the configuration for the bot
type Config struct {
	// Model name sent to the completions API
	Model string
	// Temperature for model calls
	Temperature float64
	// Number of history turns included in the model context window
	Tail int
	// Minimal metric change that triggers a progress notification
	Epsilon float64
	// Time between progress refresh cycles
	RefreshInterval time.Duration
	// Base system prompt for the model
	Persona string
}

// DefaultConfig returns the default bot configuration
func DefaultConfig() *Config {
	return &Config{
		Model:           "gpt-4o-mini",
		Temperature:     0.5,
		Tail:            6,
		Epsilon:         progress.DefaultEpsilon,
		RefreshInterval: 24 * time.Hour,
		Persona:         defaultPersona,
	}
}

// LoadConfig builds the configuration from environment variables on top
// of the defaults. Invalid values are logged and ignored.
func LoadConfig() *Config {
	cfg := DefaultConfig()

	if model := os.Getenv("OPENAI_MODEL"); model != "" {
		cfg.Model = model
	}
	if v := os.Getenv("OPENAI_TEMPERATURE"); v != "" {
		if t, err := strconv.ParseFloat(v, 64); err == nil && t >= 0 && t <= 2 {
			cfg.Temperature = t
		} else {
			log.Printf("Warning: invalid OPENAI_TEMPERATURE: %s", v)
		}
	}
	if v := os.Getenv("HISTORY_TAIL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Tail = n
		} else {
			log.Printf("Warning: invalid HISTORY_TAIL: %s", v)
		}
	}
	if v := os.Getenv("PROGRESS_EPSILON"); v != "" {
		if e, err := strconv.ParseFloat(v, 64); err == nil && e > 0 {
			cfg.Epsilon = e
		} else {
			log.Printf("Warning: invalid PROGRESS_EPSILON: %s", v)
		}
	}
	if v := os.Getenv("REFRESH_INTERVAL_HOURS"); v != "" {
		if h, err := strconv.Atoi(v); err == nil && h > 0 {
			cfg.RefreshInterval = time.Duration(h) * time.Hour
		} else {
			log.Printf("Warning: invalid REFRESH_INTERVAL_HOURS: %s", v)
		}
	}

	// Persona can live in a role file, like the rest of the prompt data
	if path := os.Getenv("PERSONA_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Printf("Warning: unable to read persona file %s: %v", path, err)
		} else {
			cfg.Persona = string(data)
		}
	}

	return cfg
}
