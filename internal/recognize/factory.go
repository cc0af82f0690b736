package recognize

import (
	"fmt"
	"log"

	"verbatim/internal/config"
)

// CreateEngine creates a recognition engine based on configuration.
func CreateEngine(cfg *config.Config) (Engine, error) {
	switch cfg.Engine {
	case "whispercpp":
		log.Printf("[Engine Factory] Creating whisper.cpp engine (binary=%s model=%s)",
			cfg.WhisperPath, cfg.WhisperModel)
		return NewWhisperCppEngine(cfg.WhisperPath, cfg.WhisperModel), nil
	case "openai":
		log.Printf("[Engine Factory] Creating OpenAI engine (model=%s)", cfg.OpenAIModel)
		return NewOpenAIEngine(cfg.OpenAIKey, cfg.OpenAIModel), nil
	default:
		return nil, fmt.Errorf("unsupported STT engine: %s. Supported: whispercpp, openai", cfg.Engine)
	}
}
