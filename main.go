package main

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"snapmath/pkg/session"
	"snapmath/pkg/vision"
)

var (
	cfg      *Config
	sessions *session.Manager
	engines  *vision.Engines
)

func main() {
	// local .env is a convenience; real deployments set the environment
	_ = godotenv.Load()
	cfg = loadConfig()

	prompts := vision.NewPrompts(cfg.PromptDir)
	if cfg.PromptDir != "" {
		stop, err := prompts.Watch()
		if err != nil {
			log.Printf("prompt watcher disabled: %v", err)
		} else {
			defer stop()
		}
	}

	engines = &vision.Engines{
		Gemini: vision.NewGemini(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiImageModel, prompts),
		OpenAI: vision.NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIModel, prompts),
	}

	sessions = session.NewManager(cfg.SessionTTL)
	defer sessions.Close()

	r := gin.Default()
	setupRoutes(r)

	log.Printf("snapmath listening on :%s (engine=%s)", cfg.Port, cfg.Engine)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal(err)
	}
}
