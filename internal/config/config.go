package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBDSN         string
	ServerPort    string
	SessionSecret string
	JWTSecret     string

	// external reasoning service
	ReasoningBaseURL string
	ReasoningAPIKey  string
	ReasoningModel   string
	ReasoningTimeout time.Duration

	// object storage for APR images
	UploadDir     string
	PublicBaseURL string

	// seed superadmin
	AdminEmail    string
	AdminPassword string
}

func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		DBDSN:            os.Getenv("DB_DSN"),
		ServerPort:       os.Getenv("SERVER_PORT"),
		SessionSecret:    os.Getenv("SESSION_SECRET"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		ReasoningBaseURL: os.Getenv("REASONING_BASE_URL"),
		ReasoningAPIKey:  os.Getenv("REASONING_API_KEY"),
		ReasoningModel:   os.Getenv("REASONING_MODEL"),
		UploadDir:        os.Getenv("UPLOAD_DIR"),
		PublicBaseURL:    os.Getenv("PUBLIC_BASE_URL"),
		AdminEmail:       os.Getenv("ADMIN_EMAIL"),
		AdminPassword:    os.Getenv("ADMIN_PASSWORD"),
	}

	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}
	if cfg.SessionSecret == "" {
		log.Fatal("SESSION_SECRET is not set")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is not set")
	}
	if cfg.ReasoningBaseURL == "" {
		cfg.ReasoningBaseURL = "https://api.openai.com"
	}
	if cfg.ReasoningModel == "" {
		cfg.ReasoningModel = "gpt-4o"
	}
	cfg.ReasoningTimeout = 60 * time.Second
	if raw := os.Getenv("REASONING_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			log.Fatalf("invalid REASONING_TIMEOUT: %v", err)
		}
		cfg.ReasoningTimeout = d
	}
	if cfg.UploadDir == "" {
		cfg.UploadDir = "./data/uploads"
	}
	if cfg.PublicBaseURL == "" {
		cfg.PublicBaseURL = "http://localhost:" + cfg.ServerPort
	}

	return cfg
}
