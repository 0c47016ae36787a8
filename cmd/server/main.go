package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nutriclinica/inbody-ocr-service/api"
	"github.com/nutriclinica/inbody-ocr-service/internal/ai"
	"github.com/nutriclinica/inbody-ocr-service/internal/auth"
	"github.com/nutriclinica/inbody-ocr-service/internal/db"
	"github.com/nutriclinica/inbody-ocr-service/internal/models"
	"github.com/nutriclinica/inbody-ocr-service/internal/ocr"
	"github.com/nutriclinica/inbody-ocr-service/internal/pipeline"
	"github.com/nutriclinica/inbody-ocr-service/internal/storage"
)

func main() {
	// Initialize JWT
	if err := auth.Init(); err != nil {
		log.Fatalf("Failed to initialize auth: %v", err)
	}
	log.Println("JWT authentication initialized")

	// Initialize database connection pool
	if err := db.Init(); err != nil {
		log.Printf("Warning: Database not available: %v", err)
		log.Println("Running in extraction-only mode (no persistence)")
	} else {
		defer db.Close()
		log.Println("Database connection pool initialized")
	}

	// Initialize MinIO storage
	if err := storage.Init(); err != nil {
		log.Printf("Warning: MinIO storage not available: %v", err)
		log.Println("Scan photos will not be stored")
	} else {
		log.Println("MinIO storage initialized")
	}

	// Load configuration
	config, err := loadConfig("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Build the extraction pipeline
	recognizer, engine, err := buildRecognizer(config)
	if err != nil {
		log.Fatalf("Failed to build recognizer: %v", err)
	}

	preprocessor := ocr.NewPreprocessor(config.OCR.TargetResolution)
	p := pipeline.New(preprocessor, recognizer, config.OCR.LowConfidenceThreshold)

	// Create API handler
	handler := api.NewHandler(config, p)
	router := handler.SetupRoutes()

	// Add login endpoint
	router.HandleFunc("/api/login", auth.LoginHandler).Methods("POST")

	// Wrap router with JWT middleware (skips /health and /api/login)
	protectedRouter := auth.JWTMiddleware(router)

	addr := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: protectedRouter,
	}

	go func() {
		log.Printf("Starting InBody OCR Service v%s on %s", api.Version, addr)
		log.Printf("OCR Engine: %s", config.OCR.Engine)
		log.Printf("Database: %v", db.Pool != nil)
		log.Printf("Storage: %v", storage.Client != nil)
		log.Printf("Endpoints:")
		log.Printf("  POST http://%s/api/login                      - Authenticate", addr)
		log.Printf("  POST http://%s/api/process-scan               - Process InBody scan (requires JWT)", addr)
		log.Printf("  GET  http://%s/api/measurements               - List measurements (requires JWT)", addr)
		log.Printf("  GET  http://%s/api/measurement/{id}           - Get single measurement (requires JWT)", addr)
		log.Printf("  PUT  http://%s/api/measurement/{id}           - Update measurement (requires JWT)", addr)
		log.Printf("  DELETE http://%s/api/measurement/{id}         - Delete measurement (requires JWT)", addr)
		log.Printf("  POST http://%s/api/measurement/{id}/reprocess - Re-run extraction (requires JWT)", addr)
		log.Printf("  GET  http://%s/api/measurement/{id}/image     - Get scan photo (requires JWT)", addr)
		log.Printf("  GET  http://%s/api/stats                      - Get monthly stats (requires JWT)", addr)
		log.Printf("  GET  http://%s/health                         - Health check", addr)

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Block until a termination signal, then drain in-flight requests and
	// release the recognition engine before exiting.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Printf("Received signal %v, shutting down", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Warning: server shutdown: %v", err)
	}

	if engine != nil {
		if err := engine.Shutdown(); err != nil {
			log.Printf("Warning: engine shutdown: %v", err)
		}
	}

	log.Println("Shutdown complete")
}

// buildRecognizer selects the text recognition backend. The tesseract engine
// is the default; "vision" swaps in a multimodal model behind the same
// interface. The returned engine is non-nil only for tesseract and must be
// shut down on exit.
func buildRecognizer(config *models.Config) (pipeline.Recognizer, *ocr.Engine, error) {
	switch config.OCR.Engine {
	case "", "tesseract":
		timeout := time.Duration(config.OCR.TimeoutSeconds) * time.Second
		engine := ocr.NewEngine(config.OCR.Language, timeout)
		return engine, engine, nil

	case "vision":
		var provider ai.Provider
		switch config.AI.DefaultProvider {
		case "openai":
			if config.AI.OpenAI.APIKey == "" {
				return nil, nil, fmt.Errorf("vision engine selected but openai api_key is empty")
			}
			provider = ai.NewOpenAIProvider(config.AI.OpenAI.APIKey, config.AI.OpenAI.BaseURL, config.AI.OpenAI.Model)
		case "gemini":
			if config.AI.Gemini.APIKey == "" {
				return nil, nil, fmt.Errorf("vision engine selected but gemini api_key is empty")
			}
			provider = ai.NewGeminiProvider(config.AI.Gemini.APIKey, config.AI.Gemini.Model)
		default:
			return nil, nil, fmt.Errorf("unknown AI provider: %s", config.AI.DefaultProvider)
		}
		return ai.NewVisionRecognizer(provider, config.AI.AssumedConfidence), nil, nil

	default:
		return nil, nil, fmt.Errorf("unknown OCR engine: %s", config.OCR.Engine)
	}
}

func loadConfig(path string) (*models.Config, error) {
	// Read config file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse YAML
	var config models.Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Override with environment variables if present
	if port := os.Getenv("PORT"); port != "" {
		fmt.Sscanf(port, "%d", &config.Port)
	}
	if host := os.Getenv("HOST"); host != "" {
		config.Host = host
	}
	if engine := os.Getenv("OCR_ENGINE"); engine != "" {
		config.OCR.Engine = engine
	}
	if lang := os.Getenv("OCR_LANGUAGE"); lang != "" {
		config.OCR.Language = lang
	}
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		config.AI.OpenAI.APIKey = apiKey
	}
	if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		config.AI.Gemini.APIKey = apiKey
	}
	if provider := os.Getenv("AI_PROVIDER"); provider != "" {
		config.AI.DefaultProvider = provider
	}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		config.AI.OpenAI.BaseURL = baseURL
	}
	if model := os.Getenv("OPENAI_MODEL"); model != "" {
		config.AI.OpenAI.Model = model
	}
	if model := os.Getenv("GEMINI_MODEL"); model != "" {
		config.AI.Gemini.Model = model
	}

	return &config, nil
}
