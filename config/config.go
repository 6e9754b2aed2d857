package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// ServerConfig contains all of the server settings
type ServerConfig struct {
	ListenAddrIP   string
	ListenAddrPort string

	DatabaseType     string
	DatabaseHost     string
	DatabasePort     string
	DatabaseUser     string
	DatabasePassword string `json:"-"`
	DatabaseDbname   string
	DatabaseSslmode  string

	// ScratchPath is the root under which every submission gets its own
	// working directory
	ScratchPath   string
	ScratchTTL    time.Duration // how long a scratch dir may outlive its submission
	SweepInterval int           // minutes between scratch sweeps

	// External tool paths; empty means the tool is unavailable and the
	// corresponding formats degrade to "no preview"
	TesseractPath    string
	UnoconvPath      string
	EbookConvertPath string
	BrowserPath      string

	// OCRServiceURL, when set, routes OCR through the tesseract sidecar
	// instead of the local executable
	OCRServiceURL string

	RenderBackend string // "fitz" or "pdfium"
	RenderDPI     int
	RenderTimeout time.Duration // bounds a single browser render

	// Defaults applied when a submission does not carry the parameter
	DefaultMaxPages int
	DefaultOCRPages int
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolVal, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return boolVal
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intVal
}

// SetupServer loads configuration and returns ServerConfig and Logger
func SetupServer() (ServerConfig, *slog.Logger) {
	serverConfigLive := ServerConfig{}

	// Load .env file (silently ignore if doesn't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load("config.env")

	logger := setupLogging()
	Logger = logger

	// Server configuration
	serverConfigLive.ListenAddrPort = getEnv("SERVER_PORT", "8000")
	serverConfigLive.ListenAddrIP = getEnv("SERVER_ADDR", "")

	// Database configuration
	serverConfigLive.DatabaseType = getEnv("DATABASE_TYPE", "sqlite")
	serverConfigLive.DatabaseHost = getEnv("DATABASE_HOST", "localhost")
	serverConfigLive.DatabasePort = getEnv("DATABASE_PORT", "5432")
	serverConfigLive.DatabaseUser = getEnv("DATABASE_USER", "docpreview")
	serverConfigLive.DatabasePassword = getEnv("DATABASE_PASSWORD", "")
	serverConfigLive.DatabaseDbname = getEnv("DATABASE_NAME", "docpreview")
	serverConfigLive.DatabaseSslmode = getEnv("DATABASE_SSLMODE", "disable")

	logger.Info("Database configuration loaded", "type", serverConfigLive.DatabaseType)

	// Scratch configuration
	scratchDir := filepath.ToSlash(getEnv("SCRATCH_PATH", "scratch"))
	scratchDirAbs, err := filepath.Abs(scratchDir)
	if err != nil {
		logger.Error("Failed creating absolute path for scratch directory", "error", err)
	}
	serverConfigLive.ScratchPath = scratchDirAbs
	serverConfigLive.ScratchTTL = time.Duration(getEnvInt("SCRATCH_TTL_MINUTES", 60)) * time.Minute
	serverConfigLive.SweepInterval = getEnvInt("SWEEP_INTERVAL_MINUTES", 10)

	// External renderer tools
	serverConfigLive.TesseractPath = findTool("TESSERACT_PATH", "/usr/bin/tesseract", logger)
	serverConfigLive.UnoconvPath = findTool("UNOCONV_PATH", "/usr/bin/unoconv", logger)
	serverConfigLive.EbookConvertPath = findTool("EBOOK_CONVERT_PATH", "/usr/bin/ebook-convert", logger)
	serverConfigLive.BrowserPath = findTool("BROWSER_PATH", "/usr/bin/chromium", logger)

	serverConfigLive.OCRServiceURL = getEnv("OCR_SERVICE_URL", "")
	if serverConfigLive.OCRServiceURL != "" {
		logger.Info("OCR requests will be sent to the tesseract sidecar", "url", serverConfigLive.OCRServiceURL)
	}

	// Render configuration
	serverConfigLive.RenderBackend = getEnv("RENDER_BACKEND", "fitz")
	serverConfigLive.RenderDPI = getEnvInt("RENDER_DPI", 150)
	serverConfigLive.RenderTimeout = time.Duration(getEnvInt("RENDER_TIMEOUT_SECONDS", 60)) * time.Second
	serverConfigLive.DefaultMaxPages = getEnvInt("DEFAULT_MAX_PAGES", 10)
	serverConfigLive.DefaultOCRPages = getEnvInt("DEFAULT_OCR_PAGES", 2)

	fmt.Println("\n========================================")
	fmt.Println("   Document Preview Service")
	fmt.Println("========================================")
	fmt.Printf("Server will start on: %s:%s\n", serverConfigLive.ListenAddrIP, serverConfigLive.ListenAddrPort)
	if serverConfigLive.ListenAddrIP == "" {
		fmt.Println("(Listening on all network interfaces)")
	}
	fmt.Printf("Detailed logs: %s\n", getEnv("LOG_FILE", "docpreview.log"))
	fmt.Println("Initializing...")

	return serverConfigLive, logger
}

// findTool resolves an external tool path from env, returning "" when the
// executable does not exist so callers can degrade instead of failing
func findTool(envKey, defaultPath string, logger *slog.Logger) string {
	toolPath := getEnv(envKey, defaultPath)
	if _, err := os.Stat(toolPath); err == nil {
		logger.Info("External tool found", "env", envKey, "path", toolPath)
		return toolPath
	}
	logger.Warn("External tool not found, related formats will be degraded", "env", envKey, "path", toolPath)
	return ""
}

// setupLogging configures the application logger
func setupLogging() *slog.Logger {
	logLevel := getEnv("LOG_LEVEL", "debug")
	var level slog.Level

	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelDebug
	}

	handlerOptions := &slog.HandlerOptions{Level: level}

	logOutput := getEnv("LOG_OUTPUT", "file")
	var logWriter io.Writer

	if logOutput == "stdout" {
		logWriter = os.Stdout
	} else {
		logPath, err := filepath.Abs(filepath.ToSlash(getEnv("LOG_FILE", "docpreview.log")))
		if err != nil {
			fmt.Printf("Error creating log file path: %v\n", err)
			logWriter = os.Stdout
		} else {
			logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
			if err != nil {
				fmt.Printf("Failed to open log file: %v\n", err)
				logWriter = os.Stdout
			} else {
				logWriter = logFile
				fmt.Println("Logging to file: ", logPath)
			}
		}
	}

	handler := slog.NewTextHandler(logWriter, handlerOptions)
	return slog.New(handler)
}
