package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	config "github.com/CybercentreCanada/assemblyline-service-document-preview/config"
	database "github.com/CybercentreCanada/assemblyline-service-document-preview/database"
	engine "github.com/CybercentreCanada/assemblyline-service-document-preview/engine"
	"github.com/CybercentreCanada/assemblyline-service-document-preview/engine/browser"
	"github.com/CybercentreCanada/assemblyline-service-document-preview/engine/pdfrenderer"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// injectGlobals injects all of our globals into their packages
func injectGlobals(logger *slog.Logger) {
	Logger = logger
	database.Logger = Logger
	config.Logger = Logger
	engine.Logger = Logger
	browser.Logger = Logger
}

func main() {
	serverConfig, logger := config.SetupServer()
	injectGlobals(logger) //inject the logger into all of the packages

	// Show info banner if using ephemeral database
	if serverConfig.DatabaseType == "ephemeral" {
		fmt.Println("\n" + strings.Repeat("=", 50))
		fmt.Println("EPHEMERAL DATABASE MODE")
		fmt.Println(strings.Repeat("=", 50))
		fmt.Println("• Database will be destroyed on exit")
		fmt.Println("• Perfect for testing and development")
		fmt.Println("• No persistent data storage")
		fmt.Println(strings.Repeat("=", 50) + "\n")
	}

	Logger.Info("Setting up database", "type", serverConfig.DatabaseType)
	db := database.NewRepository(serverConfig)
	defer db.Close()
	Logger.Info("Database setup complete")

	renderer, err := pdfrenderer.NewRenderer(serverConfig.RenderBackend)
	if err != nil {
		Logger.Error("Failed to initialize PDF renderer", "backend", serverConfig.RenderBackend, "error", err)
		os.Exit(1)
	}
	defer renderer.Close()
	Logger.Info("PDF renderer initialized", "backend", serverConfig.RenderBackend)

	// The browser is a process-wide resource shared by every
	// invocation of this worker; it starts offline and stays offline.
	var htmlRenderer engine.HTMLRenderer
	if serverConfig.BrowserPath != "" {
		br, err := browser.New(serverConfig.BrowserPath)
		if err != nil {
			Logger.Warn("Browser startup failed, HTML rendering will be unavailable", "error", err)
		} else {
			defer br.Close()
			htmlRenderer = br
			Logger.Info("Headless browser started", "path", serverConfig.BrowserPath)
		}
	} else {
		Logger.Info("No browser configured, HTML rendering will be unavailable")
	}

	var ocrClient engine.OCRClient
	if serverConfig.OCRServiceURL != "" {
		ocrClient = engine.NewServiceClients(serverConfig.OCRServiceURL, serverConfig.RenderDPI)
		Logger.Info("Using OCR sidecar service", "url", serverConfig.OCRServiceURL)
	} else if serverConfig.TesseractPath != "" {
		ocrClient = engine.ExecOCR{TesseractPath: serverConfig.TesseractPath, DPI: serverConfig.RenderDPI}
		Logger.Info("Using local tesseract binary", "path", serverConfig.TesseractPath)
	} else {
		Logger.Info("No OCR configured, OCR functionality will be unavailable")
	}

	e := echo.New()
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
		}
		if code == http.StatusNotFound {
			c.JSON(http.StatusNotFound, map[string]string{
				"error":   "Not Found",
				"message": "The requested API endpoint does not exist",
				"path":    c.Request().URL.Path,
			})
			return
		}
		e.DefaultHTTPErrorHandler(err, c)
	}

	serverHandler := engine.ServerHandler{
		DB:           db,
		Echo:         e,
		ServerConfig: serverConfig,
		Renderer:     renderer,
		Browser:      htmlRenderer,
		OCR:          ocrClient,
	}

	Logger.Info("About to initialize schedules")
	serverHandler.InitializeSchedules() //initialize all the cron jobs
	Logger.Info("Schedules initialized, about to run startup checks")
	if err := serverHandler.StartupChecks(); err != nil { //Run all the sanity checks
		Logger.Error("Startup checks failed", "error", err)
		os.Exit(1)
	}
	Logger.Info("Startup checks complete")

	e.Use(middleware.CORSWithConfig(middleware.DefaultCORSConfig))
	serverHandler.SetupRoutes()

	if serverConfig.ListenAddrIP == "" {
		Logger.Info("No Ip Addr set, binding on ALL addresses")
	}

	Logger.Info("Starting HTTP server")

	// Try to start server with automatic port increment if port is in use
	maxRetries := 5
	startPort := serverConfig.ListenAddrPort
	var startErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		addr := fmt.Sprintf("%s:%s", serverConfig.ListenAddrIP, serverConfig.ListenAddrPort)
		Logger.Info("Attempting to start server", "address", addr, "attempt", attempt+1)

		startErr = e.Start(addr)

		if startErr != nil && isAddressInUse(startErr) {
			Logger.Warn("Port already in use, trying next port",
				"port", serverConfig.ListenAddrPort,
				"attempt", attempt+1,
				"max_attempts", maxRetries)

			portNum := 0
			fmt.Sscanf(serverConfig.ListenAddrPort, "%d", &portNum)
			portNum++
			serverConfig.ListenAddrPort = fmt.Sprintf("%d", portNum)

			if attempt == maxRetries-1 {
				Logger.Error("Failed to find available port after maximum retries",
					"start_port", startPort,
					"end_port", serverConfig.ListenAddrPort,
					"max_retries", maxRetries)
				os.Exit(1)
			}
		} else if startErr != nil {
			Logger.Error("Failed to start server", "error", startErr)
			os.Exit(1)
		} else {
			break
		}
	}
}

// isAddressInUse checks if the error is due to address already in use
func isAddressInUse(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "address already in use")
}
