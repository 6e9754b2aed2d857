// OCR sidecar: accepts a page image over multipart and returns the
// recognized text. Runs next to the preview service so the heavyweight
// tesseract install stays out of the main container.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"
)

type OCRResponse struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Tesseract string `json:"tesseract"`
	Timestamp string `json:"timestamp"`
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8001"
	}

	tesseractPath := os.Getenv("TESSERACT_PATH")
	if tesseractPath == "" {
		tesseractPath = "/usr/bin/tesseract"
	}

	if _, err := os.Stat(tesseractPath); os.IsNotExist(err) {
		log.Fatalf("Tesseract not found at %s", tesseractPath)
	}

	log.Printf("Starting Tesseract OCR service on port %s", port)
	log.Printf("Using Tesseract at: %s", tesseractPath)

	http.HandleFunc("/health", healthHandler(tesseractPath))
	http.HandleFunc("/ocr", ocrHandler(tesseractPath))

	if err := http.ListenAndServe(":"+port, nil); err != nil {
		log.Fatal(err)
	}
}

func healthHandler(tesseractPath string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		cmd := exec.Command(tesseractPath, "--version")
		output, err := cmd.CombinedOutput()
		tesseractInfo := "available"
		if err != nil {
			tesseractInfo = fmt.Sprintf("error: %v", err)
		} else {
			tesseractInfo = string(bytes.Split(output, []byte("\n"))[0])
		}

		response := HealthResponse{
			Status:    "healthy",
			Tesseract: tesseractInfo,
			Timestamp: time.Now().Format(time.RFC3339),
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}
}

func ocrHandler(tesseractPath string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		if err := r.ParseMultipartForm(32 << 20); err != nil {
			sendErrorResponse(w, "Failed to parse form", http.StatusBadRequest)
			return
		}

		file, header, err := r.FormFile("image")
		if err != nil {
			sendErrorResponse(w, "No image file provided", http.StatusBadRequest)
			return
		}
		defer file.Close()

		// OCR accuracy depends on knowing the render resolution, so
		// callers may pass the DPI their rasterizer used.
		dpi := 0
		if v := r.FormValue("dpi"); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
				dpi = parsed
			}
		}

		log.Printf("Processing OCR request for file: %s (dpi=%d)", header.Filename, dpi)

		imageData, err := io.ReadAll(file)
		if err != nil {
			sendErrorResponse(w, "Failed to read image file", http.StatusInternalServerError)
			return
		}

		text, err := processOCR(tesseractPath, imageData, header.Filename, dpi)
		if err != nil {
			log.Printf("OCR processing error: %v", err)
			sendErrorResponse(w, fmt.Sprintf("OCR processing failed: %v", err), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(OCRResponse{Text: text})
	}
}

func processOCR(tesseractPath string, imageData []byte, filename string, dpi int) (string, error) {
	tempDir, err := os.MkdirTemp("", "ocr-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(tempDir)

	ext := filepath.Ext(filename)
	if ext == "" {
		ext = ".png"
	}

	inputPath := filepath.Join(tempDir, "input"+ext)
	if err := os.WriteFile(inputPath, imageData, 0644); err != nil {
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}

	// Tesseract appends .txt to the output base itself
	outputBase := filepath.Join(tempDir, "output")
	args := []string{inputPath, outputBase}
	if dpi > 0 {
		args = append(args, "--dpi", strconv.Itoa(dpi))
	}

	cmd := exec.Command(tesseractPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("tesseract command failed: %w, stderr: %s", err, stderr.String())
	}

	textData, err := os.ReadFile(outputBase + ".txt")
	if err != nil {
		return "", fmt.Errorf("failed to read OCR output: %w", err)
	}
	return string(textData), nil
}

func sendErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(OCRResponse{Error: message})
}
