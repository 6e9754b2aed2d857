package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// ServiceClients holds the HTTP client for the OCR sidecar service.
// It satisfies OCRClient so the cascade can use either it or a local
// tesseract binary interchangeably.
type ServiceClients struct {
	OCRServiceURL string
	// DPI is the resolution the rasterizer produced pages at; the
	// sidecar passes it straight to tesseract so it doesn't guess.
	DPI        int
	HTTPClient *http.Client
}

// NewServiceClients creates a new service client manager
func NewServiceClients(ocrServiceURL string, dpi int) *ServiceClients {
	return &ServiceClients{
		OCRServiceURL: ocrServiceURL,
		DPI:           dpi,
		HTTPClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// OCRResponse represents the response from the OCR service
type OCRResponse struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

// ImageToText sends an image to the OCR service and returns extracted text
func (sc *ServiceClients) ImageToText(imagePath string) (string, error) {
	file, err := os.Open(imagePath)
	if err != nil {
		return "", fmt.Errorf("failed to open image file: %w", err)
	}
	defer file.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("image", filepath.Base(imagePath))
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err = io.Copy(part, file); err != nil {
		return "", fmt.Errorf("failed to copy file data: %w", err)
	}
	if sc.DPI > 0 {
		if err = writer.WriteField("dpi", strconv.Itoa(sc.DPI)); err != nil {
			return "", fmt.Errorf("failed to write dpi field: %w", err)
		}
	}
	if err = writer.Close(); err != nil {
		return "", fmt.Errorf("failed to close writer: %w", err)
	}

	url := fmt.Sprintf("%s/ocr", sc.OCRServiceURL)
	req, err := http.NewRequest("POST", url, body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := sc.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call OCR service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("OCR service returned error status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var ocrResp OCRResponse
	if err := json.NewDecoder(resp.Body).Decode(&ocrResp); err != nil {
		return "", fmt.Errorf("failed to decode OCR response: %w", err)
	}
	if ocrResp.Error != "" {
		return "", fmt.Errorf("OCR service error: %s", ocrResp.Error)
	}
	return ocrResp.Text, nil
}

// CheckOCRService verifies the OCR sidecar is reachable.
func (sc *ServiceClients) CheckOCRService() error {
	resp, err := sc.HTTPClient.Get(fmt.Sprintf("%s/health", sc.OCRServiceURL))
	if err != nil {
		return fmt.Errorf("OCR service unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("OCR service unhealthy: status %d", resp.StatusCode)
	}
	return nil
}
