package engine

import (
	"os"

	"github.com/CybercentreCanada/assemblyline-service-document-preview/config"
)

// StartupChecks performs all the checks to make sure everything works
func (sh *ServerHandler) StartupChecks() error {
	toolChecks(sh.ServerConfig)
	if err := scratchDirectoryChecks(sh.ServerConfig); err != nil {
		return err
	}
	if sc, ok := sh.OCR.(*ServiceClients); ok {
		if err := sc.CheckOCRService(); err != nil {
			Logger.Warn("OCR service check failed, OCR may be unavailable", "error", err)
		}
	}
	return nil
}

// toolChecks validates each configured external converter. A missing
// tool disables its adapter rather than failing startup.
func toolChecks(serverConfig config.ServerConfig) {
	tools := map[string]string{
		"tesseract":     serverConfig.TesseractPath,
		"unoconv":       serverConfig.UnoconvPath,
		"ebook-convert": serverConfig.EbookConvertPath,
		"browser":       serverConfig.BrowserPath,
	}
	for name, path := range tools {
		if path == "" {
			Logger.Info("Tool not configured, its adapter will be unavailable", "tool", name)
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			Logger.Warn("Tool executable not found, its adapter will be disabled", "tool", name, "path", path, "error", err)
			continue
		}
		if info.IsDir() {
			Logger.Warn("Tool path is a directory, not an executable", "tool", name, "path", path)
			continue
		}
		Logger.Info("Tool executable found and validated", "tool", name, "path", path)
	}
}

// scratchDirectoryChecks ensures the scratch directory exists
func scratchDirectoryChecks(serverConfig config.ServerConfig) error {
	info, err := os.Stat(serverConfig.ScratchPath)
	if err != nil {
		if os.IsNotExist(err) {
			Logger.Info("Creating scratch directory", "path", serverConfig.ScratchPath)
			return os.MkdirAll(serverConfig.ScratchPath, 0755)
		}
		return err
	}
	if !info.IsDir() {
		Logger.Error("Scratch path exists but is not a directory", "path", serverConfig.ScratchPath)
		return os.ErrInvalid
	}
	return nil
}
