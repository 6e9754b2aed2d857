package config

import (
	"os"
	"testing"
)

func TestGetEnvDefaults(t *testing.T) {
	os.Unsetenv("DOCPREVIEW_TEST_UNSET")
	if got := getEnv("DOCPREVIEW_TEST_UNSET", "fallback"); got != "fallback" {
		t.Errorf("getEnv returned %q, want fallback", got)
	}

	t.Setenv("DOCPREVIEW_TEST_SET", "value")
	if got := getEnv("DOCPREVIEW_TEST_SET", "fallback"); got != "value" {
		t.Errorf("getEnv returned %q, want value", got)
	}
}

func TestGetEnvInt(t *testing.T) {
	t.Setenv("DOCPREVIEW_TEST_INT", "42")
	if got := getEnvInt("DOCPREVIEW_TEST_INT", 7); got != 42 {
		t.Errorf("getEnvInt returned %d, want 42", got)
	}

	t.Setenv("DOCPREVIEW_TEST_INT", "not-a-number")
	if got := getEnvInt("DOCPREVIEW_TEST_INT", 7); got != 7 {
		t.Errorf("getEnvInt returned %d for invalid input, want default 7", got)
	}
}

func TestGetEnvBool(t *testing.T) {
	t.Setenv("DOCPREVIEW_TEST_BOOL", "true")
	if !getEnvBool("DOCPREVIEW_TEST_BOOL", false) {
		t.Error("getEnvBool returned false for \"true\"")
	}

	t.Setenv("DOCPREVIEW_TEST_BOOL", "banana")
	if getEnvBool("DOCPREVIEW_TEST_BOOL", false) {
		t.Error("getEnvBool returned true for invalid input")
	}
}

func TestFindToolMissing(t *testing.T) {
	_, logger := SetupServer()
	t.Setenv("DOCPREVIEW_TEST_TOOL", "/no/such/binary")
	if got := findTool("DOCPREVIEW_TEST_TOOL", "/no/such/binary", logger); got != "" {
		t.Errorf("findTool returned %q for a missing binary, want empty string", got)
	}
}

func TestSetupServerDefaults(t *testing.T) {
	t.Setenv("LOG_OUTPUT", "stdout")
	serverConfig, logger := SetupServer()
	if logger == nil {
		t.Fatal("SetupServer returned nil logger")
	}
	if serverConfig.ListenAddrPort == "" {
		t.Error("ListenAddrPort not populated")
	}
	if serverConfig.RenderDPI <= 0 {
		t.Error("RenderDPI not populated")
	}
	if serverConfig.ScratchPath == "" {
		t.Error("ScratchPath not populated")
	}
}
