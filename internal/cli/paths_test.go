package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCacheDir(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "")
	os.Unsetenv("XDG_CACHE_HOME")

	dir, err := cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}

	home, _ := os.UserHomeDir()
	expected := filepath.Join(home, ".cache", appName)
	if dir != expected {
		t.Errorf("cacheDir() = %q, want %q", dir, expected)
	}
}

func TestCacheDirXDG(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/custom-cache")

	dir, err := cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}

	expected := filepath.Join("/tmp/custom-cache", appName)
	if dir != expected {
		t.Errorf("cacheDir() with XDG_CACHE_HOME = %q, want %q", dir, expected)
	}
}

func TestConfigDirXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/custom-config")

	dir, err := configDir()
	if err != nil {
		t.Fatalf("configDir() error: %v", err)
	}

	expected := filepath.Join("/tmp/custom-config", appName)
	if dir != expected {
		t.Errorf("configDir() with XDG_CONFIG_HOME = %q, want %q", dir, expected)
	}
}

func TestConfigDirDefault(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "")
	os.Unsetenv("XDG_CONFIG_HOME")

	dir, err := configDir()
	if err != nil {
		t.Fatalf("configDir() error: %v", err)
	}

	if !strings.Contains(dir, ".config") {
		t.Errorf("configDir() = %q, should contain '.config'", dir)
	}
	if !strings.HasSuffix(dir, appName) {
		t.Errorf("configDir() = %q, should end with %q", dir, appName)
	}
}
