package dotenv

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		key   string
		value string
		ok    bool
	}{
		{"plain", "FOO=bar", "FOO", "bar", true},
		{"export prefix", "export FOO=bar", "FOO", "bar", true},
		{"double quoted", `FOO="bar baz"`, "FOO", "bar baz", true},
		{"single quoted", "FOO='bar'", "FOO", "bar", true},
		{"empty value", "FOO=", "FOO", "", true},
		{"comment", "# FOO=bar", "", "", false},
		{"blank", "   ", "", "", false},
		{"no equals", "FOO", "", "", false},
		{"empty key", "=bar", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, value, ok := parseLine(tt.line)
			if key != tt.key || value != tt.value || ok != tt.ok {
				t.Errorf("parseLine(%q) = (%q, %q, %v), want (%q, %q, %v)",
					tt.line, key, value, ok, tt.key, tt.value, tt.ok)
			}
		})
	}
}

func TestLoadPreservesExistingEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "DOTENV_TEST_A=from-file\nDOTENV_TEST_B=from-file\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	t.Setenv("DOTENV_TEST_A", "from-env")
	os.Unsetenv("DOTENV_TEST_B")
	t.Cleanup(func() { os.Unsetenv("DOTENV_TEST_B") })

	if err := Load(path); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if got := os.Getenv("DOTENV_TEST_A"); got != "from-env" {
		t.Errorf("existing env must win, got %q", got)
	}
	if got := os.Getenv("DOTENV_TEST_B"); got != "from-file" {
		t.Errorf("unset var must load from file, got %q", got)
	}
}

func TestLoadMissingFileIsNoop(t *testing.T) {
	if err := Load(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Errorf("missing file must not error: %v", err)
	}
}
