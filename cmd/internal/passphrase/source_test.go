package passphrase

import (
	"io"
	"testing"
)

func testSource(env map[string]string, tty bool, typed string) *Source {
	s := NewSource("STAKING_JWT_SECRET", "JWT secret")
	s.lookup = func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
	s.terminal = func() bool { return tty }
	s.read = func() ([]byte, error) { return []byte(typed), nil }
	s.prompt = io.Discard
	return s
}

func TestSourcePrefersEnvironment(t *testing.T) {
	s := testSource(map[string]string{"STAKING_JWT_SECRET": "from-env"}, true, "typed")
	got, err := s.Get()
	if err != nil || got != "from-env" {
		t.Fatalf("expected env secret, got %q, %v", got, err)
	}
}

func TestSourceRejectsEmptyEnvironment(t *testing.T) {
	s := testSource(map[string]string{"STAKING_JWT_SECRET": "  "}, true, "typed")
	if _, err := s.Get(); err == nil {
		t.Fatalf("expected error for empty env value")
	}
}

func TestSourcePromptsOnTerminal(t *testing.T) {
	s := testSource(nil, true, "typed")
	got, err := s.Get()
	if err != nil || got != "typed" {
		t.Fatalf("expected prompted secret, got %q, %v", got, err)
	}
	// Cached after the first call.
	s.read = func() ([]byte, error) { return []byte("other"), nil }
	if again, _ := s.Get(); again != "typed" {
		t.Fatalf("expected cached secret, got %q", again)
	}
}

func TestSourceWithoutTerminal(t *testing.T) {
	if _, err := testSource(nil, false, "").Get(); err == nil {
		t.Fatalf("expected error without terminal")
	}
	if _, err := testSource(nil, true, "   ").Get(); err == nil {
		t.Fatalf("expected error for blank prompt input")
	}
}
