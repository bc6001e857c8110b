package prompt

import (
	"bytes"
	"errors"
	"io"
	"os"
	"testing"
)

func pipePrompter(t *testing.T, input string) (*Prompter, *bytes.Buffer) {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Failed to create pipe: %v", err)
	}
	if _, err := w.WriteString(input); err != nil {
		t.Fatalf("Failed to write input: %v", err)
	}
	w.Close()
	t.Cleanup(func() { r.Close() })

	out := &bytes.Buffer{}
	return &Prompter{In: r, Out: out}, out
}

func TestReadLine(t *testing.T) {
	p, out := pipePrompter(t, "alice\r\n  example.com \t\nlast")

	tests := []string{"alice", "example.com", "last"}
	for _, want := range tests {
		got, err := p.ReadLine("> ")
		if err != nil {
			t.Fatalf("Failed to read line: %v", err)
		}
		if got != want {
			t.Errorf("Expected %q, got %q", want, got)
		}
	}

	if _, err := p.ReadLine("> "); !errors.Is(err, io.EOF) {
		t.Errorf("Expected io.EOF, got %v", err)
	}
	if out.String() != "> > > > " {
		t.Errorf("Unexpected prompt output %q", out.String())
	}
}

func TestReadPassphraseNotTerminal(t *testing.T) {
	p, _ := pipePrompter(t, "secret\n")
	if p.IsTerminal() {
		t.Fatal("Pipe reported as terminal")
	}
	if _, err := p.ReadPassphrase("Passphrase: "); !errors.Is(err, ErrNotTerminal) {
		t.Errorf("Expected ErrNotTerminal, got %v", err)
	}
}

func TestPassphraseFromEnv(t *testing.T) {
	t.Setenv(EnvPassphrase, "")
	if got := PassphraseFromEnv(); got != nil {
		t.Errorf("Expected nil for unset variable, got %q", got)
	}

	t.Setenv(EnvPassphrase, "p1")
	if got := PassphraseFromEnv(); string(got) != "p1" {
		t.Errorf("Expected p1, got %q", got)
	}
}
