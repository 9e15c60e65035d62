package logging

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
)

func TestInit_DoesNotPanic(t *testing.T) {
	for _, tc := range []struct{ debug, human bool }{
		{false, false},
		{true, false},
		{false, true},
		{true, true},
	} {
		Init(tc.debug, tc.human)
		L().Info().Msg("init check")
		L().Debug().Msg("init check debug")
		if IsPrettyMode() != tc.human {
			t.Errorf("Init(%v, %v): IsPrettyMode() = %v", tc.debug, tc.human, IsPrettyMode())
		}
	}
	Init(false, false)
}

func TestResolveFormat(t *testing.T) {
	tests := []struct {
		format    string
		wantHuman bool
		wantErr   bool
	}{
		{FormatJSON, false, false},
		{FormatConsole, true, false},
		{"yaml", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			human, err := ResolveFormat(tt.format)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ResolveFormat(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
			}
			if human != tt.wantHuman {
				t.Errorf("ResolveFormat(%q) = %v, want %v", tt.format, human, tt.wantHuman)
			}
		})
	}

	// auto depends on the terminal; it must never fail.
	if _, err := ResolveFormat(FormatAuto); err != nil {
		t.Errorf("ResolveFormat(auto) failed: %v", err)
	}
}

func TestWithPhase(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(zerolog.New(&buf))
	defer Init(false, false)

	log := WithPhase("ingest")
	log.Info().Msg("test message")

	if !bytes.Contains(buf.Bytes(), []byte(`"phase":"ingest"`)) {
		t.Errorf("expected phase field in output, got: %s", buf.String())
	}
}

func TestSetLogger(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(zerolog.New(&buf).With().Str("custom", "field").Logger())
	defer Init(false, false)

	L().Info().Msg("test")

	if !bytes.Contains(buf.Bytes(), []byte(`"custom":"field"`)) {
		t.Errorf("expected custom field in output, got: %s", buf.String())
	}
}
