package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"

	"option-spreads/internal/errors"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decoding log line %q: %v", buf.String(), err)
	}
	return line
}

func TestLogGatewayError_Level(t *testing.T) {
	tests := []struct {
		name          string
		informational bool
		wantLevel     string
	}{
		{"fatal code warns", false, "warn"},
		{"informational code is debug", true, "debug"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := zerolog.New(&buf).Level(zerolog.DebugLevel)

			LogGatewayError(logger, errors.NewGatewayError(7, 2104, "farm OK", tt.informational))

			line := decodeLine(t, &buf)
			if line["level"] != tt.wantLevel {
				t.Errorf("level = %v, want %s", line["level"], tt.wantLevel)
			}
			if line["code"] != float64(2104) || line["req_id"] != float64(7) || line["informational"] != tt.informational {
				t.Errorf("fields = %v", line)
			}
		})
	}
}

func TestContextLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	ctx := WithLogger(context.Background(), logger)
	ctxLogger := FromContext(ctx)
	ctxLogger.Info().Msg("hello")
	if decodeLine(t, &buf)["message"] != "hello" {
		t.Errorf("logger from context did not write to its sink")
	}

	// Without a logger the context yields a disabled one.
	buf.Reset()
	disabled := FromContext(context.Background())
	disabled.Error().Msg("dropped")
	if buf.Len() != 0 {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug": zerolog.DebugLevel,
		"warn":  zerolog.WarnLevel,
		"error": zerolog.ErrorLevel,
		"bogus": zerolog.InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
