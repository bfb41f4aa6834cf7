package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/packforge/pkg/errors"
)

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		name    string
		level   log.Level
		logFunc func(*log.Logger)
		wantLog bool
	}{
		{"info at info level", log.InfoLevel, func(l *log.Logger) { l.Info("selected packs") }, true},
		{"debug at info level", log.InfoLevel, func(l *log.Logger) { l.Debug("rid walk") }, false},
		{"debug at debug level", log.DebugLevel, func(l *log.Logger) { l.Debug("rid walk") }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.logFunc(newLogger(&buf, tt.level))
			if got := buf.Len() > 0; got != tt.wantLog {
				t.Errorf("got log output = %v, want %v", got, tt.wantLog)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    log.Level
		wantErr bool
	}{
		{"", log.InfoLevel, false},
		{"debug", log.DebugLevel, false},
		{" WARN ", log.WarnLevel, false},
		{"error", log.ErrorLevel, false},
		{"chatty", 0, true},
	}
	for _, tt := range tests {
		got, err := parseLevel(tt.in)
		if tt.wantErr {
			if !errors.Is(err, errors.ErrCodeInvalidInput) {
				t.Errorf("parseLevel(%q) err = %v, want INVALID_INPUT", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("parseLevel(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
}

func TestCommandLoggerPrefix(t *testing.T) {
	var buf bytes.Buffer
	root := &cobra.Command{Use: "packforge"}
	workload := &cobra.Command{Use: "workload"}
	gc := &cobra.Command{Use: "gc"}
	root.AddCommand(workload)
	workload.AddCommand(gc)

	commandLogger(newLogger(&buf, log.InfoLevel), gc).Info("collected")
	if !strings.Contains(buf.String(), "workload gc") {
		t.Errorf("output %q lacks command prefix", buf.String())
	}

	l := newLogger(&buf, log.InfoLevel)
	if commandLogger(l, root) != l {
		t.Error("root command should keep the logger unchanged")
	}
}

func TestProgressFields(t *testing.T) {
	var buf bytes.Buffer
	prog := newProgress(newLogger(&buf, log.InfoLevel))
	prog.done("Installed packs", "count", 3)

	out := buf.String()
	for _, want := range []string{"Installed packs", "count=3", "elapsed="} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestLoggerFromContext(t *testing.T) {
	if loggerFromContext(context.Background()) != log.Default() {
		t.Error("want log.Default() without an attached logger")
	}
	var buf bytes.Buffer
	custom := newLogger(&buf, log.InfoLevel)
	if got := loggerFromContext(withLogger(context.Background(), custom)); got != custom {
		t.Error("loggerFromContext should return the attached logger")
	}
}
