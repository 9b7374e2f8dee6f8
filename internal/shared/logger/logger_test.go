package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew_WritesToLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "collector.log")

	l, err := New("odds-collector", "prod", path)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	l.Info("snapshot stored")
	_ = l.Sync()

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	out := string(b)
	for _, want := range []string{"snapshot stored", `"service":"odds-collector"`, `"env":"prod"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log file missing %s: %s", want, out)
		}
	}
}

func TestNew_Local(t *testing.T) {
	l, err := New("monitor-api", "local", "")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if l == nil {
		t.Fatal("nil logger")
	}
}
