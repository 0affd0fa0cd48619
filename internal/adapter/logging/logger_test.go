package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/neomorfeo/idledger/internal/adapter/logging"
	"github.com/neomorfeo/idledger/internal/domain"
)

func TestNew_TextDefaultLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, closeFn, err := logging.New(&buf, logging.Options{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer closeFn()

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info line logged at default level: %s", out)
	}
	if !strings.Contains(out, "msg=shown") {
		t.Errorf("warn line missing: %s", out)
	}
}

func TestNew_JSONWithFile(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "idledger.log")

	logger, closeFn, err := logging.New(&buf, logging.Options{Level: "debug", Format: "json", File: path})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.Debug("trail", "value", "v-1")
	if err := closeFn(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("stderr is not JSON: %v (%s)", err, buf.String())
	}
	if line["value"] != "v-1" {
		t.Errorf("value = %v, want %q", line["value"], "v-1")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !bytes.Equal(data, buf.Bytes()) {
		t.Errorf("log file = %q, want %q", data, buf.String())
	}
}

func TestNew_InvalidOptions(t *testing.T) {
	if _, _, err := logging.New(&bytes.Buffer{}, logging.Options{Level: "loud"}); err == nil {
		t.Error("expected error for invalid level")
	}
	if _, _, err := logging.New(&bytes.Buffer{}, logging.Options{Format: "xml"}); err == nil {
		t.Error("expected error for invalid format")
	}
	if _, _, err := logging.New(&bytes.Buffer{}, logging.Options{File: t.TempDir()}); err == nil {
		t.Error("expected error when log file is a directory")
	}
}

func TestPublisher_LogsEvent(t *testing.T) {
	var buf bytes.Buffer
	logger, closeFn, err := logging.New(&buf, logging.Options{Level: "info"})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer closeFn()

	pub := logging.NewPublisher(logger)
	rec := domain.NewRecord("v-1", domain.VariantV4, "session", "")
	if err := pub.Publish(context.Background(), domain.EventIdentifierRecorded, rec); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"event=identifier_recorded", "value=v-1", "variant=v4", "category=session"} {
		if !strings.Contains(out, want) {
			t.Errorf("log line missing %q: %s", want, out)
		}
	}
}
