package obs

import (
	"bytes"
	"context"
	"errors"
	"log"
	"strings"
	"testing"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev, flags := log.Writer(), log.Flags()
	log.SetOutput(&buf)
	log.SetFlags(0)
	t.Cleanup(func() {
		log.SetOutput(prev)
		log.SetFlags(flags)
	})
	return &buf
}

func TestTime(t *testing.T) {
	buf := captureLog(t)
	ctx := WithRequestID(context.Background(), "abc")

	func() (err error) {
		defer Time(ctx, "stage.ok")(&err)
		return nil
	}()
	func() (err error) {
		defer Time(ctx, "stage.fail")(&err)
		return errors.New("boom")
	}()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d log lines, want 2: %q", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "req_id=abc op=stage.ok dur=") {
		t.Fatalf("unexpected line %q", lines[0])
	}
	if !strings.HasSuffix(lines[1], "err=boom") {
		t.Fatalf("unexpected line %q", lines[1])
	}
}

func TestTimeWithoutError(t *testing.T) {
	buf := captureLog(t)
	func() {
		defer Time(context.Background(), "stage.pure")(nil)
	}()

	line := strings.TrimSpace(buf.String())
	if !strings.HasPrefix(line, "req_id=- op=stage.pure dur=") || strings.Contains(line, "err=") {
		t.Fatalf("unexpected line %q", line)
	}
}

func TestRequestID(t *testing.T) {
	if got := RequestID(context.Background()); got != "-" {
		t.Fatalf("RequestID() = %q, want -", got)
	}
	if id := NewRequestID(); len(id) != 16 {
		t.Fatalf("NewRequestID() = %q, want 16 hex chars", id)
	}
}
