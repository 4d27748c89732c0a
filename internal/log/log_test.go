package log

import (
	"bytes"
	"strings"
	"testing"
)

func TestInitAndFields(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{Level: "debug", NoColor: true, Output: &buf})

	Warn(Fields{"orientation": "right"}, "no pixel data")
	Debug(nil, "detail")
	WithRequest("abc-123").Info("request done")

	out := buf.String()
	for _, want := range []string{"no pixel data", "orientation", "right", "detail", "abc-123"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}
