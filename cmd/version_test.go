package cmd

import (
	"bytes"
	"strings"
	"testing"
)

func TestGenerateVersionOutput(t *testing.T) {
	var buf bytes.Buffer
	generateVersionOutput(&buf)

	for _, want := range []string{"Version: ", "Go Version: go", "Platform: "} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("output missing %q:\n%s", want, buf.String())
		}
	}
}
