package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestLevelsGoToTheirWriters(t *testing.T) {
	var out, errOut bytes.Buffer
	l := New(&out, &errOut)

	l.Infof("baked %s", Cookies(1234.5))
	l.Warn("slow tick")
	l.Errorf("save failed: %v", "disk full")
	l.Event("UNLOCK", "engine", "cookie_rookie")

	if !strings.Contains(out.String(), "[ENGINE-INFO] ") || !strings.Contains(out.String(), "baked 1,234.5") {
		t.Errorf("info line missing: %q", out.String())
	}
	if !strings.Contains(out.String(), "[ENGINE-WARN] ") {
		t.Errorf("warn line missing: %q", out.String())
	}
	if !strings.Contains(out.String(), "[EVENT:UNLOCK] Actor:engine | cookie_rookie") {
		t.Errorf("event line missing: %q", out.String())
	}
	if !strings.Contains(errOut.String(), "[ENGINE-ERROR] ") || strings.Contains(out.String(), "disk full") {
		t.Errorf("error routed wrong: out=%q err=%q", out.String(), errOut.String())
	}
	if !strings.Contains(out.String(), "logger_test.go") {
		t.Errorf("caller file not reported: %q", out.String())
	}
}

func TestCookiesUsesSIForLargeValues(t *testing.T) {
	if got := Cookies(2.5e9); !strings.HasPrefix(got, "2.5 G") {
		t.Errorf("Cookies(2.5e9) = %q", got)
	}
}
