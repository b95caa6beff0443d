package envutil

import (
	"testing"
	"time"
)

func TestEnvParsing(t *testing.T) {
	t.Setenv("ENVUTIL_STR", "  value ")
	t.Setenv("ENVUTIL_INT", "12")
	t.Setenv("ENVUTIL_BAD_INT", "x")
	t.Setenv("ENVUTIL_BOOL", "off")
	t.Setenv("ENVUTIL_SECS", "7")
	t.Setenv("ENVUTIL_LIST", "a, ,b,")
	t.Setenv("ENVUTIL_FLOAT", "0.25")

	if got := String("ENVUTIL_STR", "def"); got != "value" {
		t.Fatalf("String: want=value got=%q", got)
	}
	if got := String("ENVUTIL_MISSING", "def"); got != "def" {
		t.Fatalf("String default: got=%q", got)
	}
	if got := Int("ENVUTIL_INT", 1); got != 12 {
		t.Fatalf("Int: want=12 got=%d", got)
	}
	if got := Int("ENVUTIL_BAD_INT", 3); got != 3 {
		t.Fatalf("Int fallback: want=3 got=%d", got)
	}
	if got := Bool("ENVUTIL_BOOL", true); got {
		t.Fatalf("Bool: want=false")
	}
	if got := Seconds("ENVUTIL_SECS", time.Second); got != 7*time.Second {
		t.Fatalf("Seconds: want=7s got=%s", got)
	}
	if got := Float("ENVUTIL_FLOAT", 1); got != 0.25 {
		t.Fatalf("Float: want=0.25 got=%v", got)
	}
	if got := List("ENVUTIL_LIST", nil); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("List: got=%v", got)
	}
}
