package logger

import (
	"strings"
	"testing"
)

func TestSanitizeKVsRedactsAndHashes(t *testing.T) {
	actor := "user-42"
	out := sanitizeKVs([]interface{}{
		"authorization", "Bearer abc",
		"created_by", &actor,
		"project_id", "p-1",
	})
	if len(out) != 6 {
		t.Fatalf("len: want=6 got=%d", len(out))
	}
	if out[1] != "[REDACTED]" {
		t.Fatalf("authorization: want=[REDACTED] got=%v", out[1])
	}
	hashed, ok := out[3].(string)
	if !ok || !strings.HasPrefix(hashed, "hash:") || strings.Contains(hashed, actor) {
		t.Fatalf("created_by: unexpected value %v", out[3])
	}
	if out[5] != "p-1" {
		t.Fatalf("project_id: want=p-1 got=%v", out[5])
	}
}

func TestSanitizeKVsKeepsDanglingKey(t *testing.T) {
	out := sanitizeKVs([]interface{}{"a", 1, "dangling"})
	if len(out) != 3 || out[2] != "dangling" {
		t.Fatalf("dangling key lost: %v", out)
	}
}

func TestHashValueIsStable(t *testing.T) {
	if hashValue("x") != hashValue("x") {
		t.Fatalf("hashValue not deterministic")
	}
	if hashValue("") != "" {
		t.Fatalf("empty value should hash to empty string")
	}
}
