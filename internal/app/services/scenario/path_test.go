package scenario

import "testing"

func TestGetPath_NestedTraversal(t *testing.T) {
	value := map[string]any{
		"user": map[string]any{
			"profile": map[string]any{
				"name": "ada",
			},
		},
	}
	got := getPath(value, "user.profile.name")
	if got != "ada" {
		t.Fatalf("expected ada, got %v", got)
	}
}

func TestGetPath_EmptyPathReturnsRoot(t *testing.T) {
	value := map[string]any{"a": 1}
	got := getPath(value, "")
	if m, ok := got.(map[string]any); !ok || m["a"] != 1 {
		t.Fatalf("expected root value unchanged, got %v", got)
	}
}

func TestGetPath_MissingKeyIsAbsent(t *testing.T) {
	value := map[string]any{"a": map[string]any{}}
	got := getPath(value, "a.b.c")
	if !IsAbsent(got) {
		t.Fatalf("expected Absent, got %v", got)
	}
}

func TestGetPath_TraversalThroughNonMapIsAbsent(t *testing.T) {
	value := map[string]any{"a": "not a map"}
	got := getPath(value, "a.b")
	if !IsAbsent(got) {
		t.Fatalf("expected Absent, got %v", got)
	}
}

func TestGetPath_DistinguishesAbsentFromLiteralZeroValues(t *testing.T) {
	value := map[string]any{"empty": "", "zero": 0, "nullish": nil}
	for _, key := range []string{"empty", "zero", "nullish"} {
		got := getPath(value, key)
		if IsAbsent(got) {
			t.Fatalf("key %q holds a literal value and must not be Absent", key)
		}
	}
	if !IsAbsent(getPath(value, "missing")) {
		t.Fatal("missing key must be Absent")
	}
}
