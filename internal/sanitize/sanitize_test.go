package sanitize

import (
	"reflect"
	"strings"
	"testing"
)

func TestString_StripsMarkup(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"plain text", "plain text"},
		{"<script>alert(1)</script>lose weight", "lose weight"},
		{"<b>bold</b> goals", "bold goals"},
		{"  padded  ", "padded"},
		{"<img src=x onerror=alert(1)>", ""},
	}
	for _, tc := range cases {
		if got := String(tc.in); got != tc.want {
			t.Fatalf("String(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestStrings_RecursesThroughNestedValues(t *testing.T) {
	in := map[string]any{
		"goals": "<script>x</script>run a marathon",
		"injuries": []any{
			"<b>knee</b>",
			map[string]any{"note": "<i>old</i> sprain"},
		},
		"age":    34,
		"active": true,
	}
	got := Strings(in).(map[string]any)

	want := map[string]any{
		"goals": "run a marathon",
		"injuries": []any{
			"knee",
			map[string]any{"note": "old sprain"},
		},
		"age":    34,
		"active": true,
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Strings mismatch:\n got %#v\nwant %#v", got, want)
	}
}

func TestStrings_DoesNotMutateInput(t *testing.T) {
	in := map[string]any{"goals": "<b>bulk</b>"}
	_ = Strings(in)
	if in["goals"] != "<b>bulk</b>" {
		t.Fatalf("input mutated: %q", in["goals"])
	}
}

func TestStringMap_NilPassesThrough(t *testing.T) {
	if got := StringMap(nil); got != nil {
		t.Fatalf("expected nil, got %#v", got)
	}
}

func TestString_OutputNeverContainsTags(t *testing.T) {
	got := String(`<a href="https://evil.example">click</a> me`)
	if strings.ContainsAny(got, "<>") {
		t.Fatalf("sanitized output still contains tags: %q", got)
	}
}
