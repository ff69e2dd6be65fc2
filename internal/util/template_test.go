package util

import "testing"

func TestSubstitute(t *testing.T) {
	repl := map[string]string{
		"{{@v1}}": "golang",
		"{{@v2}}": "batch processing",
	}

	got := Substitute("Research {{@v1}} with focus on {{@v2}}.", repl)
	want := "Research golang with focus on batch processing."
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestSubstitute_NoMarkersFastPath(t *testing.T) {
	text := "no tags in here, not even {{braces}} count"
	if got := Substitute(text, map[string]string{"{{@v1}}": "x"}); got != text {
		t.Fatalf("text without tag markers must pass through, got %q", got)
	}
}

func TestSubstitute_SinglePass(t *testing.T) {
	repl := map[string]string{
		"{{@v1}}": "see {{@v2}}",
		"{{@v2}}": "two",
	}
	// The tag introduced by v1's value must not be expanded again.
	got := Substitute("{{@v1}}", repl)
	if got != "see {{@v2}}" {
		t.Fatalf("substitution should be single pass, got %q", got)
	}
}

func TestSubstitute_UnknownTagLeftIntact(t *testing.T) {
	got := Substitute("keep {{@v9}} as is", map[string]string{"{{@v1}}": "x"})
	if got != "keep {{@v9}} as is" {
		t.Fatalf("unknown tags must stay, got %q", got)
	}
}
