package util

import "strings"

// Substitute replaces opaque definition tags in text with their rendered
// values. Replacement is a single pass; substituted values are not scanned
// again. Text without tag markers is returned unchanged.
func Substitute(text string, repl map[string]string) string {
	if len(repl) == 0 || !strings.Contains(text, "{{@") { // fast path: no tags
		return text
	}

	oldnew := make([]string, 0, len(repl)*2)
	for tag, val := range repl {
		oldnew = append(oldnew, tag, val)
	}
	return strings.NewReplacer(oldnew...).Replace(text)
}
