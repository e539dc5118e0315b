package application

import "strings"

// CleanResponse removes the emphasis markup completion services like to
// emit and trims surrounding whitespace so the text can be shown as is.
func CleanResponse(text string) string {
	return strings.TrimSpace(strings.ReplaceAll(text, "*", ""))
}
