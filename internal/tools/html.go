package tools

import (
	"html"
	"regexp"
	"strings"
)

var (
	reBody    = regexp.MustCompile(`(?is)<body[^>]*>([\s\S]*?)</body>`)
	reScript  = regexp.MustCompile(`(?is)<script[\s\S]*?</script>`)
	reStyle   = regexp.MustCompile(`(?is)<style[\s\S]*?</style>`)
	reComment = regexp.MustCompile(`<!--[\s\S]*?-->`)
	reBreakp  = regexp.MustCompile(`(?i)</(?:p|div|li|tr|h[1-6])>|<br\s*/?>`)
	reTag     = regexp.MustCompile(`<[^>]+>`)
	reMultiNL = regexp.MustCompile(`\n{3,}`)
	reMultiSP = regexp.MustCompile(`[ \t]{2,}`)
)

// extractVisibleText pulls the readable text out of an HTML document:
// the body only, scripts and styles stripped, block boundaries kept as
// newlines. Not a full renderer; close enough for context capture.
func extractVisibleText(doc string) string {
	s := doc
	if m := reBody.FindStringSubmatch(doc); m != nil {
		s = m[1]
	}
	s = reScript.ReplaceAllString(s, "")
	s = reStyle.ReplaceAllString(s, "")
	s = reComment.ReplaceAllString(s, "")
	s = reBreakp.ReplaceAllString(s, "\n")
	s = reTag.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	s = reMultiSP.ReplaceAllString(s, " ")

	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	s = strings.Join(lines, "\n")
	s = reMultiNL.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
