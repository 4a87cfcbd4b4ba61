package outlook

import "strings"

var entities = strings.NewReplacer(
	"&nbsp;", " ",
	"&amp;", "&",
	"&quot;", `"`,
	"&lt;", "<",
	"&gt;", ">",
)

// StripHTML extracts the plain text from an HTML message body by dropping
// everything inside angle brackets, then decoding a small set of entities in
// what remains. A stray closing bracket clamps the depth at zero so the text
// after it is kept. This is a narrow transform for message bodies, not a
// markup parser.
func StripHTML(s string) string {
	var b strings.Builder
	depth := 0
	for _, r := range s {
		switch {
		case r == '<':
			depth++
		case r == '>':
			if depth > 0 {
				depth--
			}
		case depth == 0:
			b.WriteRune(r)
		}
	}
	return entities.Replace(b.String())
}
