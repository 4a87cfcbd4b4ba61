package outlook

import "testing"

func TestStripHTML(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "plain-text-untouched",
			input: "Not interested, thanks",
			want:  "Not interested, thanks",
		},
		{
			name:  "simple-tags",
			input: "<p>Hello <b>there</b></p>",
			want:  "Hello there",
		},
		{
			name:  "attributes",
			input: `<a href="https://example.com">link</a> text`,
			want:  "link text",
		},
		{
			name:  "nested-brackets",
			input: "<div <span>>kept",
			want:  "kept",
		},
		{
			name:  "stray-closing-bracket-clamps",
			input: "before > after",
			want:  "before  after",
		},
		{
			name:  "unclosed-tag-swallows-rest",
			input: "before <div after",
			want:  "before ",
		},
		{
			name:  "entities-decoded",
			input: "<p>Tom&nbsp;&amp;&nbsp;Jerry say &quot;hi&quot;</p>",
			want:  `Tom & Jerry say "hi"`,
		},
		{
			name:  "encoded-brackets-survive",
			input: "<p>a &lt; b &gt; c</p>",
			want:  "a < b > c",
		},
		{
			name:  "empty",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			if got := StripHTML(tc.input); got != tc.want {
				t.Errorf("StripHTML(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}
