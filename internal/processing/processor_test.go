package processing_test

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/require"

	"github.com/sudandialogue/newsdesk/internal/processing"
)

func TestDecodeEntities(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "named", input: "Sudan &amp; peace", want: "Sudan & peace"},
		{name: "hex", input: "&#x62;old", want: "bold"},
		{name: "decimal", input: "&#83;udan", want: "Sudan"},
		{name: "html named", input: "a&nbsp;b", want: "a\u00a0b"},
		{name: "plain", input: "no entities", want: "no entities"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, processing.DecodeEntities(tt.input))
		})
	}
}

func TestSanitizeEntities(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "bare ampersand", input: "Aid & relief", want: "Aid &amp; relief"},
		{name: "xml entity kept", input: "a &amp; b &lt;c&gt;", want: "a &amp; b &lt;c&gt;"},
		{name: "numeric kept", input: "&#x62;old &#83;", want: "&#x62;old &#83;"},
		{name: "html entity to numeric", input: "a&nbsp;b", want: "a&#160;b"},
		{name: "unknown entity escaped", input: "&bogus; x", want: "&amp;bogus; x"},
		{name: "invalid code point", input: "&#0;", want: "&#xFFFD;"},
		{name: "cdata untouched", input: "<![CDATA[a?x=1&y=2]]>", want: "<![CDATA[a?x=1&y=2]]>"},
		{name: "around cdata", input: "A & <![CDATA[b & c]]> & d", want: "A &amp; <![CDATA[b & c]]> &amp; d"},
		{name: "unterminated cdata", input: "x & <![CDATA[y & z", want: "x &amp; <![CDATA[y & z"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, processing.SanitizeEntities(tt.input))
		})
	}
}

func TestCleanText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty", input: "", want: ""},
		{name: "markup", input: "<p>Talks <b>resume</b></p>", want: "Talks resume"},
		{name: "escaped markup", input: "&lt;a href=&quot;x&quot;&gt;Khartoum&lt;/a&gt;&nbsp;&nbsp;Reuters", want: "Khartoum Reuters"},
		{name: "collapse whitespace", input: "foo\n\nbar\t baz", want: "foo bar baz"},
		{name: "comparison kept", input: "a < b and 5 > 3", want: "a < b and 5 > 3"},
		{name: "comment and void tag", input: "<!-- lead -->Line one<br>Line two", want: "Line one Line two"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, processing.CleanText(tt.input))
		})
	}
}

func TestSummarizeBounds(t *testing.T) {
	inputs := []string{
		"",
		"short",
		strings.Repeat("a", 220),
		strings.Repeat("a", 221),
		strings.Repeat("word ", 100),
		strings.Repeat("السودان ", 80),
	}
	for _, in := range inputs {
		got := processing.Summarize(in, 220)
		require.LessOrEqual(t, utf8.RuneCountInString(got), 221)
		if utf8.RuneCountInString(in) > 220 {
			require.True(t, strings.HasSuffix(got, processing.Ellipsis), got)
		} else {
			require.Equal(t, in, got)
		}
	}
}

func TestBuildItemID(t *testing.T) {
	ts := time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)
	id1 := processing.BuildItemID(ts, "title", "https://example.com/a")
	id2 := processing.BuildItemID(ts.In(time.FixedZone("EAT", 3*3600)), "title", "https://example.com/a")
	require.NotEmpty(t, id1)
	require.Equal(t, id1, id2)
	require.NotEqual(t, id1, processing.BuildItemID(ts, "title", "https://example.com/b"))
}

func TestExtractKeywords(t *testing.T) {
	text := "Darfur aid Darfur aid Darfur convoy and the convoy"
	got := processing.ExtractKeywords(text, 2, 4)
	require.Equal(t, []string{"darfur", "convoy"}, got)

	require.Nil(t, processing.ExtractKeywords("", 5, 3))
}

func TestExtractKeywordsIgnoresURLWords(t *testing.T) {
	text := "ceasefire ceasefire https://example.com/talks-update Jeddah"
	got := processing.ExtractKeywords(text, 3, 3)
	require.ElementsMatch(t, []string{"ceasefire", "jeddah"}, got)
}
