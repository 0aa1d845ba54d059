package processing

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"html"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Ellipsis marks a truncated summary.
const Ellipsis = "…"

const (
	cdataOpen  = "<![CDATA["
	cdataClose = "]]>"
)

var (
	urlRegex    = regexp.MustCompile(`https?://[^\s]+`)
	tagRegex    = regexp.MustCompile(`(?s)<(?:[/?]?[A-Za-z][^>]*|!--.*?--|![^>]*)>`)
	whitespace  = regexp.MustCompile(`\s+`)
	punctuation = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
	entityRegex = regexp.MustCompile(`&(#[0-9]{1,7};|#[xX][0-9a-fA-F]{1,6};|[A-Za-z][A-Za-z0-9]{0,31};)?`)
)

var xmlEntities = map[string]struct{}{
	"amp": {}, "lt": {}, "gt": {}, "quot": {}, "apos": {},
}

var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "from": {}, "that": {}, "this": {},
	"into": {}, "over": {}, "after": {}, "amid": {}, "says": {}, "said": {}, "will": {},
	"have": {}, "been": {}, "were": {}, "their": {}, "about": {},
	"og": {}, "som": {}, "ikke": {}, "etter": {}, "mellom": {}, "mens": {}, "sier": {},
	"ble": {}, "blir": {}, "har": {}, "med": {}, "til": {}, "fra": {},
	"في": {}, "من": {}, "على": {}, "إلى": {}, "عن": {}, "مع": {}, "بعد": {}, "التي": {}, "الذي": {},
	"هذا": {}, "هذه": {}, "بين": {},
}

// DecodeEntities resolves named, decimal and hexadecimal character references.
func DecodeEntities(input string) string {
	if !strings.Contains(input, "&") {
		return input
	}
	return html.UnescapeString(input)
}

// SanitizeEntities rewrites a raw XML fragment so that every ampersand
// starts a reference an XML decoder accepts: bare ampersands are escaped and
// HTML-only named entities become numeric references. CDATA sections are
// copied unchanged.
func SanitizeEntities(input string) string {
	if !strings.Contains(input, "&") {
		return input
	}
	var b strings.Builder
	rest := input
	for {
		start := strings.Index(rest, cdataOpen)
		if start < 0 {
			b.WriteString(sanitizeText(rest))
			return b.String()
		}
		b.WriteString(sanitizeText(rest[:start]))
		rest = rest[start:]
		end := strings.Index(rest, cdataClose)
		if end < 0 {
			b.WriteString(rest)
			return b.String()
		}
		end += len(cdataClose)
		b.WriteString(rest[:end])
		rest = rest[end:]
	}
}

func sanitizeText(input string) string {
	if !strings.Contains(input, "&") {
		return input
	}
	return entityRegex.ReplaceAllStringFunc(input, func(m string) string {
		if m == "&" {
			return "&amp;"
		}
		body := m[1 : len(m)-1]
		if body[0] == '#' {
			return sanitizeNumeric(m, body[1:])
		}
		if _, ok := xmlEntities[body]; ok {
			return m
		}
		decoded := html.UnescapeString(m)
		if decoded == m {
			return "&amp;" + m[1:]
		}
		var b strings.Builder
		for _, r := range decoded {
			fmt.Fprintf(&b, "&#%d;", r)
		}
		return b.String()
	})
}

func sanitizeNumeric(original, digits string) string {
	base := 10
	if digits != "" && (digits[0] == 'x' || digits[0] == 'X') {
		base = 16
		digits = digits[1:]
	}
	v, err := strconv.ParseUint(digits, base, 32)
	if err != nil || !validXMLChar(rune(v)) {
		return "&#xFFFD;"
	}
	return original
}

func validXMLChar(r rune) bool {
	return r == 0x09 || r == 0x0A || r == 0x0D ||
		(r >= 0x20 && r <= 0xD7FF) ||
		(r >= 0xE000 && r <= 0xFFFD) ||
		(r >= 0x10000 && r <= utf8.MaxRune)
}

// StripMarkup replaces every tag, comment and declaration with a space. A
// "<" that does not open one is kept as text.
func StripMarkup(input string) string {
	if !strings.Contains(input, "<") {
		return input
	}
	return tagRegex.ReplaceAllString(input, " ")
}

// NormalizeSpace squeezes runs of whitespace, including non-breaking spaces.
func NormalizeSpace(input string) string {
	input = strings.ReplaceAll(input, "\u00a0", " ")
	return strings.TrimSpace(whitespace.ReplaceAllString(input, " "))
}

// CleanText turns a feed text field into plain text: entities are decoded,
// markup is removed and whitespace is squeezed.
func CleanText(input string) string {
	if input == "" {
		return ""
	}
	return NormalizeSpace(StripMarkup(DecodeEntities(input)))
}

// Summarize bounds text to limit runes, appending Ellipsis when it had to cut.
func Summarize(text string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	cut := strings.TrimRightFunc(string(runes[:limit]), func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	})
	return cut + Ellipsis
}

// BuildItemID hashes the publish instant, title and link into a display key.
func BuildItemID(publishedAt time.Time, title, link string) string {
	s := sha1.Sum([]byte(publishedAt.UTC().Format(time.RFC3339) + "|" + title + "|" + link))
	return hex.EncodeToString(s[:])
}

// ExtractKeywords returns the most frequent words that are not stop-words.
func ExtractKeywords(text string, limit, minLen int) []string {
	clean := strings.ToLower(keywordText(text))
	if clean == "" {
		return nil
	}

	freq := make(map[string]int)
	for _, token := range strings.Fields(clean) {
		if utf8.RuneCountInString(token) < minLen {
			continue
		}
		if _, skip := stopwords[token]; skip {
			continue
		}
		freq[token]++
	}

	if len(freq) == 0 {
		return nil
	}

	type kv struct {
		word  string
		count int
	}

	pairs := make([]kv, 0, len(freq))
	for word, count := range freq {
		pairs = append(pairs, kv{word: word, count: count})
	}

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].count == pairs[j].count {
			return pairs[i].word < pairs[j].word
		}
		return pairs[i].count > pairs[j].count
	})

	n := limit
	if n <= 0 || n > len(pairs) {
		n = len(pairs)
	}

	keywords := make([]string, 0, n)
	for _, p := range pairs[:n] {
		keywords = append(keywords, p.word)
	}
	return keywords
}

func keywordText(input string) string {
	text := CleanText(input)
	text = urlRegex.ReplaceAllString(text, " ")
	text = punctuation.ReplaceAllString(text, " ")
	return NormalizeSpace(text)
}
