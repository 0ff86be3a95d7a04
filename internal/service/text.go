package service

import (
	"html"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/unicode/norm"
)

const wordsPerMinute = 200

var (
	strictPolicy = bluemonday.StrictPolicy()

	slugInvalid = regexp.MustCompile(`[^a-z0-9-]+`)
	slugDashes  = regexp.MustCompile(`-+`)
)

// slugify lowercases s, strips accents and joins words with hyphens.
func slugify(s string) string {
	var sb strings.Builder
	for _, r := range norm.NFD.String(s) {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		sb.WriteRune(r)
	}

	lower := strings.ToLower(sb.String())
	hyphenated := strings.Join(strings.Fields(lower), "-")
	cleaned := slugInvalid.ReplaceAllString(hyphenated, "")
	return strings.Trim(slugDashes.ReplaceAllString(cleaned, "-"), "-")
}

// plainText strips all markup and collapses whitespace.
func plainText(raw string) string {
	stripped := html.UnescapeString(strictPolicy.Sanitize(raw))
	return strings.Join(strings.Fields(stripped), " ")
}

// truncate cuts s to at most n runes on a word boundary.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	cut := string(runes[:n])
	if i := strings.LastIndexByte(cut, ' '); i > n/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:") + "…"
}

// readingMinutes estimates reading time; anything with words takes at least a minute.
func readingMinutes(text string) int {
	words := len(strings.Fields(text))
	if words == 0 {
		return 0
	}
	return max(1, (words+wordsPerMinute/2)/wordsPerMinute)
}

// paragraphs extracts the text of each <p> in an HTML fragment. Fragments
// without paragraphs come back as a single stripped paragraph.
func paragraphs(fragment string) []string {
	var out []string
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment)); err == nil {
		doc.Find("p").Each(func(_ int, s *goquery.Selection) {
			if text := strings.Join(strings.Fields(s.Text()), " "); text != "" {
				out = append(out, text)
			}
		})
	}
	if len(out) == 0 {
		if text := plainText(fragment); text != "" {
			out = append(out, text)
		}
	}
	return out
}

// firstImage returns the src of the first <img> in an HTML fragment.
func firstImage(fragment string) string {
	if !strings.Contains(fragment, "<img") {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return ""
	}
	src, _ := doc.Find("img[src]").First().Attr("src")
	return strings.TrimSpace(src)
}
