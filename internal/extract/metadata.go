package extract

import (
	"context"
	"regexp"
	"strings"

	"github.com/go-rod/rod"
)

// Fallbacks when no selector matches.
const (
	UnknownSlug     = "unknown"
	DefaultLanguage = "python"
)

var slugPattern = regexp.MustCompile(`/problems/([^/]+)`)

// titleSelectors are tried in order for the problem title.
var titleSelectors = []string{
	`[data-cy="question-title"]`,
	`.question-title`,
	`h1`,
	`.css-v3d350`,
}

// languageSelectors locate the editor's language picker across markup revisions.
var languageSelectors = []string{
	`[data-cy="lang-select"] .ant-select-selection-item`,
	`.language-select .selected`,
	`.editor-language`,
}

// SlugFromURL derives the problem identifier from the page URL path.
func SlugFromURL(rawURL string) string {
	m := slugPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return UnknownSlug
	}
	slug := m[1]
	if i := strings.IndexAny(slug, "?#"); i >= 0 {
		slug = slug[:i]
	}
	if slug == "" {
		return UnknownSlug
	}
	return slug
}

// Title reads the problem title from the page, falling back to the document
// title with the site suffix stripped.
func Title(ctx context.Context, page *rod.Page) string {
	if text := firstText(ctx, page, titleSelectors); text != "" {
		return text
	}

	res, err := page.Context(ctx).Evaluate(&rod.EvalOptions{
		JS:      `() => document.title || ''`,
		ByValue: true,
	})
	if err != nil || res == nil {
		return ""
	}
	return strings.TrimSuffix(strings.TrimSpace(res.Value.Str()), " - LeetCode")
}

// Language reads the selected programming language from the page's language
// picker, defaulting when no variant matches.
func Language(ctx context.Context, page *rod.Page) string {
	if text := firstText(ctx, page, languageSelectors); text != "" {
		return strings.ToLower(text)
	}
	return DefaultLanguage
}

// firstText returns the trimmed text of the first element any selector matches.
func firstText(ctx context.Context, page *rod.Page, selectors []string) string {
	for _, sel := range selectors {
		elements, err := page.Context(ctx).Elements(sel)
		if err != nil || len(elements) == 0 {
			continue
		}
		text, err := elements.First().Text()
		if err != nil {
			continue
		}
		if trimmed := strings.TrimSpace(text); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
