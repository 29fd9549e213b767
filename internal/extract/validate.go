// Package extract locates the submitted source code and problem metadata on a
// problem page. The page has shipped several incompatible markup revisions, so
// every lookup is an ordered list of strategies tried most-reliable-first.
package extract

import (
	"regexp"
	"strings"
)

// programmingKeywords is the vocabulary used to tell genuine source code apart
// from incidental page content such as test-case arrays or output literals.
var programmingKeywords = []string{
	"def", "class", "function", "var", "let", "const", "if", "else", "for", "while",
	"return", "import", "export", "public", "private", "static", "void", "int",
	"string", "boolean", "true", "false", "null", "undefined", "try", "catch",
	"finally", "throw", "new", "this", "super", "extends", "implements",
}

var (
	bracketedNumberList = regexp.MustCompile(`^\[\d+(?:,\d+)*\]$`)
	numberSequence      = regexp.MustCompile(`^\d+(?:\s*,\s*\d+)*$`)
	bracketChars        = regexp.MustCompile(`[\[\]{}()<>]`)
)

// minCodeLength is the shortest string accepted as source code.
const minCodeLength = 20

// maxBracketRatio rejects candidates dominated by bracket noise, which is what
// scraped result panes full of nested arrays look like.
const maxBracketRatio = 0.3

// IsValidCode reports whether text plausibly represents source code. Results
// pages carry test-case arrays and output literals that naive scraping picks
// up; this gate keeps them out of the sync pipeline.
func IsValidCode(code string) bool {
	trimmed := strings.TrimSpace(code)

	if bracketedNumberList.MatchString(trimmed) {
		return false // an array literal like [100,99,98]
	}
	if numberSequence.MatchString(trimmed) {
		return false // comma-separated digits
	}
	if len(trimmed) < minCodeLength {
		return false
	}

	lower := strings.ToLower(trimmed)
	hasKeyword := false
	for _, kw := range programmingKeywords {
		if strings.Contains(lower, kw) {
			hasKeyword = true
			break
		}
	}
	if !hasKeyword {
		return false
	}

	brackets := len(bracketChars.FindAllString(trimmed, -1))
	if float64(brackets)/float64(len(trimmed)) > maxBracketRatio {
		return false
	}

	return true
}

// commentPrefixes mark lines that are decoration rather than code.
var commentPrefixes = []string{"#", "//", "/*", "*", `"""`, "'''"}

// countCodeLines returns the number of lines that are neither blank nor
// comment-only.
func countCodeLines(text string) int {
	count := 0
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		isComment := false
		for _, prefix := range commentPrefixes {
			if strings.HasPrefix(trimmed, prefix) {
				isComment = true
				break
			}
		}
		if !isComment {
			count++
		}
	}
	return count
}
