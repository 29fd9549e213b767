// Package detect decides whether the page currently shows a passed submission.
// No authoritative server push exists, so the verdict is an OR over several
// independent page signals; any single positive suffices. A stray "Accepted"
// fragment elsewhere on the page can therefore produce a false positive, and a
// "Wrong Answer" marker does not veto one. That trade-off is deliberate.
package detect

import (
	"context"
	"strings"

	"github.com/go-rod/rod"
	"go.uber.org/zap"
)

// successSelectors are structural locators historically associated with a
// passed-result indicator, across every markup revision seen so far.
var successSelectors = []string{
	// Current revisions
	`[data-e2e-locator="submission-result"]`,
	`.text-green-600`,
	`.text-green-500`,
	`.text-success`,
	`[data-cy="result-state"]`,
	`.result-state`,
	`.submission-result`,
	// Legacy revisions
	`.success__3Ai7`,
	`#result-state.text-success`,
	`[data-cy="success-state"]`,
	`.text-green-s`,
	`.text-success-3`,
	`.success`,
}

// resultAreaSelectors locate the narrower result panes whose text is treated
// as stronger evidence.
var resultAreaSelectors = []string{
	`[data-e2e-locator="submission-result"]`,
	`.submission-result`,
	`.result-state`,
	`[data-cy="result"]`,
}

const acceptedToken = "Accepted"

// Signals carries the individually evaluated evidence classes.
type Signals struct {
	MatchedSelectors []string
	AcceptedText     bool
	ResultAreaHit    bool
}

// HasSuccess combines the signal classes; any one positive is sufficient.
func (s Signals) HasSuccess() bool {
	return len(s.MatchedSelectors) > 0 || s.AcceptedText || s.ResultAreaHit
}

// Detector evaluates success signals against the live page.
type Detector struct {
	log *zap.Logger
}

// New creates a detector.
func New(log *zap.Logger) *Detector {
	if log == nil {
		log = zap.NewNop()
	}
	return &Detector{log: log}
}

// Scan evaluates all signal classes against the current page state. Individual
// selector failures are skipped, not fatal, so markup drift in one locator
// never blinds the others.
func (d *Detector) Scan(ctx context.Context, page *rod.Page) (Signals, error) {
	var signals Signals

	for _, sel := range successSelectors {
		elements, err := page.Context(ctx).Elements(sel)
		if err != nil {
			continue
		}
		if len(elements) > 0 {
			signals.MatchedSelectors = append(signals.MatchedSelectors, sel)
		}
	}

	pageText, err := bodyText(ctx, page)
	if err != nil {
		d.log.Debug("page text read failed", zap.Error(err))
	}
	signals.AcceptedText = strings.Contains(pageText, acceptedToken)

	for _, sel := range resultAreaSelectors {
		elements, err := page.Context(ctx).Elements(sel)
		if err != nil || len(elements) == 0 {
			continue
		}
		text, err := elements.First().Text()
		if err != nil {
			continue
		}
		if strings.Contains(text, acceptedToken) || strings.Contains(text, "Success") {
			signals.ResultAreaHit = true
			break
		}
	}

	if signals.HasSuccess() {
		d.log.Debug("success signals",
			zap.Strings("selectors", signals.MatchedSelectors),
			zap.Bool("accepted_text", signals.AcceptedText),
			zap.Bool("result_area", signals.ResultAreaHit))
	}
	return signals, nil
}

func bodyText(ctx context.Context, page *rod.Page) (string, error) {
	res, err := page.Context(ctx).Evaluate(&rod.EvalOptions{
		JS:      `() => document.body ? (document.body.textContent || '') : ''`,
		ByValue: true,
	})
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}
