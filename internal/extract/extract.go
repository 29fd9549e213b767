package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-rod/rod"
	"go.uber.org/zap"
)

// ErrNoCode means every extraction strategy failed to produce validator-approved code.
var ErrNoCode = errors.New("could not extract code from any source")

// monacoPlaceholder marks a Monaco editor pane still holding stub text.
const monacoPlaceholder = "# The guess API is already defined for you"

// minContainerTextLen filters out trivially short container scrapes before the
// line filter even runs.
const minContainerTextLen = 50

// minCodeLines is the number of non-comment lines a scraped container must
// hold to be accepted.
const minCodeLines = 3

// solutionSelectors locate editor containers across markup revisions.
var solutionSelectors = []string{
	`[data-cy="code-editor"]`,
	`.monaco-editor`,
	`.editor-container`,
	`[data-e2e-locator="code-editor"]`,
	`.CodeMirror`,
	`.ace_editor`,
	`[class*="editor"]`,
	`[class*="code"]`,
}

// resultCodeSelectors locate post-submission code display containers.
var resultCodeSelectors = []string{
	`[data-cy="submission-code"]`,
	`.submission-code`,
	`[data-e2e-locator="submission-code"]`,
	`.code-block`,
	`pre code`,
	`.highlight`,
	`[class*="submission"]`,
	`[class*="result"]`,
}

// Extractor pulls submitted source code out of the live page.
type Extractor struct {
	log *zap.Logger
}

// New creates an extractor.
func New(log *zap.Logger) *Extractor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Extractor{log: log}
}

type strategy struct {
	name string
	run  func(ctx context.Context, page *rod.Page) (string, error)
}

// Code tries each extraction strategy in priority order and returns the first
// validator-approved result. A strategy error or rejection moves on to the
// next strategy; only total exhaustion returns ErrNoCode.
func (e *Extractor) Code(ctx context.Context, page *rod.Page) (string, error) {
	strategies := []strategy{
		{"monaco", e.fromMonaco},
		{"solution_area", e.fromSolutionArea},
		{"submission_result", e.fromSubmissionResult},
		{"react_props", e.fromReactProps},
		{"codemirror", e.fromCodeMirror},
		{"textarea", e.fromTextarea},
	}

	for _, s := range strategies {
		code, err := s.run(ctx, page)
		if err != nil {
			e.log.Debug("extraction strategy failed",
				zap.String("strategy", s.name), zap.Error(err))
			continue
		}
		if strings.TrimSpace(code) == "" || !IsValidCode(code) {
			continue
		}
		e.log.Debug("extraction strategy succeeded",
			zap.String("strategy", s.name), zap.Int("bytes", len(code)))
		return code, nil
	}

	return "", ErrNoCode
}

// Record runs full extraction: code plus metadata, stamped now. Metadata
// lookups never fail, they fall back; only code extraction can error.
func (e *Extractor) Record(ctx context.Context, page *rod.Page, pageURL string) (*SubmissionRecord, error) {
	code, err := e.Code(ctx, page)
	if err != nil {
		return nil, err
	}
	return NewRecord(SlugFromURL(pageURL), Title(ctx, page), Language(ctx, page), code), nil
}

// fromMonaco reads the Monaco editor API, preferring the first editor instance
// and falling back to later ones when the first holds placeholder text.
func (e *Extractor) fromMonaco(ctx context.Context, page *rod.Page) (string, error) {
	res, err := page.Context(ctx).Evaluate(&rod.EvalOptions{
		JS: `
		() => {
			if (!(window.monaco && window.monaco.editor)) return [];
			return window.monaco.editor.getEditors().map((editor) => {
				const model = editor.getModel();
				return model ? model.getValue() : '';
			});
		}
		`,
		ByValue:      true,
		AwaitPromise: true,
	})
	if err != nil {
		return "", fmt.Errorf("monaco eval: %w", err)
	}

	raw, err := res.Value.MarshalJSON()
	if err != nil {
		return "", err
	}
	var values []string
	if err := json.Unmarshal(raw, &values); err != nil {
		return "", err
	}

	for _, code := range values {
		if strings.TrimSpace(code) == "" {
			continue
		}
		if strings.Contains(code, monacoPlaceholder) {
			continue
		}
		if IsValidCode(code) {
			return code, nil
		}
	}
	return "", errors.New("monaco not available or no valid code found")
}

// fromSolutionArea scans editor containers for text that survives the
// comment-line filter.
func (e *Extractor) fromSolutionArea(ctx context.Context, page *rod.Page) (string, error) {
	return e.scanContainers(ctx, page, solutionSelectors, "no solution area found")
}

// fromSubmissionResult runs the same scan restricted to post-submission
// result containers.
func (e *Extractor) fromSubmissionResult(ctx context.Context, page *rod.Page) (string, error) {
	return e.scanContainers(ctx, page, resultCodeSelectors, "no submission result found")
}

func (e *Extractor) scanContainers(ctx context.Context, page *rod.Page, selectors []string, failure string) (string, error) {
	for _, sel := range selectors {
		elements, err := page.Context(ctx).Elements(sel)
		if err != nil {
			continue
		}
		for _, el := range elements {
			text, err := el.Text()
			if err != nil {
				continue
			}
			if len(text) <= minContainerTextLen || strings.TrimSpace(text) == "" {
				continue
			}
			if !IsValidCode(text) {
				continue
			}
			if countCodeLines(text) >= minCodeLines {
				return text, nil
			}
		}
	}
	return "", errors.New(failure)
}

// fromReactProps inspects framework-internal component state attached to
// code-related nodes, when the host exposes it as a readable property.
func (e *Extractor) fromReactProps(ctx context.Context, page *rod.Page) (string, error) {
	res, err := page.Context(ctx).Evaluate(&rod.EvalOptions{
		JS: `
		() => {
			const nodes = document.querySelectorAll('[data-cy*="code"], [data-e2e-locator*="code"]');
			for (const node of nodes) {
				const internal = node._reactInternalFiber || node._reactInternalInstance;
				if (internal && internal.memoizedProps && typeof internal.memoizedProps.value === 'string') {
					return internal.memoizedProps.value;
				}
				const fiberKey = Object.keys(node).find((k) => k.startsWith('__reactFiber'));
				if (fiberKey) {
					const fiber = node[fiberKey];
					if (fiber && fiber.memoizedProps && typeof fiber.memoizedProps.value === 'string') {
						return fiber.memoizedProps.value;
					}
				}
			}
			return '';
		}
		`,
		ByValue:      true,
		AwaitPromise: true,
	})
	if err != nil {
		return "", fmt.Errorf("react props eval: %w", err)
	}
	code := res.Value.Str()
	if code == "" {
		return "", errors.New("react props not found")
	}
	return code, nil
}

// fromCodeMirror reads a legacy CodeMirror widget's value accessor.
func (e *Extractor) fromCodeMirror(ctx context.Context, page *rod.Page) (string, error) {
	res, err := page.Context(ctx).Evaluate(&rod.EvalOptions{
		JS: `
		() => {
			const cm = document.querySelector('.CodeMirror');
			return cm && cm.CodeMirror ? cm.CodeMirror.getValue() : '';
		}
		`,
		ByValue:      true,
		AwaitPromise: true,
	})
	if err != nil {
		return "", fmt.Errorf("codemirror eval: %w", err)
	}
	code := res.Value.Str()
	if code == "" {
		return "", errors.New("codemirror not found")
	}
	return code, nil
}

// fromTextarea is the last resort: any non-empty textarea value on the page.
func (e *Extractor) fromTextarea(ctx context.Context, page *rod.Page) (string, error) {
	res, err := page.Context(ctx).Evaluate(&rod.EvalOptions{
		JS: `
		() => {
			for (const ta of document.querySelectorAll('textarea')) {
				if (ta.value && ta.value.trim()) return ta.value;
			}
			return '';
		}
		`,
		ByValue:      true,
		AwaitPromise: true,
	})
	if err != nil {
		return "", fmt.Errorf("textarea eval: %w", err)
	}
	code := res.Value.Str()
	if code == "" {
		return "", errors.New("no textarea with code found")
	}
	return code, nil
}
