// Package locate finds elements by loose, human-meaningful descriptions
// (visible text fragments, attribute values, row contents) instead of
// structural selectors. Candidates are ranked, and ties at the top are
// logged so UI regressions that introduce duplicates do not go unnoticed.
package locate

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/xkilldash9x/marquee/internal/browser"
)

// Score values returned by matchers. Zero means no match.
const (
	NoMatch       = 0
	ContainsMatch = 1
	PrefixMatch   = 2
	ExactMatch    = 3
)

// Matcher scores a candidate element. A filter matcher only admits or
// rejects; it does not rank.
type Matcher struct {
	desc   string
	filter bool
	score  func(ctx context.Context, el browser.Element) (int, error)
}

// String describes the matcher for error messages.
func (m Matcher) String() string { return m.desc }

// Score evaluates el.
func (m Matcher) Score(ctx context.Context, el browser.Element) (int, error) {
	return m.score(ctx, el)
}

func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// rank scores how well text matches fragment, ignoring case and collapsing whitespace.
func rank(text, fragment string) int {
	t := strings.ToLower(normalize(text))
	f := strings.ToLower(normalize(fragment))
	switch {
	case t == f:
		return ExactMatch
	case strings.HasPrefix(t, f):
		return PrefixMatch
	case strings.Contains(t, f):
		return ContainsMatch
	}
	return NoMatch
}

func quoted(fragments []string) string {
	return strings.Join(lo.Map(fragments, func(f string, _ int) string { return fmt.Sprintf("%q", f) }), ", ")
}

// TextContains matches elements whose visible text contains any fragment,
// ignoring case. The best-ranked fragment decides the score.
func TextContains(fragments ...string) Matcher {
	return Matcher{
		desc: "text contains any of " + quoted(fragments),
		score: func(ctx context.Context, el browser.Element) (int, error) {
			text, err := el.Text(ctx)
			if err != nil {
				return NoMatch, err
			}
			return lo.Max(lo.Map(fragments, func(f string, _ int) int { return rank(text, f) })), nil
		},
	}
}

// TextContainsAll matches elements whose visible text contains every fragment, ignoring case.
func TextContainsAll(fragments ...string) Matcher {
	return Matcher{
		desc:   "text contains all of " + quoted(fragments),
		filter: true,
		score: func(ctx context.Context, el browser.Element) (int, error) {
			text, err := el.Text(ctx)
			if err != nil {
				return NoMatch, err
			}
			lower := strings.ToLower(text)
			for _, f := range fragments {
				if !strings.Contains(lower, strings.ToLower(f)) {
					return NoMatch, nil
				}
			}
			return ContainsMatch, nil
		},
	}
}

// TextEquals matches elements whose trimmed text is exactly s.
func TextEquals(s string) Matcher {
	return Matcher{
		desc: fmt.Sprintf("text equals %q", s),
		score: func(ctx context.Context, el browser.Element) (int, error) {
			text, err := el.Text(ctx)
			if err != nil || strings.TrimSpace(text) != s {
				return NoMatch, err
			}
			return ExactMatch, nil
		},
	}
}

// TextEqualsUpper matches elements whose trimmed, uppercased text is s.
func TextEqualsUpper(s string) Matcher {
	return Matcher{
		desc: fmt.Sprintf("uppercased text equals %q", s),
		score: func(ctx context.Context, el browser.Element) (int, error) {
			text, err := el.Text(ctx)
			if err != nil || strings.ToUpper(strings.TrimSpace(text)) != s {
				return NoMatch, err
			}
			return ExactMatch, nil
		},
	}
}

// AttrContains matches elements whose attribute contains value.
func AttrContains(name, value string) Matcher {
	return Matcher{
		desc: fmt.Sprintf("attribute %s contains %q", name, value),
		score: func(ctx context.Context, el browser.Element) (int, error) {
			v, ok, err := el.Attribute(ctx, name)
			if err != nil || !ok {
				return NoMatch, err
			}
			return rank(v, value), nil
		},
	}
}

// AttrOrText matches on the attribute first and falls back to visible text.
func AttrOrText(name, value string) Matcher {
	attr, text := AttrContains(name, value), TextContains(value)
	return Matcher{
		desc: fmt.Sprintf("attribute %s or text contains %q", name, value),
		score: func(ctx context.Context, el browser.Element) (int, error) {
			s, err := attr.Score(ctx, el)
			if err != nil || s > NoMatch {
				return s, err
			}
			return text.Score(ctx, el)
		},
	}
}

// RowContains matches elements whose text contains every fragment, case-sensitively.
func RowContains(fragments ...string) Matcher {
	return Matcher{
		desc:   "row contains " + quoted(fragments),
		filter: true,
		score: func(ctx context.Context, el browser.Element) (int, error) {
			text, err := el.Text(ctx)
			if err != nil {
				return NoMatch, err
			}
			for _, f := range fragments {
				if !strings.Contains(text, f) {
					return NoMatch, nil
				}
			}
			return ContainsMatch, nil
		},
	}
}

// HasDescendant matches elements containing at least one node matching selector.
func HasDescendant(selector string) Matcher {
	return Matcher{
		desc:   fmt.Sprintf("has descendant %q", selector),
		filter: true,
		score: func(ctx context.Context, el browser.Element) (int, error) {
			found, err := el.QueryAll(ctx, selector)
			if err != nil || len(found) == 0 {
				return NoMatch, err
			}
			return ContainsMatch, nil
		},
	}
}

// Any matches every candidate equally.
func Any() Matcher {
	return Matcher{
		desc:   "any",
		filter: true,
		score:  func(context.Context, browser.Element) (int, error) { return ContainsMatch, nil },
	}
}

// And matches when every matcher does. The score is the weakest of the
// ranking matchers; filters only gate.
func And(ms ...Matcher) Matcher {
	return Matcher{
		desc:   strings.Join(lo.Map(ms, func(m Matcher, _ int) string { return m.desc }), " and "),
		filter: lo.EveryBy(ms, func(m Matcher) bool { return m.filter }),
		score: func(ctx context.Context, el browser.Element) (int, error) {
			best, ranked := ExactMatch, false
			for _, m := range ms {
				s, err := m.Score(ctx, el)
				if err != nil || s == NoMatch {
					return NoMatch, err
				}
				if !m.filter {
					best, ranked = min(best, s), true
				}
			}
			if !ranked {
				return ContainsMatch, nil
			}
			return best, nil
		},
	}
}

// Candidate is an element with its score.
type Candidate struct {
	Element browser.Element
	Score   int
	// Index is the element's position in the query result (DOM order).
	Index int
}

// Locator ranks query results against a matcher.
type Locator struct {
	logger *zap.Logger
}

// New creates a Locator.
func New(logger *zap.Logger) *Locator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Locator{logger: logger.Named("locate")}
}

// All returns every candidate under scope matching selector and m, best
// score first, DOM order within a score.
func (l *Locator) All(ctx context.Context, scope browser.Scope, selector string, m Matcher) ([]Candidate, error) {
	els, err := scope.QueryAll(ctx, selector)
	if err != nil {
		return nil, err
	}

	var out []Candidate
	for i, el := range els {
		s, err := m.Score(ctx, el)
		if err != nil {
			// A node that vanished mid-scan is not a match.
			l.logger.Debug("Skipping candidate.", zap.String("selector", selector), zap.Int("index", i), zap.Error(err))
			continue
		}
		if s > NoMatch {
			out = append(out, Candidate{Element: el, Score: s, Index: i})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, nil
}

// Elements is All without the scores.
func (l *Locator) Elements(ctx context.Context, scope browser.Scope, selector string, m Matcher) ([]browser.Element, error) {
	cands, err := l.All(ctx, scope, selector, m)
	if err != nil {
		return nil, err
	}
	return lo.Map(cands, func(c Candidate, _ int) browser.Element { return c.Element }), nil
}

// First returns the best candidate, or an ElementNotFoundError. When several
// candidates share the best score it logs a warning and takes the earliest.
func (l *Locator) First(ctx context.Context, scope browser.Scope, selector string, m Matcher) (browser.Element, error) {
	cands, err := l.All(ctx, scope, selector, m)
	if err != nil {
		return nil, err
	}
	if len(cands) == 0 {
		return nil, browser.NewElementNotFoundError(selector, m.String())
	}

	top := lo.CountBy(cands, func(c Candidate) bool { return c.Score == cands[0].Score })
	if top > 1 {
		l.logger.Warn("Ambiguous locator; using the first candidate in DOM order.",
			zap.String("selector", selector),
			zap.String("matcher", m.String()),
			zap.Int("candidates", top),
			zap.Int("chosen_index", cands[0].Index),
		)
	}
	return cands[0].Element, nil
}
