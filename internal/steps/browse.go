package steps

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/xkilldash9x/marquee/internal/locate"
	"github.com/xkilldash9x/marquee/internal/wait"
)

const (
	selSearch = "input[type='search']"
	selSelect = "select"

	noResultsText = "no films found matching your search"
)

var durationPattern = regexp.MustCompile(`(\d+)\s*min`)

// AllContainFold reports whether every text contains fragment, ignoring case.
func AllContainFold(texts []string, fragment string) bool {
	f := strings.ToUpper(fragment)
	return lo.EveryBy(texts, func(t string) bool { return strings.Contains(strings.ToUpper(t), f) })
}

// ParseDurations extracts the first "<n> min" figure from each text. Texts
// without one are skipped.
func ParseDurations(texts []string) []int {
	return lo.FilterMap(texts, func(t string, _ int) (int, bool) {
		m := durationPattern.FindStringSubmatch(t)
		if m == nil {
			return 0, false
		}
		n, err := strconv.Atoi(m[1])
		return n, err == nil
	})
}

// NonDecreasing reports whether xs is sorted ascending. Equal neighbours are allowed.
func NonDecreasing(xs []int) bool {
	for i := 1; i < len(xs); i++ {
		if xs[i-1] > xs[i] {
			return false
		}
	}
	return true
}

func (l *Library) IAmOnTheFilmsPage(ctx context.Context) error {
	if err := l.navigatePath(ctx, pathFilms); err != nil {
		return err
	}
	_, err := l.waiter.Present(ctx, selSearch)
	return err
}

func (l *Library) ISearchForFilm(ctx context.Context, title string) error {
	return l.fill(ctx, selSearch, title, true)
}

func (l *Library) IShouldSeeNoResults(ctx context.Context) error {
	var cards int
	err := l.waiter.Until(ctx, "empty search results", func(ctx context.Context) (bool, error) {
		els, err := l.page.QueryAll(ctx, selFilmCards)
		if err != nil {
			return false, err
		}
		cards = len(els)
		if cards > 0 {
			return false, nil
		}
		body, err := wait.BodyText(ctx, l.page)
		return strings.Contains(strings.ToLower(body), noResultsText), err
	})
	if err != nil {
		return fail("I should see no results", "%d film cards still shown or the empty-state message is missing: %v", cards, err)
	}
	return nil
}

// chooseOption picks, in the select at index, the option whose text
// contains value ignoring case.
func (l *Library) chooseOption(ctx context.Context, step string, index int, value string) error {
	selects, err := l.waiter.Present(ctx, selSelect)
	if err != nil {
		return err
	}
	if len(selects) <= index {
		return fail(step, "expected at least %d select elements, found %d", index+1, len(selects))
	}
	opt, err := l.locator.First(ctx, selects[index], "option", locate.TextContains(value))
	if err != nil {
		return fail(step, "option %q not found: %v", value, err)
	}
	return opt.Select(ctx)
}

func (l *Library) IFilterByGenre(ctx context.Context, genre string) error {
	return l.chooseOption(ctx, "I filter by genre", 0, genre)
}

func (l *Library) ISortBy(ctx context.Context, option string) error {
	return l.chooseOption(ctx, "I sort by", 1, option)
}

// IShouldSeeOnlyGenreFilms waits for a non-empty listing in which every card
// mentions genre.
func (l *Library) IShouldSeeOnlyGenreFilms(ctx context.Context, genre string) error {
	var last []string
	err := l.waiter.Until(ctx, "films filtered by "+genre, func(ctx context.Context) (bool, error) {
		cards, err := texts(ctx, l.page, selFilmCards)
		if err != nil {
			return false, err
		}
		last = cards
		return len(cards) > 0 && AllContainFold(cards, genre), nil
	})
	if err == nil {
		return nil
	}
	if len(last) == 0 {
		return fail("I should see only genre films", "no film cards are shown: %v", err)
	}
	offending := lo.Reject(last, func(t string, _ int) bool { return AllContainFold([]string{t}, genre) })
	return fail("I should see only genre films", "cards not matching %q: %q (%v)", genre, offending, err)
}

func (l *Library) FilmsShouldBeOrderedByDurationAscending(ctx context.Context) error {
	const step = "films should be ordered by duration ascending"
	var (
		last  []int
		cards int
	)
	err := l.waiter.Until(ctx, "films sorted by duration", func(ctx context.Context) (bool, error) {
		found, err := texts(ctx, l.page, selFilmCards)
		if err != nil {
			return false, err
		}
		cards, last = len(found), ParseDurations(found)
		return len(last) > 0 && NonDecreasing(last), nil
	})
	switch {
	case err == nil:
		return nil
	case cards == 0:
		return fail(step, "no film cards are shown: %v", err)
	case len(last) == 0:
		return fail(step, "none of %d film cards shows a duration: %v", cards, err)
	}
	return fail(step, "durations %v are not ascending: %v", last, err)
}
