package steps

import (
	"context"

	"github.com/xkilldash9x/marquee/internal/browser"
	"github.com/xkilldash9x/marquee/internal/locate"
	"github.com/xkilldash9x/marquee/internal/scenario"
)

const pathAdminFilms = "/admin/films"

// filmField describes one input of the film form.
type filmField struct {
	id     string
	slowly bool
	// key, when set, remembers the typed value for later assertions.
	key string
}

var filmFields = map[string]filmField{
	"title":       {id: "title", slowly: true, key: scenario.FilmTitle},
	"genre":       {id: "genre", slowly: true, key: scenario.FilmGenre},
	"duration":    {id: "duration_min"},
	"rating":      {id: "rating"},
	"poster url":  {id: "poster_url"},
	"description": {id: "description", slowly: true},
}

func (l *Library) IAmOnTheFilmsManagementPage(ctx context.Context) error {
	if err := l.navigatePath(ctx, pathAdminFilms); err != nil {
		return err
	}
	_, err := l.waiter.URLContains(ctx, pathAdminFilms)
	return err
}

func (l *Library) IClickAddFilmButton(ctx context.Context) error {
	return l.click(ctx, selButtons, locate.TextContainsAll("add", "film"))
}

// IFillInFilmField types value into the named film form field.
func (l *Library) IFillInFilmField(ctx context.Context, name, value string) error {
	f, ok := filmFields[name]
	if !ok {
		return fail("I fill in film field", "unknown film field %q", name)
	}
	if f.key != "" {
		scenario.FromContext(ctx).Set(f.key, value)
	}
	return l.fill(ctx, "#"+f.id, value, f.slowly)
}

func (l *Library) ISubmitTheFilmForm(ctx context.Context) error {
	return l.submitForm(ctx)
}

func (l *Library) IShouldSeeTheNewFilmInTheList(ctx context.Context) error {
	state := scenario.FromContext(ctx)
	title, err := state.Get(scenario.FilmTitle)
	if err != nil {
		return err
	}
	genre, err := state.Get(scenario.FilmGenre)
	if err != nil {
		return err
	}
	if _, err := l.find(ctx, selTableRows, locate.RowContains(title, genre)); err != nil {
		return fail("I should see the new film in the list", "no row with %q and %q: %v", title, genre, err)
	}
	return nil
}

func (l *Library) filmRow(ctx context.Context, step, title string) (browser.Element, error) {
	row, err := l.find(ctx, selTableRows, locate.RowContains(title))
	if err != nil {
		return nil, fail(step, "no row for film %q: %v", title, err)
	}
	return row, nil
}

// IClickEditOnTheFilm clicks the icon button in the film's row.
func (l *Library) IClickEditOnTheFilm(ctx context.Context, title string) error {
	row, err := l.filmRow(ctx, "I click edit on the film", title)
	if err != nil {
		return err
	}
	btn, err := l.locator.First(ctx, row, selButtons, locate.HasDescendant("svg"))
	if err != nil {
		return err
	}
	return btn.Click(ctx)
}

func (l *Library) IUpdateFilmTitleTo(ctx context.Context, title string) error {
	return l.IFillInFilmField(ctx, "title", title)
}

func (l *Library) IShouldSeeInTheFilmsList(ctx context.Context, title string) error {
	_, err := l.filmRow(ctx, "I should see film in the films list", title)
	return err
}

// IClickDeleteOnTheFilm clicks the row's second button, the delete action,
// without waiting for the confirmation dialog it opens.
func (l *Library) IClickDeleteOnTheFilm(ctx context.Context, title string) error {
	const step = "I click delete on the film"

	row, err := l.filmRow(ctx, step, title)
	if err != nil {
		return err
	}
	buttons, err := row.QueryAll(ctx, selButtons)
	if err != nil {
		return err
	}
	if len(buttons) < 2 {
		return fail(step, "row for %q has %d buttons, expected edit and delete", title, len(buttons))
	}
	scenario.FromContext(ctx).Set(scenario.DeletedFilmTitle, title)
	return buttons[1].ClickNoWait(ctx)
}

func (l *Library) TheFilmShouldBeRemovedFromTheList(ctx context.Context) error {
	title, err := scenario.FromContext(ctx).Get(scenario.DeletedFilmTitle)
	if err != nil {
		return err
	}
	err = l.waiter.Until(ctx, "deleted film to leave the list", func(ctx context.Context) (bool, error) {
		found, err := l.locator.All(ctx, l.page, selTableRows, locate.RowContains(title))
		return len(found) == 0, err
	})
	if err != nil {
		return fail("the film should be removed from the list", "%q is still listed: %v", title, err)
	}
	return nil
}
