package steps

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xkilldash9x/marquee/internal/browser"
	"github.com/xkilldash9x/marquee/internal/locate"
	"github.com/xkilldash9x/marquee/internal/scenario"
)

const (
	pathAdminShowtimes = "/admin/showtimes"

	selDateInput   = "input[type='date']"
	selTimeInput   = "input[type='time']"
	selNumberInput = "input[type='number']"
)

// DateForms returns the renderings of an ISO date the showtime table may
// use. Unparseable input is returned as is.
func DateForms(iso string) []string {
	d, err := time.Parse(time.DateOnly, iso)
	if err != nil {
		return []string{iso}
	}
	return []string{iso, d.Format("Jan 2, 2006")}
}

func (l *Library) IAmOnTheShowtimesManagementPage(ctx context.Context) error {
	if err := l.navigatePath(ctx, pathAdminShowtimes); err != nil {
		return err
	}
	_, err := l.waiter.URLContains(ctx, pathAdminShowtimes)
	return err
}

func (l *Library) IClickAddShowtimeButton(ctx context.Context) error {
	return l.click(ctx, selButtons, locate.TextContains("add", "new"))
}

// selectAnywhere picks the first option, across every select on the page,
// whose text contains value.
func (l *Library) selectAnywhere(ctx context.Context, step, value string) error {
	var opt browser.Element
	err := l.waiter.Until(ctx, fmt.Sprintf("an option containing %q", value), func(ctx context.Context) (bool, error) {
		selects, err := l.page.QueryAll(ctx, selSelect)
		if err != nil {
			return false, err
		}
		for _, s := range selects {
			found, err := l.locator.Elements(ctx, s, "option", locate.RowContains(value))
			if err != nil {
				return false, err
			}
			if len(found) > 0 {
				opt = found[0]
				return true, nil
			}
		}
		return false, nil
	})
	if err != nil {
		return fail(step, "no option contains %q: %v", value, err)
	}
	return opt.Select(ctx)
}

func (l *Library) ISelectFilm(ctx context.Context, film string) error {
	scenario.FromContext(ctx).Set(scenario.ShowtimeFilm, film)
	return l.selectAnywhere(ctx, "I select film", film)
}

func (l *Library) ISelectStudio(ctx context.Context, studio string) error {
	return l.selectAnywhere(ctx, "I select studio", studio)
}

// setFirst assigns value to the first input matching selector. Date and time
// pickers ignore synthetic key events, so the value is set directly.
func (l *Library) setFirst(ctx context.Context, selector, value string) error {
	inputs, err := l.waiter.Present(ctx, selector)
	if err != nil {
		return err
	}
	return inputs[0].SetValue(ctx, value)
}

func (l *Library) ISetDateTo(ctx context.Context, date string) error {
	scenario.FromContext(ctx).Set(scenario.ShowtimeDate, date)
	return l.setFirst(ctx, selDateInput, date)
}

func (l *Library) ISetTimeTo(ctx context.Context, t string) error {
	scenario.FromContext(ctx).Set(scenario.ShowtimeTime, t)
	return l.setFirst(ctx, selTimeInput, t)
}

func (l *Library) ISetPriceTo(ctx context.Context, price string) error {
	inputs, err := l.waiter.Present(ctx, selNumberInput)
	if err != nil {
		return err
	}
	if err := inputs[0].Clear(ctx); err != nil {
		return err
	}
	return inputs[0].SendKeys(ctx, price)
}

func (l *Library) submitForm(ctx context.Context) error {
	btn, err := l.waiter.Clickable(ctx, selSubmit)
	if err != nil {
		return err
	}
	return btn.Click(ctx)
}

func (l *Library) ISubmitTheShowtimeForm(ctx context.Context) error {
	return l.submitForm(ctx)
}

func (l *Library) IShouldSeeTheNewShowtimeInTheList(ctx context.Context) error {
	state := scenario.FromContext(ctx)
	film, err := state.Get(scenario.ShowtimeFilm)
	if err != nil {
		return err
	}
	date, err := state.Get(scenario.ShowtimeDate)
	if err != nil {
		return err
	}
	at, err := state.Get(scenario.ShowtimeTime)
	if err != nil {
		return err
	}

	forms := DateForms(date)
	err = l.waiter.Until(ctx, "new showtime row", func(ctx context.Context) (bool, error) {
		rows, err := texts(ctx, l.page, selTableRows)
		if err != nil {
			return false, err
		}
		for _, r := range rows {
			if !strings.Contains(r, film) || !strings.Contains(r, at) {
				continue
			}
			for _, d := range forms {
				if strings.Contains(r, d) {
					return true, nil
				}
			}
		}
		return false, nil
	})
	if err != nil {
		return fail("I should see the new showtime in the list", "no row for %s on %s at %s: %v", film, date, at, err)
	}
	return nil
}

func (l *Library) AShowtimeExistsForFilm(ctx context.Context, film string) error {
	if _, err := l.find(ctx, selTableRows, locate.RowContains(film)); err != nil {
		return fail("a showtime exists for film", "no showtime row for %q: %v", film, err)
	}
	return nil
}

// IClickDeleteOnTheShowtime removes the first listed showtime. The click does
// not wait because the application asks for confirmation in a native dialog.
func (l *Library) IClickDeleteOnTheShowtime(ctx context.Context) error {
	const step = "I click delete on the showtime"

	rows, err := l.waiter.Present(ctx, selTableRows)
	if err != nil {
		return err
	}
	text, err := rows[0].Text(ctx)
	if err != nil {
		return err
	}
	buttons, err := rows[0].QueryAll(ctx, selButtons)
	if err != nil {
		return err
	}
	if len(buttons) == 0 {
		return fail(step, "the first showtime row has no buttons")
	}
	scenario.FromContext(ctx).Set(scenario.DeletedShowtimeText, text)
	return buttons[0].ClickNoWait(ctx)
}

func (l *Library) IConfirmDeletion(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, l.waiter.Timeout())
	defer cancel()
	if err := l.page.AcceptDialog(ctx); err != nil {
		return fmt.Errorf("accepting the delete confirmation: %w", err)
	}
	return nil
}

func (l *Library) TheShowtimeShouldBeRemovedFromTheList(ctx context.Context) error {
	deleted, err := scenario.FromContext(ctx).Get(scenario.DeletedShowtimeText)
	if err != nil {
		return err
	}
	err = l.waiter.Until(ctx, "deleted showtime to leave the list", func(ctx context.Context) (bool, error) {
		rows, err := texts(ctx, l.page, selTableRows)
		if err != nil {
			return false, err
		}
		for _, r := range rows {
			if r == deleted {
				return false, nil
			}
		}
		return true, nil
	})
	if err != nil {
		return fail("the showtime should be removed from the list", "row %q is still listed: %v", deleted, err)
	}
	return nil
}
