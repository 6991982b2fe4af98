package steps

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"

	"github.com/mitchellh/go-homedir"

	"github.com/xkilldash9x/marquee/internal/locate"
	"github.com/xkilldash9x/marquee/internal/scenario"
	"github.com/xkilldash9x/marquee/internal/wait"
)

const (
	selSelectSeats  = "a[href^='/select-seats/']"
	selContinue     = "button[data-testid='button-continue']"
	selPaymentProof = "#payment-proof"
	selBookingCards = "[class*='border']"

	fileCountExpr = "this.files ? this.files.length : 0"
)

// ErrBookingIDNotFound is returned when the page shows no booking ID for the film.
var ErrBookingIDNotFound = errors.New("booking id not found")

const bookingIDExpr = `Booking ID:\s*([a-z0-9]+)`

var anyBookingID = regexp.MustCompile(bookingIDExpr)

// ExtractBookingID finds the booking ID shown next to film in text. The ID
// after the film name is preferred over one before it. With an empty film
// the first ID on the page is returned.
func ExtractBookingID(text, film string) (string, error) {
	if film == "" {
		if m := anyBookingID.FindStringSubmatch(text); m != nil {
			return m[1], nil
		}
		return "", ErrBookingIDNotFound
	}

	name := regexp.QuoteMeta(film)
	for _, expr := range []string{
		`(?is)` + name + `.*?` + bookingIDExpr,
		`(?is)` + bookingIDExpr + `.*?` + name,
	} {
		if m := regexp.MustCompile(expr).FindStringSubmatch(text); m != nil {
			return m[1], nil
		}
	}
	return "", fmt.Errorf("%w for film %q", ErrBookingIDNotFound, film)
}

// IClickBookNowOnFilm opens the film's detail page and its first showtime.
func (l *Library) IClickBookNowOnFilm(ctx context.Context, title string) error {
	scenario.FromContext(ctx).Set(scenario.BookedFilm, title)

	if err := l.click(ctx, selFilmCards, locate.RowContains(title)); err != nil {
		return err
	}
	links, err := l.waiter.Present(ctx, selSelectSeats)
	if err != nil {
		return err
	}
	if err := links[0].ScrollIntoView(ctx); err != nil {
		return err
	}
	return links[0].Click(ctx)
}

func (l *Library) ISelectSeat(ctx context.Context, seat string) error {
	if err := l.click(ctx, selButtons, locate.AttrOrText("title", seat)); err != nil {
		return err
	}
	return sleep(ctx, l.seatSettle)
}

// IClickContinueToCheckout clicks through script; the sticky summary bar can
// sit on top of the button and swallow a real mouse click.
func (l *Library) IClickContinueToCheckout(ctx context.Context) error {
	btn, err := l.waiter.Clickable(ctx, selContinue)
	if err != nil {
		return err
	}
	if err := btn.ScrollIntoView(ctx); err != nil {
		return err
	}
	return btn.JSClick(ctx)
}

func (l *Library) IUploadPaymentProof(ctx context.Context) error {
	const step = "I upload payment proof"

	if _, err := l.waiter.URLContains(ctx, "/checkout"); err != nil {
		return err
	}
	path, err := homedir.Expand(l.app.PaymentProofPath)
	if err != nil {
		return fmt.Errorf("expanding payment proof path: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		return fail(step, "payment proof file is not readable: %v", err)
	}

	inputs, err := l.waiter.Present(ctx, selPaymentProof)
	if err != nil {
		return err
	}
	if err := inputs[0].SetFiles(ctx, []string{path}); err != nil {
		return fmt.Errorf("attaching payment proof: %w", err)
	}

	var count int
	if err := inputs[0].Property(ctx, fileCountExpr, &count); err != nil {
		return err
	}
	if count == 0 {
		return fail(step, "file input reports no attached files")
	}
	return nil
}

func (l *Library) IClickConfirmBooking(ctx context.Context) error {
	return l.click(ctx, selButtons, locate.TextContains("confirm", "submit"))
}

// BookingShouldBeCreated waits for the bookings page and records the ID shown
// for the booked film.
func (l *Library) BookingShouldBeCreated(ctx context.Context) error {
	state := scenario.FromContext(ctx)
	if _, err := l.waiter.URLContains(ctx, "bookings"); err != nil {
		return err
	}
	film, _ := state.Lookup(scenario.BookedFilm)

	var id string
	err := l.waiter.Until(ctx, "booking ID for "+film, func(ctx context.Context) (bool, error) {
		body, err := wait.BodyText(ctx, l.page)
		if err != nil {
			return false, err
		}
		id, err = ExtractBookingID(body, film)
		return err == nil, err
	})
	if err != nil {
		return fail("booking should be created", "%v", err)
	}
	state.Set(scenario.LastCreatedBookingID, id)
	return nil
}

func (l *Library) IShouldSeeSuccessMessage(ctx context.Context) error {
	id, err := scenario.FromContext(ctx).Get(scenario.LastCreatedBookingID)
	if err != nil {
		return err
	}
	if _, err := l.waiter.URLContains(ctx, "/my-bookings"); err != nil {
		return err
	}
	if _, err := l.find(ctx, selBookingCards, locate.And(locate.RowContains(id), locate.TextContains("pending"))); err != nil {
		return fail("I should see success message", "no pending booking card for %s: %v", id, err)
	}
	return nil
}
