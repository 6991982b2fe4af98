package steps

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/marquee/internal/locate"
	"github.com/xkilldash9x/marquee/internal/scenario"
	"github.com/xkilldash9x/marquee/internal/wait"
)

const pathAdminBookings = "/admin/bookings"

func (l *Library) INavigateToAdminBookingsPage(ctx context.Context) error {
	if err := l.navigatePath(ctx, pathAdminBookings); err != nil {
		return err
	}
	_, err := l.waiter.URLContains(ctx, pathAdminBookings)
	return err
}

// openPendingBooking opens the detail view of the booked film's pending row.
func (l *Library) openPendingBooking(ctx context.Context, step string) error {
	film, err := scenario.FromContext(ctx).Get(scenario.BookedFilm)
	if err != nil {
		return err
	}
	if _, err := l.waiter.Present(ctx, selTableRows); err != nil {
		return err
	}
	row, err := l.locator.First(ctx, l.page, selTableRows, locate.And(locate.RowContains(film), locate.TextContains("pending")))
	if err != nil {
		return fail(step, "no pending booking row for %q", film)
	}
	view, err := l.findIn(ctx, row, selButtons, locate.TextContains("View Details"))
	if err != nil {
		return err
	}
	return view.Click(ctx)
}

func (l *Library) IApproveTheBooking(ctx context.Context) error {
	if err := l.openPendingBooking(ctx, "I approve the booking"); err != nil {
		return err
	}
	return l.click(ctx, selButtons, locate.TextEquals("Confirm"))
}

func (l *Library) IRejectTheBooking(ctx context.Context) error {
	if err := l.openPendingBooking(ctx, "I reject the booking"); err != nil {
		return err
	}
	return l.click(ctx, selButtons, locate.TextEqualsUpper("REJECT"))
}

// IShouldSeeBookingStatus reloads the bookings table until the recorded
// booking shows status. The backend applies moderation asynchronously.
func (l *Library) IShouldSeeBookingStatus(ctx context.Context, status string) error {
	id, err := scenario.FromContext(ctx).Get(scenario.LastCreatedBookingID)
	if err != nil {
		return err
	}
	upper := strings.ToUpper(status)

	err = wait.Retry(ctx, policy(l.app.StatusPoll), "booking status "+status, func(ctx context.Context, attempt int) (bool, error) {
		if err := l.page.Reload(ctx); err != nil {
			return false, err
		}
		if _, err := l.waiter.Present(ctx, selTableRows); err != nil {
			return false, err
		}
		rows, err := texts(ctx, l.page, selTableRows)
		if err != nil {
			return false, err
		}
		for _, r := range rows {
			if strings.Contains(r, id) && (strings.Contains(r, status) || strings.Contains(r, upper)) {
				return true, nil
			}
		}
		l.logger.Debug("Booking status not shown yet.", zap.String("booking_id", id), zap.String("status", status), zap.Int("attempt", attempt))
		return false, nil
	})
	if err != nil {
		return fail("I should see booking status", "booking %s never showed %q: %v", id, status, err)
	}
	return nil
}
