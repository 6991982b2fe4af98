package steps

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/marquee/internal/browser/browsertest"
	"github.com/xkilldash9x/marquee/internal/scenario"
)

func TestExtractBookingID(t *testing.T) {
	page := `My Bookings
Interstellar
Booking ID: aaaa1111
PENDING
Wicked
Studio 1
Booking ID: bbbb2222
PENDING`

	tests := []struct {
		name    string
		text    string
		film    string
		want    string
		wantErr bool
	}{
		{name: "id after the film", text: page, film: "Wicked", want: "bbbb2222"},
		{name: "film match ignores case", text: page, film: "wicked", want: "bbbb2222"},
		{name: "id before the film", text: "Booking ID: cccc3333\nWicked", film: "Wicked", want: "cccc3333"},
		{name: "regexp characters in the title", text: "Wicked: Part 1 (2024)\nBooking ID: dddd4444", film: "Wicked: Part 1 (2024)", want: "dddd4444"},
		{name: "film not shown", text: page, film: "Dune", wantErr: true},
		{name: "no film takes the first id", text: page, want: "aaaa1111"},
		{name: "no ids at all", text: "You have no bookings yet.", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractBookingID(tt.text, tt.film)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrBookingIDNotFound)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			again, err := ExtractBookingID(tt.text, tt.film)
			require.NoError(t, err)
			assert.Equal(t, got, again, "extraction must be idempotent")
		})
	}
}

func TestBookingJourney(t *testing.T) {
	lib, page := newTestLibrary(t)
	ctx, state := scenarioContext()

	proof := filepath.Join(t.TempDir(), "payment.jpg")
	require.NoError(t, os.WriteFile(proof, []byte{0xff, 0xd8}, 0o600))
	lib.app.PaymentProofPath = proof

	showtime := browsertest.El("19:30")
	wicked := browsertest.El("Wicked\nMusical · 160 min")
	wicked.OnClick = func(p *browsertest.Page) {
		p.SetURL("/films/42")
		p.Set(selSelectSeats, showtime)
	}
	page.Set(selFilmCards, browsertest.El("Interstellar\nSci-Fi · 169 min"), wicked)

	seat := browsertest.El("").Attr("title", "A5")
	page.Set(selButtons, browsertest.El("").Attr("title", "A4"), seat)

	cont := browsertest.El("Continue to checkout")
	cont.OnClick = func(p *browsertest.Page) {
		p.SetURL("/checkout")
		confirm := browsertest.El("Confirm Booking")
		confirm.OnClick = func(p *browsertest.Page) {
			p.SetURL("/my-bookings")
			p.Set("body", browsertest.El("My Bookings\nWicked\nBooking ID: 9f8e7d6c\nPENDING"))
			p.Set(selBookingCards, browsertest.El("Wicked\nBooking ID: 9f8e7d6c\nPending"))
		}
		p.Set(selButtons, browsertest.El("Back"), confirm)
	}
	page.Set(selContinue, cont)
	proofInput := browsertest.El("")
	page.Set(selPaymentProof, proofInput)

	require.NoError(t, lib.IClickBookNowOnFilm(ctx, "Wicked"))
	require.NoError(t, lib.ISelectSeat(ctx, "A5"))
	require.NoError(t, lib.IClickContinueToCheckout(ctx))
	require.NoError(t, lib.IUploadPaymentProof(ctx))
	require.NoError(t, lib.IClickConfirmBooking(ctx))
	require.NoError(t, lib.BookingShouldBeCreated(ctx))
	require.NoError(t, lib.IShouldSeeSuccessMessage(ctx))

	assert.Equal(t, 1, showtime.Scrolls)
	assert.Equal(t, 1, showtime.Clicks)
	assert.Equal(t, 1, seat.Clicks)
	assert.Equal(t, 1, cont.JSClicks, "continue is clicked through script")
	assert.Equal(t, []string{proof}, proofInput.Files)

	film, err := state.Get(scenario.BookedFilm)
	require.NoError(t, err)
	assert.Equal(t, "Wicked", film)
	id, err := state.Get(scenario.LastCreatedBookingID)
	require.NoError(t, err)
	assert.Equal(t, "9f8e7d6c", id)
}

func TestUploadPaymentProofMissingFile(t *testing.T) {
	lib, page := newTestLibrary(t)
	lib.app.PaymentProofPath = filepath.Join(t.TempDir(), "absent.jpg")
	page.URL = testBase + "/checkout"
	page.Set(selPaymentProof, browsertest.El(""))

	af := requireAssertionFailure(t, lib.IUploadPaymentProof(context.Background()))
	assert.Contains(t, af.Message, "not readable")
}

func TestBookingShouldBeCreatedForUnlistedFilm(t *testing.T) {
	lib, page := newTestLibrary(t)
	ctx, state := scenarioContext()
	state.Set(scenario.BookedFilm, "Dune")
	page.URL = testBase + "/my-bookings"
	page.Set("body", browsertest.El("Wicked\nBooking ID: 9f8e7d6c"))

	err := lib.BookingShouldBeCreated(ctx)
	requireAssertionFailure(t, err)
	assert.ErrorContains(t, err, "Dune")
	_, ok := state.Lookup(scenario.LastCreatedBookingID)
	assert.False(t, ok)
}

func TestSuccessMessageNeedsRecordedID(t *testing.T) {
	lib, _ := newTestLibrary(t)
	ctx, _ := scenarioContext()

	var mk *scenario.MissingKeyError
	require.ErrorAs(t, lib.IShouldSeeSuccessMessage(ctx), &mk)
	assert.Equal(t, scenario.LastCreatedBookingID, mk.Key)
}
