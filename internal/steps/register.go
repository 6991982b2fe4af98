package steps

import "github.com/cucumber/godog"

// Register binds every step phrase to lib.
func Register(sc *godog.ScenarioContext, lib *Library) {
	// Authentication
	sc.Step(`^I am on the home page$`, lib.IAmOnTheHomePage)
	sc.Step(`^I click on sign up link$`, lib.IClickOnSignUpLink)
	sc.Step(`^I fill in registration (name|email|password) "([^"]*)"$`, lib.IFillInRegistrationField)
	sc.Step(`^I click create account button$`, lib.IClickCreateAccountButton)
	sc.Step(`^I should see registration success$`, lib.IShouldSeeRegistrationSuccess)
	sc.Step(`^I login with email "([^"]*)" and password "([^"]*)"$`, lib.ILoginWith)
	sc.Step(`^I should be redirected to "([^"]*)"$`, lib.IShouldBeRedirectedTo)
	sc.Step(`^I should see error message "([^"]*)"$`, lib.IShouldSeeErrorMessage)
	sc.Step(`^I am logged in as "([^"]*)"$`, lib.IAmLoggedInAs)
	sc.Step(`^I click logout$`, lib.IClickLogout)
	sc.Step(`^I navigate to "([^"]*)" directly$`, lib.INavigateToDirectly)

	// Browsing
	sc.Step(`^I am on the films page$`, lib.IAmOnTheFilmsPage)
	sc.Step(`^I search for film "([^"]*)"$`, lib.ISearchForFilm)
	sc.Step(`^I should see no results$`, lib.IShouldSeeNoResults)
	sc.Step(`^I filter by genre "([^"]*)"$`, lib.IFilterByGenre)
	sc.Step(`^I sort by "([^"]*)"$`, lib.ISortBy)
	sc.Step(`^I should see only "([^"]*)" films$`, lib.IShouldSeeOnlyGenreFilms)
	sc.Step(`^films should be ordered by duration ascending$`, lib.FilmsShouldBeOrderedByDurationAscending)

	// Booking
	sc.Step(`^I click book now on film "([^"]*)"$`, lib.IClickBookNowOnFilm)
	sc.Step(`^I select seat "([^"]*)"$`, lib.ISelectSeat)
	sc.Step(`^I click continue to checkout$`, lib.IClickContinueToCheckout)
	sc.Step(`^I upload payment proof$`, lib.IUploadPaymentProof)
	sc.Step(`^I click confirm booking$`, lib.IClickConfirmBooking)
	sc.Step(`^booking should be created$`, lib.BookingShouldBeCreated)
	sc.Step(`^I should see success message$`, lib.IShouldSeeSuccessMessage)

	// Moderation
	sc.Step(`^I navigate to admin bookings page$`, lib.INavigateToAdminBookingsPage)
	sc.Step(`^I approve the booking$`, lib.IApproveTheBooking)
	sc.Step(`^I reject the booking$`, lib.IRejectTheBooking)
	sc.Step(`^I should see booking status "([^"]*)"$`, lib.IShouldSeeBookingStatus)

	// Showtime management
	sc.Step(`^I am on the showtimes management page$`, lib.IAmOnTheShowtimesManagementPage)
	sc.Step(`^I click add showtime button$`, lib.IClickAddShowtimeButton)
	sc.Step(`^I select film "([^"]*)"$`, lib.ISelectFilm)
	sc.Step(`^I select studio "([^"]*)"$`, lib.ISelectStudio)
	sc.Step(`^I set date to "([^"]*)"$`, lib.ISetDateTo)
	sc.Step(`^I set time to "([^"]*)"$`, lib.ISetTimeTo)
	sc.Step(`^I set price to "([^"]*)"$`, lib.ISetPriceTo)
	sc.Step(`^I submit the showtime form$`, lib.ISubmitTheShowtimeForm)
	sc.Step(`^I should see the new showtime in the list$`, lib.IShouldSeeTheNewShowtimeInTheList)
	sc.Step(`^a showtime exists for film "([^"]*)"$`, lib.AShowtimeExistsForFilm)
	sc.Step(`^I click delete on the showtime$`, lib.IClickDeleteOnTheShowtime)
	sc.Step(`^I confirm deletion$`, lib.IConfirmDeletion)
	sc.Step(`^the showtime should be removed from the list$`, lib.TheShowtimeShouldBeRemovedFromTheList)

	// Film management
	sc.Step(`^I am on the films management page$`, lib.IAmOnTheFilmsManagementPage)
	sc.Step(`^I click add film button$`, lib.IClickAddFilmButton)
	sc.Step(`^I fill in film (title|genre|duration|rating|poster url|description) "([^"]*)"$`, lib.IFillInFilmField)
	sc.Step(`^I submit the film form$`, lib.ISubmitTheFilmForm)
	sc.Step(`^I should see the new film in the list$`, lib.IShouldSeeTheNewFilmInTheList)
	sc.Step(`^I click edit on the film "([^"]*)"$`, lib.IClickEditOnTheFilm)
	sc.Step(`^I update film title to "([^"]*)"$`, lib.IUpdateFilmTitleTo)
	sc.Step(`^I should see "([^"]*)" in the films list$`, lib.IShouldSeeInTheFilmsList)
	sc.Step(`^I click delete on the film "([^"]*)"$`, lib.IClickDeleteOnTheFilm)
	sc.Step(`^the film should be removed from the list$`, lib.TheFilmShouldBeRemovedFromTheList)
}
