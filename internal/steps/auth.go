package steps

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/marquee/internal/browser"
	"github.com/xkilldash9x/marquee/internal/locate"
	"github.com/xkilldash9x/marquee/internal/wait"
)

const (
	pathLogin          = "/login"
	pathFilms          = "/films"
	pathAdminDashboard = "/admin/dashboard"
)

// landingPath is where the application sends a signed-in user.
func landingPath(admin bool) string {
	if admin {
		return pathAdminDashboard
	}
	return pathFilms
}

func (l *Library) IAmOnTheHomePage(ctx context.Context) error {
	return l.page.Navigate(ctx, l.page.BaseURL())
}

func (l *Library) IClickOnSignUpLink(ctx context.Context) error {
	return l.click(ctx, "a, button", locate.TextContains("sign up", "register"))
}

// IFillInRegistrationField types into the registration input called field.
func (l *Library) IFillInRegistrationField(ctx context.Context, field, value string) error {
	return l.fill(ctx, fmt.Sprintf("[name='%s']", field), value, true)
}

func (l *Library) IClickCreateAccountButton(ctx context.Context) error {
	return l.click(ctx, selSubmit, locate.TextContains("create", "register", "sign up"))
}

// IShouldSeeRegistrationSuccess requires both the confirmation text and the
// form flipping to its sign-in mode.
func (l *Library) IShouldSeeRegistrationSuccess(ctx context.Context) error {
	err := l.waiter.Until(ctx, "registration confirmation", func(ctx context.Context) (bool, error) {
		body, err := wait.BodyText(ctx, l.page)
		if err != nil || !strings.Contains(strings.ToLower(body), "account created") {
			return false, err
		}
		buttons, err := texts(ctx, l.page, selSubmit)
		if err != nil || len(buttons) == 0 {
			return false, err
		}
		return strings.Contains(strings.ToLower(buttons[0]), "sign in"), nil
	})
	if err != nil {
		return fail("I should see registration success", "no 'account created' message with a 'sign in' submit button: %v", err)
	}
	return nil
}

func (l *Library) submitCredentials(ctx context.Context, email, password string) error {
	if err := l.fill(ctx, "[name='email']", email, true); err != nil {
		return err
	}
	if err := l.fill(ctx, "[name='password']", password, true); err != nil {
		return err
	}
	submit, err := l.waiter.Clickable(ctx, selSubmit)
	if err != nil {
		return err
	}
	return submit.Click(ctx)
}

func onLoginPage(u string) bool {
	return strings.HasSuffix(strings.TrimRight(u, "/"), pathLogin)
}

// ILoginWith submits the login form. The application does not always redirect
// after authenticating, so when the browser is still on the login page the
// stored session decides where to go. With no session the step leaves the
// page alone and the following assertions report the failure.
func (l *Library) ILoginWith(ctx context.Context, email, password string) error {
	if err := l.submitCredentials(ctx, email, password); err != nil {
		return err
	}

	err := l.waiter.WithTimeout(l.app.RedirectGrace).Until(ctx, "redirect away from the login page", func(ctx context.Context) (bool, error) {
		u, err := l.page.CurrentURL(ctx)
		return err == nil && !onLoginPage(u), err
	})
	if err == nil {
		return nil
	}
	var te *browser.TimeoutError
	if !errors.As(err, &te) {
		return err
	}

	user, ok, err := l.bridge.ReadSessionUser(ctx)
	switch {
	case errors.Is(err, browser.ErrMalformedSessionUser):
		// Present but unreadable still means someone is signed in; only admins get the dashboard.
		l.logger.Warn("Stored session user is unreadable; treating it as a customer.", zap.Error(err))
		return l.navigatePath(ctx, landingPath(false))
	case err != nil:
		return err
	case !ok:
		l.logger.Debug("Still on the login page without a session.", zap.String("email", email))
		return nil
	}
	return l.navigatePath(ctx, landingPath(user.IsAdmin()))
}

func (l *Library) IShouldBeRedirectedTo(ctx context.Context, path string) error {
	_, err := l.waiter.URLContains(ctx, path)
	return err
}

func (l *Library) IShouldSeeErrorMessage(ctx context.Context, message string) error {
	if err := l.waiter.TextContains(ctx, message); err != nil {
		return fail("I should see error message", "%q never appeared: %v", message, err)
	}
	u, err := l.page.CurrentURL(ctx)
	if err != nil {
		return err
	}
	if !onLoginPage(u) {
		return fail("I should see error message", "expected to stay on %s, but the browser is at %s", pathLogin, u)
	}
	return nil
}

// IAmLoggedInAs makes sure the browser holds a session for email, logging in
// with the configured credentials only when it does not already.
func (l *Library) IAmLoggedInAs(ctx context.Context, email string) error {
	const step = "I am logged in as"

	user, ok, err := l.bridge.ReadSessionUser(ctx)
	if err != nil {
		l.logger.Debug("Ignoring unreadable session.", zap.Error(err))
	}
	if ok && strings.EqualFold(user.Email, email) {
		return l.navigatePath(ctx, landingPath(user.IsAdmin()))
	}

	account := l.creds.Lookup(email)
	if err := l.navigatePath(ctx, pathLogin); err != nil {
		return err
	}
	if err := l.submitCredentials(ctx, account.Email, account.Password); err != nil {
		return err
	}

	err = wait.Retry(ctx, policy(l.app.SessionPoll), "session data after login", func(ctx context.Context, attempt int) (bool, error) {
		u, ok, err := l.bridge.ReadSessionUser(ctx)
		if err != nil || !ok {
			return false, err
		}
		user = u
		return true, nil
	})
	if err != nil {
		return fail(step, "no session stored for %s: %v", email, err)
	}
	if !strings.EqualFold(user.Email, email) {
		return fail(step, "session belongs to %q, not %q", user.Email, email)
	}
	if wantAdmin := strings.EqualFold(account.Role, "admin"); user.IsAdmin() != wantAdmin {
		return fail(step, "session role %q does not match the expected role %q", user.Role, account.Role)
	}

	u, err := l.page.CurrentURL(ctx)
	if err != nil {
		return err
	}
	if onLoginPage(u) {
		return l.navigatePath(ctx, landingPath(user.IsAdmin()))
	}
	return nil
}

// IClickLogout signs out through the UI, falling back to the login page
// when the current view offers no logout control.
func (l *Library) IClickLogout(ctx context.Context) error {
	el, err := l.locator.First(ctx, l.page, "button, a", locate.TextContains("logout", "log out"))
	if err == nil {
		if err := el.Click(ctx); err != nil {
			return err
		}
		if _, err := l.waiter.WithTimeout(l.app.RedirectGrace).URLContains(ctx, pathLogin); err == nil {
			return nil
		}
	}
	var nf *browser.ElementNotFoundError
	if err != nil && !errors.As(err, &nf) {
		return err
	}
	return l.navigatePath(ctx, pathLogin)
}

func (l *Library) INavigateToDirectly(ctx context.Context, path string) error {
	return l.navigatePath(ctx, path)
}
