package steps

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/marquee/internal/browser"
	"github.com/xkilldash9x/marquee/internal/browser/browsertest"
)

const (
	adminSession    = `{"name":"Admin","email":"admin@cinema.com","role":"admin"}`
	customerSession = `{"name":"Test User","email":"testuser9@example.com","role":"customer"}`
)

type loginForm struct {
	email, password, submit *browsertest.Node
}

// installLoginForm puts a login form on page; onSubmit plays the application's response.
func installLoginForm(page *browsertest.Page, onSubmit func(p *browsertest.Page)) loginForm {
	f := loginForm{
		email:    browsertest.El(""),
		password: browsertest.El(""),
		submit:   browsertest.El("Sign In"),
	}
	f.submit.OnClick = onSubmit
	page.SetLocked("[name='email']", f.email)
	page.SetLocked("[name='password']", f.password)
	page.SetLocked(selSubmit, f.submit)
	return f
}

func TestLoginWith(t *testing.T) {
	t.Run("server redirect is left alone", func(t *testing.T) {
		lib, page := newTestLibrary(t)
		page.URL = testBase + "/login"
		form := installLoginForm(page, func(p *browsertest.Page) { p.SetURL("/films") })

		require.NoError(t, lib.ILoginWith(context.Background(), "testuser9@example.com", "test123"))
		assert.Equal(t, "testuser9@example.com", form.email.Typed)
		assert.Equal(t, "test123", form.password.Typed)
		assert.Equal(t, 1, form.submit.Clicks)
		assert.Empty(t, page.Navigations)
	})

	t.Run("admin session without redirect goes to the dashboard", func(t *testing.T) {
		lib, page := newTestLibrary(t)
		page.URL = testBase + "/login"
		installLoginForm(page, func(p *browsertest.Page) { p.Storage["user"] = adminSession })

		require.NoError(t, lib.ILoginWith(context.Background(), "admin@cinema.com", "adminbiasa"))
		assert.Equal(t, []string{testBase + "/admin/dashboard"}, page.Navigations)
	})

	t.Run("customer session without redirect goes to films", func(t *testing.T) {
		lib, page := newTestLibrary(t)
		page.URL = testBase + "/login"
		installLoginForm(page, func(p *browsertest.Page) { p.Storage["user"] = customerSession })

		require.NoError(t, lib.ILoginWith(context.Background(), "testuser9@example.com", "test123"))
		assert.Equal(t, []string{testBase + "/films"}, page.Navigations)
	})

	t.Run("unreadable session without redirect goes to films", func(t *testing.T) {
		lib, page := newTestLibrary(t)
		page.URL = testBase + "/login"
		installLoginForm(page, func(p *browsertest.Page) { p.Storage["user"] = "not-json role:customer" })

		require.NoError(t, lib.ILoginWith(context.Background(), "testuser9@example.com", "test123"))
		assert.Equal(t, []string{testBase + "/films"}, page.Navigations)
	})

	t.Run("rejected credentials stay put", func(t *testing.T) {
		lib, page := newTestLibrary(t)
		page.URL = testBase + "/login"
		installLoginForm(page, func(p *browsertest.Page) {
			p.Set("body", browsertest.El("Invalid email or password"))
		})

		require.NoError(t, lib.ILoginWith(context.Background(), "nobody@example.com", "wrong"))
		assert.Empty(t, page.Navigations)
		require.NoError(t, lib.IShouldSeeErrorMessage(context.Background(), "invalid email or password"))
	})
}

func TestErrorMessageRequiresLoginPage(t *testing.T) {
	lib, page := newTestLibrary(t)
	page.URL = testBase + "/films"
	page.Set("body", browsertest.El("Invalid email or password"))

	err := lib.IShouldSeeErrorMessage(context.Background(), "Invalid email")
	af := requireAssertionFailure(t, err)
	assert.Contains(t, af.Message, "/films")
}

func TestIAmLoggedInAs(t *testing.T) {
	t.Run("existing session short-circuits to the landing page", func(t *testing.T) {
		lib, page := newTestLibrary(t)
		page.Storage["user"] = customerSession

		require.NoError(t, lib.IAmLoggedInAs(context.Background(), "testuser9@example.com"))
		assert.Equal(t, []string{testBase + "/films"}, page.Navigations)
	})

	t.Run("logs in with the table password and lands by role", func(t *testing.T) {
		lib, page := newTestLibrary(t)
		page.Storage["user"] = customerSession
		form := installLoginForm(page, func(p *browsertest.Page) { p.Storage["user"] = adminSession })

		require.NoError(t, lib.IAmLoggedInAs(context.Background(), "admin@cinema.com"))
		assert.Equal(t, "adminbiasa", form.password.Typed)
		assert.Equal(t, []string{testBase + "/login", testBase + "/admin/dashboard"}, page.Navigations)

		user, ok, err := browser.NewStateBridge(page).ReadSessionUser(context.Background())
		require.NoError(t, err)
		require.True(t, ok)
		assert.True(t, user.IsAdmin())
	})

	t.Run("unknown accounts fall back to the default password", func(t *testing.T) {
		lib, page := newTestLibrary(t)
		form := installLoginForm(page, func(p *browsertest.Page) {
			p.Storage["user"] = `{"email":"walkin@example.com","role":"customer"}`
			p.SetURL("/films")
		})

		require.NoError(t, lib.IAmLoggedInAs(context.Background(), "walkin@example.com"))
		assert.Equal(t, "test123", form.password.Typed)
		assert.Equal(t, []string{testBase + "/login"}, page.Navigations)
	})

	t.Run("role mismatch fails", func(t *testing.T) {
		lib, page := newTestLibrary(t)
		installLoginForm(page, func(p *browsertest.Page) {
			p.Storage["user"] = `{"email":"testuser9@example.com","role":"admin"}`
		})

		af := requireAssertionFailure(t, lib.IAmLoggedInAs(context.Background(), "testuser9@example.com"))
		assert.Contains(t, af.Message, "role")
	})

	t.Run("no session after the poll budget fails", func(t *testing.T) {
		lib, page := newTestLibrary(t)
		installLoginForm(page, nil)

		af := requireAssertionFailure(t, lib.IAmLoggedInAs(context.Background(), "admin@cinema.com"))
		assert.Contains(t, af.Message, "after 5 attempts")
	})
}

func TestIClickLogout(t *testing.T) {
	t.Run("uses the logout control", func(t *testing.T) {
		lib, page := newTestLibrary(t)
		logout := browsertest.El("Log out")
		logout.OnClick = func(p *browsertest.Page) { p.SetURL("/login") }
		page.Set("button, a", browsertest.El("Films"), logout)

		require.NoError(t, lib.IClickLogout(context.Background()))
		assert.Equal(t, 1, logout.Clicks)
		assert.Empty(t, page.Navigations)
	})

	t.Run("falls back to the login page", func(t *testing.T) {
		lib, page := newTestLibrary(t)
		page.Set("button, a", browsertest.El("Films"))

		require.NoError(t, lib.IClickLogout(context.Background()))
		assert.Equal(t, []string{testBase + "/login"}, page.Navigations)
	})
}

func TestRegistration(t *testing.T) {
	lib, page := newTestLibrary(t)
	ctx := context.Background()

	signUp := browsertest.El("Sign up")
	create := browsertest.El("Create Account")
	create.OnClick = func(p *browsertest.Page) {
		p.Set("body", browsertest.El("Account created! Please sign in."))
		p.Set(selSubmit, browsertest.El("Sign In"))
	}
	signUp.OnClick = func(p *browsertest.Page) { p.Set(selSubmit, create) }
	page.Set("a, button", browsertest.El("Films"), signUp)
	fields := map[string]*browsertest.Node{}
	for _, name := range []string{"name", "email", "password"} {
		fields[name] = browsertest.El("")
		page.Set("[name='"+name+"']", fields[name])
	}

	require.NoError(t, lib.IAmOnTheHomePage(ctx))
	require.NoError(t, lib.IClickOnSignUpLink(ctx))
	require.NoError(t, lib.IFillInRegistrationField(ctx, "name", "Test User"))
	require.NoError(t, lib.IFillInRegistrationField(ctx, "email", "testuser9@example.com"))
	require.NoError(t, lib.IFillInRegistrationField(ctx, "password", "test123"))
	require.NoError(t, lib.IClickCreateAccountButton(ctx))
	require.NoError(t, lib.IShouldSeeRegistrationSuccess(ctx))

	assert.Equal(t, "testuser9@example.com", fields["email"].Typed)
	assert.Equal(t, 1, create.Clicks)
}

func TestRegistrationSuccessNeedsBothSignals(t *testing.T) {
	lib, page := newTestLibrary(t)
	page.Set("body", browsertest.El("Account created!"))
	page.Set(selSubmit, browsertest.El("Create Account"))

	requireAssertionFailure(t, lib.IShouldSeeRegistrationSuccess(context.Background()))
}
