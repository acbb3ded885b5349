package postgate

import (
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/avessi/postgate/audit"
	"github.com/avessi/postgate/editor"
	sess "github.com/avessi/postgate/session"
)

func (a *App) handleAdmin(c echo.Context) error {
	if !a.IsAdmin(c) {
		return Render(c, a.Views.AdminLogin(false, "", CsrfToken(c)))
	}
	return a.renderAdminDashboard(c)
}

func (a *App) handleAdminLogin(c echo.Context) error {
	ip := c.RealIP()
	if !a.loginLimiter.Check(ip) {
		return c.String(http.StatusTooManyRequests, "Too many login attempts. Try again later.")
	}

	email := strings.TrimSpace(c.FormValue("email"))
	password := c.FormValue("password")

	result := a.Provider.Login(c.Request().Context(), email, password)
	if !result.Success {
		a.loginLimiter.Record(ip)
		a.recordAudit(c, audit.KindLoginFailure, email, result.Error)
		return Render(c, a.Views.AdminLogin(true, result.Error, CsrfToken(c)))
	}

	if err := setSessionToken(c, a.Provider.Token()); err != nil {
		return err
	}
	a.recordAudit(c, audit.KindLoginSuccess, email, "")
	setFlash(c, sess.Notification{
		Title:       "Welcome back",
		Description: "Logged in as " + email,
		Variant:     sess.VariantSuccess,
	})
	return c.Redirect(http.StatusSeeOther, "/admin/")
}

func (a *App) handleAdminLogout(c echo.Context) error {
	actor := ""
	if s := a.CurrentSession(c); s != nil {
		actor = s.User.Email
	}
	// Revoke this browser's token if it differs from the provider's
	// mirrored one, then tear down the provider session.
	if token := sessionToken(c); token != "" && token != a.Provider.Token() {
		if err := a.Auth.SignOut(c.Request().Context(), token); err != nil {
			c.Logger().Errorf("sign out request token: %v", err)
		}
	}
	a.Provider.Logout(c.Request().Context())
	if err := clearSession(c); err != nil {
		return err
	}
	a.recordAudit(c, audit.KindLogout, actor, "")
	return c.Redirect(http.StatusSeeOther, "/admin/")
}

func (a *App) handleAdminPostNew(c echo.Context) error {
	if !a.IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	post := BlogPost{Date: time.Now().Format("2006-01-02")}
	form := editor.New(post, nil, nil)
	return Render(c, a.Views.AdminPostForm(post, form.SubmitLabel(), Categories, CsrfToken(c)))
}

func (a *App) handleAdminPost(c echo.Context) error {
	if !a.IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	id := c.Param("id")
	post, err := a.Store.GetPost(id)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.NoContent(http.StatusNotFound)
		}
		return err
	}
	form := editor.New(post, nil, nil)
	return Render(c, a.Views.AdminPostForm(post, form.SubmitLabel(), Categories, CsrfToken(c)))
}

func (a *App) handleAdminSave(c echo.Context) error {
	if !a.IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	if err := c.Request().ParseForm(); err != nil {
		return err
	}

	// Re-load the stored record when editing so unsubmitted fields keep
	// their persisted values; a missing id means a brand-new post.
	initial := BlogPost{}
	if id := strings.TrimSpace(c.FormValue("id")); id != "" {
		stored, err := a.Store.GetPost(id)
		if err != nil {
			if err == sql.ErrNoRows {
				return c.NoContent(http.StatusNotFound)
			}
			return err
		}
		initial = stored
	}

	form := editor.New(initial, func(p BlogPost) error {
		_, err := a.Store.SavePost(p)
		return err
	}, nil)

	form.SetTitle(strings.TrimSpace(c.FormValue("title")))
	form.SetAuthor(strings.TrimSpace(c.FormValue("author")))
	form.SetDate(strings.TrimSpace(c.FormValue("date")))
	form.SetExcerpt(c.FormValue("excerpt"))
	form.SetContent(c.FormValue("content"))
	form.SetImage(strings.TrimSpace(c.FormValue("image")))
	if err := form.SetCategory(strings.TrimSpace(c.FormValue("category"))); err != nil {
		return a.saveFailed(c, err)
	}

	if err := form.Submit(); err != nil {
		return a.saveFailed(c, err)
	}

	post := form.Post()
	a.recordAudit(c, audit.KindPostSave, a.actor(c), post.Title)
	setFlash(c, sess.Notification{
		Title:       "Post saved",
		Description: post.Title,
		Variant:     sess.VariantSuccess,
	})
	return c.Redirect(http.StatusSeeOther, "/admin/")
}

func (a *App) saveFailed(c echo.Context, err error) error {
	setFlash(c, sess.Notification{
		Title:       "Could not save post",
		Description: err.Error(),
		Variant:     sess.VariantDestructive,
	})
	return c.Redirect(http.StatusSeeOther, "/admin/")
}

func (a *App) handleAdminDelete(c echo.Context) error {
	if !a.IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	id := c.Param("id")
	post, err := a.Store.GetPost(id)
	if err != nil && err != sql.ErrNoRows {
		return err
	}
	if err := a.Store.DeletePost(id); err != nil {
		return err
	}
	a.recordAudit(c, audit.KindPostDelete, a.actor(c), post.Title)
	setFlash(c, sess.Notification{
		Title:       "Post deleted",
		Description: post.Title,
		Variant:     sess.VariantSuccess,
	})
	return a.renderAdminDashboard(c)
}

func (a *App) handleAudit(c echo.Context) error {
	if !a.IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	if a.Audit == nil {
		return c.NoContent(http.StatusNotFound)
	}
	entries, err := a.Audit.ListRecent(100)
	if err != nil {
		return err
	}
	return Render(c, a.Views.AdminAudit(entries, CsrfToken(c)))
}

func (a *App) renderAdminDashboard(c echo.Context) error {
	posts, err := a.Store.ListPosts("")
	if err != nil {
		return err
	}
	return Render(c, a.Views.AdminDashboard(posts, takeFlash(c), CsrfToken(c)))
}

// actor returns the email of the signed-in user for audit entries.
func (a *App) actor(c echo.Context) string {
	if s := a.CurrentSession(c); s != nil {
		return s.User.Email
	}
	return ""
}

// recordAudit writes an audit entry; failures are logged, never surfaced.
func (a *App) recordAudit(c echo.Context, kind, actor, detail string) {
	if a.Audit == nil {
		return
	}
	if err := a.Audit.Record(kind, actor, detail, c.RealIP()); err != nil {
		c.Logger().Errorf("audit record: %v", err)
	}
}
