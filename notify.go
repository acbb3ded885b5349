package postgate

import (
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"

	sess "github.com/avessi/postgate/session"
)

// Flash messages ride the browser cookie between a redirect and the next
// dashboard render. This is the HTTP face of the console's notification
// boundary: fire-and-forget, no delivery status consumed.

func setFlash(c echo.Context, n sess.Notification) {
	s, err := session.Get(cookieName, c)
	if err != nil {
		return
	}
	s.Values["flash_title"] = n.Title
	s.Values["flash_desc"] = n.Description
	s.Values["flash_variant"] = n.Variant
	_ = s.Save(c.Request(), c.Response())
}

// takeFlash returns the pending notification, if any, and clears it.
func takeFlash(c echo.Context) sess.Notification {
	s, err := session.Get(cookieName, c)
	if err != nil {
		return sess.Notification{}
	}
	title, _ := s.Values["flash_title"].(string)
	desc, _ := s.Values["flash_desc"].(string)
	variant, _ := s.Values["flash_variant"].(string)
	if title == "" && desc == "" {
		return sess.Notification{}
	}
	delete(s.Values, "flash_title")
	delete(s.Values, "flash_desc")
	delete(s.Values, "flash_variant")
	_ = s.Save(c.Request(), c.Response())
	return sess.Notification{Title: title, Description: desc, Variant: variant}
}
