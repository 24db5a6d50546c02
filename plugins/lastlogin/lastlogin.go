// Package lastlogin remembers which method a user last signed in with,
// in a client-readable cookie, so sign-in pages can highlight it.
package lastlogin

import (
	"github.com/mkravets/authgate"
	"github.com/mkravets/authgate/pkg/cookie"
)

// CookieName is the client-readable cookie holding the last method.
const CookieName = "authgate.last_used_login_method"

const cookieMaxAge = 30 * 24 * 60 * 60

// New returns the last-login-method plugin. It contributes a single
// after hook on the sign-in endpoints; the cookie must be readable by
// frontend JavaScript, so HttpOnly is deliberately overridden off.
func New() authgate.Plugin {
	return authgate.Plugin{
		ID: "last-login-method",
		AfterHooks: []authgate.AfterHook{
			{
				Matcher: authgate.MatchPath(
					"/callback/{provider}",
					"/sign-in/email",
					"/sign-up/email",
				),
				Fn: func(ctx *authgate.Ctx, _ authgate.Response) error {
					method := ctx.Param("provider")
					if method == "" {
						method = "email"
					}
					ctx.SetCookie(CookieName, method,
						cookie.WithHTTPOnly(false),
						cookie.WithMaxAge(cookieMaxAge),
					)
					return nil
				},
			},
		},
	}
}
