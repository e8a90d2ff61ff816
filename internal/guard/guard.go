// Package guard decides whether a session may perform an operation.
package guard

import (
	"errors"

	"carebridge/internal/model"
)

type Reason int

const (
	// ReasonLoginRequired: no usable session; the caller should log in.
	ReasonLoginRequired Reason = iota + 1
	// ReasonForbidden: logged in, but with the wrong role.
	ReasonForbidden
)

type Denied struct {
	Reason Reason
}

func (d *Denied) Error() string {
	if d.Reason == ReasonLoginRequired {
		return "login required"
	}
	return "access denied"
}

func IsLoginRequired(err error) bool {
	var denied *Denied
	return errors.As(err, &denied) && denied.Reason == ReasonLoginRequired
}

func IsForbidden(err error) bool {
	var denied *Denied
	return errors.As(err, &denied) && denied.Reason == ReasonForbidden
}

// RequireAuthenticated returns the user bound to sess. A nil session or one
// without a bound user is denied with ReasonLoginRequired.
func RequireAuthenticated(sess *model.Session) (model.UserSnapshot, error) {
	if sess == nil || sess.User.Anonymous() {
		return model.UserSnapshot{}, &Denied{Reason: ReasonLoginRequired}
	}
	return sess.User, nil
}

// RequireRole runs RequireAuthenticated first; the role is only compared
// for authenticated sessions.
func RequireRole(sess *model.Session, role model.Role) (model.UserSnapshot, error) {
	user, err := RequireAuthenticated(sess)
	if err != nil {
		return model.UserSnapshot{}, err
	}
	if user.Role != role {
		return model.UserSnapshot{}, &Denied{Reason: ReasonForbidden}
	}
	return user, nil
}
