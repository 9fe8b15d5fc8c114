package authz

import (
	"errors"

	"github.com/ManuelReschke/SplitFund/app/models"
)

// ErrNotAllowed is returned when the actor may not perform the action.
var ErrNotAllowed = errors.New("authz: action not allowed")

// Authorizer decides whether an actor may change recipient eligibility.
type Authorizer interface {
	CanManageRecipients(actor *models.User) error
}

// AdminAuthorizer allows eligibility changes for admin users only.
type AdminAuthorizer struct{}

func NewAdminAuthorizer() *AdminAuthorizer {
	return &AdminAuthorizer{}
}

func (a *AdminAuthorizer) CanManageRecipients(actor *models.User) error {
	if actor == nil || !actor.IsAdmin() {
		return ErrNotAllowed
	}
	return nil
}
