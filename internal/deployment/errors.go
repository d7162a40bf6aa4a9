package deployment

import (
	"errors"
	"fmt"

	"github.com/DeploymentBot3000/DeploymentBot/internal/model"
)

// Business failures are plain error values so interactive callers can
// branch on them and render a user-facing message. Anything not listed
// here is an infrastructure failure.
var (
	ErrNotFound          = errors.New("deployment not found")
	ErrPermission        = errors.New("you do not have permission to do that")
	ErrRosterFull        = errors.New("this roster is full")
	ErrSignupsClosed     = errors.New("signups are closed for this deployment")
	ErrAlreadyStarted    = errors.New("this deployment has already started")
	ErrNotSignedUp       = errors.New("you are not signed up for this deployment")
	ErrHostCannotLeave   = errors.New("you cannot leave your own deployment")
	ErrHostCannotBackup  = errors.New("the host cannot sign up as backup on their own deployment")
	ErrCannotRemoveSelf  = errors.New("you cannot remove yourself from the deployment")
	ErrCannotRemoveHost  = errors.New("the host cannot be removed from their own deployment")
	ErrTargetNotSignedUp = errors.New("user is not signed up for this deployment")
	ErrUnknownRole       = errors.New("unknown role")
	ErrEditAfterNotice   = errors.New("can't edit a deployment after the departure notice was sent")
)

// AlreadySignedUpError reports a signup re-selecting the role the user
// already holds.
type AlreadySignedUpError struct {
	Role model.Role
}

func (e *AlreadySignedUpError) Error() string {
	return fmt.Sprintf("you are already signed up as %s", e.Role)
}
