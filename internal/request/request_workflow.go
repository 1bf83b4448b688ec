package request

import (
	"errors"

	"github.com/jesser-selmi/idos-front/internal/session"
)

var (
	ErrTerminalStatus   = errors.New("request is already in a terminal status")
	ErrRoleCannotReview = errors.New("role cannot review requests")
	ErrUnknownStatus    = errors.New("unknown request status")
	ErrUnknownAction    = errors.New("unknown review action")
)

// Next is the dual-control approval transition. A request is ACCEPTED only
// after one ADMIN and one RH acceptance, in either order. REJECT from any
// non-terminal status is immediate. A repeated acceptance by the role that
// already accepted returns the current status unchanged.
func Next(current Status, role session.Role, action Action) (Status, error) {
	if !role.IsReviewer() {
		return current, ErrRoleCannotReview
	}
	if !current.Valid() {
		return current, ErrUnknownStatus
	}
	if current.IsTerminal() {
		return current, ErrTerminalStatus
	}

	switch action {
	case ActionReject:
		return StatusRejected, nil
	case ActionAccept:
	default:
		return current, ErrUnknownAction
	}

	switch current {
	case StatusPending:
		if role == session.RoleAdmin {
			return StatusAdminAccepted, nil
		}
		return StatusRHAccepted, nil
	case StatusRHAccepted:
		if role == session.RoleAdmin {
			return StatusAccepted, nil
		}
		return StatusRHAccepted, nil
	case StatusAdminAccepted:
		if role == session.RoleRH {
			return StatusAccepted, nil
		}
		return StatusAdminAccepted, nil
	}

	return current, ErrUnknownStatus
}
