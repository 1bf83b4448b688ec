package request

import "strings"

type Type string

const (
	TypeTelework Type = "TELEWORK_REQUEST"
	TypeLeave    Type = "LEAVE_REQUEST"
)

func ParseType(s string) (Type, bool) {
	switch t := Type(strings.ToUpper(strings.TrimSpace(s))); t {
	case TypeTelework, TypeLeave:
		return t, true
	default:
		return "", false
	}
}

type Status string

const (
	StatusPending       Status = "PENDING"
	StatusRHAccepted    Status = "RH_ACCEPTED"
	StatusAdminAccepted Status = "ADMIN_ACCEPTED"
	StatusAccepted      Status = "ACCEPTED"
	StatusRejected      Status = "REJECTED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusRHAccepted, StatusAdminAccepted, StatusAccepted, StatusRejected:
		return true
	default:
		return false
	}
}

func (s Status) IsTerminal() bool {
	return s == StatusAccepted || s == StatusRejected
}

// Reviewable reports whether reviewers are offered actions on s.
func (s Status) Reviewable() bool {
	return s.Valid() && !s.IsTerminal()
}

const (
	DisplayPending  = "Pending"
	DisplayAccepted = "Accepted"
	DisplayRejected = "Rejected"
)

// Display is the label shown to observers. Half-approved statuses are
// indistinguishable from PENDING.
func Display(s Status) string {
	switch s {
	case StatusAccepted:
		return DisplayAccepted
	case StatusRejected:
		return DisplayRejected
	default:
		return DisplayPending
	}
}

type Action string

const (
	ActionAccept Action = "ACCEPT"
	ActionReject Action = "REJECT"
)

func ParseAction(s string) (Action, bool) {
	switch a := Action(strings.ToUpper(strings.TrimSpace(s))); a {
	case ActionAccept, ActionReject:
		return a, true
	default:
		return "", false
	}
}
