package domain

import "errors"

var (
	ErrBadgeNotFound      = errors.New("badge_not_found")
	ErrNoActiveBadge      = errors.New("no_active_badge")
	ErrUserNotFound       = errors.New("user_not_found")
	ErrInvalidSerial      = errors.New("invalid_serial")
	ErrInvalidUser        = errors.New("invalid_user")
	ErrInvalidWindow      = errors.New("invalid_validity_window")
	ErrAlreadyAssigned    = errors.New("badge_already_assigned")
	ErrAssignmentNotFound = errors.New("assignment_not_found")
)
