package repositories

import "errors"

var (
	ErrUserNotFound          = errors.New("user not found")
	ErrNotificationNotFound  = errors.New("notification not found")
	ErrNotificationForbidden = errors.New("notification belongs to another recipient")
	ErrSuggestionNotFound    = errors.New("suggestion not found")
	ErrAlreadyLiked          = errors.New("suggestion already liked")
	ErrLeaveNotFound         = errors.New("leave request not found")
	ErrLeaveNotPending       = errors.New("leave request already reviewed")
	ErrInvalidAction         = errors.New("invalid action descriptor")

	// ErrDuplicate is returned when a row for the same action (and
	// recipient) was already persisted by an earlier delivery.
	ErrDuplicate = errors.New("duplicate action record")
)
