package domain

import "errors"

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrSessionExpired   = errors.New("session expired")
	ErrTokenNotFound    = errors.New("token not found")
	ErrDraftNotFound    = errors.New("draft not found")
	ErrConflict         = errors.New("profile changed on server since last load")
	ErrNothingToSave    = errors.New("nothing to save")
	ErrNoPhotoStaged    = errors.New("no photo staged")
)
