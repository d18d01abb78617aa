package ecs

import "errors"

// Contract violations raised synchronously at the call site. None of them are
// retryable; they indicate a bug in the caller.
var (
	ErrNoSuchData                    = errors.New("no such data")
	ErrAlreadyAddedData              = errors.New("data already added")
	ErrRemodifiedData                = errors.New("data already modified this tick")
	ErrPreviousRequiresVersionedData = errors.New("previous requires versioned data")
	ErrEntityRemoved                 = errors.New("entity has been removed")
	ErrTemplateFrozen                = errors.New("template is frozen")
)
