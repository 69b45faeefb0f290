package collect

import (
	"errors"
	"fmt"

	"github.com/streamwatch/streamwatch/internal/models"
)

// Class categorizes a collector failure. The scheduler treats Transient
// and RateLimited as retryable on the natural schedule; NotFound and
// AuthFailure are surfaced to the user without disabling the job.
type Class string

const (
	ClassNotFound    Class = "not_found"
	ClassAuthFailure Class = "auth_failure"
	ClassRateLimited Class = "rate_limited"
	ClassTransient   Class = "transient"
	ClassUnknown     Class = "unknown"
)

// Error is a classified collector failure.
type Error struct {
	Class    Class
	Platform models.Platform
	Target   string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s/%s: %s: %v", e.Platform, e.Target, e.Class, e.Err)
	}
	return fmt.Sprintf("%s/%s: %s", e.Platform, e.Target, e.Class)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds a classified error.
func NewError(class Class, platform models.Platform, target string, err error) *Error {
	return &Error{Class: class, Platform: platform, Target: target, Err: err}
}

// NotFound reports that the entity no longer exists upstream.
func NotFound(platform models.Platform, target string, err error) *Error {
	return NewError(ClassNotFound, platform, target, err)
}

// AuthFailure reports rejected or missing credentials.
func AuthFailure(platform models.Platform, target string, err error) *Error {
	return NewError(ClassAuthFailure, platform, target, err)
}

// RateLimited reports an upstream rate limit.
func RateLimited(platform models.Platform, target string, err error) *Error {
	return NewError(ClassRateLimited, platform, target, err)
}

// Transient reports a network-level failure worth retrying.
func Transient(platform models.Platform, target string, err error) *Error {
	return NewError(ClassTransient, platform, target, err)
}

// ClassOf extracts the failure class from err, defaulting to ClassUnknown
// for unclassified errors.
func ClassOf(err error) Class {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Class
	}
	return ClassUnknown
}

// Retryable reports whether the failure should leave the job due, so the
// next tick retries it. Unknown failures are retried as well: an
// unclassified error gives no grounds to stop trying.
func Retryable(err error) bool {
	switch ClassOf(err) {
	case ClassRateLimited, ClassTransient, ClassUnknown:
		return true
	}
	return false
}
