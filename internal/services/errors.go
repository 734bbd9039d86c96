package services

import (
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"
)

// ErrorKind classifies a failure so handlers can map it to a response.
type ErrorKind string

const (
	KindNotFound         ErrorKind = "NotFound"
	KindNotAllowed       ErrorKind = "NotAllowed"
	KindDuplicateName    ErrorKind = "DuplicateName"
	KindDuplicatePending ErrorKind = "DuplicatePending"
	KindAlreadyFriends   ErrorKind = "AlreadyFriends"
	KindAlreadyMember    ErrorKind = "AlreadyMember"
	KindNotMember        ErrorKind = "NotMember"
	KindAdminCannotLeave ErrorKind = "AdminCannotLeave"
	KindCannotRemoveSelf ErrorKind = "CannotRemoveSelf"
	KindInvalidRequest   ErrorKind = "InvalidRequest"
	KindPartialCleanup   ErrorKind = "PartialCleanup"
	KindStoreUnavailable ErrorKind = "StoreUnavailable"
)

// Error is the error type returned by every service. Two errors are equal
// under errors.Is when their kinds match, so the sentinels below can be used
// to test a returned error regardless of its message.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

var (
	ErrNotFound         = &Error{Kind: KindNotFound}
	ErrNotAllowed       = &Error{Kind: KindNotAllowed}
	ErrDuplicateName    = &Error{Kind: KindDuplicateName}
	ErrDuplicatePending = &Error{Kind: KindDuplicatePending}
	ErrAlreadyFriends   = &Error{Kind: KindAlreadyFriends}
	ErrAlreadyMember    = &Error{Kind: KindAlreadyMember}
	ErrNotMember        = &Error{Kind: KindNotMember}
	ErrAdminCannotLeave = &Error{Kind: KindAdminCannotLeave}
	ErrCannotRemoveSelf = &Error{Kind: KindCannotRemoveSelf}
	ErrInvalidRequest   = &Error{Kind: KindInvalidRequest}
	ErrPartialCleanup   = &Error{Kind: KindPartialCleanup}
	ErrStoreUnavailable = &Error{Kind: KindStoreUnavailable}
)

func newError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func wrapError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind carried by err, or KindStoreUnavailable for errors
// that did not come from this package.
func KindOf(err error) ErrorKind {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Kind
	}
	return KindStoreUnavailable
}

// storeError classifies an error returned by a repository. A missing row
// becomes notFound, a unique-index violation becomes the duplicate kind of the
// calling operation and anything else is a store failure.
func storeError(err error, notFound string, duplicate ErrorKind, op string) error {
	var svcErr *Error
	switch {
	case errors.As(err, &svcErr):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return newError(KindNotFound, notFound)
	case duplicate != "" && errors.Is(err, gorm.ErrDuplicatedKey):
		return wrapError(duplicate, op, err)
	default:
		log.Printf("%s: %v", op, err)
		return wrapError(KindStoreUnavailable, op, err)
	}
}
