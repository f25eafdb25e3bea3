package service

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures at component boundaries.
type ErrorKind string

const (
	KindInput    ErrorKind = "input"
	KindUpstream ErrorKind = "upstream"
	KindData     ErrorKind = "data"
	KindInternal ErrorKind = "internal"
)

// EstimateError is the error type returned by every component in this package.
// Message is the user facing text placed into an error shaped estimate.
type EstimateError struct {
	Kind    ErrorKind
	Status  int
	Message string
	Err     error
}

func (e *EstimateError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *EstimateError) Unwrap() error {
	return e.Err
}

func inputError(msg string) error {
	return &EstimateError{Kind: KindInput, Message: msg}
}

func upstreamError(status int, msg string) error {
	return &EstimateError{Kind: KindUpstream, Status: status, Message: msg}
}

func dataError(msg string) error {
	return &EstimateError{Kind: KindData, Message: msg}
}

func internalError(msg string, err error) error {
	return &EstimateError{Kind: KindInternal, Message: msg, Err: err}
}

// KindOf returns the kind of err, or KindInternal for foreign errors.
func KindOf(err error) ErrorKind {
	var ee *EstimateError
	if errors.As(err, &ee) {
		return ee.Kind
	}
	return KindInternal
}

// StatusOf returns the upstream HTTP status carried by err, if any.
func StatusOf(err error) int {
	var ee *EstimateError
	if errors.As(err, &ee) {
		return ee.Status
	}
	return 0
}

// messageOf returns the text an error shaped estimate should carry.
func messageOf(err error) string {
	var ee *EstimateError
	if errors.As(err, &ee) {
		if ee.Kind == KindInternal && ee.Err != nil {
			return ee.Error()
		}
		return ee.Message
	}
	return err.Error()
}
