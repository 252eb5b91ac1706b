package core

import (
	"errors"
	"fmt"
)

// The engine distinguishes five failure classes so callers can render a
// specific message instead of a generic form error:
//
//   ValidationError  - malformed or missing input; caller fixes the input.
//   PolicyViolation  - well-formed input that breaks a business rule.
//   NotFoundError    - referenced provider/customer/offer/booking/document missing.
//   ConflictError    - a concurrent transition raced and lost; one retry is safe.
//   StorageError     - persistence unavailable; not retried by the engine.

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

type PolicyViolation struct {
	Rule   string
	Detail string
}

func (e *PolicyViolation) Error() string {
	return fmt.Sprintf("policy %s: %s", e.Rule, e.Detail)
}

type NotFoundError struct {
	Entity string
	Ref    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.Ref)
}

type ConflictError struct {
	Detail string
}

func (e *ConflictError) Error() string {
	return "conflict: " + e.Detail
}

type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// storagef wraps a low-level persistence error into a StorageError.
func storagef(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsPolicyViolation(err error) bool {
	var pv *PolicyViolation
	return errors.As(err, &pv)
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}
