package domain

import "errors"

var (
	// ErrTaskNotFound is returned when a task lookup misses.
	ErrTaskNotFound = errors.New("task not found")

	// ErrAccountNotFound is returned when an account lookup misses.
	ErrAccountNotFound = errors.New("account not found")

	// ErrInsufficientCredits is returned when a debit would take the
	// balance below zero.
	ErrInsufficientCredits = errors.New("insufficient credits")

	// ErrInvalidTransition is returned when a task operation is not legal
	// from the task's current status.
	ErrInvalidTransition = errors.New("invalid task state transition")

	// ErrOutsideCallingHours is returned when a call would land outside
	// the destination country's calling window.
	ErrOutsideCallingHours = errors.New("outside calling hours")

	// ErrRefundAlreadyIssued is returned when a refund for a task already
	// exists.
	ErrRefundAlreadyIssued = errors.New("refund already issued for task")
)
