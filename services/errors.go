package services

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrTicketNotFound  = errors.New("ticket: not found")
	ErrChannelNotFound = errors.New("channel: not found")
	ErrRoleNotFound    = errors.New("role: not found")
)

// RateLimitedError is returned when an action is attempted again inside
// its cooldown window.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("please wait %d seconds before creating another ticket", int(e.RetryAfter.Seconds()))
}

// CapacityExceededError is returned when a user already holds the
// maximum number of active tickets.
type CapacityExceededError struct {
	Count int
	Max   int
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("you already have %d active ticket(s), maximum allowed: %d", e.Count, e.Max)
}

// TicketStateError is returned when a status transition finds the ticket
// no longer in a state that allows it, e.g. a second confirm click
// racing the first.
type TicketStateError struct {
	TicketID string
	To       string
}

func (e *TicketStateError) Error() string {
	return fmt.Sprintf("ticket %s cannot transition to %s from its current status", e.TicketID, e.To)
}

// ValidationError reports bad user input. Its message is safe to show
// to the initiating user.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}
