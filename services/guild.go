package services

import (
	"context"

	"salesbot/models"
)

// Fixed role and channel names the workflows look up at run time.
const (
	RoleCustomer      = "customer"
	RoleStaff         = "staff"
	RoleSupport       = "support"
	ChannelVIP        = "group-vip"
	ChannelDeliveries = "deliveries"
	ChannelProofs     = "proofs"

	// TicketPrefix marks ticket channels; the channel name is the
	// ticket's primary key.
	TicketPrefix = "ticket-"
)

// Guild is the chat-platform handle the workflows act through. The
// discord package provides the production implementation; tests use a
// fake.
type Guild interface {
	ID() string

	// CreateTicketChannel creates a text channel visible only to the
	// given user and the staff/support roles and returns its ID.
	CreateTicketChannel(ctx context.Context, name, userID string) (string, error)
	DeleteChannel(ctx context.Context, channelID, reason string) error
	HasChannel(ctx context.Context, channelID string) bool
	// ChannelIDByName returns ErrChannelNotFound for unknown names.
	ChannelIDByName(ctx context.Context, name string) (string, error)
	// RoleIDByName returns ErrRoleNotFound for unknown names.
	RoleIDByName(ctx context.Context, name string) (string, error)
	// GrantRole is a no-op when the member already holds the role.
	GrantRole(ctx context.Context, userID, roleID string) error
	AllowMemberOnChannel(ctx context.Context, channelID, userID string) error

	Messenger
}

// Messenger renders and delivers the fixed user-facing message
// templates. Formatting stays out of the workflows.
type Messenger interface {
	SendWelcome(ctx context.Context, channelID, userID string) error
	SendClosingNotice(ctx context.Context, channelID, reason string) error
	SendConfirmation(ctx context.Context, channelID, userID, paymentMethod string) error
	SendRejection(ctx context.Context, channelID, reason string) error
	SendDeliveryNotice(ctx context.Context, channelID string) error
	SendPurchaseNotice(ctx context.Context, channelID string, t *models.Ticket, staff models.User) error
	SendDeliverySummary(ctx context.Context, channelID string, t *models.Ticket, staff models.User) error
}
