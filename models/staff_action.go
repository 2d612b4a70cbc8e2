package models

import "time"

type ActionType string

const (
	ActionConfirmPayment ActionType = "confirm_payment"
	ActionRejectPayment  ActionType = "reject_payment"
	ActionMarkDelivered  ActionType = "mark_delivered"
	ActionCloseTicket    ActionType = "close_ticket"
	ActionSetup          ActionType = "setup"
)

// StaffAction is one row of the append-only audit log.
type StaffAction struct {
	ID            int64      `db:"id" json:"id"`
	GuildID       string     `db:"guild_id" json:"guild_id"`
	StaffID       string     `db:"staff_id" json:"staff_id"`
	StaffUsername string     `db:"staff_username" json:"staff_username"`
	ActionType    ActionType `db:"action_type" json:"action_type"`
	TicketID      *string    `db:"ticket_id" json:"ticket_id,omitempty"`
	TargetUserID  *string    `db:"target_user_id" json:"target_user_id,omitempty"`
	Details       *string    `db:"details" json:"details,omitempty"`
	Timestamp     time.Time  `db:"timestamp" json:"timestamp"`
}
