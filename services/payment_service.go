package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"salesbot/config"
	"salesbot/models"
	"salesbot/monitoring"
)

// StepPolicy states per step whether a failure aborts the chain or is
// logged and swallowed. The staff flows are best-effort chains over the
// database and the chat platform, not transactions: committed side
// effects are never rolled back, and the idempotent role/permission
// grants make a retry after partial failure safe.
type StepPolicy int

const (
	StepRequired StepPolicy = iota
	StepBestEffort
)

// PaymentService drives tickets through confirm, reject and deliver.
type PaymentService struct {
	cfg          *config.Config
	tickets      TicketStore
	customers    CustomerStore
	transactions TransactionStore
	audit        AuditStore
	sched        Scheduler
	events       EventPublisher
	log          *zap.Logger
}

func NewPaymentService(cfg *config.Config, tickets TicketStore, customers CustomerStore, transactions TransactionStore, audit AuditStore, sched Scheduler, events EventPublisher, log *zap.Logger) *PaymentService {
	return &PaymentService{
		cfg:          cfg,
		tickets:      tickets,
		customers:    customers,
		transactions: transactions,
		audit:        audit,
		sched:        sched,
		events:       events,
		log:          log,
	}
}

func (s *PaymentService) step(policy StepPolicy, name string, fn func() error) error {
	err := fn()
	if err == nil {
		return nil
	}
	if policy == StepRequired {
		return fmt.Errorf("%s: %w", name, err)
	}
	s.log.Warn("best-effort step failed", zap.String("step", name), zap.Error(err))
	return nil
}

// Confirm marks the ticket paid and grants the buyer access. The status
// update is conditional on the ticket being pending or rejected, so a
// second confirm click finds zero rows and stops before any side effect
// runs again. Rejected tickets stay open for a payment retry, which is why
// they remain confirmable. The audit append is treated as required: a
// confirmation that cannot be audited fails.
func (s *PaymentService) Confirm(ctx context.Context, g Guild, t *models.Ticket, staff models.User, amount decimal.Decimal) error {
	if err := s.step(StepRequired, "update ticket status", func() error {
		ok, err := s.tickets.UpdateStatusIf(ctx, t.TicketID,
			[]models.TicketStatus{models.TicketPending, models.TicketRejected},
			models.TicketConfirmed,
			models.TicketChanges{ConfirmedBy: &staff.Username, Amount: &amount})
		if err != nil {
			return err
		}
		if !ok {
			return &TicketStateError{TicketID: t.TicketID, To: string(models.TicketConfirmed)}
		}
		return nil
	}); err != nil {
		return err
	}

	if err := s.step(StepRequired, "update customer", func() error {
		if amount.IsPositive() {
			return s.customers.RecordPurchase(ctx, t.UserID, amount)
		}
		return s.customers.GrantVIP(ctx, t.UserID)
	}); err != nil {
		return err
	}

	// A ticket without a chosen payment method has no transaction row;
	// that is a normal state, not a failure.
	_ = s.step(StepBestEffort, "update transaction", func() error {
		existed, err := s.transactions.UpdateStatusByTicket(ctx, t.TicketID, models.TransactionConfirmed)
		if err != nil {
			return err
		}
		if !existed {
			s.log.Debug("no transaction to update", zap.String("ticket_id", t.TicketID))
		}
		return nil
	})

	if err := s.step(StepRequired, "log staff action", func() error {
		return s.audit.Log(ctx, &models.StaffAction{
			GuildID:       g.ID(),
			StaffID:       staff.ID,
			StaffUsername: staff.Username,
			ActionType:    models.ActionConfirmPayment,
			TicketID:      &t.TicketID,
			TargetUserID:  &t.UserID,
			Details:       detail("Amount: " + amount.String()),
		})
	}); err != nil {
		return err
	}

	if !g.HasChannel(ctx, t.ChannelID) {
		return fmt.Errorf("ticket %s: %w", t.TicketID, ErrChannelNotFound)
	}

	_ = s.step(StepBestEffort, "grant customer role", func() error {
		roleID, err := g.RoleIDByName(ctx, RoleCustomer)
		if err != nil {
			return err
		}
		return g.GrantRole(ctx, t.UserID, roleID)
	})

	_ = s.step(StepBestEffort, "grant vip channel access", func() error {
		vipID, err := g.ChannelIDByName(ctx, ChannelVIP)
		if errors.Is(err, ErrChannelNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return g.AllowMemberOnChannel(ctx, vipID, t.UserID)
	})

	_ = s.step(StepBestEffort, "send confirmation", func() error {
		return g.SendConfirmation(ctx, t.ChannelID, t.UserID, paymentMethod(t))
	})

	_ = s.step(StepBestEffort, "notify deliveries channel", func() error {
		deliveriesID, err := g.ChannelIDByName(ctx, ChannelDeliveries)
		if errors.Is(err, ErrChannelNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return g.SendPurchaseNotice(ctx, deliveriesID, t, staff)
	})

	s.log.Info("payment confirmed",
		zap.String("ticket_id", t.TicketID),
		zap.String("staff_id", staff.ID),
		zap.String("amount", amount.String()))

	monitoring.PaymentConfirmed()
	s.publish("payment_confirmed", map[string]any{
		"ticket_id": t.TicketID,
		"amount":    amount.String(),
	})

	return nil
}

// Reject sends the ticket back to the user with a reason. The ticket is
// left open so the user can pick a payment method again; customer
// aggregates are never touched.
func (s *PaymentService) Reject(ctx context.Context, g Guild, t *models.Ticket, staff models.User, reason string) error {
	if err := s.step(StepRequired, "update ticket status", func() error {
		ok, err := s.tickets.UpdateStatusIf(ctx, t.TicketID,
			[]models.TicketStatus{models.TicketPending},
			models.TicketRejected,
			models.TicketChanges{Notes: &reason})
		if err != nil {
			return err
		}
		if !ok {
			return &TicketStateError{TicketID: t.TicketID, To: string(models.TicketRejected)}
		}
		return nil
	}); err != nil {
		return err
	}

	_ = s.step(StepBestEffort, "update transaction", func() error {
		_, err := s.transactions.UpdateStatusByTicket(ctx, t.TicketID, models.TransactionRejected)
		return err
	})

	if err := s.step(StepRequired, "log staff action", func() error {
		return s.audit.Log(ctx, &models.StaffAction{
			GuildID:       g.ID(),
			StaffID:       staff.ID,
			StaffUsername: staff.Username,
			ActionType:    models.ActionRejectPayment,
			TicketID:      &t.TicketID,
			TargetUserID:  &t.UserID,
			Details:       detail(reason),
		})
	}); err != nil {
		return err
	}

	_ = s.step(StepBestEffort, "send rejection notice", func() error {
		return g.SendRejection(ctx, t.ChannelID, reason)
	})

	s.log.Info("payment rejected",
		zap.String("ticket_id", t.TicketID),
		zap.String("staff_id", staff.ID),
		zap.String("reason", reason))

	monitoring.PaymentRejected()
	s.publish("payment_rejected", map[string]any{
		"ticket_id": t.TicketID,
		"reason":    reason,
	})

	return nil
}

// MarkDelivered records delivery and schedules the automatic close. The
// close timer transitions delivered -> closed exactly once; if the
// channel was already removed by other means the deletion failure is
// logged and nothing else happens.
func (s *PaymentService) MarkDelivered(ctx context.Context, g Guild, t *models.Ticket, staff models.User) error {
	if err := s.step(StepRequired, "update ticket status", func() error {
		ok, err := s.tickets.UpdateStatusIf(ctx, t.TicketID,
			[]models.TicketStatus{models.TicketConfirmed},
			models.TicketDelivered,
			models.TicketChanges{})
		if err != nil {
			return err
		}
		if !ok {
			return &TicketStateError{TicketID: t.TicketID, To: string(models.TicketDelivered)}
		}
		return nil
	}); err != nil {
		return err
	}

	if err := s.step(StepRequired, "log staff action", func() error {
		return s.audit.Log(ctx, &models.StaffAction{
			GuildID:       g.ID(),
			StaffID:       staff.ID,
			StaffUsername: staff.Username,
			ActionType:    models.ActionMarkDelivered,
			TicketID:      &t.TicketID,
			TargetUserID:  &t.UserID,
		})
	}); err != nil {
		return err
	}

	_ = s.step(StepBestEffort, "send delivery notice", func() error {
		return g.SendDeliveryNotice(ctx, t.ChannelID)
	})

	s.sched.After(s.cfg.AutoCloseDelay, func() {
		s.autoClose(g, t)
	})

	_ = s.step(StepBestEffort, "notify deliveries channel", func() error {
		deliveriesID, err := g.ChannelIDByName(ctx, ChannelDeliveries)
		if errors.Is(err, ErrChannelNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return g.SendDeliverySummary(ctx, deliveriesID, t, staff)
	})

	s.log.Info("order marked as delivered",
		zap.String("ticket_id", t.TicketID),
		zap.String("staff_id", staff.ID))

	monitoring.Delivered()
	s.publish("order_delivered", map[string]any{
		"ticket_id": t.TicketID,
	})

	return nil
}

func (s *PaymentService) autoClose(g Guild, t *models.Ticket) {
	ctx := context.Background()

	ok, err := s.tickets.UpdateStatusIf(ctx, t.TicketID,
		[]models.TicketStatus{models.TicketDelivered},
		models.TicketClosed,
		models.TicketChanges{})
	if err != nil {
		s.log.Error("auto-close status update failed",
			zap.String("ticket_id", t.TicketID),
			zap.Error(err))
		return
	}
	if !ok {
		// Already closed through another path; nothing left to do.
		return
	}

	if err := g.DeleteChannel(ctx, t.ChannelID, "order completed and delivered"); err != nil {
		s.log.Warn("auto-close channel delete failed",
			zap.String("channel_id", t.ChannelID),
			zap.Error(err))
		return
	}

	s.log.Info("ticket auto-closed after delivery", zap.String("ticket_id", t.TicketID))
	monitoring.TicketClosed()
	s.publish("ticket_closed", map[string]any{
		"ticket_id": t.TicketID,
		"reason":    "auto-close after delivery",
	})
}

func (s *PaymentService) publish(event string, fields map[string]any) {
	if s.events != nil {
		s.events.Publish(event, fields)
	}
}

func paymentMethod(t *models.Ticket) string {
	if t.PaymentMethod == nil {
		return "Unknown"
	}
	return *t.PaymentMethod
}

func detail(s string) *string {
	return &s
}
