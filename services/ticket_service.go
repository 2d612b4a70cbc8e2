package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"salesbot/config"
	"salesbot/models"
	"salesbot/monitoring"
	"salesbot/ratelimit"
)

const actionTicketCreate = "ticket_create"

var slugStrip = regexp.MustCompile(`[^a-z0-9-]`)

// TicketSlug derives the ticket ID (and channel name) for a user's
// n-th active ticket: lowercase username stripped to [a-z0-9-].
func TicketSlug(username string, n int) string {
	return fmt.Sprintf("%s%s-%d", TicketPrefix, slugStrip.ReplaceAllString(strings.ToLower(username), ""), n)
}

// TicketService creates, locates and closes purchase tickets.
type TicketService struct {
	cfg       *config.Config
	tickets   TicketStore
	customers CustomerStore
	limiter   ratelimit.Limiter
	sched     Scheduler
	events    EventPublisher
	log       *zap.Logger
}

func NewTicketService(cfg *config.Config, tickets TicketStore, customers CustomerStore, limiter ratelimit.Limiter, sched Scheduler, events EventPublisher, log *zap.Logger) *TicketService {
	return &TicketService{
		cfg:       cfg,
		tickets:   tickets,
		customers: customers,
		limiter:   limiter,
		sched:     sched,
		events:    events,
		log:       log,
	}
}

// Create opens a new ticket for the user: a private channel plus a
// pending row keyed by the channel name. Preconditions run in order and
// the first failure wins. A failure between channel creation and the
// row insert leaves an orphaned channel behind; lookups treat it as not
// found and manual close still works on it.
func (s *TicketService) Create(ctx context.Context, g Guild, user models.User) (*models.Ticket, error) {
	allowed, err := s.limiter.Check(ctx, user.ID, actionTicketCreate, s.cfg.TicketCreateLimit, s.cfg.TicketCooldown)
	if err != nil {
		return nil, fmt.Errorf("rate limit check: %w", err)
	}
	if !allowed {
		retry, rerr := s.limiter.Remaining(ctx, user.ID, actionTicketCreate, s.cfg.TicketCooldown)
		if rerr != nil {
			retry = s.cfg.TicketCooldown
		}
		monitoring.RateLimitRejected(actionTicketCreate)
		return nil, &RateLimitedError{RetryAfter: retry}
	}

	active, err := s.tickets.CountActive(ctx, user.ID, g.ID())
	if err != nil {
		return nil, fmt.Errorf("count active tickets: %w", err)
	}
	if active >= s.cfg.MaxActiveTickets {
		return nil, &CapacityExceededError{Count: active, Max: s.cfg.MaxActiveTickets}
	}

	if _, err := s.customers.GetOrCreate(ctx, user.ID, user.Username); err != nil {
		return nil, fmt.Errorf("get or create customer: %w", err)
	}

	ticketID := TicketSlug(user.Username, active+1)

	channelID, err := g.CreateTicketChannel(ctx, ticketID, user.ID)
	if err != nil {
		return nil, fmt.Errorf("create ticket channel: %w", err)
	}
	s.log.Info("ticket channel created",
		zap.String("ticket_id", ticketID),
		zap.String("channel_id", channelID))

	t := &models.Ticket{
		TicketID:  ticketID,
		GuildID:   g.ID(),
		UserID:    user.ID,
		Username:  user.Username,
		ChannelID: channelID,
		Status:    models.TicketPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.tickets.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("persist ticket %s: %w", ticketID, err)
	}

	if err := g.SendWelcome(ctx, channelID, user.ID); err != nil {
		s.log.Warn("welcome message failed",
			zap.String("ticket_id", ticketID),
			zap.Error(err))
	}

	monitoring.TicketCreated()
	s.publish("ticket_created", map[string]any{
		"ticket_id": ticketID,
		"user_id":   user.ID,
	})

	return t, nil
}

// FromChannel resolves the ticket backing a channel. Non-ticket
// channels and lookup misses both return nil without error.
func (s *TicketService) FromChannel(ctx context.Context, channelName string) (*models.Ticket, error) {
	if !strings.HasPrefix(channelName, TicketPrefix) {
		return nil, nil
	}
	return s.tickets.ByID(ctx, channelName)
}

// Close posts a closing notice and deletes the channel after a short
// grace delay so the notice is actually seen. Closing is terminal; the
// status update is skipped for orphaned channels with no backing row.
// A failed deletion leaves a closed ticket with a live channel, which
// is only surfaced through logs.
func (s *TicketService) Close(ctx context.Context, g Guild, ticketID, channelID, reason string) error {
	from := []models.TicketStatus{models.TicketPending, models.TicketConfirmed, models.TicketRejected, models.TicketDelivered}
	if _, err := s.tickets.UpdateStatusIf(ctx, ticketID, from, models.TicketClosed, models.TicketChanges{}); err != nil {
		return fmt.Errorf("close ticket %s: %w", ticketID, err)
	}

	if err := g.SendClosingNotice(ctx, channelID, reason); err != nil {
		s.log.Warn("closing notice failed",
			zap.String("ticket_id", ticketID),
			zap.Error(err))
	}

	s.log.Info("closing ticket", zap.String("ticket_id", ticketID), zap.String("reason", reason))

	s.sched.After(s.cfg.CloseGrace, func() {
		if err := g.DeleteChannel(context.Background(), channelID, reason); err != nil {
			s.log.Warn("ticket channel delete failed",
				zap.String("channel_id", channelID),
				zap.Error(err))
		}
	})

	monitoring.TicketClosed()
	s.publish("ticket_closed", map[string]any{
		"ticket_id": ticketID,
		"reason":    reason,
	})

	return nil
}

func (s *TicketService) publish(event string, fields map[string]any) {
	if s.events != nil {
		s.events.Publish(event, fields)
	}
}
