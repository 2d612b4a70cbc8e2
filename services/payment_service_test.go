package services

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"salesbot/models"
)

type paymentFixture struct {
	svc     *PaymentService
	guild   *fakeGuild
	tickets *fakeTicketStore
	cust    *fakeCustomerStore
	txs     *fakeTransactionStore
	audit   *fakeAuditStore
	sched   *fakeScheduler
	events  *fakeEvents
}

func setupPaymentService() *paymentFixture {
	f := &paymentFixture{
		guild:   newFakeGuild(),
		tickets: newFakeTicketStore(),
		cust:    newFakeCustomerStore(),
		txs:     newFakeTransactionStore(),
		audit:   &fakeAuditStore{},
		sched:   &fakeScheduler{},
		events:  &fakeEvents{},
	}
	f.svc = NewPaymentService(testConfig(), f.tickets, f.cust, f.txs, f.audit, f.sched, f.events, zap.NewNop())
	return f
}

func (f *paymentFixture) pendingTicket(id string) *models.Ticket {
	method := "paypal"
	t := &models.Ticket{
		TicketID:      id,
		GuildID:       "guild-1",
		UserID:        "user-1",
		Username:      "jane",
		ChannelID:     "chan-" + id,
		Status:        models.TicketPending,
		PaymentMethod: &method,
	}
	f.tickets.put(t)
	return t
}

var staff = models.User{ID: "staff-1", Username: "mod"}

func TestPaymentService_Confirm_Success(t *testing.T) {
	f := setupPaymentService()
	ctx := context.Background()
	ticket := f.pendingTicket("ticket-jane-1")
	require.NoError(t, f.txs.Upsert(ctx, &models.Transaction{
		TicketID: ticket.TicketID,
		UserID:   ticket.UserID,
		Status:   models.TransactionPending,
	}))

	amount := decimal.NewFromInt(100)
	require.NoError(t, f.svc.Confirm(ctx, f.guild, ticket, staff, amount))

	stored := f.tickets.get(ticket.TicketID)
	assert.Equal(t, models.TicketConfirmed, stored.Status)
	require.NotNil(t, stored.ConfirmedBy)
	assert.Equal(t, "mod", *stored.ConfirmedBy)
	require.NotNil(t, stored.Amount)
	assert.True(t, stored.Amount.Equal(amount))

	customer := f.cust.get("user-1")
	require.NotNil(t, customer)
	assert.Equal(t, 1, customer.TotalPurchases)
	assert.True(t, customer.TotalSpent.Equal(amount))
	assert.True(t, customer.VIPAccess)

	tx, err := f.txs.ByTicket(ctx, ticket.TicketID)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionConfirmed, tx.Status)

	assert.Equal(t, 1, f.audit.count(models.ActionConfirmPayment))
	assert.Equal(t, []string{"user-1:role-customer"}, f.guild.grantedRoles)
	assert.Equal(t, []string{"user-1:chan-vip"}, f.guild.allowedMembers)
	assert.True(t, f.guild.sent("confirmation"))
	assert.True(t, f.guild.sent("purchase_notice"))
}

func TestPaymentService_Confirm_AggregatesAccumulate(t *testing.T) {
	f := setupPaymentService()
	ctx := context.Background()

	first := f.pendingTicket("ticket-jane-1")
	require.NoError(t, f.svc.Confirm(ctx, f.guild, first, staff, decimal.NewFromInt(100)))

	second := f.pendingTicket("ticket-jane-2")
	require.NoError(t, f.svc.Confirm(ctx, f.guild, second, staff, decimal.NewFromInt(50)))

	customer := f.cust.get("user-1")
	assert.Equal(t, 2, customer.TotalPurchases)
	assert.True(t, customer.TotalSpent.Equal(decimal.NewFromInt(150)))
}

func TestPaymentService_Confirm_ZeroAmountGrantsVIPOnly(t *testing.T) {
	f := setupPaymentService()
	ticket := f.pendingTicket("ticket-jane-1")

	require.NoError(t, f.svc.Confirm(context.Background(), f.guild, ticket, staff, decimal.Zero))

	customer := f.cust.get("user-1")
	require.NotNil(t, customer)
	assert.True(t, customer.VIPAccess)
	assert.Equal(t, 0, customer.TotalPurchases, "zero-amount confirmations do not count as purchases")
	assert.True(t, customer.TotalSpent.IsZero())
}

func TestPaymentService_Confirm_DoubleClick(t *testing.T) {
	f := setupPaymentService()
	ctx := context.Background()
	ticket := f.pendingTicket("ticket-jane-1")
	amount := decimal.NewFromInt(100)

	require.NoError(t, f.svc.Confirm(ctx, f.guild, ticket, staff, amount))

	err := f.svc.Confirm(ctx, f.guild, ticket, staff, amount)
	var state *TicketStateError
	require.ErrorAs(t, err, &state)

	// The losing click runs no side effects again.
	assert.Equal(t, 1, f.cust.get("user-1").TotalPurchases)
	assert.Equal(t, 1, f.audit.count(models.ActionConfirmPayment))
	assert.Len(t, f.guild.grantedRoles, 1)
}

func TestPaymentService_Confirm_AfterRejection(t *testing.T) {
	f := setupPaymentService()
	ctx := context.Background()
	ticket := f.pendingTicket("ticket-jane-1")

	// A rejected ticket stays open so the buyer can retry; a later
	// confirmation must still go through.
	require.NoError(t, f.svc.Reject(ctx, f.guild, ticket, staff, "proof unreadable"))
	require.NoError(t, f.svc.Confirm(ctx, f.guild, ticket, staff, decimal.NewFromInt(25)))

	stored := f.tickets.get(ticket.TicketID)
	assert.Equal(t, models.TicketConfirmed, stored.Status)
	customer := f.cust.get("user-1")
	require.NotNil(t, customer)
	assert.Equal(t, 1, customer.TotalPurchases)
	assert.True(t, customer.TotalSpent.Equal(decimal.NewFromInt(25)))
}

func TestPaymentService_Confirm_AuditFailureFails(t *testing.T) {
	f := setupPaymentService()
	f.audit.logErr = errors.New("insert failed")
	ticket := f.pendingTicket("ticket-jane-1")

	err := f.svc.Confirm(context.Background(), f.guild, ticket, staff, decimal.NewFromInt(10))
	require.Error(t, err)
	assert.False(t, f.guild.sent("confirmation"), "chain stops at the failed audit append")
}

func TestPaymentService_Confirm_ChannelGone(t *testing.T) {
	f := setupPaymentService()
	f.guild.hasChannel = false
	ticket := f.pendingTicket("ticket-jane-1")

	err := f.svc.Confirm(context.Background(), f.guild, ticket, staff, decimal.NewFromInt(10))
	require.ErrorIs(t, err, ErrChannelNotFound)

	// Database writes before the channel check still land.
	assert.Equal(t, models.TicketConfirmed, f.tickets.get(ticket.TicketID).Status)
	assert.Equal(t, 1, f.audit.count(models.ActionConfirmPayment))
}

func TestPaymentService_Confirm_MissingVIPChannelTolerated(t *testing.T) {
	f := setupPaymentService()
	delete(f.guild.channels, ChannelVIP)
	ticket := f.pendingTicket("ticket-jane-1")

	require.NoError(t, f.svc.Confirm(context.Background(), f.guild, ticket, staff, decimal.NewFromInt(10)))
	assert.Empty(t, f.guild.allowedMembers)
	assert.True(t, f.guild.sent("confirmation"))
}

func TestPaymentService_Reject(t *testing.T) {
	f := setupPaymentService()
	ctx := context.Background()
	ticket := f.pendingTicket("ticket-jane-1")
	require.NoError(t, f.txs.Upsert(ctx, &models.Transaction{
		TicketID: ticket.TicketID,
		Status:   models.TransactionPending,
	}))

	require.NoError(t, f.svc.Reject(ctx, f.guild, ticket, staff, "proof unreadable"))

	stored := f.tickets.get(ticket.TicketID)
	assert.Equal(t, models.TicketRejected, stored.Status)
	require.NotNil(t, stored.Notes)
	assert.Equal(t, "proof unreadable", *stored.Notes)

	tx, err := f.txs.ByTicket(ctx, ticket.TicketID)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionRejected, tx.Status)

	assert.Equal(t, 1, f.audit.count(models.ActionRejectPayment))
	assert.True(t, f.guild.sent("rejection"))

	// Rejection leaves the ticket open; no deletion is scheduled.
	f.sched.fire()
	assert.Empty(t, f.guild.deletedChannels)

	// Customer aggregates are untouched.
	customer := f.cust.get("user-1")
	if customer != nil {
		assert.Equal(t, 0, customer.TotalPurchases)
	}
}

func TestPaymentService_Reject_NotPending(t *testing.T) {
	f := setupPaymentService()
	ticket := f.pendingTicket("ticket-jane-1")
	f.tickets.get(ticket.TicketID).Status = models.TicketConfirmed

	err := f.svc.Reject(context.Background(), f.guild, ticket, staff, "too late")
	var state *TicketStateError
	require.ErrorAs(t, err, &state)
}

func TestPaymentService_MarkDelivered(t *testing.T) {
	f := setupPaymentService()
	ctx := context.Background()
	ticket := f.pendingTicket("ticket-jane-1")
	f.tickets.get(ticket.TicketID).Status = models.TicketConfirmed

	require.NoError(t, f.svc.MarkDelivered(ctx, f.guild, ticket, staff))

	assert.Equal(t, models.TicketDelivered, f.tickets.get(ticket.TicketID).Status)
	assert.Equal(t, 1, f.audit.count(models.ActionMarkDelivered))
	assert.True(t, f.guild.sent("delivery"))
	assert.True(t, f.guild.sent("delivery_summary"))

	// The auto-close timer finishes the lifecycle.
	f.sched.fire()
	assert.Equal(t, models.TicketClosed, f.tickets.get(ticket.TicketID).Status)
	assert.Equal(t, []string{ticket.ChannelID}, f.guild.deletedChannels)
}

func TestPaymentService_MarkDelivered_RequiresConfirmed(t *testing.T) {
	f := setupPaymentService()
	ticket := f.pendingTicket("ticket-jane-1")

	err := f.svc.MarkDelivered(context.Background(), f.guild, ticket, staff)
	var state *TicketStateError
	require.ErrorAs(t, err, &state)
	assert.Equal(t, models.TicketPending, f.tickets.get(ticket.TicketID).Status)
}

func TestPaymentService_AutoClose_ExactlyOnce(t *testing.T) {
	f := setupPaymentService()
	ctx := context.Background()
	ticket := f.pendingTicket("ticket-jane-1")
	f.tickets.get(ticket.TicketID).Status = models.TicketConfirmed

	require.NoError(t, f.svc.MarkDelivered(ctx, f.guild, ticket, staff))

	// Staff close the ticket by hand before the timer fires.
	_, err := f.tickets.UpdateStatusIf(ctx, ticket.TicketID,
		[]models.TicketStatus{models.TicketDelivered},
		models.TicketClosed, models.TicketChanges{})
	require.NoError(t, err)

	f.sched.fire()
	assert.Empty(t, f.guild.deletedChannels, "auto-close yields when the ticket already closed")
}
