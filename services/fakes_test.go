package services

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"salesbot/models"
)

// fakeGuild records every platform call the workflows make.
type fakeGuild struct {
	mu sync.Mutex

	guildID    string
	roles      map[string]string // name -> id
	channels   map[string]string // name -> id
	hasChannel bool

	createChannelErr error
	welcomeErr       error

	createdChannels []string
	deletedChannels []string
	grantedRoles    []string
	allowedMembers  []string
	sentMessages    []string
}

func newFakeGuild() *fakeGuild {
	return &fakeGuild{
		guildID: "guild-1",
		roles: map[string]string{
			RoleCustomer: "role-customer",
			RoleStaff:    "role-staff",
			RoleSupport:  "role-support",
		},
		channels: map[string]string{
			ChannelVIP:        "chan-vip",
			ChannelDeliveries: "chan-deliveries",
			ChannelProofs:     "chan-proofs",
		},
		hasChannel: true,
	}
}

func (g *fakeGuild) ID() string { return g.guildID }

func (g *fakeGuild) CreateTicketChannel(_ context.Context, name, userID string) (string, error) {
	if g.createChannelErr != nil {
		return "", g.createChannelErr
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.createdChannels = append(g.createdChannels, name)
	return "chan-" + name, nil
}

func (g *fakeGuild) DeleteChannel(_ context.Context, channelID, reason string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.deletedChannels = append(g.deletedChannels, channelID)
	return nil
}

func (g *fakeGuild) HasChannel(context.Context, string) bool { return g.hasChannel }

func (g *fakeGuild) ChannelIDByName(_ context.Context, name string) (string, error) {
	if id, ok := g.channels[name]; ok {
		return id, nil
	}
	return "", ErrChannelNotFound
}

func (g *fakeGuild) RoleIDByName(_ context.Context, name string) (string, error) {
	if id, ok := g.roles[name]; ok {
		return id, nil
	}
	return "", ErrRoleNotFound
}

func (g *fakeGuild) GrantRole(_ context.Context, userID, roleID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.grantedRoles = append(g.grantedRoles, userID+":"+roleID)
	return nil
}

func (g *fakeGuild) AllowMemberOnChannel(_ context.Context, channelID, userID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.allowedMembers = append(g.allowedMembers, userID+":"+channelID)
	return nil
}

func (g *fakeGuild) record(kind string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sentMessages = append(g.sentMessages, kind)
}

func (g *fakeGuild) sent(kind string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, m := range g.sentMessages {
		if m == kind {
			return true
		}
	}
	return false
}

func (g *fakeGuild) SendWelcome(context.Context, string, string) error {
	if g.welcomeErr != nil {
		return g.welcomeErr
	}
	g.record("welcome")
	return nil
}

func (g *fakeGuild) SendClosingNotice(context.Context, string, string) error {
	g.record("closing")
	return nil
}

func (g *fakeGuild) SendConfirmation(context.Context, string, string, string) error {
	g.record("confirmation")
	return nil
}

func (g *fakeGuild) SendRejection(context.Context, string, string) error {
	g.record("rejection")
	return nil
}

func (g *fakeGuild) SendDeliveryNotice(context.Context, string) error {
	g.record("delivery")
	return nil
}

func (g *fakeGuild) SendPurchaseNotice(context.Context, string, *models.Ticket, models.User) error {
	g.record("purchase_notice")
	return nil
}

func (g *fakeGuild) SendDeliverySummary(context.Context, string, *models.Ticket, models.User) error {
	g.record("delivery_summary")
	return nil
}

// fakeTicketStore keeps tickets in a map and honors the conditional
// update contract.
type fakeTicketStore struct {
	mu      sync.Mutex
	tickets map[string]*models.Ticket

	createErr error
}

func newFakeTicketStore() *fakeTicketStore {
	return &fakeTicketStore{tickets: make(map[string]*models.Ticket)}
}

func (s *fakeTicketStore) Create(_ context.Context, t *models.Ticket) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *t
	s.tickets[t.TicketID] = &cp
	return nil
}

func (s *fakeTicketStore) ByID(_ context.Context, ticketID string) (*models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[ticketID]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (s *fakeTicketStore) ActiveByUser(_ context.Context, userID, guildID string) ([]models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Ticket
	for _, t := range s.tickets {
		if t.UserID == userID && t.GuildID == guildID && t.Status.Active() {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (s *fakeTicketStore) CountActive(_ context.Context, userID, guildID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.tickets {
		if t.UserID == userID && t.GuildID == guildID && t.Status.Active() {
			n++
		}
	}
	return n, nil
}

func (s *fakeTicketStore) UpdateStatusIf(_ context.Context, ticketID string, from []models.TicketStatus, to models.TicketStatus, changes models.TicketChanges) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[ticketID]
	if !ok {
		return false, nil
	}
	matched := false
	for _, st := range from {
		if t.Status == st {
			matched = true
			break
		}
	}
	if !matched {
		return false, nil
	}
	t.Status = to
	now := time.Now().UTC()
	switch to {
	case models.TicketConfirmed:
		t.ConfirmedAt = &now
	case models.TicketDelivered:
		t.DeliveredAt = &now
	case models.TicketClosed:
		t.ClosedAt = &now
	}
	if changes.ConfirmedBy != nil {
		t.ConfirmedBy = changes.ConfirmedBy
	}
	if changes.Amount != nil {
		t.Amount = changes.Amount
	}
	if changes.Notes != nil {
		t.Notes = changes.Notes
	}
	return true, nil
}

func (s *fakeTicketStore) UpdatePayment(_ context.Context, ticketID, paymentMethod string, amount *decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tickets[ticketID]; ok {
		t.PaymentMethod = &paymentMethod
		if amount != nil {
			t.Amount = amount
		}
	}
	return nil
}

func (s *fakeTicketStore) get(ticketID string) *models.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tickets[ticketID]
}

func (s *fakeTicketStore) put(t *models.Ticket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tickets[t.TicketID] = t
}

// fakeCustomerStore accumulates purchase aggregates like the real one.
type fakeCustomerStore struct {
	mu        sync.Mutex
	customers map[string]*models.Customer

	getOrCreateErr error
}

func newFakeCustomerStore() *fakeCustomerStore {
	return &fakeCustomerStore{customers: make(map[string]*models.Customer)}
}

func (s *fakeCustomerStore) GetOrCreate(_ context.Context, userID, username string) (*models.Customer, error) {
	if s.getOrCreateErr != nil {
		return nil, s.getOrCreateErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.customers[userID]; ok {
		return c, nil
	}
	c := &models.Customer{UserID: userID, Username: username}
	s.customers[userID] = c
	return c, nil
}

func (s *fakeCustomerStore) RecordPurchase(_ context.Context, userID string, amount decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.customers[userID]
	if !ok {
		c = &models.Customer{UserID: userID}
		s.customers[userID] = c
	}
	now := time.Now().UTC()
	c.TotalPurchases++
	c.TotalSpent = c.TotalSpent.Add(amount)
	c.VIPAccess = true
	if c.FirstPurchaseAt == nil {
		c.FirstPurchaseAt = &now
	}
	c.LastPurchaseAt = &now
	return nil
}

func (s *fakeCustomerStore) GrantVIP(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.customers[userID]
	if !ok {
		c = &models.Customer{UserID: userID}
		s.customers[userID] = c
	}
	c.VIPAccess = true
	return nil
}

func (s *fakeCustomerStore) get(userID string) *models.Customer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.customers[userID]
}

type fakeTransactionStore struct {
	mu           sync.Mutex
	transactions map[string]*models.Transaction
}

func newFakeTransactionStore() *fakeTransactionStore {
	return &fakeTransactionStore{transactions: make(map[string]*models.Transaction)}
}

func (s *fakeTransactionStore) Upsert(_ context.Context, tx *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *tx
	s.transactions[tx.TicketID] = &cp
	return nil
}

func (s *fakeTransactionStore) ByTicket(_ context.Context, ticketID string) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.transactions[ticketID]
	if !ok {
		return nil, nil
	}
	cp := *tx
	return &cp, nil
}

func (s *fakeTransactionStore) UpdateStatusByTicket(_ context.Context, ticketID string, status models.TransactionStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.transactions[ticketID]
	if !ok {
		return false, nil
	}
	tx.Status = status
	return true, nil
}

type fakeAuditStore struct {
	mu      sync.Mutex
	actions []models.StaffAction
	logErr  error
}

func (s *fakeAuditStore) Log(_ context.Context, a *models.StaffAction) error {
	if s.logErr != nil {
		return s.logErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions = append(s.actions, *a)
	return nil
}

func (s *fakeAuditStore) count(action models.ActionType) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, a := range s.actions {
		if a.ActionType == action {
			n++
		}
	}
	return n
}

// fakeScheduler collects scheduled tasks so tests can fire them
// deterministically.
type fakeScheduler struct {
	mu    sync.Mutex
	tasks []*fakeTask
}

type fakeTask struct {
	delay    time.Duration
	fn       func()
	canceled bool
}

func (s *fakeScheduler) After(d time.Duration, fn func()) CancelFunc {
	s.mu.Lock()
	defer s.mu.Unlock()
	task := &fakeTask{delay: d, fn: fn}
	s.tasks = append(s.tasks, task)
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		task.canceled = true
	}
}

// fire runs every pending task once, skipping canceled ones.
func (s *fakeScheduler) fire() {
	s.mu.Lock()
	tasks := s.tasks
	s.tasks = nil
	s.mu.Unlock()
	for _, task := range tasks {
		if !task.canceled {
			task.fn()
		}
	}
}

type fakeEvents struct {
	mu     sync.Mutex
	events []string
}

func (e *fakeEvents) Publish(event string, fields map[string]any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
}
