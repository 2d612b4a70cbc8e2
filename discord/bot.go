package discord

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"salesbot/config"
	"salesbot/models"
	"salesbot/monitoring"
	"salesbot/ratelimit"
	"salesbot/services"
	"salesbot/store"
)

const actionFileUpload = "file_upload"

// Bot owns the gateway session and routes interactions and messages to
// the workflow services.
type Bot struct {
	cfg      *config.Config
	session  *discordgo.Session
	guild    *Guild
	st       *store.Store
	tickets  *services.TicketService
	payments *services.PaymentService
	limiter  ratelimit.Limiter
	sched    services.Scheduler
	log      *zap.Logger

	mu             sync.Mutex
	pendingRejects map[string]*pendingReject
}

// pendingReject tracks a staff member the bot is waiting on for a
// rejection reason, keyed by channel.
type pendingReject struct {
	staffID string
	ticket  *models.Ticket
	cancel  services.CancelFunc
}

func New(cfg *config.Config, st *store.Store, tickets *services.TicketService, payments *services.PaymentService, limiter ratelimit.Limiter, sched services.Scheduler, log *zap.Logger) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentMessageContent

	b := &Bot{
		cfg:            cfg,
		session:        session,
		guild:          NewGuild(session, cfg.GuildID, cfg, log),
		st:             st,
		tickets:        tickets,
		payments:       payments,
		limiter:        limiter,
		sched:          sched,
		log:            log,
		pendingRejects: make(map[string]*pendingReject),
	}

	session.AddHandler(b.onReady)
	session.AddHandler(b.onInteractionCreate)
	session.AddHandler(b.onMessageCreate)
	return b, nil
}

// Start opens the gateway connection and blocks until it is
// established.
func (b *Bot) Start() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open gateway: %w", err)
	}
	return nil
}

func (b *Bot) Stop() error {
	return b.session.Close()
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	b.log.Info("gateway connected",
		zap.String("bot_user", r.User.Username),
		zap.Int("guilds", len(r.Guilds)))
}

// admitted gates every event on the guild whitelist. Events from other
// guilds or DMs are dropped.
func (b *Bot) admitted(ctx context.Context, guildID string) bool {
	if guildID == "" || guildID != b.cfg.GuildID {
		return false
	}
	ok, err := b.st.Whitelist.IsWhitelisted(ctx, guildID)
	if err != nil {
		b.log.Error("whitelist lookup failed", zap.String("guild_id", guildID), zap.Error(err))
		return false
	}
	if !ok {
		b.log.Debug("guild not whitelisted", zap.String("guild_id", guildID))
	}
	return ok
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()
	if !b.admitted(ctx, i.GuildID) {
		return
	}

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		b.handleCommand(ctx, i)
	case discordgo.InteractionMessageComponent:
		b.handleComponent(ctx, i)
	}
}

func (b *Bot) handleComponent(ctx context.Context, i *discordgo.InteractionCreate) {
	action, ok := ParseAction(i.MessageComponentData().CustomID)
	if !ok {
		b.log.Warn("unknown component id", zap.String("custom_id", i.MessageComponentData().CustomID))
		return
	}

	user := interactionUser(i)

	if action.Staff() && !b.isStaff(ctx, i.Member) {
		b.respondEphemeral(i, errorEmbed("Only staff can use this button."))
		return
	}

	switch action.Kind {
	case ActionStartPurchase:
		b.startPurchase(ctx, i, user)
	case ActionPaymentMethod:
		b.choosePaymentMethod(ctx, i, user, action.Method)
	case ActionStaffConfirm:
		b.staffConfirm(ctx, i, user)
	case ActionStaffReject:
		b.staffRejectPrompt(ctx, i, user)
	case ActionStaffDeliver:
		b.staffDeliver(ctx, i, user)
	case ActionStaffClose:
		b.staffClose(ctx, i, user)
	}
}

func (b *Bot) startPurchase(ctx context.Context, i *discordgo.InteractionCreate, user models.User) {
	t, err := b.tickets.Create(ctx, b.guild, user)
	if err != nil {
		var rle *services.RateLimitedError
		var capErr *services.CapacityExceededError
		if errors.As(err, &rle) || errors.As(err, &capErr) {
			b.respondEphemeral(i, errorEmbed(err.Error()))
			return
		}
		b.log.Error("ticket creation failed", zap.String("user_id", user.ID), zap.Error(err))
		b.respondEphemeral(i, errorEmbed("Could not open a ticket right now, please try again later."))
		return
	}
	b.respondEphemeral(i, successEmbed("Ticket created",
		fmt.Sprintf("Your purchase ticket is ready: <#%s>", t.ChannelID)))
}

// choosePaymentMethod records the method, posts the instruction embed
// (with a QR code for bitcoin) and schedules the staff controls so they
// appear after the instructions.
func (b *Bot) choosePaymentMethod(ctx context.Context, i *discordgo.InteractionCreate, user models.User, method string) {
	t, err := b.ticketOfChannel(ctx, i.ChannelID)
	if err != nil || t == nil {
		b.respondEphemeral(i, errorEmbed("This button only works inside a purchase ticket."))
		return
	}
	if t.UserID != user.ID {
		b.respondEphemeral(i, errorEmbed("Only the ticket owner can pick a payment method."))
		return
	}

	if err := b.st.Tickets.UpdatePayment(ctx, t.TicketID, method, nil); err != nil {
		b.log.Error("record payment method failed", zap.String("ticket_id", t.TicketID), zap.Error(err))
		b.respondEphemeral(i, errorEmbed("Could not record your payment method, please try again."))
		return
	}
	if err := b.st.Transactions.Upsert(ctx, &models.Transaction{
		TicketID:      t.TicketID,
		UserID:        t.UserID,
		PaymentMethod: method,
		Status:        models.TransactionPending,
	}); err != nil {
		b.log.Warn("transaction upsert failed", zap.String("ticket_id", t.TicketID), zap.Error(err))
	}

	msg := b.guild.paymentInstructions(method)
	if method == MethodBitcoin && b.cfg.BTCWallet != "" {
		if qr, qerr := walletQR(b.cfg.BTCWallet); qerr == nil {
			msg.Files = []*discordgo.File{{Name: "wallet.png", ContentType: "image/png", Reader: qr}}
			msg.Embed.Image = &discordgo.MessageEmbedImage{URL: "attachment://wallet.png"}
		} else {
			b.log.Warn("wallet qr failed", zap.Error(qerr))
		}
	}
	if err := b.guild.send(ctx, i.ChannelID, msg); err != nil {
		b.log.Warn("payment instructions failed", zap.String("ticket_id", t.TicketID), zap.Error(err))
	}

	channelID := i.ChannelID
	b.sched.After(b.cfg.StaffControlsDelay, func() {
		err := b.guild.send(context.Background(), channelID, &discordgo.MessageSend{
			Embed: &discordgo.MessageEmbed{
				Title:       "Staff controls",
				Description: "For staff use only.",
				Color:       colorBlue,
			},
			Components: []discordgo.MessageComponent{staffControlsRow()},
		})
		if err != nil {
			b.log.Warn("staff controls failed", zap.String("channel_id", channelID), zap.Error(err))
		}
	})

	b.respondEphemeral(i, successEmbed("Payment method selected",
		"Follow the instructions above, then upload your payment proof here."))
}

func (b *Bot) staffConfirm(ctx context.Context, i *discordgo.InteractionCreate, staff models.User) {
	t, err := b.ticketOfChannel(ctx, i.ChannelID)
	if err != nil || t == nil {
		b.respondEphemeral(i, errorEmbed("No ticket is backing this channel."))
		return
	}

	amount := decimal.Zero
	if t.Amount != nil {
		amount = *t.Amount
	}

	b.deferEphemeral(i)
	if err := b.payments.Confirm(ctx, b.guild, t, staff, amount); err != nil {
		var state *services.TicketStateError
		if errors.As(err, &state) {
			b.editResponse(i, errorEmbed("This ticket is no longer pending, someone else may have handled it."))
			return
		}
		b.log.Error("confirm failed", zap.String("ticket_id", t.TicketID), zap.Error(err))
		b.editResponse(i, errorEmbed("Confirmation failed, check the logs."))
		return
	}
	b.editResponse(i, successEmbed("Payment confirmed",
		fmt.Sprintf("Ticket %s confirmed for $%s.", t.TicketID, amount.StringFixed(2))))
}

// staffRejectPrompt arms the reason listener: the staff member's next
// message in this channel becomes the rejection reason. The prompt
// silently expires if no reason arrives in time.
func (b *Bot) staffRejectPrompt(ctx context.Context, i *discordgo.InteractionCreate, staff models.User) {
	t, err := b.ticketOfChannel(ctx, i.ChannelID)
	if err != nil || t == nil {
		b.respondEphemeral(i, errorEmbed("No ticket is backing this channel."))
		return
	}

	channelID := i.ChannelID
	cancel := b.sched.After(b.cfg.RejectReplyTimeout, func() {
		b.mu.Lock()
		delete(b.pendingRejects, channelID)
		b.mu.Unlock()
	})

	b.mu.Lock()
	if prev, ok := b.pendingRejects[channelID]; ok {
		prev.cancel()
	}
	b.pendingRejects[channelID] = &pendingReject{staffID: staff.ID, ticket: t, cancel: cancel}
	b.mu.Unlock()

	b.respondEphemeral(i, successEmbed("Rejection reason",
		fmt.Sprintf("Reply in this channel with the reason within %d seconds.",
			int(b.cfg.RejectReplyTimeout.Seconds()))))
}

func (b *Bot) staffDeliver(ctx context.Context, i *discordgo.InteractionCreate, staff models.User) {
	t, err := b.ticketOfChannel(ctx, i.ChannelID)
	if err != nil || t == nil {
		b.respondEphemeral(i, errorEmbed("No ticket is backing this channel."))
		return
	}

	b.deferEphemeral(i)
	if err := b.payments.MarkDelivered(ctx, b.guild, t, staff); err != nil {
		var state *services.TicketStateError
		if errors.As(err, &state) {
			b.editResponse(i, errorEmbed("Only a confirmed ticket can be marked delivered."))
			return
		}
		b.log.Error("deliver failed", zap.String("ticket_id", t.TicketID), zap.Error(err))
		b.editResponse(i, errorEmbed("Marking delivered failed, check the logs."))
		return
	}
	b.editResponse(i, successEmbed("Order delivered",
		fmt.Sprintf("Ticket %s marked delivered. It will auto-close shortly.", t.TicketID)))
}

// staffClose works on orphaned ticket channels too: with no backing row
// the channel name stands in for the ticket ID and only the channel is
// removed.
func (b *Bot) staffClose(ctx context.Context, i *discordgo.InteractionCreate, staff models.User) {
	ticketID := b.channelName(i.ChannelID)
	if t, err := b.ticketOfChannel(ctx, i.ChannelID); err == nil && t != nil {
		ticketID = t.TicketID
	}

	b.deferEphemeral(i)
	reason := fmt.Sprintf("closed by %s", staff.Username)
	if err := b.tickets.Close(ctx, b.guild, ticketID, i.ChannelID, reason); err != nil {
		b.log.Error("close failed", zap.String("ticket_id", ticketID), zap.Error(err))
		b.editResponse(i, errorEmbed("Closing the ticket failed, check the logs."))
		return
	}
	if err := b.st.Audit.Log(ctx, &models.StaffAction{
		GuildID:       b.cfg.GuildID,
		StaffID:       staff.ID,
		StaffUsername: staff.Username,
		ActionType:    models.ActionCloseTicket,
		TicketID:      &ticketID,
	}); err != nil {
		b.log.Warn("close audit failed", zap.String("ticket_id", ticketID), zap.Error(err))
	}
	b.editResponse(i, successEmbed("Ticket closing",
		"The channel will be deleted in a few seconds."))
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	ctx := context.Background()
	if !b.admitted(ctx, m.GuildID) {
		return
	}

	if b.consumeRejectReason(ctx, m) {
		return
	}
	b.handleProofUpload(ctx, m)
}

// consumeRejectReason reports whether the message completed an armed
// rejection prompt.
func (b *Bot) consumeRejectReason(ctx context.Context, m *discordgo.MessageCreate) bool {
	b.mu.Lock()
	pending, ok := b.pendingRejects[m.ChannelID]
	if !ok || pending.staffID != m.Author.ID {
		b.mu.Unlock()
		return false
	}
	delete(b.pendingRejects, m.ChannelID)
	b.mu.Unlock()
	pending.cancel()

	reason := services.SanitizeText(m.Content)
	if reason == "" {
		reason = "no reason given"
	}
	staff := models.User{ID: m.Author.ID, Username: m.Author.Username}
	if err := b.payments.Reject(ctx, b.guild, pending.ticket, staff, reason); err != nil {
		var state *services.TicketStateError
		if errors.As(err, &state) {
			b.reply(m, "This ticket is no longer pending.")
			return true
		}
		b.log.Error("reject failed", zap.String("ticket_id", pending.ticket.TicketID), zap.Error(err))
		b.reply(m, "Rejection failed, check the logs.")
		return true
	}
	return true
}

// handleProofUpload treats an attachment from the ticket owner as
// payment proof: rate limited, validated, persisted and forwarded to
// the proofs channel.
func (b *Bot) handleProofUpload(ctx context.Context, m *discordgo.MessageCreate) {
	if len(m.Attachments) == 0 {
		return
	}
	t, err := b.ticketOfChannel(ctx, m.ChannelID)
	if err != nil || t == nil || t.UserID != m.Author.ID {
		return
	}

	allowed, err := b.limiter.Check(ctx, m.Author.ID, actionFileUpload, b.cfg.FileUploadLimit, b.cfg.FileUploadWindow)
	if err != nil {
		b.log.Error("upload rate limit check failed", zap.Error(err))
		return
	}
	if !allowed {
		monitoring.RateLimitRejected(actionFileUpload)
		b.reply(m, "You are uploading files too quickly, please wait a few minutes.")
		return
	}

	proof := m.Attachments[0]
	if err := services.ValidateProofUpload(proof.Filename, proof.Size); err != nil {
		b.reply(m, err.Error())
		return
	}

	if err := b.st.Transactions.Upsert(ctx, &models.Transaction{
		TicketID:      t.TicketID,
		UserID:        t.UserID,
		PaymentMethod: paymentMethodOf(t),
		Status:        models.TransactionPending,
		ProofURL:      &proof.URL,
	}); err != nil {
		b.log.Error("proof transaction upsert failed", zap.String("ticket_id", t.TicketID), zap.Error(err))
		b.reply(m, "Could not record your proof, please try again.")
		return
	}

	if err := b.session.MessageReactionAdd(m.ChannelID, m.ID, "✅"); err != nil {
		b.log.Warn("proof reaction failed", zap.Error(err))
	}

	if proofsID, perr := b.guild.ChannelIDByName(ctx, services.ChannelProofs); perr == nil {
		err := b.guild.send(ctx, proofsID, &discordgo.MessageSend{
			Embed: &discordgo.MessageEmbed{
				Title: "Payment proof uploaded",
				Fields: []*discordgo.MessageEmbedField{
					{Name: "Ticket", Value: t.TicketID, Inline: true},
					{Name: "Customer", Value: fmt.Sprintf("<@%s>", t.UserID), Inline: true},
					{Name: "Method", Value: paymentMethodOf(t), Inline: true},
				},
				Image: &discordgo.MessageEmbedImage{URL: proof.URL},
				Color: colorBlue,
			},
		})
		if err != nil {
			b.log.Warn("proof forward failed", zap.String("ticket_id", t.TicketID), zap.Error(err))
		}
	}

	b.reply(m, "Proof received. Staff will verify your payment shortly.")
	b.log.Info("payment proof uploaded",
		zap.String("ticket_id", t.TicketID),
		zap.String("user_id", m.Author.ID))
}

// ticketOfChannel resolves the channel's backing ticket, nil when the
// channel is not a ticket or has no row.
func (b *Bot) ticketOfChannel(ctx context.Context, channelID string) (*models.Ticket, error) {
	name := b.channelName(channelID)
	if name == "" {
		return nil, services.ErrChannelNotFound
	}
	return b.tickets.FromChannel(ctx, name)
}

func (b *Bot) channelName(channelID string) string {
	if ch, err := b.session.State.Channel(channelID); err == nil {
		return ch.Name
	}
	ch, err := b.session.Channel(channelID)
	if err != nil {
		return ""
	}
	return ch.Name
}

// isStaff admits administrators and holders of the staff or support
// role.
func (b *Bot) isStaff(ctx context.Context, member *discordgo.Member) bool {
	if member == nil {
		return false
	}
	if member.Permissions&discordgo.PermissionAdministrator != 0 {
		return true
	}
	for _, roleName := range []string{services.RoleStaff, services.RoleSupport} {
		roleID, err := b.guild.RoleIDByName(ctx, roleName)
		if err != nil {
			continue
		}
		for _, held := range member.Roles {
			if held == roleID {
				return true
			}
		}
	}
	return false
}

func interactionUser(i *discordgo.InteractionCreate) models.User {
	u := i.User
	if i.Member != nil {
		u = i.Member.User
	}
	if u == nil {
		return models.User{}
	}
	return models.User{ID: u.ID, Username: u.Username}
}

func (b *Bot) respondEphemeral(i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) {
	err := b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		b.log.Warn("interaction response failed", zap.Error(err))
	}
}

func (b *Bot) deferEphemeral(i *discordgo.InteractionCreate) {
	err := b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	})
	if err != nil {
		b.log.Warn("interaction defer failed", zap.Error(err))
	}
}

func (b *Bot) editResponse(i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) {
	_, err := b.session.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Embeds: &[]*discordgo.MessageEmbed{embed},
	})
	if err != nil {
		b.log.Warn("interaction edit failed", zap.Error(err))
	}
}

func (b *Bot) reply(m *discordgo.MessageCreate, content string) {
	_, err := b.session.ChannelMessageSendReply(m.ChannelID, content, m.Reference())
	if err != nil {
		b.log.Warn("reply failed", zap.Error(err))
	}
}

func paymentMethodOf(t *models.Ticket) string {
	if t.PaymentMethod == nil {
		return "unknown"
	}
	return *t.PaymentMethod
}
