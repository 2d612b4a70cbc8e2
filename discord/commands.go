package discord

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"salesbot/models"
	"salesbot/services"
)

var commandDefinitions = []*discordgo.ApplicationCommand{
	{Name: "ticket", Description: "Open a purchase ticket"},
	{Name: "status", Description: "Show your open tickets"},
	{Name: "help", Description: "How the shop works"},
	{Name: "stats", Description: "Shop statistics (staff only)"},
	{
		Name:        "user-info",
		Description: "Look up a customer (staff only)",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionUser,
				Name:        "user",
				Description: "The user to look up",
				Required:    true,
			},
		},
	},
	{Name: "setup", Description: "Create shop roles and channels (admin only)"},
}

// RegisterCommands overwrites the guild's slash commands with the
// current set.
func RegisterCommands(session *discordgo.Session, appID, guildID string) error {
	_, err := session.ApplicationCommandBulkOverwrite(appID, guildID, commandDefinitions)
	if err != nil {
		return fmt.Errorf("register commands: %w", err)
	}
	return nil
}

func (b *Bot) handleCommand(ctx context.Context, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	user := interactionUser(i)

	switch data.Name {
	case "ticket":
		b.startPurchase(ctx, i, user)
	case "status":
		b.commandStatus(ctx, i, user)
	case "help":
		b.commandHelp(i)
	case "stats":
		if !b.isStaff(ctx, i.Member) {
			b.respondEphemeral(i, errorEmbed("Only staff can use this command."))
			return
		}
		b.commandStats(ctx, i)
	case "user-info":
		if !b.isStaff(ctx, i.Member) {
			b.respondEphemeral(i, errorEmbed("Only staff can use this command."))
			return
		}
		b.commandUserInfo(ctx, i, data)
	case "setup":
		if i.Member == nil || i.Member.Permissions&discordgo.PermissionAdministrator == 0 {
			b.respondEphemeral(i, errorEmbed("Only administrators can run setup."))
			return
		}
		b.commandSetup(ctx, i, user)
	}
}

func (b *Bot) commandStatus(ctx context.Context, i *discordgo.InteractionCreate, user models.User) {
	tickets, err := b.st.Tickets.ActiveByUser(ctx, user.ID, b.cfg.GuildID)
	if err != nil {
		b.log.Error("status lookup failed", zap.String("user_id", user.ID), zap.Error(err))
		b.respondEphemeral(i, errorEmbed("Could not look up your tickets right now."))
		return
	}
	if len(tickets) == 0 {
		b.respondEphemeral(i, successEmbed("Your tickets", "You have no open tickets."))
		return
	}

	var sb strings.Builder
	for _, t := range tickets {
		fmt.Fprintf(&sb, "<#%s> — %s\n", t.ChannelID, t.Status)
	}
	b.respondEphemeral(i, &discordgo.MessageEmbed{
		Title:       "Your tickets",
		Description: sb.String(),
		Color:       colorBlue,
	})
}

func (b *Bot) commandHelp(i *discordgo.InteractionCreate) {
	b.respondEphemeral(i, &discordgo.MessageEmbed{
		Title: "How the shop works",
		Description: "1. Run `/ticket` or press **Start Purchase** to open a private ticket.\n" +
			"2. Pick a payment method and follow the instructions.\n" +
			"3. Upload a screenshot of your payment in the ticket.\n" +
			"4. Staff will verify it and deliver your order.\n\n" +
			"You can have at most a few tickets open at a time, and ticket " +
			"creation is rate limited.",
		Color: colorBlue,
	})
}

func (b *Bot) commandStats(ctx context.Context, i *discordgo.InteractionCreate) {
	stats, err := b.st.Customers.Stats(ctx)
	if err != nil {
		b.log.Error("stats failed", zap.Error(err))
		b.respondEphemeral(i, errorEmbed("Could not compute statistics."))
		return
	}
	pending, err := b.st.Tickets.CountPending(ctx, b.cfg.GuildID)
	if err != nil {
		b.log.Warn("pending count failed", zap.Error(err))
	}

	fields := []*discordgo.MessageEmbedField{
		{Name: "Customers", Value: fmt.Sprintf("%d", stats.TotalCustomers), Inline: true},
		{Name: "Purchases", Value: fmt.Sprintf("%d", stats.TotalPurchases), Inline: true},
		{Name: "Revenue", Value: "$" + stats.TotalRevenue.StringFixed(2), Inline: true},
		{Name: "Pending tickets", Value: fmt.Sprintf("%d", pending), Inline: true},
	}

	if recent, rerr := b.st.Audit.Recent(ctx, b.cfg.GuildID, 5); rerr == nil && len(recent) > 0 {
		var sb strings.Builder
		for _, a := range recent {
			fmt.Fprintf(&sb, "%s — %s\n", a.StaffUsername, a.ActionType)
		}
		fields = append(fields, &discordgo.MessageEmbedField{
			Name: "Recent staff actions", Value: sb.String(),
		})
	}

	b.respondEphemeral(i, &discordgo.MessageEmbed{
		Title:  "Shop statistics",
		Fields: fields,
		Color:  colorGreen,
	})
}

func (b *Bot) commandUserInfo(ctx context.Context, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	target := data.Options[0].UserValue(b.session)
	if target == nil {
		b.respondEphemeral(i, errorEmbed("Unknown user."))
		return
	}

	customer, err := b.st.Customers.Get(ctx, target.ID)
	if err != nil {
		b.log.Error("user-info lookup failed", zap.String("user_id", target.ID), zap.Error(err))
		b.respondEphemeral(i, errorEmbed("Could not look up that user."))
		return
	}
	if customer == nil {
		b.respondEphemeral(i, successEmbed("Customer info",
			fmt.Sprintf("<@%s> has never opened a ticket.", target.ID)))
		return
	}

	vip := "no"
	if customer.VIPAccess {
		vip = "yes"
	}
	fields := []*discordgo.MessageEmbedField{
		{Name: "Purchases", Value: fmt.Sprintf("%d", customer.TotalPurchases), Inline: true},
		{Name: "Total spent", Value: "$" + customer.TotalSpent.StringFixed(2), Inline: true},
		{Name: "VIP", Value: vip, Inline: true},
	}
	if customer.LastPurchaseAt != nil {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name: "Last purchase", Value: customer.LastPurchaseAt.Format("2006-01-02"), Inline: true,
		})
	}
	b.respondEphemeral(i, &discordgo.MessageEmbed{
		Title:  fmt.Sprintf("Customer: %s", customer.Username),
		Fields: fields,
		Color:  colorBlue,
	})
}

// commandSetup provisions the fixed roles and channels the workflows
// expect, skipping anything that already exists, and posts the shop
// menu.
func (b *Bot) commandSetup(ctx context.Context, i *discordgo.InteractionCreate, staff models.User) {
	b.deferEphemeral(i)

	var created []string

	for _, roleName := range []string{services.RoleStaff, services.RoleCustomer, services.RoleSupport} {
		if _, err := b.guild.RoleIDByName(ctx, roleName); err == nil {
			continue
		}
		if _, err := b.session.GuildRoleCreate(b.cfg.GuildID, &discordgo.RoleParams{Name: roleName}, discordgo.WithContext(ctx)); err != nil {
			b.log.Error("setup role failed", zap.String("role", roleName), zap.Error(err))
			b.editResponse(i, errorEmbed(fmt.Sprintf("Creating role %q failed.", roleName)))
			return
		}
		created = append(created, "role "+roleName)
	}

	staffOnly := func() []*discordgo.PermissionOverwrite {
		overwrites := []*discordgo.PermissionOverwrite{{
			ID:   b.cfg.GuildID,
			Type: discordgo.PermissionOverwriteTypeRole,
			Deny: discordgo.PermissionViewChannel,
		}}
		for _, roleName := range []string{services.RoleStaff, services.RoleSupport} {
			if roleID, err := b.guild.RoleIDByName(ctx, roleName); err == nil {
				overwrites = append(overwrites, &discordgo.PermissionOverwrite{
					ID:    roleID,
					Type:  discordgo.PermissionOverwriteTypeRole,
					Allow: memberChannelAllow,
				})
			}
		}
		return overwrites
	}

	type channelSpec struct {
		name       string
		overwrites []*discordgo.PermissionOverwrite
	}
	specs := []channelSpec{
		{name: "shop"},
		{name: services.ChannelProofs, overwrites: staffOnly()},
		{name: services.ChannelDeliveries, overwrites: staffOnly()},
	}
	if customerID, err := b.guild.RoleIDByName(ctx, services.RoleCustomer); err == nil {
		vip := []*discordgo.PermissionOverwrite{
			{
				ID:   b.cfg.GuildID,
				Type: discordgo.PermissionOverwriteTypeRole,
				Deny: discordgo.PermissionViewChannel,
			},
			{
				ID:    customerID,
				Type:  discordgo.PermissionOverwriteTypeRole,
				Allow: memberChannelAllow,
			},
		}
		specs = append(specs, channelSpec{name: services.ChannelVIP, overwrites: vip})
	}

	var shopID string
	for _, spec := range specs {
		if id, err := b.guild.ChannelIDByName(ctx, spec.name); err == nil {
			if spec.name == "shop" {
				shopID = id
			}
			continue
		}
		ch, err := b.session.GuildChannelCreateComplex(b.cfg.GuildID, discordgo.GuildChannelCreateData{
			Name:                 spec.name,
			Type:                 discordgo.ChannelTypeGuildText,
			PermissionOverwrites: spec.overwrites,
		}, discordgo.WithContext(ctx))
		if err != nil {
			b.log.Error("setup channel failed", zap.String("channel", spec.name), zap.Error(err))
			b.editResponse(i, errorEmbed(fmt.Sprintf("Creating channel %q failed.", spec.name)))
			return
		}
		if spec.name == "shop" {
			shopID = ch.ID
		}
		created = append(created, "channel "+spec.name)
	}

	if shopID != "" {
		err := b.guild.send(ctx, shopID, &discordgo.MessageSend{
			Embed: &discordgo.MessageEmbed{
				Title: "Shop",
				Description: "Press the button below to open a private purchase " +
					"ticket with staff.",
				Color: colorGreen,
			},
			Components: []discordgo.MessageComponent{startPurchaseRow()},
		})
		if err != nil {
			b.log.Warn("shop menu failed", zap.Error(err))
		}
	}

	if err := b.st.Audit.Log(ctx, &models.StaffAction{
		GuildID:       b.cfg.GuildID,
		StaffID:       staff.ID,
		StaffUsername: staff.Username,
		ActionType:    models.ActionSetup,
		Details:       setupDetails(created),
	}); err != nil {
		b.log.Warn("setup audit failed", zap.Error(err))
	}

	summary := "Everything was already in place."
	if len(created) > 0 {
		summary = "Created: " + strings.Join(created, ", ")
	}
	b.editResponse(i, successEmbed("Setup complete", summary))
}

func setupDetails(created []string) *string {
	if len(created) == 0 {
		return nil
	}
	s := strings.Join(created, ", ")
	return &s
}
