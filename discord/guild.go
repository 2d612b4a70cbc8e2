package discord

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"salesbot/config"
	"salesbot/services"
)

const memberChannelAllow = discordgo.PermissionViewChannel |
	discordgo.PermissionSendMessages |
	discordgo.PermissionAttachFiles |
	discordgo.PermissionReadMessageHistory

// Guild implements services.Guild over a discordgo session for one
// configured guild.
type Guild struct {
	session *discordgo.Session
	guildID string
	cfg     *config.Config
	log     *zap.Logger
}

func NewGuild(session *discordgo.Session, guildID string, cfg *config.Config, log *zap.Logger) *Guild {
	return &Guild{session: session, guildID: guildID, cfg: cfg, log: log}
}

func (g *Guild) ID() string {
	return g.guildID
}

// CreateTicketChannel creates a text channel only the requester and the
// staff and support roles can see.
func (g *Guild) CreateTicketChannel(ctx context.Context, name, userID string) (string, error) {
	overwrites := []*discordgo.PermissionOverwrite{
		{
			ID:   g.guildID, // @everyone shares the guild ID
			Type: discordgo.PermissionOverwriteTypeRole,
			Deny: discordgo.PermissionViewChannel,
		},
		{
			ID:    userID,
			Type:  discordgo.PermissionOverwriteTypeMember,
			Allow: memberChannelAllow,
		},
	}
	for _, roleName := range []string{services.RoleStaff, services.RoleSupport} {
		roleID, err := g.RoleIDByName(ctx, roleName)
		if err != nil {
			// A guild without the role set up yet still gets its ticket.
			g.log.Warn("role missing for ticket channel", zap.String("role", roleName))
			continue
		}
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID:    roleID,
			Type:  discordgo.PermissionOverwriteTypeRole,
			Allow: memberChannelAllow,
		})
	}

	ch, err := g.session.GuildChannelCreateComplex(g.guildID, discordgo.GuildChannelCreateData{
		Name:                 name,
		Type:                 discordgo.ChannelTypeGuildText,
		Topic:                fmt.Sprintf("Purchase ticket for <@%s>", userID),
		PermissionOverwrites: overwrites,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("create channel %s: %w", name, err)
	}
	return ch.ID, nil
}

func (g *Guild) DeleteChannel(ctx context.Context, channelID, reason string) error {
	_, err := g.session.ChannelDelete(channelID, discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason))
	if err != nil {
		return fmt.Errorf("delete channel %s: %w", channelID, err)
	}
	return nil
}

func (g *Guild) HasChannel(ctx context.Context, channelID string) bool {
	if ch, err := g.session.State.Channel(channelID); err == nil && ch != nil {
		return true
	}
	_, err := g.session.Channel(channelID, discordgo.WithContext(ctx))
	return err == nil
}

// ChannelIDByName resolves a text channel by its exact name.
func (g *Guild) ChannelIDByName(ctx context.Context, name string) (string, error) {
	channels, err := g.session.GuildChannels(g.guildID, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("list channels: %w", err)
	}
	for _, ch := range channels {
		if ch.Type == discordgo.ChannelTypeGuildText && ch.Name == name {
			return ch.ID, nil
		}
	}
	return "", fmt.Errorf("channel %q: %w", name, services.ErrChannelNotFound)
}

// RoleIDByName resolves a role case-insensitively.
func (g *Guild) RoleIDByName(ctx context.Context, name string) (string, error) {
	roles, err := g.session.GuildRoles(g.guildID, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("list roles: %w", err)
	}
	for _, r := range roles {
		if strings.EqualFold(r.Name, name) {
			return r.ID, nil
		}
	}
	return "", fmt.Errorf("role %q: %w", name, services.ErrRoleNotFound)
}

// GrantRole is idempotent; re-adding a held role succeeds.
func (g *Guild) GrantRole(ctx context.Context, userID, roleID string) error {
	if err := g.session.GuildMemberRoleAdd(g.guildID, userID, roleID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("grant role %s to %s: %w", roleID, userID, err)
	}
	return nil
}

func (g *Guild) AllowMemberOnChannel(ctx context.Context, channelID, userID string) error {
	err := g.session.ChannelPermissionSet(channelID, userID,
		discordgo.PermissionOverwriteTypeMember, memberChannelAllow, 0,
		discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("allow member %s on channel %s: %w", userID, channelID, err)
	}
	return nil
}

func (g *Guild) send(ctx context.Context, channelID string, msg *discordgo.MessageSend) error {
	_, err := g.session.ChannelMessageSendComplex(channelID, msg, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("send message to %s: %w", channelID, err)
	}
	return nil
}
