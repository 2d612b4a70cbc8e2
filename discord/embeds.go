package discord

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"salesbot/models"
)

// Embed accent colors.
const (
	colorBlue   = 0x3498db
	colorGreen  = 0x2ecc71
	colorRed    = 0xe74c3c
	colorOrange = 0xe67e22
	colorPurple = 0x9b59b6
)

// SendWelcome posts the opening message of a ticket channel: greeting
// plus the payment method buttons.
func (g *Guild) SendWelcome(ctx context.Context, channelID, userID string) error {
	return g.send(ctx, channelID, &discordgo.MessageSend{
		Content: fmt.Sprintf("<@%s>", userID),
		Embed: &discordgo.MessageEmbed{
			Title: "Welcome to your purchase ticket",
			Description: "A member of staff will assist you shortly.\n\n" +
				"Pick a payment method below to get started, and upload a " +
				"screenshot of your payment here once it is sent.",
			Color: colorBlue,
		},
		Components: []discordgo.MessageComponent{paymentMethodRow()},
	})
}

func (g *Guild) SendClosingNotice(ctx context.Context, channelID, reason string) error {
	return g.send(ctx, channelID, &discordgo.MessageSend{
		Embed: &discordgo.MessageEmbed{
			Title:       "Ticket closing",
			Description: fmt.Sprintf("This channel will be deleted shortly.\n\nReason: %s", reason),
			Color:       colorOrange,
		},
	})
}

func (g *Guild) SendConfirmation(ctx context.Context, channelID, userID, paymentMethod string) error {
	return g.send(ctx, channelID, &discordgo.MessageSend{
		Content: fmt.Sprintf("<@%s>", userID),
		Embed: &discordgo.MessageEmbed{
			Title: "Payment confirmed",
			Description: "Your payment has been verified. Your order is being " +
				"prepared and you now have customer access.",
			Fields: []*discordgo.MessageEmbedField{
				{Name: "Payment method", Value: paymentMethod, Inline: true},
			},
			Color: colorGreen,
		},
	})
}

func (g *Guild) SendRejection(ctx context.Context, channelID, reason string) error {
	return g.send(ctx, channelID, &discordgo.MessageSend{
		Embed: &discordgo.MessageEmbed{
			Title: "Payment rejected",
			Description: fmt.Sprintf("Your payment could not be verified.\n\nReason: %s\n\n"+
				"You can pick a payment method and try again.", reason),
			Color: colorRed,
		},
		Components: []discordgo.MessageComponent{paymentMethodRow()},
	})
}

func (g *Guild) SendDeliveryNotice(ctx context.Context, channelID string) error {
	return g.send(ctx, channelID, &discordgo.MessageSend{
		Embed: &discordgo.MessageEmbed{
			Title: "Order delivered",
			Description: "Your order has been delivered. Thank you for your " +
				"purchase!\n\nThis ticket will close automatically in a few minutes.",
			Color: colorPurple,
		},
	})
}

// SendPurchaseNotice posts the staff-facing summary of a confirmed
// purchase to the deliveries channel.
func (g *Guild) SendPurchaseNotice(ctx context.Context, channelID string, t *models.Ticket, staff models.User) error {
	return g.send(ctx, channelID, &discordgo.MessageSend{
		Embed: &discordgo.MessageEmbed{
			Title: "New confirmed purchase",
			Fields: []*discordgo.MessageEmbedField{
				{Name: "Ticket", Value: t.TicketID, Inline: true},
				{Name: "Customer", Value: fmt.Sprintf("<@%s>", t.UserID), Inline: true},
				{Name: "Amount", Value: amountOf(t), Inline: true},
				{Name: "Confirmed by", Value: staff.Username, Inline: true},
			},
			Color:     colorGreen,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	})
}

func (g *Guild) SendDeliverySummary(ctx context.Context, channelID string, t *models.Ticket, staff models.User) error {
	return g.send(ctx, channelID, &discordgo.MessageSend{
		Embed: &discordgo.MessageEmbed{
			Title: "Order delivered",
			Fields: []*discordgo.MessageEmbedField{
				{Name: "Ticket", Value: t.TicketID, Inline: true},
				{Name: "Customer", Value: fmt.Sprintf("<@%s>", t.UserID), Inline: true},
				{Name: "Delivered by", Value: staff.Username, Inline: true},
			},
			Color:     colorPurple,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	})
}

func amountOf(t *models.Ticket) string {
	if t.Amount == nil {
		return "-"
	}
	return "$" + t.Amount.StringFixed(2)
}

func paymentMethodRow() discordgo.ActionsRow {
	return discordgo.ActionsRow{
		Components: []discordgo.MessageComponent{
			discordgo.Button{
				Label:    "PayPal",
				Style:    discordgo.PrimaryButton,
				CustomID: customIDPaymentPrefix + MethodPayPal,
				Emoji:    &discordgo.ComponentEmoji{Name: "💳"},
			},
			discordgo.Button{
				Label:    "Bitcoin",
				Style:    discordgo.SecondaryButton,
				CustomID: customIDPaymentPrefix + MethodBitcoin,
				Emoji:    &discordgo.ComponentEmoji{Name: "🪙"},
			},
			discordgo.Button{
				Label:    "Gift Card",
				Style:    discordgo.SecondaryButton,
				CustomID: customIDPaymentPrefix + MethodGiftCard,
				Emoji:    &discordgo.ComponentEmoji{Name: "🎁"},
			},
		},
	}
}

func staffControlsRow() discordgo.ActionsRow {
	return discordgo.ActionsRow{
		Components: []discordgo.MessageComponent{
			discordgo.Button{
				Label:    "Confirm Payment",
				Style:    discordgo.SuccessButton,
				CustomID: customIDStaffConfirm,
			},
			discordgo.Button{
				Label:    "Reject",
				Style:    discordgo.DangerButton,
				CustomID: customIDStaffReject,
			},
			discordgo.Button{
				Label:    "Mark Delivered",
				Style:    discordgo.PrimaryButton,
				CustomID: customIDStaffDeliver,
			},
			discordgo.Button{
				Label:    "Close Ticket",
				Style:    discordgo.SecondaryButton,
				CustomID: customIDStaffClose,
			},
		},
	}
}

func startPurchaseRow() discordgo.ActionsRow {
	return discordgo.ActionsRow{
		Components: []discordgo.MessageComponent{
			discordgo.Button{
				Label:    "Start Purchase",
				Style:    discordgo.SuccessButton,
				CustomID: customIDStartPurchase,
				Emoji:    &discordgo.ComponentEmoji{Name: "🛒"},
			},
		},
	}
}

// paymentInstructions builds the fixed instruction message for a chosen
// method. The bitcoin variant gets a QR code attached by the caller.
func (g *Guild) paymentInstructions(method string) *discordgo.MessageSend {
	switch method {
	case MethodPayPal:
		return &discordgo.MessageSend{
			Embed: &discordgo.MessageEmbed{
				Title: "PayPal payment",
				Description: "Send your payment as **Friends & Family** to the " +
					"address below, then upload a screenshot of the completed " +
					"payment in this channel.",
				Fields: []*discordgo.MessageEmbedField{
					{Name: "PayPal address", Value: orAsk(g.cfg.PayPalEmail)},
				},
				Color: colorBlue,
			},
		}
	case MethodBitcoin:
		return &discordgo.MessageSend{
			Embed: &discordgo.MessageEmbed{
				Title: "Bitcoin payment",
				Description: "Send the agreed amount to the wallet below, then " +
					"post the transaction ID or a screenshot in this channel.",
				Fields: []*discordgo.MessageEmbedField{
					{Name: "Wallet", Value: orAsk(g.cfg.BTCWallet)},
				},
				Color: colorOrange,
			},
		}
	case MethodGiftCard:
		return &discordgo.MessageSend{
			Embed: &discordgo.MessageEmbed{
				Title: "Gift card payment",
				Description: "Purchase a gift card from the link below and post " +
					"the redemption code in this channel. Staff will verify it.",
				Fields: []*discordgo.MessageEmbedField{
					{Name: "Where to buy", Value: orAsk(g.cfg.GiftCardURL)},
				},
				Color: colorPurple,
			},
		}
	}
	return nil
}

func orAsk(v string) string {
	if v == "" {
		return "Ask a member of staff"
	}
	return v
}

func errorEmbed(message string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "Something went wrong",
		Description: message,
		Color:       colorRed,
	}
}

func successEmbed(title, message string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: message,
		Color:       colorGreen,
	}
}
