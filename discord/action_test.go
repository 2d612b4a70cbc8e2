package discord

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAction(t *testing.T) {
	tests := []struct {
		customID string
		want     Action
		ok       bool
	}{
		{"start_purchase", Action{Kind: ActionStartPurchase}, true},
		{"payment_paypal", Action{Kind: ActionPaymentMethod, Method: "paypal"}, true},
		{"payment_bitcoin", Action{Kind: ActionPaymentMethod, Method: "bitcoin"}, true},
		{"payment_giftcard", Action{Kind: ActionPaymentMethod, Method: "giftcard"}, true},
		{"staff_confirm", Action{Kind: ActionStaffConfirm}, true},
		{"staff_reject", Action{Kind: ActionStaffReject}, true},
		{"staff_deliver", Action{Kind: ActionStaffDeliver}, true},
		{"staff_close", Action{Kind: ActionStaffClose}, true},
		{"payment_venmo", Action{}, false},
		{"payment_", Action{}, false},
		{"staff_nuke", Action{}, false},
		{"", Action{}, false},
		{"random_id", Action{}, false},
	}

	for _, tt := range tests {
		got, ok := ParseAction(tt.customID)
		assert.Equal(t, tt.ok, ok, "customID %q", tt.customID)
		assert.Equal(t, tt.want, got, "customID %q", tt.customID)
	}
}

func TestActionStaff(t *testing.T) {
	staffOnly := []ActionKind{ActionStaffConfirm, ActionStaffReject, ActionStaffDeliver, ActionStaffClose}
	for _, kind := range staffOnly {
		assert.True(t, Action{Kind: kind}.Staff())
	}
	assert.False(t, Action{Kind: ActionStartPurchase}.Staff())
	assert.False(t, Action{Kind: ActionPaymentMethod, Method: MethodPayPal}.Staff())
}
