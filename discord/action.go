package discord

import "strings"

// ActionKind enumerates every button the bot ever renders. Component
// custom IDs are decoded into this closed set once, at the interaction
// boundary; handlers never see raw IDs.
type ActionKind int

const (
	ActionUnknown ActionKind = iota
	ActionStartPurchase
	ActionPaymentMethod
	ActionStaffConfirm
	ActionStaffReject
	ActionStaffDeliver
	ActionStaffClose
)

const (
	customIDStartPurchase = "start_purchase"
	customIDPaymentPrefix = "payment_"
	customIDStaffConfirm  = "staff_confirm"
	customIDStaffReject   = "staff_reject"
	customIDStaffDeliver  = "staff_deliver"
	customIDStaffClose    = "staff_close"
)

// Payment methods the storefront accepts.
const (
	MethodPayPal   = "paypal"
	MethodBitcoin  = "bitcoin"
	MethodGiftCard = "giftcard"
)

// Action is a decoded button press. Method is set only for
// ActionPaymentMethod.
type Action struct {
	Kind   ActionKind
	Method string
}

// Staff reports whether the action is restricted to staff members.
func (a Action) Staff() bool {
	switch a.Kind {
	case ActionStaffConfirm, ActionStaffReject, ActionStaffDeliver, ActionStaffClose:
		return true
	}
	return false
}

// ParseAction decodes a component custom ID. Unknown IDs, including
// unknown payment methods, return ok=false and are dropped by the
// caller.
func ParseAction(customID string) (Action, bool) {
	switch customID {
	case customIDStartPurchase:
		return Action{Kind: ActionStartPurchase}, true
	case customIDStaffConfirm:
		return Action{Kind: ActionStaffConfirm}, true
	case customIDStaffReject:
		return Action{Kind: ActionStaffReject}, true
	case customIDStaffDeliver:
		return Action{Kind: ActionStaffDeliver}, true
	case customIDStaffClose:
		return Action{Kind: ActionStaffClose}, true
	}

	if method, okPrefix := strings.CutPrefix(customID, customIDPaymentPrefix); okPrefix {
		switch method {
		case MethodPayPal, MethodBitcoin, MethodGiftCard:
			return Action{Kind: ActionPaymentMethod, Method: method}, true
		}
	}

	return Action{}, false
}
