// Package views turns navigation state into the widget tree the embedding page draws.
// Every function here is pure: no I/O and no access to controller state.
package views

import (
	"github.com/google/uuid"
	"github.com/meagent/meagent_service/internal/domain/entities"
)

// Verbs the embedding page posts back when an action is tapped
const (
	ActionGoBack        = "go_back"
	ActionCancel        = "cancel"
	ActionDismiss       = "dismiss"
	ActionClose         = "close"
	ActionOpenOffer     = "open_offer"
	ActionOpenCategory  = "open_category"
	ActionOpenBrand     = "open_brand"
	ActionSelectVariant = "select_variant"
	ActionClaim         = "claim"
	ActionSubmitEmail   = "submit_email"
	ActionSubmitOTP     = "submit_otp"
	ActionResendOTP     = "resend_otp"
	ActionSelectReward  = "select_reward"
	ActionPickAnother   = "pick_another"
	ActionConfirm       = "confirm"
	ActionRetry         = "retry"
	ActionOpenCheckout  = "open_checkout"
)

// Default titles
const (
	TitleOffers       = "Available Offers"
	TitleOfferDetail  = "Offer Details"
	TitleBrands       = "Brands"
	TitleCategories   = "Categories"
	TitleVerifyEmail  = "Verify Email"
	TitleOnboarding   = "Setting Up"
	TitleRewardSelect = "Select Reward"
	TitleConfirm      = "Confirm Redemption"
)

// Screen is one rendered state of the detail panel
type Screen struct {
	ID      string            `json:"id"`
	Type    entities.ViewType `json:"type"`
	Header  Header            `json:"header"`
	Body    any               `json:"body,omitempty"`
	Actions []Action          `json:"actions,omitempty"`
}

// Header is a back chevron plus title when the stack is deeper than one, else a centered title
type Header struct {
	Title     string `json:"title"`
	ShowBack  bool   `json:"showBack"`
	BackLabel string `json:"backLabel,omitempty"`
}

// Action is a tappable element. Params are echoed back with the verb.
type Action struct {
	Verb    string            `json:"verb"`
	Label   string            `json:"label"`
	Params  map[string]string `json:"params,omitempty"`
	Primary bool              `json:"primary,omitempty"`
}

// HeaderFor computes the header from the stack alone
func HeaderFor(stack []entities.ViewState) Header {
	if len(stack) == 0 {
		return Header{}
	}
	h := Header{Title: stack[len(stack)-1].Title}
	if len(stack) > 1 {
		h.ShowBack = true
		h.BackLabel = stack[len(stack)-2].Title
	}
	return h
}

func newScreen(t entities.ViewType, header Header, body any, actions ...Action) Screen {
	return Screen{
		ID:      uuid.NewString(),
		Type:    t,
		Header:  header,
		Body:    body,
		Actions: actions,
	}
}

func backAction(h Header) []Action {
	if !h.ShowBack {
		return nil
	}
	return []Action{{Verb: ActionGoBack, Label: h.BackLabel}}
}
