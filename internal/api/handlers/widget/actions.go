package widget

import (
	"errors"
	"fmt"

	"github.com/meagent/meagent_service/internal/domain/services/navigation/views"
	widgetsvc "github.com/meagent/meagent_service/internal/domain/services/widget"
)

// Panel controls the host page sends outside of rendered actions
const (
	actionShow           = "show"
	actionHide           = "hide"
	actionShowBrands     = "show_brands"
	actionShowCategories = "show_categories"
)

var errUnknownAction = errors.New("unknown action")

type emailParam struct {
	Email string `validate:"required,email,max=254"`
}

type otpParam struct {
	Code string `validate:"required,otp_code"`
}

func rateLimitedAction(action string) bool {
	return action == views.ActionSubmitEmail || action == views.ActionResendOTP
}

// applyAction maps an action verb onto the session's controller
func (h *WidgetHandlers) applyAction(session *widgetsvc.Session, req ActionRequest) error {
	ctrl := session.Controller
	p := req.Params

	switch req.Action {
	case actionShow:
		ctrl.Show()
	case actionHide, views.ActionClose:
		ctrl.Hide()
	case actionShowBrands:
		ctrl.ShowBrandList()
	case actionShowCategories:
		ctrl.ShowCategoryGrid()
	case views.ActionGoBack:
		ctrl.GoBack()
	case views.ActionCancel, views.ActionDismiss:
		ctrl.Cancel()
	case views.ActionRetry:
		ctrl.Retry()
	case views.ActionOpenOffer:
		if p["code"] == "" {
			return missingParam("code")
		}
		ctrl.ShowOfferDetail(p["code"], p["session_id"])
	case views.ActionOpenCategory:
		if p["category_id"] == "" {
			return missingParam("category_id")
		}
		ctrl.ShowBrandsWithOffers(p["category_id"])
	case views.ActionOpenBrand:
		if p["brand_id"] == "" {
			return missingParam("brand_id")
		}
		ctrl.ShowBrandOffers(p["brand_id"])
	case views.ActionSelectVariant:
		if p["variant_id"] == "" {
			return missingParam("variant_id")
		}
		ctrl.SelectVariant(p["variant_id"])
	case views.ActionClaim:
		ctrl.Claim()
	case views.ActionSubmitEmail:
		if err := h.validator.Validate(emailParam{Email: p["email"]}); err != nil {
			return fmt.Errorf("invalid email: %w", err)
		}
		ctrl.SubmitEmail(p["email"])
	case views.ActionResendOTP:
		ctrl.ResendOTP()
	case views.ActionSubmitOTP:
		if err := h.validator.Validate(otpParam{Code: p["code"]}); err != nil {
			return fmt.Errorf("invalid passcode: %w", err)
		}
		ctrl.SubmitOTP(p["code"])
	case views.ActionSelectReward:
		if p["reward_id"] == "" {
			return missingParam("reward_id")
		}
		ctrl.SelectReward(p["reward_id"])
	case views.ActionPickAnother:
		ctrl.PickAnotherReward()
	case views.ActionConfirm:
		ctrl.Confirm()
	case views.ActionOpenCheckout:
		ctrl.OpenCheckout()
	default:
		return fmt.Errorf("%w %q", errUnknownAction, req.Action)
	}
	return nil
}

func missingParam(name string) error {
	return fmt.Errorf("missing parameter %q", name)
}
