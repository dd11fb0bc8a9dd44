package navigation

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/meagent/meagent_service/internal/domain/entities"
	"github.com/meagent/meagent_service/internal/domain/services/navigation/views"
	"github.com/meagent/meagent_service/internal/domain/services/redemption"
	"go.uber.org/zap"
)

// Claim starts redemption of the offer on screen: wallet sign in, protocol
// login, then reward selection
func (c *Controller) Claim() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busyLocked() {
		return
	}
	if _, ok := c.offerOnTopLocked(); !ok {
		return
	}
	r := c.startLocked(true)
	c.publishLocked(views.Loading(views.HeaderFor(c.stack), "Checking your wallet..."))
	c.goAsync(func() {
		authed := c.orch.IsAuthenticated(c.base)
		c.finish(r, func() {
			if authed {
				c.continueAuthLocked()
				return
			}
			c.showOTPVerifyLocked("")
		})
	})
}

// SubmitEmail sends a passcode to email
func (c *Controller) SubmitEmail(email string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busyLocked() {
		return
	}
	email = strings.TrimSpace(email)
	if !c.topIsLocked(entities.ViewOTPVerify) {
		return
	}
	if email == "" {
		c.updateOTPLocked(func(d *views.OTPVerifyData) { d.Message = UserMessage(entities.ErrEmailRequired) })
		return
	}
	c.updateOTPLocked(func(d *views.OTPVerifyData) { d.Email = email })
	c.sendOTPLocked(email)
}

// ResendOTP sends a new passcode to the email on screen
func (c *Controller) ResendOTP() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busyLocked() {
		return
	}
	top, ok := c.topLocked()
	if !ok || top.Type != entities.ViewOTPVerify {
		return
	}
	data, _ := top.Data.(views.OTPVerifyData)
	email := data.Email
	if email == "" {
		email = c.orch.Email()
	}
	if email == "" {
		c.updateOTPLocked(func(d *views.OTPVerifyData) { d.Message = UserMessage(entities.ErrEmailRequired) })
		return
	}
	c.sendOTPLocked(email)
}

// SubmitOTP verifies a passcode typed into the panel. Providers that confirm
// out of band are picked up by polling instead.
func (c *Controller) SubmitOTP(code string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busyLocked() {
		return
	}
	if !c.topIsLocked(entities.ViewOTPVerify) {
		return
	}
	code = strings.TrimSpace(code)
	r := c.startLocked(true)
	c.publishLocked(views.Loading(views.HeaderFor(c.stack), "Verifying code..."))
	c.goAsync(func() {
		err := c.orch.VerifyOTP(c.base, code)
		c.finish(r, func() {
			if err != nil {
				c.logger.Info("Passcode rejected", zap.Error(err))
				c.updateOTPLocked(func(d *views.OTPVerifyData) { d.Message = "That code didn't work. Check it and try again." })
				return
			}
			c.continueAuthLocked()
		})
	})
}

// SelectReward prices the offer in the chosen reward and moves to confirm when affordable
func (c *Controller) SelectReward(rewardID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busyLocked() {
		return
	}
	top, ok := c.topLocked()
	if !ok || top.Type != entities.ViewRewardSelect {
		return
	}
	data, _ := top.Data.(views.RewardSelectData)
	var selected *entities.RewardBalance
	for i := range data.Balances {
		if data.Balances[i].Reward.ID == rewardID {
			selected = &data.Balances[i]
			break
		}
	}
	if selected == nil || data.Offer == nil {
		return
	}
	reward := *selected

	r := c.startLocked(true)
	c.publishLocked(views.Loading(views.HeaderFor(c.stack), "Calculating price..."))
	c.goAsync(func() {
		swap, err := c.orch.CalculateSwapAmount(c.base, reward.Reward.ContractAddress, data.Offer, data.VariantID)
		c.finish(r, func() {
			if err != nil {
				c.showErrorLocked(err, func() { c.SelectReward(rewardID) })
				return
			}
			if !c.orch.CanAffordOffer(reward, swap.AmountNeeded) {
				c.retry = c.PickAnotherReward
				c.publishLocked(views.Error(views.HeaderFor(c.stack), insufficientMessage(reward, swap.AmountNeeded),
					views.Action{Verb: views.ActionPickAnother, Label: "Pick another reward", Primary: true}))
				return
			}
			c.pushLocked(entities.ViewState{
				Type:  entities.ViewConfirm,
				Title: views.TitleConfirm,
				Data:  views.ConfirmData{Offer: data.Offer, VariantID: data.VariantID, Selected: reward, Swap: swap},
			})
			c.renderTopLocked()
		})
	})
}

// PickAnotherReward returns to the reward list
func (c *Controller) PickAnotherReward() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busyLocked() {
		return
	}
	idx := c.lastIndexLocked(entities.ViewRewardSelect)
	if idx < 0 {
		return
	}
	c.cancelRequestLocked()
	c.retry = nil
	c.stack = c.stack[:idx+1]
	c.renderTopLocked()
}

// Confirm runs the redemption. The processing screen has no cancel.
func (c *Controller) Confirm() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busyLocked() {
		return
	}
	top, ok := c.topLocked()
	if !ok || top.Type != entities.ViewConfirm {
		return
	}
	data, _ := top.Data.(views.ConfirmData)

	r := c.startLocked(false)
	c.publishLocked(views.Processing(views.HeaderFor(c.stack)))
	c.goAsync(func() {
		order, err := c.orch.Redeem(c.base, redemption.RedeemRequest{
			Selected:  data.Selected,
			Offer:     data.Offer,
			Swap:      data.Swap,
			VariantID: data.VariantID,
		})
		c.finish(r, func() {
			if err != nil {
				c.showErrorLocked(err, c.backToConfirm)
				return
			}
			if idx := c.lastIndexLocked(entities.ViewOfferDetail); idx >= 0 {
				c.stack = c.stack[:idx+1]
			}
			brand := ""
			if data.Offer != nil {
				brand = data.Offer.Brand.Name
			}
			c.complete = &views.CompleteData{Order: order, BrandName: brand}
			c.visible = true
			c.publishLocked(views.Complete(views.HeaderFor(c.stack), *c.complete))
		})
	})
}

func (c *Controller) backToConfirm() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.topIsLocked(entities.ViewConfirm) {
		c.renderTopLocked()
	}
}

// OpenCheckout fetches the checkout link for the redeemed coupon
func (c *Controller) OpenCheckout() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busyLocked() {
		return
	}
	if c.complete == nil {
		return
	}
	brandID, variantID := "", ""
	if idx := c.lastIndexLocked(entities.ViewOfferDetail); idx >= 0 {
		if data, ok := c.stack[idx].Data.(views.OfferDetailData); ok && data.Offer != nil {
			brandID = data.Offer.Brand.ID
			variantID = data.SelectedVariant()
		}
	}

	r := c.startLocked(true)
	c.publishLocked(views.Loading(views.HeaderFor(c.stack), "Opening checkout..."))
	c.goAsync(func() {
		url, err := c.orch.GetCheckoutURL(c.base, brandID, variantID)
		c.finish(r, func() {
			if c.complete == nil {
				return
			}
			done := *c.complete
			if err != nil {
				c.logger.Warn("Checkout link failed", zap.Error(err))
				done.Message = UserMessage(err)
			} else {
				done.CheckoutURL = url
				done.Message = ""
			}
			c.complete = &done
			c.publishLocked(views.Complete(views.HeaderFor(c.stack), done))
		})
	})
}

// continueAuthLocked runs once the wallet is signed in
func (c *Controller) continueAuthLocked() {
	if c.orch.Credentials().IsProtocolAuthenticated {
		c.loadRewardsLocked()
		return
	}
	c.onboardLocked()
}

func (c *Controller) showOTPVerifyLocked(message string) {
	email := c.orch.Email()
	c.pushAuthLocked(entities.ViewState{
		Type:  entities.ViewOTPVerify,
		Title: views.TitleVerifyEmail,
		Data:  views.OTPVerifyData{Email: email, Message: message},
	})
	c.renderTopLocked()
	if email != "" {
		c.sendOTPLocked(email)
	}
}

func (c *Controller) sendOTPLocked(email string) {
	r := c.startLocked(true)
	c.publishLocked(views.Loading(views.HeaderFor(c.stack), "Sending your code..."))
	c.goAsync(func() {
		err := c.orch.SendOTP(c.base, email)
		c.finish(r, func() {
			if err != nil {
				c.logger.Warn("Passcode send failed", zap.Error(err))
				c.updateOTPLocked(func(d *views.OTPVerifyData) {
					d.CodeSent = false
					d.Message = "We couldn't send a code. Please try again."
				})
				return
			}
			c.updateOTPLocked(func(d *views.OTPVerifyData) {
				d.Email = email
				d.CodeSent = true
				d.Message = ""
			})
			c.startPollLocked()
		})
	})
}

// startPollLocked checks the wallet login every interval until it succeeds,
// times out, or the otp view is left
func (c *Controller) startPollLocked() {
	c.stopPollLocked()
	ctx, cancel := context.WithCancel(c.base)
	c.pollCancel = cancel
	interval, timeout := c.cfg.OTPPollInterval, c.cfg.OTPPollTimeout
	c.goAsync(func() {
		deadline := time.NewTimer(timeout)
		defer deadline.Stop()
		for {
			tick := time.NewTimer(interval)
			select {
			case <-ctx.Done():
				tick.Stop()
				return
			case <-deadline.C:
				tick.Stop()
				c.pollDone(ctx, false)
				return
			case <-tick.C:
			}
			if c.orch.IsAuthenticated(ctx) {
				c.pollDone(ctx, true)
				return
			}
		}
	})
}

func (c *Controller) pollDone(ctx context.Context, authenticated bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ctx.Err() != nil || !c.topIsLocked(entities.ViewOTPVerify) {
		return
	}
	c.stopPollLocked()
	if !authenticated {
		c.updateOTPLocked(func(d *views.OTPVerifyData) { d.Message = "Your code expired. Send a new one to continue." })
		return
	}
	c.cancelRequestLocked()
	c.continueAuthLocked()
}

func (c *Controller) stopPollLocked() {
	if c.pollCancel != nil {
		c.pollCancel()
		c.pollCancel = nil
	}
}

// onboardLocked checks the wallet email and logs in to the reward protocol
func (c *Controller) onboardLocked() {
	c.pushAuthLocked(entities.ViewState{Type: entities.ViewOnboarding, Title: views.TitleOnboarding, Data: views.OnboardingData{}})
	c.renderTopLocked()

	// login may create a backend account; only leaving the view abandons it
	r := c.startLocked(false)
	c.goAsync(func() {
		err := c.orch.VerifyEmailBinding(c.base)
		if err == nil {
			err = c.orch.LoginToProtocol(c.base)
		}
		c.finish(r, func() {
			switch {
			case errors.Is(err, entities.ErrEmailMismatch):
				c.showOTPVerifyLocked(UserMessage(err))
			case err != nil:
				c.popAuthLocked()
				c.renderTopLocked()
				c.showErrorLocked(err, c.Claim)
			default:
				c.loadRewardsLocked()
			}
		})
	})
}

func (c *Controller) loadRewardsLocked() {
	detail, ok := c.detailLocked()
	if !ok {
		return
	}
	r := c.startLocked(true)
	c.publishLocked(views.Loading(views.HeaderFor(c.stack), "Loading your rewards..."))
	c.goAsync(func() {
		balances, err := c.orch.FetchBalances(c.base)
		c.finish(r, func() {
			c.popAuthLocked()
			if err != nil {
				c.renderTopLocked()
				c.showErrorLocked(err, c.Claim)
				return
			}
			c.pushLocked(entities.ViewState{
				Type:  entities.ViewRewardSelect,
				Title: views.TitleRewardSelect,
				Data:  views.RewardSelectData{Offer: detail.Offer, VariantID: detail.SelectedVariant(), Balances: balances},
			})
			c.renderTopLocked()
		})
	})
}

// pushAuthLocked replaces any sign in steps on top with state
func (c *Controller) pushAuthLocked(state entities.ViewState) {
	c.popAuthLocked()
	c.pushLocked(state)
}

func (c *Controller) popAuthLocked() {
	for len(c.stack) > 1 {
		t := c.stack[len(c.stack)-1].Type
		if t != entities.ViewOTPVerify && t != entities.ViewOnboarding {
			return
		}
		c.stack = c.stack[:len(c.stack)-1]
	}
	c.stopPollLocked()
}

func (c *Controller) updateOTPLocked(update func(d *views.OTPVerifyData)) {
	top, ok := c.topLocked()
	if !ok || top.Type != entities.ViewOTPVerify {
		return
	}
	data, _ := top.Data.(views.OTPVerifyData)
	update(&data)
	top.Data = data
	c.stack[len(c.stack)-1] = top
	c.renderTopLocked()
}

func (c *Controller) topIsLocked(t entities.ViewType) bool {
	top, ok := c.topLocked()
	return ok && top.Type == t
}

func (c *Controller) offerOnTopLocked() (views.OfferDetailData, bool) {
	top, ok := c.topLocked()
	if !ok || top.Type != entities.ViewOfferDetail {
		return views.OfferDetailData{}, false
	}
	data, ok := top.Data.(views.OfferDetailData)
	return data, ok && data.Offer != nil
}

// detailLocked returns the offer being redeemed
func (c *Controller) detailLocked() (views.OfferDetailData, bool) {
	idx := c.lastIndexLocked(entities.ViewOfferDetail)
	if idx < 0 {
		return views.OfferDetailData{}, false
	}
	data, ok := c.stack[idx].Data.(views.OfferDetailData)
	return data, ok && data.Offer != nil
}
