// Package navigation drives the detail panel: a stack of views, one cancelable
// request at a time, and the redemption wizard built on the orchestrator.
package navigation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/meagent/meagent_service/internal/domain/entities"
	"github.com/meagent/meagent_service/internal/domain/services/navigation/views"
	"github.com/meagent/meagent_service/internal/domain/services/redemption"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Orchestrator is the part of the redemption service the controller drives
type Orchestrator interface {
	Email() string
	IsAuthenticated(ctx context.Context) bool
	Credentials() entities.SessionCredentials
	SendOTP(ctx context.Context, email string) error
	VerifyOTP(ctx context.Context, code string) error
	VerifyEmailBinding(ctx context.Context) error
	LoginToProtocol(ctx context.Context) error
	FetchBalances(ctx context.Context) ([]entities.RewardBalance, error)
	CalculateSwapAmount(ctx context.Context, selectedRewardAddress string, offer *entities.OfferDetail, variantID string) (*entities.SwapAmountResult, error)
	CanAffordOffer(reward entities.RewardBalance, amountNeeded decimal.Decimal) bool
	Redeem(ctx context.Context, req redemption.RedeemRequest) (*entities.RedemptionOrder, error)
	GetCheckoutURL(ctx context.Context, brandID, productVariantID string) (string, error)
}

// Catalog serves the browse views
type Catalog interface {
	OfferDetail(ctx context.Context, code string) (*entities.OfferDetail, error)
	Brands(ctx context.Context) ([]entities.Brand, error)
	Categories(ctx context.Context) ([]entities.Category, error)
	BrandsWithOffers(ctx context.Context, categoryID string) ([]entities.BrandWithOffers, error)
	BrandOffers(ctx context.Context, brandID string) ([]entities.OfferSummary, error)
}

// Publisher receives every screen the controller renders. Publish must not block.
type Publisher interface {
	Publish(screen views.Screen)
}

type Config struct {
	OTPPollInterval time.Duration
	OTPPollTimeout  time.Duration
}

type request struct {
	id         uint64
	ctx        context.Context
	cancel     context.CancelFunc
	cancelable bool
}

// Controller is the detail panel state machine of one widget session. It is
// safe for concurrent use; async work re-enters through the mutex and is
// dropped when its request is no longer current.
type Controller struct {
	orch      Orchestrator
	catalog   Catalog
	publisher Publisher
	cfg       Config
	logger    *zap.Logger

	base context.Context
	stop context.CancelFunc

	mu         sync.Mutex
	visible    bool
	stack      []entities.ViewState
	current    *request
	seq        uint64
	screen     views.Screen
	retry      func()
	complete   *views.CompleteData
	pollCancel context.CancelFunc

	wg sync.WaitGroup
}

// NewController creates a hidden controller with an empty stack
func NewController(orch Orchestrator, catalog Catalog, publisher Publisher, cfg Config, logger *zap.Logger) *Controller {
	if cfg.OTPPollInterval <= 0 {
		cfg.OTPPollInterval = 2 * time.Second
	}
	if cfg.OTPPollTimeout <= 0 {
		cfg.OTPPollTimeout = 5 * time.Minute
	}
	base, stop := context.WithCancel(context.Background())
	return &Controller{
		orch:      orch,
		catalog:   catalog,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
		base:      base,
		stop:      stop,
		screen:    views.Hidden(),
	}
}

// Screen returns the last published screen
func (c *Controller) Screen() views.Screen {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.screen
}

// Depth returns the stack depth
func (c *Controller) Depth() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.stack)
}

// Stack returns a copy of the view stack, bottom first
func (c *Controller) Stack() []entities.ViewState {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]entities.ViewState, len(c.stack))
	copy(out, c.stack)
	return out
}

// Visible reports whether the panel is open
func (c *Controller) Visible() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.visible
}

// Wait blocks until all async work started so far has finished
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Close hides the panel, stops background work and waits for it
func (c *Controller) Close() {
	c.mu.Lock()
	c.cancelRequestLocked()
	c.stopPollLocked()
	c.mu.Unlock()
	c.stop()
	c.wg.Wait()
}

// Show opens the panel on the current top, or an empty offer grid
func (c *Controller) Show() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.visible = true
	if len(c.stack) == 0 {
		c.stack = []entities.ViewState{{Type: entities.ViewOfferGrid, Title: views.TitleOffers, Data: views.OfferGridData{}}}
	}
	c.restoreLocked()
}

// Hide cancels in-flight work, clears the stack and resets the header. A
// redemption in progress keeps running and reopens the panel when it completes.
func (c *Controller) Hide() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busyLocked() {
		c.visible = false
		c.publishLocked(views.Hidden())
		return
	}
	c.hideLocked()
}

func (c *Controller) hideLocked() {
	c.cancelRequestLocked()
	c.stopPollLocked()
	c.stack = nil
	c.visible = false
	c.retry = nil
	c.complete = nil
	c.publishLocked(views.Hidden())
}

// ShowOfferGrid resets the stack to a grid of offers the chat already returned
func (c *Controller) ShowOfferGrid(offers []entities.OfferSummary, sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busyLocked() {
		return
	}
	c.cancelRequestLocked()
	c.resetLocked(entities.ViewState{
		Type:  entities.ViewOfferGrid,
		Title: views.TitleOffers,
		Data:  views.OfferGridData{Offers: offers, SessionID: sessionID},
	})
	c.renderTopLocked()
}

// ShowOfferDetail fetches an offer and pushes its detail
func (c *Controller) ShowOfferDetail(code, sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busyLocked() {
		return
	}
	c.loadLocked("Loading offer...", func(ctx context.Context) (entities.ViewState, error) {
		return c.fetchOfferDetail(ctx, views.OfferDetailData{Code: code, SessionID: sessionID})
	}, c.pushLocked, func() { c.ShowOfferDetail(code, sessionID) })
}

// ShowBrandList resets the stack to all brands
func (c *Controller) ShowBrandList() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busyLocked() {
		return
	}
	c.loadLocked("Loading brands...", func(ctx context.Context) (entities.ViewState, error) {
		brands, err := c.catalog.Brands(ctx)
		if err != nil {
			return entities.ViewState{}, err
		}
		return entities.ViewState{Type: entities.ViewBrandList, Title: views.TitleBrands, Data: views.BrandListData{Brands: brands}}, nil
	}, c.resetLocked, c.ShowBrandList)
}

// ShowCategoryGrid resets the stack to all categories
func (c *Controller) ShowCategoryGrid() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busyLocked() {
		return
	}
	c.loadLocked("Loading categories...", func(ctx context.Context) (entities.ViewState, error) {
		categories, err := c.catalog.Categories(ctx)
		if err != nil {
			return entities.ViewState{}, err
		}
		return entities.ViewState{Type: entities.ViewCategoryGrid, Title: views.TitleCategories, Data: views.CategoryGridData{Categories: categories}}, nil
	}, c.resetLocked, c.ShowCategoryGrid)
}

// ShowBrandsWithOffers drills into a category
func (c *Controller) ShowBrandsWithOffers(categoryID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busyLocked() {
		return
	}
	title := views.TitleBrands
	if top, ok := c.topLocked(); ok {
		if data, ok := top.Data.(views.CategoryGridData); ok {
			for _, cat := range data.Categories {
				if cat.ID == categoryID && cat.Name != "" {
					title = cat.Name
				}
			}
		}
	}
	c.loadLocked("Loading brands...", func(ctx context.Context) (entities.ViewState, error) {
		brands, err := c.catalog.BrandsWithOffers(ctx, categoryID)
		if err != nil {
			return entities.ViewState{}, err
		}
		return entities.ViewState{Type: entities.ViewBrandOffers, Title: title, Data: views.BrandOffersData{CategoryID: categoryID, Brands: brands}}, nil
	}, c.pushLocked, func() { c.ShowBrandsWithOffers(categoryID) })
}

// ShowBrandOffers drills into one brand
func (c *Controller) ShowBrandOffers(brandID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busyLocked() {
		return
	}
	title := c.brandNameLocked(brandID)
	c.loadLocked("Loading offers...", func(ctx context.Context) (entities.ViewState, error) {
		offers, err := c.catalog.BrandOffers(ctx, brandID)
		if err != nil {
			return entities.ViewState{}, err
		}
		return entities.ViewState{Type: entities.ViewSingleBrandOffers, Title: title, Data: views.SingleBrandOffersData{BrandID: brandID, Offers: offers}}, nil
	}, c.pushLocked, func() { c.ShowBrandOffers(brandID) })
}

// SelectVariant changes the variant of the offer on screen
func (c *Controller) SelectVariant(variantID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busyLocked() {
		return
	}
	top, ok := c.topLocked()
	if !ok || top.Type != entities.ViewOfferDetail {
		return
	}
	data, ok := top.Data.(views.OfferDetailData)
	if !ok || data.Offer == nil {
		return
	}
	if _, found := data.Offer.Variant(variantID); !found {
		return
	}
	data.VariantID = variantID
	top.Data = data
	c.stack[len(c.stack)-1] = top
	c.renderTopLocked()
}

// GoBack pops one view. A no-op at depth one or less or while a redemption is
// processing. An offer detail that becomes the top again is re-fetched.
func (c *Controller) GoBack() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busyLocked() {
		c.restoreLocked()
		return
	}
	if c.complete != nil {
		c.cancelRequestLocked()
		c.complete = nil
		c.renderTopLocked()
		return
	}
	if len(c.stack) <= 1 {
		return
	}
	c.cancelRequestLocked()
	c.stopPollLocked()
	c.retry = nil
	c.stack = c.stack[:len(c.stack)-1]
	c.refreshTopLocked()
}

func (c *Controller) refreshTopLocked() {
	top, _ := c.topLocked()
	if !top.Type.IsDynamic() {
		c.renderTopLocked()
		return
	}
	data, _ := top.Data.(views.OfferDetailData)
	c.loadLocked("Loading offer...", func(ctx context.Context) (entities.ViewState, error) {
		return c.fetchOfferDetail(ctx, data)
	}, c.replaceTopLocked, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.refreshTopLocked()
	})
}

// Cancel aborts the in-flight request and restores the top view without popping.
// The processing step cannot be cancelled.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busyLocked() {
		c.restoreLocked()
		return
	}
	c.cancelRequestLocked()
	c.restoreLocked()
}

// Retry re-runs the step that failed last, or restores the top view
func (c *Controller) Retry() {
	c.mu.Lock()
	fn := c.retry
	c.retry = nil
	if fn == nil {
		c.restoreLocked()
	}
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (c *Controller) fetchOfferDetail(ctx context.Context, data views.OfferDetailData) (entities.ViewState, error) {
	offer, err := c.catalog.OfferDetail(ctx, data.Code)
	if err != nil {
		return entities.ViewState{}, err
	}
	if data.VariantID != "" {
		if _, ok := offer.Variant(data.VariantID); !ok {
			data.VariantID = ""
		}
	}
	data.Offer = offer
	title := offer.Title
	if title == "" {
		title = views.TitleOfferDetail
	}
	return entities.ViewState{Type: entities.ViewOfferDetail, Title: title, Data: data}, nil
}

// loadLocked runs fetch as the current request behind a loading screen and
// applies its view on success
func (c *Controller) loadLocked(message string, fetch func(ctx context.Context) (entities.ViewState, error), apply func(entities.ViewState), retry func()) {
	r := c.startLocked(true)
	c.visible = true
	c.publishLocked(views.Loading(views.HeaderFor(c.stack), message))
	c.goAsync(func() {
		state, err := fetch(r.ctx)
		c.finish(r, func() {
			if err != nil {
				c.showErrorLocked(err, retry)
				return
			}
			apply(state)
			c.renderTopLocked()
		})
	})
}

// startLocked cancels the current request and makes a new one current
func (c *Controller) startLocked(cancelable bool) *request {
	c.cancelRequestLocked()
	c.retry = nil
	ctx, cancel := context.WithCancel(c.base)
	c.seq++
	r := &request{id: c.seq, ctx: ctx, cancel: cancel, cancelable: cancelable}
	c.current = r
	return r
}

// busyLocked reports whether a request that must not be cancelled is in flight
func (c *Controller) busyLocked() bool {
	return c.current != nil && !c.current.cancelable
}

// finish applies fn only if r is still the current, uncancelled request
func (c *Controller) finish(r *request, fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != r || r.ctx.Err() != nil {
		c.logger.Debug("Dropping result of superseded request", zap.Uint64("request", r.id))
		return
	}
	c.current = nil
	r.cancel()
	fn()
}

func (c *Controller) cancelRequestLocked() {
	if c.current == nil {
		return
	}
	c.current.cancel()
	c.current = nil
}

func (c *Controller) goAsync(fn func()) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		fn()
	}()
}

func (c *Controller) resetLocked(state entities.ViewState) {
	if !c.stackableLocked(state) {
		return
	}
	c.stopPollLocked()
	c.complete = nil
	c.visible = true
	c.stack = []entities.ViewState{state}
}

func (c *Controller) pushLocked(state entities.ViewState) {
	if !c.stackableLocked(state) {
		return
	}
	c.stopPollLocked()
	c.complete = nil
	c.visible = true
	c.stack = append(c.stack, state)
}

func (c *Controller) replaceTopLocked(state entities.ViewState) {
	if !c.stackableLocked(state) {
		return
	}
	if len(c.stack) == 0 {
		c.pushLocked(state)
		return
	}
	c.stack[len(c.stack)-1] = state
}

// stackableLocked keeps transient screens off the stack
func (c *Controller) stackableLocked(state entities.ViewState) bool {
	if state.Type.IsTransient() {
		c.logger.Warn("Refusing to stack a transient view", zap.String("view", string(state.Type)))
		return false
	}
	return true
}

func (c *Controller) topLocked() (entities.ViewState, bool) {
	if len(c.stack) == 0 {
		return entities.ViewState{}, false
	}
	return c.stack[len(c.stack)-1], true
}

func (c *Controller) lastIndexLocked(t entities.ViewType) int {
	for i := len(c.stack) - 1; i >= 0; i-- {
		if c.stack[i].Type == t {
			return i
		}
	}
	return -1
}

func (c *Controller) brandNameLocked(brandID string) string {
	for i := len(c.stack) - 1; i >= 0; i-- {
		switch data := c.stack[i].Data.(type) {
		case views.BrandListData:
			for _, b := range data.Brands {
				if b.ID == brandID {
					return b.Name
				}
			}
		case views.BrandOffersData:
			for _, b := range data.Brands {
				if b.Brand.ID == brandID {
					return b.Brand.Name
				}
			}
		}
	}
	return views.TitleOffers
}

func (c *Controller) renderTopLocked() {
	top, ok := c.topLocked()
	if !ok {
		return
	}
	c.publishLocked(views.Render(top, views.HeaderFor(c.stack)))
}

// restoreLocked redraws whatever the running or finished redemption, or the stack, says is on screen
func (c *Controller) restoreLocked() {
	switch {
	case c.busyLocked():
		c.publishLocked(views.Processing(views.HeaderFor(c.stack)))
	case c.complete != nil:
		c.publishLocked(views.Complete(views.HeaderFor(c.stack), *c.complete))
	case len(c.stack) == 0:
		c.hideLocked()
	default:
		c.renderTopLocked()
	}
}

func (c *Controller) showErrorLocked(err error, retry func()) {
	c.logger.Warn("Detail panel step failed", zap.Error(err))
	c.retry = retry
	actions := []views.Action{{Verb: views.ActionDismiss, Label: "Back"}}
	if retry != nil {
		actions = append([]views.Action{{Verb: views.ActionRetry, Label: "Try again", Primary: true}}, actions...)
	}
	c.publishLocked(views.Error(views.HeaderFor(c.stack), UserMessage(err), actions...))
}

func (c *Controller) publishLocked(s views.Screen) {
	c.screen = s
	c.publisher.Publish(s)
}

// UserMessage turns an orchestrator or catalog error into text for the panel
func UserMessage(err error) string {
	switch {
	case errors.Is(err, entities.ErrProtocolTokenMissing), errors.Is(err, entities.ErrLoginFailed):
		return "We couldn't sign you in to rewards. Please try again."
	case errors.Is(err, entities.ErrWalletNotLoggedIn), errors.Is(err, entities.ErrWalletAddressUnavailable),
		errors.Is(err, entities.ErrWalletAddressNotCached):
		return "Your wallet isn't ready yet. Please sign in again."
	case errors.Is(err, entities.ErrWalletNotConfigured):
		return "Wallet sign in is not available right now."
	case errors.Is(err, entities.ErrEmailRequired):
		return "Enter your email to continue."
	case errors.Is(err, entities.ErrEmailMismatch):
		return "Your wallet is signed in with a different email. Please sign in again."
	case errors.Is(err, entities.ErrInvalidAmount):
		return "The redemption amount is invalid."
	case errors.Is(err, entities.ErrNoCurrentOrder):
		return "There is no redeemed coupon to check out."
	case errors.Is(err, context.DeadlineExceeded):
		return "The request timed out. Please try again."
	}
	return "Something went wrong. Please try again."
}

func insufficientMessage(selected entities.RewardBalance, needed decimal.Decimal) string {
	symbol := strings.TrimSpace(selected.Reward.Symbol)
	if symbol == "" {
		symbol = "rewards"
	}
	return fmt.Sprintf("Not enough %s: this offer needs %s and you have %s.",
		symbol, needed.StringFixed(2), selected.Balance.StringFixed(2))
}
