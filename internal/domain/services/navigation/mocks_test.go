package navigation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/meagent/meagent_service/internal/domain/entities"
	"github.com/meagent/meagent_service/internal/domain/services/navigation/views"
	"github.com/meagent/meagent_service/internal/domain/services/redemption"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

type MockOrchestrator struct {
	mock.Mock
}

func (m *MockOrchestrator) Email() string {
	return m.Called().String(0)
}

func (m *MockOrchestrator) IsAuthenticated(ctx context.Context) bool {
	return m.Called(ctx).Bool(0)
}

func (m *MockOrchestrator) Credentials() entities.SessionCredentials {
	return m.Called().Get(0).(entities.SessionCredentials)
}

func (m *MockOrchestrator) SendOTP(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func (m *MockOrchestrator) VerifyOTP(ctx context.Context, code string) error {
	return m.Called(ctx, code).Error(0)
}

func (m *MockOrchestrator) VerifyEmailBinding(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockOrchestrator) LoginToProtocol(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockOrchestrator) FetchBalances(ctx context.Context) ([]entities.RewardBalance, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.RewardBalance), args.Error(1)
}

func (m *MockOrchestrator) CalculateSwapAmount(ctx context.Context, selectedRewardAddress string, offer *entities.OfferDetail, variantID string) (*entities.SwapAmountResult, error) {
	args := m.Called(ctx, selectedRewardAddress, offer, variantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.SwapAmountResult), args.Error(1)
}

// CanAffordOffer is pure, so the mock keeps the real comparison
func (m *MockOrchestrator) CanAffordOffer(reward entities.RewardBalance, amountNeeded decimal.Decimal) bool {
	return reward.Balance.GreaterThanOrEqual(amountNeeded)
}

func (m *MockOrchestrator) Redeem(ctx context.Context, req redemption.RedeemRequest) (*entities.RedemptionOrder, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.RedemptionOrder), args.Error(1)
}

func (m *MockOrchestrator) GetCheckoutURL(ctx context.Context, brandID, productVariantID string) (string, error) {
	args := m.Called(ctx, brandID, productVariantID)
	return args.String(0), args.Error(1)
}

type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) OfferDetail(ctx context.Context, code string) (*entities.OfferDetail, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.OfferDetail), args.Error(1)
}

func (m *MockCatalog) Brands(ctx context.Context) ([]entities.Brand, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.Brand), args.Error(1)
}

func (m *MockCatalog) Categories(ctx context.Context) ([]entities.Category, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.Category), args.Error(1)
}

func (m *MockCatalog) BrandsWithOffers(ctx context.Context, categoryID string) ([]entities.BrandWithOffers, error) {
	args := m.Called(ctx, categoryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.BrandWithOffers), args.Error(1)
}

func (m *MockCatalog) BrandOffers(ctx context.Context, brandID string) ([]entities.OfferSummary, error) {
	args := m.Called(ctx, brandID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.OfferSummary), args.Error(1)
}

type recordingPublisher struct {
	mu      sync.Mutex
	screens []views.Screen
}

func (p *recordingPublisher) Publish(s views.Screen) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.screens = append(p.screens, s)
}

func (p *recordingPublisher) All() []views.Screen {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]views.Screen, len(p.screens))
	copy(out, p.screens)
	return out
}

func (p *recordingPublisher) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.screens)
}

type harness struct {
	ctrl    *Controller
	orch    *MockOrchestrator
	catalog *MockCatalog
	pub     *recordingPublisher
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		orch:    new(MockOrchestrator),
		catalog: new(MockCatalog),
		pub:     &recordingPublisher{},
	}
	h.ctrl = NewController(h.orch, h.catalog, h.pub, Config{
		OTPPollInterval: 5 * time.Millisecond,
		OTPPollTimeout:  time.Second,
	}, zap.NewNop())
	t.Cleanup(h.ctrl.Close)
	return h
}

func (h *harness) screenType() entities.ViewType {
	return h.ctrl.Screen().Type
}

func hasVerb(s views.Screen, verb string) bool {
	for _, a := range s.Actions {
		if a.Verb == verb {
			return true
		}
	}
	return false
}

var (
	gridOffers = []entities.OfferSummary{{ID: "o1", Code: "SAVE", Title: "Save on shoes"}}
	shoesOffer = &entities.OfferDetail{
		ID:               "offer-1",
		Code:             "SAVE",
		Title:            "Save on shoes",
		Reward:           entities.Reward{ContractAddress: "0xacme", Symbol: "ACME"},
		RedemptionMethod: entities.RedemptionMethod{ID: "rm-1"},
		Brand:            entities.Brand{ID: "acme", Name: "Acme"},
		Variants:         []entities.OfferVariant{{ID: "v1", ProductVariantID: "pv-1", Title: "Small"}},
	}
	acmeBalance = entities.RewardBalance{
		Reward:  entities.Reward{ID: "reward-acme", ContractAddress: "0xacme", BrandID: "acme", Symbol: "XYZ"},
		Balance: decimal.NewFromInt(100),
	}
)

// openDetail leaves the controller on [grid, detail]
func (h *harness) openDetail(t *testing.T) {
	t.Helper()
	h.catalog.On("OfferDetail", mock.Anything, "SAVE").Return(shoesOffer, nil)
	h.ctrl.ShowOfferGrid(gridOffers, "sid")
	h.ctrl.ShowOfferDetail("SAVE", "sid")
	h.ctrl.Wait()
}
