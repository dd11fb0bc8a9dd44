package views

import (
	"testing"

	"github.com/meagent/meagent_service/internal/domain/entities"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func verbs(s Screen) []string {
	out := make([]string, 0, len(s.Actions))
	for _, a := range s.Actions {
		out = append(out, a.Verb)
	}
	return out
}

func TestHeaderFor(t *testing.T) {
	assert.Equal(t, Header{}, HeaderFor(nil))

	grid := entities.ViewState{Type: entities.ViewOfferGrid, Title: TitleOffers}
	assert.Equal(t, Header{Title: TitleOffers}, HeaderFor([]entities.ViewState{grid}))

	detail := entities.ViewState{Type: entities.ViewOfferDetail, Title: "20% off shoes"}
	assert.Equal(t, Header{Title: "20% off shoes", ShowBack: true, BackLabel: TitleOffers},
		HeaderFor([]entities.ViewState{grid, detail}))
}

func TestRender_DispatchesOnData(t *testing.T) {
	tests := []struct {
		state entities.ViewState
		want  entities.ViewType
	}{
		{entities.ViewState{Type: entities.ViewOfferGrid, Data: OfferGridData{}}, entities.ViewOfferGrid},
		{entities.ViewState{Type: entities.ViewOfferDetail, Data: OfferDetailData{Offer: &entities.OfferDetail{}}}, entities.ViewOfferDetail},
		{entities.ViewState{Type: entities.ViewBrandList, Data: BrandListData{}}, entities.ViewBrandList},
		{entities.ViewState{Type: entities.ViewCategoryGrid, Data: CategoryGridData{}}, entities.ViewCategoryGrid},
		{entities.ViewState{Type: entities.ViewBrandOffers, Data: BrandOffersData{}}, entities.ViewBrandOffers},
		{entities.ViewState{Type: entities.ViewSingleBrandOffers, Data: SingleBrandOffersData{}}, entities.ViewSingleBrandOffers},
		{entities.ViewState{Type: entities.ViewOTPVerify, Data: OTPVerifyData{}}, entities.ViewOTPVerify},
		{entities.ViewState{Type: entities.ViewOnboarding, Data: OnboardingData{}}, entities.ViewOnboarding},
		{entities.ViewState{Type: entities.ViewRewardSelect, Data: RewardSelectData{}}, entities.ViewRewardSelect},
		{entities.ViewState{Type: entities.ViewConfirm, Data: ConfirmData{}}, entities.ViewConfirm},
	}
	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			s := Render(tt.state, Header{Title: "x"})
			assert.Equal(t, tt.want, s.Type)
			assert.NotEmpty(t, s.ID)
		})
	}
}

func TestBackActionFollowsHeader(t *testing.T) {
	flat := OfferGrid(Header{Title: TitleOffers}, OfferGridData{})
	assert.NotContains(t, verbs(flat), ActionGoBack)

	deep := OfferGrid(Header{Title: "Acme", ShowBack: true, BackLabel: TitleBrands}, OfferGridData{})
	require.Contains(t, verbs(deep), ActionGoBack)
	assert.Equal(t, TitleBrands, deep.Actions[0].Label)
}

func TestOfferDetail_MarksSelectedVariant(t *testing.T) {
	offer := &entities.OfferDetail{
		Title: "Shoes",
		Variants: []entities.OfferVariant{
			{ID: "v1", ProductVariantID: "pv-1", Title: "Small"},
			{ID: "v2", ProductVariantID: "pv-2", Title: "Large"},
		},
	}

	s := OfferDetail(Header{}, OfferDetailData{Offer: offer})
	body := s.Body.(OfferDetailBody)
	assert.True(t, body.Variants[0].Selected)
	assert.False(t, body.Variants[1].Selected)
	assert.Contains(t, verbs(s), ActionClaim)

	s = OfferDetail(Header{}, OfferDetailData{Offer: offer, VariantID: "pv-2"})
	body = s.Body.(OfferDetailBody)
	assert.False(t, body.Variants[0].Selected)
	assert.True(t, body.Variants[1].Selected)
}

func TestRewardList_SameBrandFirst(t *testing.T) {
	s := RewardList(Header{}, RewardSelectData{
		Offer: &entities.OfferDetail{Brand: entities.Brand{ID: "acme"}},
		Balances: []entities.RewardBalance{
			{Reward: entities.Reward{ID: "other", BrandID: "globex"}, Balance: decimal.NewFromInt(5)},
			{Reward: entities.Reward{ID: "mine", BrandID: "acme"}, Balance: decimal.NewFromInt(100)},
		},
	})
	body := s.Body.(RewardListBody)
	require.Len(t, body.Rewards, 2)
	assert.Equal(t, "mine", body.Rewards[0].RewardID)
	assert.True(t, body.Rewards[0].SameBrand)
	assert.Equal(t, map[string]string{"reward_id": "other"}, body.Rewards[1].Select.Params)
}

func TestReview(t *testing.T) {
	s := Review(Header{}, ConfirmData{
		Offer:    &entities.OfferDetail{Title: "Shoes", Brand: entities.Brand{ID: "acme", Name: "Acme"}},
		Selected: entities.RewardBalance{Reward: entities.Reward{BrandID: "globex"}, Balance: decimal.NewFromInt(100)},
		Swap:     &entities.SwapAmountResult{AmountNeeded: decimal.NewFromInt(60)},
	})
	body := s.Body.(ReviewBody)
	assert.True(t, body.CrossBrand)
	assert.True(t, body.RemainingBalance.Equal(decimal.NewFromInt(40)))
	assert.Contains(t, verbs(s), ActionConfirm)
}

func TestTransientScreens(t *testing.T) {
	assert.Equal(t, []string{ActionCancel}, verbs(Loading(Header{}, "Loading")))
	processing := Processing(Header{Title: "Confirm", ShowBack: true, BackLabel: "Rewards"})
	assert.Empty(t, processing.Actions)
	assert.False(t, processing.Header.ShowBack)
	assert.Equal(t, "Confirm", processing.Header.Title)

	complete := Complete(Header{}, CompleteData{Order: &entities.RedemptionOrder{Coupon: entities.Coupon{Code: "SAVE20"}}})
	assert.Equal(t, "SAVE20", complete.Body.(CompleteBody).CouponCode)
	assert.Contains(t, verbs(complete), ActionOpenCheckout)

	errScreen := Error(Header{}, "boom", Action{Verb: ActionRetry, Label: "Try again"})
	assert.Equal(t, entities.ViewError, errScreen.Type)
	assert.Equal(t, []string{ActionRetry}, verbs(errScreen))

	assert.Equal(t, entities.ViewHidden, Hidden().Type)
}

func TestDiscountLabel(t *testing.T) {
	assert.Equal(t, "20% off", DiscountLabel(decimal.NewFromInt(20), "PERCENTAGE"))
	assert.Equal(t, "$5.00 off", DiscountLabel(decimal.NewFromInt(5), "FIXED"))
	assert.Equal(t, "", DiscountLabel(decimal.Zero, "PERCENTAGE"))
}
