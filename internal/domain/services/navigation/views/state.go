package views

import "github.com/meagent/meagent_service/internal/domain/entities"

// Data carried by each stack entry. ViewState.Data holds one of these by value.

type OfferGridData struct {
	Offers    []entities.OfferSummary
	SessionID string
}

// OfferDetailData keeps the code so the detail can be re-fetched when it becomes the top again
type OfferDetailData struct {
	Code      string
	SessionID string
	Offer     *entities.OfferDetail
	VariantID string
}

// SelectedVariant returns the explicit variant, else the offer's default
func (d OfferDetailData) SelectedVariant() string {
	if d.VariantID != "" {
		return d.VariantID
	}
	return d.Offer.DefaultProductVariantID()
}

type BrandListData struct {
	Brands []entities.Brand
}

type CategoryGridData struct {
	Categories []entities.Category
}

type BrandOffersData struct {
	CategoryID string
	Brands     []entities.BrandWithOffers
}

type SingleBrandOffersData struct {
	BrandID string
	Offers  []entities.OfferSummary
}

type OTPVerifyData struct {
	Email    string
	CodeSent bool
	Message  string
}

type OnboardingData struct {
	Message string
}

type RewardSelectData struct {
	Offer     *entities.OfferDetail
	VariantID string
	Balances  []entities.RewardBalance
}

// ConfirmData is everything the confirm step needs to run a redemption
type ConfirmData struct {
	Offer     *entities.OfferDetail
	VariantID string
	Selected  entities.RewardBalance
	Swap      *entities.SwapAmountResult
}

// CompleteData describes a finished redemption
type CompleteData struct {
	Order       *entities.RedemptionOrder
	BrandName   string
	CheckoutURL string
	Message     string
}
