package views

import (
	"fmt"

	"github.com/meagent/meagent_service/internal/domain/entities"
	"github.com/shopspring/decimal"
)

// Render draws a stack entry. Unknown data renders as an empty body.
func Render(state entities.ViewState, header Header) Screen {
	switch data := state.Data.(type) {
	case OfferGridData:
		return OfferGrid(header, data)
	case OfferDetailData:
		return OfferDetail(header, data)
	case BrandListData:
		return BrandList(header, data)
	case CategoryGridData:
		return CategoryGrid(header, data)
	case BrandOffersData:
		return BrandOffers(header, data)
	case SingleBrandOffersData:
		return SingleBrandOffers(header, data)
	case OTPVerifyData:
		return OTPVerify(header, data)
	case OnboardingData:
		return Onboarding(header, data)
	case RewardSelectData:
		return RewardList(header, data)
	case ConfirmData:
		return Review(header, data)
	}
	return newScreen(state.Type, header, nil, backAction(header)...)
}

type OfferCard struct {
	ID            string          `json:"id"`
	Code          string          `json:"code"`
	Title         string          `json:"title"`
	Image         string          `json:"image,omitempty"`
	BrandName     string          `json:"brandName,omitempty"`
	BrandLogo     string          `json:"brandLogo,omitempty"`
	DiscountLabel string          `json:"discountLabel"`
	DiscountValue decimal.Decimal `json:"discountValue"`
	Open          Action          `json:"open"`
}

type OfferGridBody struct {
	Offers []OfferCard `json:"offers"`
	Empty  bool        `json:"empty"`
}

func OfferGrid(h Header, d OfferGridData) Screen {
	return newScreen(entities.ViewOfferGrid, h, OfferGridBody{
		Offers: offerCards(d.Offers),
		Empty:  len(d.Offers) == 0,
	}, backAction(h)...)
}

type VariantOption struct {
	ID               string          `json:"id"`
	ProductVariantID string          `json:"productVariantId"`
	Title            string          `json:"title"`
	Price            decimal.Decimal `json:"price"`
	Selected         bool            `json:"selected"`
	Select           Action          `json:"select"`
}

type OfferDetailBody struct {
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	Image         string          `json:"image,omitempty"`
	Terms         string          `json:"terms,omitempty"`
	BrandName     string          `json:"brandName"`
	BrandLogo     string          `json:"brandLogo,omitempty"`
	DiscountLabel string          `json:"discountLabel"`
	RewardSymbol  string          `json:"rewardSymbol"`
	Variants      []VariantOption `json:"variants,omitempty"`
}

func OfferDetail(h Header, d OfferDetailData) Screen {
	if d.Offer == nil {
		return newScreen(entities.ViewOfferDetail, h, nil, backAction(h)...)
	}
	o := d.Offer
	selected := d.SelectedVariant()
	variants := make([]VariantOption, 0, len(o.Variants))
	for _, v := range o.Variants {
		variants = append(variants, VariantOption{
			ID:               v.ID,
			ProductVariantID: v.ProductVariantID,
			Title:            v.Title,
			Price:            v.Price,
			Selected:         v.ProductVariantID == selected || v.ID == selected,
			Select:           Action{Verb: ActionSelectVariant, Label: v.Title, Params: map[string]string{"variant_id": v.ProductVariantID}},
		})
	}

	actions := append(backAction(h), Action{Verb: ActionClaim, Label: "Claim Offer", Primary: true})
	return newScreen(entities.ViewOfferDetail, h, OfferDetailBody{
		Title:         o.Title,
		Description:   o.Description,
		Image:         o.Image,
		Terms:         o.Terms,
		BrandName:     o.Brand.Name,
		BrandLogo:     o.Brand.Logo,
		DiscountLabel: DiscountLabel(o.DiscountValue, o.DiscountType),
		RewardSymbol:  o.Reward.Symbol,
		Variants:      variants,
	}, actions...)
}

type BrandCard struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Logo        string `json:"logo,omitempty"`
	OffersCount int    `json:"offersCount"`
	Open        Action `json:"open"`
}

type BrandListBody struct {
	Brands []BrandCard `json:"brands"`
}

func BrandList(h Header, d BrandListData) Screen {
	cards := make([]BrandCard, 0, len(d.Brands))
	for _, b := range d.Brands {
		cards = append(cards, brandCard(b))
	}
	return newScreen(entities.ViewBrandList, h, BrandListBody{Brands: cards}, backAction(h)...)
}

type CategoryTile struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Icon        string `json:"icon,omitempty"`
	BrandsCount int    `json:"brandsCount"`
	Open        Action `json:"open"`
}

type CategoryGridBody struct {
	Categories []CategoryTile `json:"categories"`
}

func CategoryGrid(h Header, d CategoryGridData) Screen {
	tiles := make([]CategoryTile, 0, len(d.Categories))
	for _, c := range d.Categories {
		tiles = append(tiles, CategoryTile{
			ID:          c.ID,
			Name:        c.Name,
			Icon:        c.Icon,
			BrandsCount: c.BrandsCount,
			Open:        Action{Verb: ActionOpenCategory, Label: c.Name, Params: map[string]string{"category_id": c.ID}},
		})
	}
	return newScreen(entities.ViewCategoryGrid, h, CategoryGridBody{Categories: tiles}, backAction(h)...)
}

type BrandSection struct {
	Brand  BrandCard   `json:"brand"`
	Offers []OfferCard `json:"offers"`
}

type BrandOffersBody struct {
	Sections []BrandSection `json:"sections"`
}

func BrandOffers(h Header, d BrandOffersData) Screen {
	sections := make([]BrandSection, 0, len(d.Brands))
	for _, b := range d.Brands {
		sections = append(sections, BrandSection{Brand: brandCard(b.Brand), Offers: offerCards(b.Offers)})
	}
	return newScreen(entities.ViewBrandOffers, h, BrandOffersBody{Sections: sections}, backAction(h)...)
}

func SingleBrandOffers(h Header, d SingleBrandOffersData) Screen {
	return newScreen(entities.ViewSingleBrandOffers, h, OfferGridBody{
		Offers: offerCards(d.Offers),
		Empty:  len(d.Offers) == 0,
	}, backAction(h)...)
}

type OTPVerifyBody struct {
	Email    string `json:"email,omitempty"`
	CodeSent bool   `json:"codeSent"`
	Message  string `json:"message,omitempty"`
}

func OTPVerify(h Header, d OTPVerifyData) Screen {
	actions := backAction(h)
	if d.CodeSent {
		actions = append(actions,
			Action{Verb: ActionSubmitOTP, Label: "Verify", Primary: true},
			Action{Verb: ActionResendOTP, Label: "Resend code"})
	} else {
		actions = append(actions, Action{Verb: ActionSubmitEmail, Label: "Send code", Primary: true})
	}
	return newScreen(entities.ViewOTPVerify, h, OTPVerifyBody(d), actions...)
}

type OnboardingBody struct {
	Message string `json:"message"`
}

func Onboarding(h Header, d OnboardingData) Screen {
	msg := d.Message
	if msg == "" {
		msg = "Connecting your wallet to rewards..."
	}
	return newScreen(entities.ViewOnboarding, h, OnboardingBody{Message: msg}, backAction(h)...)
}

type RewardOption struct {
	RewardID  string          `json:"rewardId"`
	Name      string          `json:"name"`
	Symbol    string          `json:"symbol"`
	Image     string          `json:"image,omitempty"`
	Balance   decimal.Decimal `json:"balance"`
	SameBrand bool            `json:"sameBrand"`
	Select    Action          `json:"select"`
}

type RewardListBody struct {
	OfferTitle string         `json:"offerTitle"`
	Rewards    []RewardOption `json:"rewards"`
	Empty      bool           `json:"empty"`
}

// RewardList lists the wallet's rewards, same-brand rewards first
func RewardList(h Header, d RewardSelectData) Screen {
	brandID, title := "", ""
	if d.Offer != nil {
		brandID, title = d.Offer.Brand.ID, d.Offer.Title
	}
	var same, other []RewardOption
	for _, b := range d.Balances {
		opt := RewardOption{
			RewardID:  b.Reward.ID,
			Name:      b.Reward.Name,
			Symbol:    b.Reward.Symbol,
			Image:     b.Reward.Image,
			Balance:   b.Balance,
			SameBrand: b.Reward.BrandID == brandID,
			Select:    Action{Verb: ActionSelectReward, Label: b.Reward.Name, Params: map[string]string{"reward_id": b.Reward.ID}},
		}
		if opt.SameBrand {
			same = append(same, opt)
		} else {
			other = append(other, opt)
		}
	}
	options := append(same, other...)
	return newScreen(entities.ViewRewardSelect, h, RewardListBody{
		OfferTitle: title,
		Rewards:    options,
		Empty:      len(options) == 0,
	}, backAction(h)...)
}

type ReviewBody struct {
	OfferTitle       string          `json:"offerTitle"`
	BrandName        string          `json:"brandName"`
	RewardName       string          `json:"rewardName"`
	RewardSymbol     string          `json:"rewardSymbol"`
	AmountNeeded     decimal.Decimal `json:"amountNeeded"`
	Balance          decimal.Decimal `json:"balance"`
	RemainingBalance decimal.Decimal `json:"remainingBalance"`
	USDDiscount      decimal.Decimal `json:"usdDiscount"`
	CrossBrand       bool            `json:"crossBrand"`
}

// Review is the confirm step
func Review(h Header, d ConfirmData) Screen {
	body := ReviewBody{
		RewardName:   d.Selected.Reward.Name,
		RewardSymbol: d.Selected.Reward.Symbol,
		Balance:      d.Selected.Balance,
	}
	if d.Offer != nil {
		body.OfferTitle = d.Offer.Title
		body.BrandName = d.Offer.Brand.Name
		body.CrossBrand = d.Selected.Reward.BrandID != d.Offer.Brand.ID
	}
	if d.Swap != nil {
		body.AmountNeeded = d.Swap.AmountNeeded
		body.USDDiscount = d.Swap.USDDiscount
		body.RemainingBalance = d.Selected.Balance.Sub(d.Swap.AmountNeeded)
	}
	actions := append(backAction(h), Action{Verb: ActionConfirm, Label: "Confirm", Primary: true})
	return newScreen(entities.ViewConfirm, h, body, actions...)
}

type StatusBody struct {
	Message string `json:"message"`
}

// Loading always offers cancel
func Loading(h Header, message string) Screen {
	return newScreen(entities.ViewLoading, h, StatusBody{Message: message},
		Action{Verb: ActionCancel, Label: "Cancel"})
}

// Processing has no back or cancel action
func Processing(h Header) Screen {
	h.ShowBack = false
	h.BackLabel = ""
	return newScreen(entities.ViewProcessing, h, StatusBody{Message: "Processing your redemption..."})
}

type CompleteBody struct {
	CouponCode    string          `json:"couponCode"`
	DiscountValue decimal.Decimal `json:"discountValue"`
	OrderCode     string          `json:"orderCode,omitempty"`
	BrandName     string          `json:"brandName,omitempty"`
	CheckoutURL   string          `json:"checkoutUrl,omitempty"`
	Message       string          `json:"message,omitempty"`
}

func Complete(h Header, d CompleteData) Screen {
	body := CompleteBody{BrandName: d.BrandName, CheckoutURL: d.CheckoutURL, Message: d.Message}
	if d.Order != nil {
		body.CouponCode = d.Order.Coupon.Code
		body.DiscountValue = d.Order.Coupon.DiscountValue
		body.OrderCode = d.Order.OrderCode
	}
	return newScreen(entities.ViewComplete, h, body,
		Action{Verb: ActionOpenCheckout, Label: "Shop now", Primary: true},
		Action{Verb: ActionClose, Label: "Done"})
}

type ErrorBody struct {
	Message string `json:"message"`
}

// Error renders message with the given recovery actions
func Error(h Header, message string, actions ...Action) Screen {
	return newScreen(entities.ViewError, h, ErrorBody{Message: message}, actions...)
}

// Hidden is published when the panel closes
func Hidden() Screen {
	return newScreen(entities.ViewHidden, Header{}, nil)
}

// DiscountLabel formats a discount as "20% off" or "$5 off"
func DiscountLabel(value decimal.Decimal, kind string) string {
	if value.IsZero() {
		return ""
	}
	switch kind {
	case "PERCENTAGE", "percentage", "percent":
		return fmt.Sprintf("%s%% off", value.String())
	default:
		return fmt.Sprintf("$%s off", value.StringFixed(2))
	}
}

func offerCards(offers []entities.OfferSummary) []OfferCard {
	cards := make([]OfferCard, 0, len(offers))
	for _, o := range offers {
		cards = append(cards, OfferCard{
			ID:            o.ID,
			Code:          o.Code,
			Title:         o.Title,
			Image:         o.Image,
			BrandName:     o.BrandName,
			BrandLogo:     o.BrandLogo,
			DiscountLabel: DiscountLabel(o.DiscountValue, o.DiscountType),
			DiscountValue: o.DiscountValue,
			Open:          Action{Verb: ActionOpenOffer, Label: o.Title, Params: map[string]string{"code": o.Code}},
		})
	}
	return cards
}

func brandCard(b entities.Brand) BrandCard {
	return BrandCard{
		ID:          b.ID,
		Name:        b.Name,
		Logo:        b.Logo,
		OffersCount: b.OffersCount,
		Open:        Action{Verb: ActionOpenBrand, Label: b.Name, Params: map[string]string{"brand_id": b.ID}},
	}
}
