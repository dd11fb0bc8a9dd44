package entities

import (
	"strings"

	"github.com/shopspring/decimal"
)

type Brand struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Logo         string `json:"logo,omitempty"`
	Description  string `json:"description,omitempty"`
	Network      string `json:"network,omitempty"`
	WebsiteURL   string `json:"websiteUrl,omitempty"`
	CategoryID   string `json:"categoryId,omitempty"`
	OffersCount  int    `json:"offersCount,omitempty"`
	RewardSymbol string `json:"rewardSymbol,omitempty"`
}

type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Icon        string `json:"icon,omitempty"`
	BrandsCount int    `json:"brandsCount,omitempty"`
}

// OfferSummary is the card shown in offer grids
type OfferSummary struct {
	ID            string          `json:"id"`
	Code          string          `json:"code"`
	Title         string          `json:"title"`
	Image         string          `json:"image,omitempty"`
	BrandName     string          `json:"brandName,omitempty"`
	BrandLogo     string          `json:"brandLogo,omitempty"`
	DiscountValue decimal.Decimal `json:"discountValue"`
	DiscountType  string          `json:"discountType,omitempty"`
}

// BrandWithOffers is a brand entry in a category drill-down
type BrandWithOffers struct {
	Brand  Brand          `json:"brand"`
	Offers []OfferSummary `json:"offers"`
}

type RedemptionMethod struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

type OfferVariant struct {
	ID               string          `json:"id"`
	ProductVariantID string          `json:"productVariantId"`
	Title            string          `json:"title"`
	Price            decimal.Decimal `json:"price"`
}

// OfferDetail is the full offer as served by offers/{code}
type OfferDetail struct {
	ID               string           `json:"id"`
	Code             string           `json:"code"`
	Title            string           `json:"title"`
	Description      string           `json:"description"`
	Image            string           `json:"image,omitempty"`
	Terms            string           `json:"terms,omitempty"`
	DiscountValue    decimal.Decimal  `json:"discountValue"`
	DiscountType     string           `json:"discountType,omitempty"`
	Reward           Reward           `json:"reward"`
	RedemptionMethod RedemptionMethod `json:"redemptionMethod"`
	Brand            Brand            `json:"brand"`
	Variants         []OfferVariant   `json:"variants"`
}

// DefaultProductVariantID returns the first variant's product variant id, or ""
func (o *OfferDetail) DefaultProductVariantID() string {
	if o == nil || len(o.Variants) == 0 {
		return ""
	}
	return o.Variants[0].ProductVariantID
}

// Variant finds a variant by its id or product variant id
func (o *OfferDetail) Variant(id string) (OfferVariant, bool) {
	for _, v := range o.Variants {
		if v.ID == id || v.ProductVariantID == id {
			return v, true
		}
	}
	return OfferVariant{}, false
}

// IsHederaNetwork reports whether a brand network string names Hedera
func IsHederaNetwork(network string) bool {
	return strings.Contains(strings.ToLower(network), "hedera")
}
