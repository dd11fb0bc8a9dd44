package entities

// ViewType identifies a detail panel screen
type ViewType string

// Stackable views
const (
	ViewOfferGrid         ViewType = "offer-grid"
	ViewOfferDetail       ViewType = "offer-detail"
	ViewBrandList         ViewType = "brand-list"
	ViewCategoryGrid      ViewType = "category-grid"
	ViewBrandOffers       ViewType = "brand-offers"
	ViewSingleBrandOffers ViewType = "single-brand-offers"
	ViewOTPVerify         ViewType = "otp-verify"
	ViewOnboarding        ViewType = "onboarding"
	ViewRewardSelect      ViewType = "reward-select"
	ViewConfirm           ViewType = "confirm"
)

// Transient screens, rendered over the stack but never pushed
const (
	ViewHidden     ViewType = "hidden"
	ViewLoading    ViewType = "loading"
	ViewProcessing ViewType = "processing"
	ViewComplete   ViewType = "complete"
	ViewError      ViewType = "error"
)

// IsTransient reports whether a view type is never stored on the stack
func (t ViewType) IsTransient() bool {
	switch t {
	case ViewHidden, ViewLoading, ViewProcessing, ViewComplete, ViewError:
		return true
	}
	return false
}

// IsDynamic reports whether a view must be re-fetched when it becomes the top again
func (t ViewType) IsDynamic() bool {
	return t == ViewOfferDetail
}

// ViewState is one entry of the navigation stack
type ViewState struct {
	Type  ViewType `json:"type"`
	Title string   `json:"title"`
	Data  any      `json:"data,omitempty"`
}
