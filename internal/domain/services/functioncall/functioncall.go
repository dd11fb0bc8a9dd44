// Package functioncall decodes the function calls the chat agent emits into
// typed requests and routes them to the detail panel.
package functioncall

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/meagent/meagent_service/internal/domain/entities"
	"github.com/meagent/meagent_service/pkg/validation"
	"go.uber.org/zap"
)

// Names the agent may call
const (
	NameShowOffers           = "show_offers"
	NameShowOfferDetail      = "show_offer_detail"
	NameShowBrands           = "show_brands"
	NameShowCategories       = "show_categories"
	NameShowBrandsWithOffers = "show_brands_with_offers"
	NameShowBrandOffers      = "show_brand_offers"
)

// Call is one decoded function call
type Call interface {
	Name() string
}

type ShowOffers struct {
	Offers    []entities.OfferSummary `json:"offers" validate:"dive"`
	SessionID string                  `json:"sessionId"`
}

type ShowOfferDetail struct {
	Code      string `json:"code" validate:"required,max=128"`
	SessionID string `json:"sessionId"`
}

type ShowBrands struct{}

type ShowCategories struct{}

type ShowBrandsWithOffers struct {
	CategoryID string `json:"categoryId" validate:"required,max=128"`
}

type ShowBrandOffers struct {
	BrandID string `json:"brandId" validate:"required,max=128"`
}

// Unknown is a call the widget has no screen for
type Unknown struct {
	FunctionName string
	Arguments    json.RawMessage
}

func (ShowOffers) Name() string           { return NameShowOffers }
func (ShowOfferDetail) Name() string      { return NameShowOfferDetail }
func (ShowBrands) Name() string           { return NameShowBrands }
func (ShowCategories) Name() string       { return NameShowCategories }
func (ShowBrandsWithOffers) Name() string { return NameShowBrandsWithOffers }
func (ShowBrandOffers) Name() string      { return NameShowBrandOffers }
func (u Unknown) Name() string            { return u.FunctionName }

var validate = validation.NewValidator()

// Decode parses args for the named function. Names match case-insensitively
// in snake or camel case; an unrecognized name decodes to Unknown.
func Decode(name string, args json.RawMessage) (Call, error) {
	switch normalize(name) {
	case normalize(NameShowOffers):
		var c ShowOffers
		return decodeInto(name, args, &c)
	case normalize(NameShowOfferDetail):
		var c ShowOfferDetail
		return decodeInto(name, args, &c)
	case normalize(NameShowBrands):
		return ShowBrands{}, nil
	case normalize(NameShowCategories):
		return ShowCategories{}, nil
	case normalize(NameShowBrandsWithOffers):
		var c ShowBrandsWithOffers
		return decodeInto(name, args, &c)
	case normalize(NameShowBrandOffers):
		var c ShowBrandOffers
		return decodeInto(name, args, &c)
	}
	return Unknown{FunctionName: name, Arguments: args}, nil
}

func decodeInto[T Call](name string, args json.RawMessage, out *T) (Call, error) {
	args = bytes.TrimSpace(args)
	if len(args) > 0 && !bytes.Equal(args, []byte("null")) {
		if err := json.Unmarshal(args, out); err != nil {
			return nil, fmt.Errorf("decode %s arguments: %w", name, err)
		}
	}
	if err := validate.Validate(out); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return *out, nil
}

func normalize(name string) string {
	return strings.ToLower(strings.NewReplacer("_", "", "-", "").Replace(strings.TrimSpace(name)))
}

// Target is the set of panel entry points a call can reach
type Target interface {
	ShowOfferGrid(offers []entities.OfferSummary, sessionID string)
	ShowOfferDetail(code, sessionID string)
	ShowBrandList()
	ShowCategoryGrid()
	ShowBrandsWithOffers(categoryID string)
	ShowBrandOffers(brandID string)
}

// Dispatch routes call to its entry point. Unknown calls are logged and
// ignored; the return value reports whether anything was shown.
func Dispatch(call Call, target Target, logger *zap.Logger) bool {
	switch c := call.(type) {
	case ShowOffers:
		target.ShowOfferGrid(c.Offers, c.SessionID)
	case ShowOfferDetail:
		target.ShowOfferDetail(c.Code, c.SessionID)
	case ShowBrands:
		target.ShowBrandList()
	case ShowCategories:
		target.ShowCategoryGrid()
	case ShowBrandsWithOffers:
		target.ShowBrandsWithOffers(c.CategoryID)
	case ShowBrandOffers:
		target.ShowBrandOffers(c.BrandID)
	default:
		logger.Info("Ignoring unknown function call", zap.String("name", call.Name()))
		return false
	}
	return true
}
