package functioncall

import (
	"encoding/json"
	"testing"

	"github.com/meagent/meagent_service/internal/domain/entities"
	"github.com/meagent/meagent_service/pkg/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockTarget struct {
	mock.Mock
}

func (m *MockTarget) ShowOfferGrid(offers []entities.OfferSummary, sessionID string) {
	m.Called(offers, sessionID)
}

func (m *MockTarget) ShowOfferDetail(code, sessionID string) {
	m.Called(code, sessionID)
}

func (m *MockTarget) ShowBrandList() {
	m.Called()
}

func (m *MockTarget) ShowCategoryGrid() {
	m.Called()
}

func (m *MockTarget) ShowBrandsWithOffers(categoryID string) {
	m.Called(categoryID)
}

func (m *MockTarget) ShowBrandOffers(brandID string) {
	m.Called(brandID)
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		fn   string
		args string
		want Call
	}{
		{
			name: "offer detail",
			fn:   "show_offer_detail",
			args: `{"code":"SAVE20","sessionId":"chat-1"}`,
			want: ShowOfferDetail{Code: "SAVE20", SessionID: "chat-1"},
		},
		{
			name: "camel case name",
			fn:   "showOfferDetail",
			args: `{"code":"SAVE20"}`,
			want: ShowOfferDetail{Code: "SAVE20"},
		},
		{
			name: "brands without arguments",
			fn:   "show_brands",
			want: ShowBrands{},
		},
		{
			name: "categories ignores arguments",
			fn:   "SHOW_CATEGORIES",
			args: `{"anything":true}`,
			want: ShowCategories{},
		},
		{
			name: "brands with offers",
			fn:   "show_brands_with_offers",
			args: `{"categoryId":"food"}`,
			want: ShowBrandsWithOffers{CategoryID: "food"},
		},
		{
			name: "brand offers",
			fn:   "show_brand_offers",
			args: `{"brandId":"b-1"}`,
			want: ShowBrandOffers{BrandID: "b-1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			call, err := Decode(tt.fn, json.RawMessage(tt.args))
			require.NoError(t, err)
			assert.Equal(t, tt.want, call)
		})
	}
}

func TestDecode_ShowOffers(t *testing.T) {
	args := `{"sessionId":"chat-9","offers":[{"id":"o-1","code":"SAVE20","title":"20% off","discountValue":"20","discountType":"percentage"}]}`

	call, err := Decode(NameShowOffers, json.RawMessage(args))
	require.NoError(t, err)

	offers, ok := call.(ShowOffers)
	require.True(t, ok)
	assert.Equal(t, "chat-9", offers.SessionID)
	require.Len(t, offers.Offers, 1)
	assert.Equal(t, "SAVE20", offers.Offers[0].Code)
	assert.Equal(t, "20", offers.Offers[0].DiscountValue.String())
}

func TestDecode_Unknown(t *testing.T) {
	call, err := Decode("book_flight", json.RawMessage(`{"to":"LIS"}`))
	require.NoError(t, err)

	unknown, ok := call.(Unknown)
	require.True(t, ok)
	assert.Equal(t, "book_flight", unknown.Name())
}

func TestDecode_Errors(t *testing.T) {
	t.Run("missing code", func(t *testing.T) {
		_, err := Decode(NameShowOfferDetail, json.RawMessage(`{}`))
		require.Error(t, err)
		assert.ErrorIs(t, err, validation.ErrValidation)
	})

	t.Run("missing category", func(t *testing.T) {
		_, err := Decode(NameShowBrandsWithOffers, nil)
		assert.ErrorIs(t, err, validation.ErrValidation)
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := Decode(NameShowOffers, json.RawMessage(`{"offers":`))
		require.Error(t, err)
		assert.NotErrorIs(t, err, validation.ErrValidation)
	})
}

func TestDispatch(t *testing.T) {
	logger := zap.NewNop()

	t.Run("routes each call", func(t *testing.T) {
		target := new(MockTarget)
		offers := []entities.OfferSummary{{Code: "SAVE20"}}
		target.On("ShowOfferGrid", offers, "chat-1").Once()
		target.On("ShowOfferDetail", "SAVE20", "chat-1").Once()
		target.On("ShowBrandList").Once()
		target.On("ShowCategoryGrid").Once()
		target.On("ShowBrandsWithOffers", "food").Once()
		target.On("ShowBrandOffers", "b-1").Once()

		assert.True(t, Dispatch(ShowOffers{Offers: offers, SessionID: "chat-1"}, target, logger))
		assert.True(t, Dispatch(ShowOfferDetail{Code: "SAVE20", SessionID: "chat-1"}, target, logger))
		assert.True(t, Dispatch(ShowBrands{}, target, logger))
		assert.True(t, Dispatch(ShowCategories{}, target, logger))
		assert.True(t, Dispatch(ShowBrandsWithOffers{CategoryID: "food"}, target, logger))
		assert.True(t, Dispatch(ShowBrandOffers{BrandID: "b-1"}, target, logger))

		target.AssertExpectations(t)
	})

	t.Run("unknown is a no-op", func(t *testing.T) {
		target := new(MockTarget)

		assert.False(t, Dispatch(Unknown{FunctionName: "book_flight"}, target, logger))

		target.AssertNotCalled(t, "ShowOfferGrid", mock.Anything, mock.Anything)
		target.AssertNotCalled(t, "ShowBrandList")
	})
}
