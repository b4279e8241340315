package quote

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecommend(t *testing.T) {
	notBuyable := Unavailable(ErrMsgNotBuyable, "")

	tests := []struct {
		name   string
		aladin ProviderQuote
		yes24  ProviderQuote
		want   Provider
	}{
		{"within tie band prefers aladin", Buyable(10000, ""), Buyable(10300, ""), ProviderAladin},
		{"exactly at tie band prefers aladin", Buyable(10000, ""), Buyable(10500, ""), ProviderAladin},
		{"yes24 clearly higher", Buyable(10000, ""), Buyable(11000, ""), ProviderYes24},
		{"aladin clearly higher", Buyable(12000, ""), Buyable(10000, ""), ProviderAladin},
		{"only yes24 buyable", notBuyable, Buyable(5000, ""), ProviderYes24},
		{"only aladin buyable", Buyable(700, ""), notBuyable, ProviderAladin},
		{"neither buyable", notBuyable, notBuyable, ProviderNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Recommend(tt.aladin, tt.yes24))
		})
	}
}

func TestRecommenderCustomBand(t *testing.T) {
	r := NewRecommender(2000)
	assert.Equal(t, ProviderAladin, r.Recommend(Buyable(10000, ""), Buyable(11900, "")))
	assert.Equal(t, ProviderYes24, r.Recommend(Buyable(10000, ""), Buyable(12001, "")))
	// A wider band only moves the threshold; aladin keeps the tie and a
	// clearly higher aladin offer still wins.
	assert.Equal(t, ProviderAladin, r.Recommend(Buyable(12000, ""), Buyable(10000, "")))
	assert.Equal(t, ProviderAladin, r.Recommend(Buyable(10000, ""), Buyable(12000, "")))
}

func TestRecommenderNonPositiveBandUsesDefault(t *testing.T) {
	for _, band := range []int64{0, -100} {
		r := NewRecommender(band)
		assert.Equal(t, ProviderAladin, r.Recommend(Buyable(10000, ""), Buyable(10500, "")))
		assert.Equal(t, ProviderYes24, r.Recommend(Buyable(10000, ""), Buyable(10501, "")))
	}
}

func TestFirstTitle(t *testing.T) {
	assert.Equal(t, "A", FirstTitle("A", "B"))
	assert.Equal(t, "B", FirstTitle("", "B"))
	assert.Equal(t, DefaultTitle, FirstTitle("", ""))
}

func TestNoResponseMessage(t *testing.T) {
	assert.Equal(t, "aladin lookup failed (no response)", NoResponseMessage("aladin"))
}
