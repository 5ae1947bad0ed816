package matching

import (
	"testing"

	"outreach-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int { return &v }

func listingFixture(price int64, size float64) domain.Listing {
	return domain.Listing{
		ID:     uuid.New(),
		Status: domain.ListingAvailable,
		Price:  price,
		Size:   size,
	}
}

func profileFixture(maxPrice int64, minSize float64) domain.BuyerProfile {
	return domain.BuyerProfile{ID: uuid.New(), ClientID: uuid.New(), MaxPrice: maxPrice, MinSize: minSize}
}

func TestScore_EndToEndScenario(t *testing.T) {
	s := NewScorer()

	perfect := s.Score(listingFixture(300000, 80), profileFixture(300000, 75))
	assert.Equal(t, 100, perfect.Score)
	assert.False(t, perfect.Gated)

	tooExpensive := s.Score(listingFixture(335000, 80), profileFixture(300000, 75))
	assert.Equal(t, 0, tooExpensive.Score)
	assert.Equal(t, GateTooExpensive, tooExpensive.GateReason)

	tooSmall := s.Score(listingFixture(300000, 80), profileFixture(300000, 90))
	assert.Equal(t, 0, tooSmall.Score)
	assert.Equal(t, GateTooSmall, tooSmall.GateReason)
}

func TestScore_PriceToleranceBoundary(t *testing.T) {
	s := NewScorer()
	profile := profileFixture(10_000_000, 0)

	atLimit := s.Score(listingFixture(11_000_000, 0), profile)
	assert.False(t, atLimit.Gated)
	assert.Greater(t, atLimit.Score, 0)
	assert.Equal(t, 60, atLimit.Score)

	justOver := s.Score(listingFixture(11_000_001, 0), profile)
	assert.True(t, justOver.Gated)
	assert.Equal(t, 0, justOver.Score)
}

func TestScore_SizeToleranceBoundary(t *testing.T) {
	s := NewScorer()
	profile := profileFixture(0, 100)

	atLimit := s.Score(listingFixture(1, 90), profile)
	assert.False(t, atLimit.Gated)

	below := s.Score(listingFixture(1, 89.9), profile)
	assert.True(t, below.Gated)
	assert.Equal(t, GateTooSmall, below.GateReason)
}

func TestScore_SoftPenalties(t *testing.T) {
	s := NewScorer()

	tests := []struct {
		name    string
		listing domain.Listing
		profile domain.BuyerProfile
		want    int
	}{
		{"over budget by 5%", listingFixture(315000, 80), profileFixture(300000, 75), 80},
		{"over budget capped", listingFixture(329000, 80), profileFixture(300000, 75), 61},
		{"cheap at 75%", listingFixture(225000, 80), profileFixture(300000, 75), 96},
		{"very cheap capped", listingFixture(30000, 80), profileFixture(300000, 75), 85},
		{"exactly 1.5x size is not oversize", listingFixture(300000, 150), profileFixture(300000, 100), 100},
		{"oversize 1.6x", listingFixture(300000, 160), profileFixture(300000, 100), 82},
		{"oversize capped at 30", listingFixture(300000, 400), profileFixture(300000, 100), 70},
		{"oversize and over budget", listingFixture(330000, 400), profileFixture(300000, 100), 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Score(tt.listing, tt.profile)
			assert.False(t, got.Gated)
			assert.Equal(t, tt.want, got.Score)
			assert.NotEmpty(t, got.Reasoning)
		})
	}
}

func TestScore_StatusGate(t *testing.T) {
	l := listingFixture(300000, 80)
	l.Status = domain.ListingWithdrawn

	got := NewScorer().Score(l, profileFixture(300000, 75))
	assert.True(t, got.Gated)
	assert.Equal(t, GateNotAvailable, got.GateReason)
}

func TestScore_PolygonGate(t *testing.T) {
	s := NewScorer()
	profile := profileFixture(300000, 75)
	// открытый контур: замыкается автоматически
	profile.SearchPolygon = []domain.GeoPoint{
		{Lng: 9.10, Lat: 45.40}, {Lng: 9.30, Lat: 45.40}, {Lng: 9.30, Lat: 45.55}, {Lng: 9.10, Lat: 45.55},
	}

	inside := listingFixture(300000, 80)
	inside.Coordinates = &domain.Coordinates{Lat: 45.46, Lng: 9.19}
	assert.Equal(t, 100, s.Score(inside, profile).Score)

	outside := listingFixture(300000, 80)
	outside.Coordinates = &domain.Coordinates{Lat: 45.07, Lng: 7.68}
	got := s.Score(outside, profile)
	assert.True(t, got.Gated)
	assert.Equal(t, GateOutsideArea, got.GateReason)

	noCoords := s.Score(listingFixture(300000, 80), profile)
	assert.False(t, noCoords.Gated)
	assert.Equal(t, 100, noCoords.Score)
	assert.Contains(t, noCoords.Reasoning, "no coordinates")
}

func TestScore_UnknownSizeIsNotGated(t *testing.T) {
	got := NewScorer().Score(listingFixture(300000, 0), profileFixture(300000, 75))
	assert.False(t, got.Gated)
	assert.Equal(t, 100, got.Score)
}

func TestScore_MissingWantsOnlyInReasoning(t *testing.T) {
	profile := profileFixture(300000, 75)
	profile.Wants = domain.Features{Elevator: true, Garden: true}

	got := NewScorer().Score(listingFixture(300000, 80), profile)
	assert.Equal(t, 100, got.Score)
	assert.Contains(t, got.Reasoning, "elevator, garden")
}

func TestScoreByRooms(t *testing.T) {
	s := NewScorer()
	profile := profileFixture(300000, 75)
	profile.RoomsWanted = intPtr(3)

	l := listingFixture(300000, 80)
	l.Bedrooms = intPtr(1)
	assert.Equal(t, 90, s.ScoreByRooms(l, profile).Score)

	l.Bedrooms = intPtr(30)
	assert.Equal(t, 0, s.ScoreByRooms(l, profile).Score, "floored at zero")

	// статус и полигон в этом варианте не проверяются
	l.Bedrooms = intPtr(3)
	l.Status = domain.ListingWithdrawn
	assert.Equal(t, 100, s.ScoreByRooms(l, profile).Score)

	expensive := listingFixture(400000, 80)
	expensive.Bedrooms = intPtr(3)
	got := s.ScoreByRooms(expensive, profile)
	assert.True(t, got.Gated)
	assert.Equal(t, 0, got.Score)
}
