// Package matching оценивает объекты по поисковым профилям покупателей.
package matching

import (
	"fmt"
	"math"
	"strings"

	"outreach-service/internal/core/domain"
	"outreach-service/internal/core/geo"
)

const (
	maxScore = 100

	oversizeFactor     = 1.5
	oversizeMaxPenalty = 30.0

	overPriceSlope      = 400.0
	overPriceMaxPenalty = 40.0

	cheapRatio       = 0.8
	cheapSlope       = 75.0
	cheapMaxPenalty  = 15.0
	roomDeltaPenalty = 5
)

// Gate reasons
const (
	GateNotAvailable = "not_available"
	GateTooSmall     = "too_small"
	GateTooExpensive = "too_expensive"
	GateOutsideArea  = "outside_search_area"
)

type Scorer struct{}

func NewScorer() *Scorer {
	return &Scorer{}
}

// Score - полная оценка: жёсткие фильтры, затем штрафы от 100
func (s *Scorer) Score(listing domain.Listing, profile domain.BuyerProfile) domain.MatchCandidate {
	candidate := domain.MatchCandidate{ListingID: listing.ID, ClientID: profile.ClientID}
	var reasons []string

	if listing.Status != domain.ListingAvailable {
		return gated(candidate, GateNotAvailable, fmt.Sprintf("listing status is %s", listing.Status))
	}
	if gate, reason := sizePriceGate(listing, profile); gate != "" {
		return gated(candidate, gate, reason)
	}
	if gate, reason, note := polygonGate(listing, profile); gate != "" {
		return gated(candidate, gate, reason)
	} else if note != "" {
		reasons = append(reasons, note)
	}

	score := float64(maxScore)

	if profile.MinSize > 0 && listing.Size > oversizeFactor*profile.MinSize {
		penalty := math.Min(oversizeMaxPenalty, oversizeMaxPenalty*(listing.Size-profile.MinSize)/profile.MinSize)
		score -= penalty
		reasons = append(reasons, fmt.Sprintf("oversize %.0f m² vs min %.0f m² (-%.1f)", listing.Size, profile.MinSize, penalty))
	}

	if profile.MaxPrice > 0 {
		r := float64(listing.Price) / float64(profile.MaxPrice)
		switch {
		case r > 1:
			penalty := math.Min(overPriceMaxPenalty, overPriceSlope*(r-1))
			score -= penalty
			reasons = append(reasons, fmt.Sprintf("price %.1f%% over budget (-%.1f)", (r-1)*100, penalty))
		case r < cheapRatio:
			penalty := math.Min(cheapMaxPenalty, cheapSlope*(cheapRatio-r))
			score -= penalty
			reasons = append(reasons, fmt.Sprintf("price %.0f%% of budget, suspiciously cheap (-%.1f)", r*100, penalty))
		}
	}

	if missing := missingWants(listing.Features, profile.Wants); len(missing) > 0 {
		reasons = append(reasons, "missing wanted features: "+strings.Join(missing, ", "))
	}

	candidate.Score = clamp(int(math.Round(score)))
	if len(reasons) == 0 {
		reasons = append(reasons, "all criteria met")
	}
	candidate.Reasoning = strings.Join(reasons, "; ")
	return candidate
}

// ScoreByRooms - упрощённая оценка по числу комнат: без фильтров статуса
// и области поиска, но с теми же фильтрами по цене и площади.
func (s *Scorer) ScoreByRooms(listing domain.Listing, profile domain.BuyerProfile) domain.MatchCandidate {
	candidate := domain.MatchCandidate{ListingID: listing.ID, ClientID: profile.ClientID}

	if gate, reason := sizePriceGate(listing, profile); gate != "" {
		return gated(candidate, gate, reason)
	}

	score := maxScore
	reason := "rooms not compared"
	if profile.RoomsWanted != nil && listing.Bedrooms != nil {
		delta := *profile.RoomsWanted - *listing.Bedrooms
		if delta < 0 {
			delta = -delta
		}
		score -= roomDeltaPenalty * delta
		reason = fmt.Sprintf("rooms %d vs wanted %d", *listing.Bedrooms, *profile.RoomsWanted)
	}

	candidate.Score = clamp(score)
	candidate.Reasoning = reason
	return candidate
}

// sizePriceGate сравнивает в целых/десятичных множителях, чтобы границы
// 0.9 и 1.1 вычислялись точно: size*10 < minSize*9, price*10 > maxPrice*11.
// Неизвестная площадь (0) и нулевой бюджет ограничений не накладывают.
func sizePriceGate(listing domain.Listing, profile domain.BuyerProfile) (string, string) {
	if profile.MinSize > 0 && listing.Size > 0 && listing.Size*10 < profile.MinSize*9 {
		return GateTooSmall, fmt.Sprintf("size %.1f m² below 90%% of min %.1f m²", listing.Size, profile.MinSize)
	}
	if profile.MaxPrice > 0 && listing.Price*10 > profile.MaxPrice*11 {
		return GateTooExpensive, fmt.Sprintf("price %d above 110%% of max %d", listing.Price, profile.MaxPrice)
	}
	return "", ""
}

func polygonGate(listing domain.Listing, profile domain.BuyerProfile) (gate, reason, note string) {
	if len(profile.SearchPolygon) == 0 {
		return "", "", ""
	}
	if !geo.IsUsablePolygon(profile.SearchPolygon) {
		return "", "", "search polygon ignored: fewer than 3 distinct vertices"
	}
	if listing.Coordinates == nil {
		return "", "", "no coordinates, search area not checked"
	}
	if !geo.Contains(profile.SearchPolygon, *listing.Coordinates) {
		return GateOutsideArea, "listing is outside the search polygon", ""
	}
	return "", "", ""
}

func missingWants(have, want domain.Features) []string {
	var missing []string
	if want.Elevator && !have.Elevator {
		missing = append(missing, "elevator")
	}
	if want.Balcony && !have.Balcony {
		missing = append(missing, "balcony")
	}
	if want.Parking && !have.Parking {
		missing = append(missing, "parking")
	}
	if want.Garden && !have.Garden {
		missing = append(missing, "garden")
	}
	return missing
}

func gated(c domain.MatchCandidate, gate, reason string) domain.MatchCandidate {
	c.Score = 0
	c.Gated = true
	c.GateReason = gate
	c.Reasoning = reason
	return c
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > maxScore {
		return maxScore
	}
	return score
}
