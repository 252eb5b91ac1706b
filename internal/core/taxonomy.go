package core

import "strings"

// The taxonomy rules below were historically duplicated across several UI
// components with drifting keyword lists. They live here once, as pure
// functions, and every caller (booking eligibility, proration, display
// filtering) goes through them.

// Classification is the resolved taxonomy bucket for an offer, with the two
// specializations that carry their own business rules.
type Classification struct {
	Category         Category `json:"category"`
	IsRentACoach     bool     `json:"is_rent_a_coach"`
	IsCoachEducation bool     `json:"is_coach_education"`
}

// Sub-type markers, compared after normalization.
const (
	markerRentACoach     = "rent a coach"
	markerCoachEducation = "coach education"
	markerPowertraining  = "powertraining"
)

// weeklyExclusionKeywords disqualify an offer from weekly-recurring billing
// semantics when found in its sub-type or title. They only ever exclude;
// nothing in this list promotes an offer to Weekly.
var weeklyExclusionKeywords = []string{
	"rent a coach",
	"coach education",
	"training camp",
	"camp",
	"powertraining",
	"1:1",
	"individual",
	"athletik",
	"torwart",
}

// Classify resolves an offer to exactly one taxonomy bucket, even when the
// category tag is missing on legacy records. First match wins; the
// Rent-a-Coach and Coach-Education overrides outrank a generic category tag.
func Classify(o Offer) Classification {
	sub := normalizeText(o.SubType)
	title := normalizeText(o.Title)

	if sub == markerRentACoach || o.Category == CategoryRentACoach || containsPhrase(title, markerRentACoach) {
		return Classification{Category: CategoryRentACoach, IsRentACoach: true}
	}

	if sub == markerCoachEducation || (o.Category == CategoryClubPrograms && containsPhrase(title, markerCoachEducation)) {
		return Classification{Category: CategoryClubPrograms, IsCoachEducation: true}
	}

	switch o.Category {
	case CategoryWeekly, CategoryHoliday, CategoryIndividual, CategoryClubPrograms:
		return Classification{Category: o.Category}
	}

	switch o.Type {
	case OfferTypeFoerdertraining, OfferTypeKindergarten:
		return Classification{Category: CategoryWeekly}
	case OfferTypeCamp:
		return Classification{Category: CategoryHoliday}
	}

	return Classification{Category: CategoryUnknown}
}

// IsWeeklyRecurring reports whether the offer is billed as a recurring weekly
// subscription, which makes it eligible for first-month proration and the
// wish-date affordance. Only Weekly offers qualify, and any exclusion keyword
// on sub-type or title disqualifies; the pessimistic side wins ties.
func IsWeeklyRecurring(o Offer) bool {
	if Classify(o).Category != CategoryWeekly {
		return false
	}
	return !hasExclusionKeyword(o)
}

// IsCancellable reports whether a booking of this offer may be cancelled via
// the recurring-subscription cancellation flow. One-off and high-touch
// programs (camps, personal training, coach education, rent-a-coach) are
// never cancellable; disqualifying keywords beat qualifying type tags.
func IsCancellable(o Offer) bool {
	cls := Classify(o)
	if cls.IsRentACoach || cls.IsCoachEducation {
		return false
	}
	if normalizeText(o.SubType) == markerPowertraining {
		return false
	}
	if o.Type == OfferTypeCamp || o.Type == OfferTypePersonalTraining {
		return false
	}
	if hasExclusionKeyword(o) {
		return false
	}
	if o.Type == OfferTypeFoerdertraining || o.Type == OfferTypeKindergarten {
		return true
	}
	return cls.Category == CategoryWeekly
}

func hasExclusionKeyword(o Offer) bool {
	sub := normalizeText(o.SubType)
	title := normalizeText(o.Title)
	for _, kw := range weeklyExclusionKeywords {
		kw = normalizeText(kw)
		if containsPhrase(sub, kw) || containsPhrase(title, kw) {
			return true
		}
	}
	return false
}

// normalizeText lowercases s and collapses separator runs (hyphen, slash,
// underscore, dot, colon, whitespace) into single spaces, so "Rent-a-Coach"
// and "rent a coach" compare equal.
func normalizeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastSpace := true
	for _, r := range strings.ToLower(s) {
		switch r {
		case ' ', '\t', '\n', '-', '_', '/', '.', ':':
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		default:
			b.WriteRune(r)
			lastSpace = false
		}
	}
	return strings.TrimRight(b.String(), " ")
}

// containsPhrase reports whether the normalized text contains the normalized
// phrase on word boundaries ("camping" does not match "camp").
func containsPhrase(normalizedText, normalizedPhrase string) bool {
	if normalizedText == "" || normalizedPhrase == "" {
		return false
	}
	return strings.Contains(" "+normalizedText+" ", " "+normalizedPhrase+" ")
}
