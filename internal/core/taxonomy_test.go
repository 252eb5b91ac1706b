package core_test

import (
	"testing"

	"course-billing/internal/core"
)

func TestClassify_ResolutionOrder(t *testing.T) {
	tests := []struct {
		name             string
		offer            core.Offer
		wantCategory     core.Category
		wantRentACoach   bool
		wantCoachEdu     bool
	}{
		{
			name:         "explicit category used directly",
			offer:        core.Offer{Category: core.CategoryHoliday, Title: "Summer Special"},
			wantCategory: core.CategoryHoliday,
		},
		{
			name:           "rent-a-coach sub-type overrides club programs tag",
			offer:          core.Offer{Category: core.CategoryClubPrograms, SubType: "Rent-a-Coach", Title: "Club Session"},
			wantCategory:   core.CategoryRentACoach,
			wantRentACoach: true,
		},
		{
			name:           "rent a coach phrase in title with separators",
			offer:          core.Offer{Category: core.CategoryWeekly, Title: "Rent_a_Coach Package"},
			wantCategory:   core.CategoryRentACoach,
			wantRentACoach: true,
		},
		{
			name:         "no false phrase match inside words",
			offer:        core.Offer{Category: core.CategoryWeekly, Title: "Parent a Coachman"},
			wantCategory: core.CategoryWeekly,
		},
		{
			name:         "coach education sub-type",
			offer:        core.Offer{SubType: "Coach-Education", Title: "Trainer License B"},
			wantCategory: core.CategoryClubPrograms,
			wantCoachEdu: true,
		},
		{
			name:         "club programs with coach education title",
			offer:        core.Offer{Category: core.CategoryClubPrograms, Title: "Coach Education Spring"},
			wantCategory: core.CategoryClubPrograms,
			wantCoachEdu: true,
		},
		{
			name:         "legacy foerdertraining falls back to weekly",
			offer:        core.Offer{Type: core.OfferTypeFoerdertraining, Title: "Fördertraining U10"},
			wantCategory: core.CategoryWeekly,
		},
		{
			name:         "legacy kindergarten falls back to weekly",
			offer:        core.Offer{Type: core.OfferTypeKindergarten, Title: "Ballschule"},
			wantCategory: core.CategoryWeekly,
		},
		{
			name:         "legacy camp falls back to holiday",
			offer:        core.Offer{Type: core.OfferTypeCamp, Title: "Ostercamp"},
			wantCategory: core.CategoryHoliday,
		},
		{
			name:         "nothing recognizable is unknown",
			offer:        core.Offer{Type: "Merchandise", Title: "Jersey"},
			wantCategory: core.CategoryUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := core.Classify(tt.offer)
			if got.Category != tt.wantCategory {
				t.Errorf("Category = %s, want %s", got.Category, tt.wantCategory)
			}
			if got.IsRentACoach != tt.wantRentACoach {
				t.Errorf("IsRentACoach = %v, want %v", got.IsRentACoach, tt.wantRentACoach)
			}
			if got.IsCoachEducation != tt.wantCoachEdu {
				t.Errorf("IsCoachEducation = %v, want %v", got.IsCoachEducation, tt.wantCoachEdu)
			}
		})
	}
}

func TestIsWeeklyRecurring(t *testing.T) {
	tests := []struct {
		name  string
		offer core.Offer
		want  bool
	}{
		{
			name:  "clean weekly offer",
			offer: core.Offer{Category: core.CategoryWeekly, Title: "Fördertraining Montag"},
			want:  true,
		},
		{
			name:  "weekly with camp keyword in title is excluded",
			offer: core.Offer{Category: core.CategoryWeekly, Title: "Weekly Camp Prep"},
			want:  false,
		},
		{
			name:  "weekly with powertraining sub-type is excluded",
			offer: core.Offer{Category: core.CategoryWeekly, SubType: "Powertraining", Title: "Montagstraining"},
			want:  false,
		},
		{
			name:  "weekly 1:1 session is excluded",
			offer: core.Offer{Category: core.CategoryWeekly, Title: "1:1 Training"},
			want:  false,
		},
		{
			name:  "goalkeeper keyword excludes",
			offer: core.Offer{Category: core.CategoryWeekly, Title: "Torwart Spezial"},
			want:  false,
		},
		{
			name:  "holiday offers never recur weekly",
			offer: core.Offer{Category: core.CategoryHoliday, Title: "Sommercamp"},
			want:  false,
		},
		{
			name:  "keywords never promote to weekly",
			offer: core.Offer{Category: core.CategoryIndividual, Title: "Fördertraining Individuell"},
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := core.IsWeeklyRecurring(tt.offer); got != tt.want {
				t.Errorf("IsWeeklyRecurring = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsCancellable(t *testing.T) {
	tests := []struct {
		name  string
		offer core.Offer
		want  bool
	}{
		{
			name:  "weekly category is cancellable",
			offer: core.Offer{Category: core.CategoryWeekly, Title: "Fördertraining Dienstag"},
			want:  true,
		},
		{
			name:  "foerdertraining type is cancellable",
			offer: core.Offer{Type: core.OfferTypeFoerdertraining, Title: "Fördertraining U12"},
			want:  true,
		},
		{
			name:  "kindergarten type is cancellable",
			offer: core.Offer{Type: core.OfferTypeKindergarten, Title: "Ballschule Mini"},
			want:  true,
		},
		{
			name:  "rent-a-coach is never cancellable",
			offer: core.Offer{Category: core.CategoryWeekly, SubType: "Rent a Coach", Title: "Fördertraining"},
			want:  false,
		},
		{
			name:  "coach education is never cancellable",
			offer: core.Offer{SubType: "Coach Education", Type: core.OfferTypeFoerdertraining, Title: "Trainer License"},
			want:  false,
		},
		{
			name:  "powertraining sub-type is not cancellable",
			offer: core.Offer{Category: core.CategoryWeekly, SubType: "Powertraining", Title: "Weekly Power"},
			want:  false,
		},
		{
			name:  "camp type is not cancellable",
			offer: core.Offer{Type: core.OfferTypeCamp, Title: "Herbstcamp"},
			want:  false,
		},
		{
			name:  "personal training type is not cancellable",
			offer: core.Offer{Type: core.OfferTypePersonalTraining, Title: "PT Session"},
			want:  false,
		},
		{
			name:  "disqualifying keyword beats qualifying category",
			offer: core.Offer{Category: core.CategoryWeekly, Title: "Weekly Training Camp"},
			want:  false,
		},
		{
			name:  "unclassified offers default to not cancellable",
			offer: core.Offer{Type: "Merchandise", Title: "Jersey"},
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := core.IsCancellable(tt.offer); got != tt.want {
				t.Errorf("IsCancellable = %v, want %v", got, tt.want)
			}
		})
	}
}
