package core

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// OfferService manages the offer catalog. Classification is always computed
// live from the stored record; only bookings snapshot prices.
type OfferService interface {
	CreateOffer(ctx context.Context, providerCode string, input OfferInput) (*Offer, error)
	GetOffer(ctx context.Context, offerID string) (*Offer, error)
	ListOffers(ctx context.Context, providerCode string) ([]Offer, error)
	// ClassifyOffer returns the resolved taxonomy bucket plus the derived
	// booking predicates for one offer.
	ClassifyOffer(ctx context.Context, offerID string) (*OfferClassification, error)
}

// OfferInput carries the raw taxonomy signals of a new offer. Category may be
// empty (legacy records); an unknown non-empty category is rejected.
type OfferInput struct {
	Type         string
	SubType      string
	Category     string
	Title        string
	Venue        string
	MonthlyPrice decimal.NullDecimal
}

// OfferClassification is the display view of the classifier output.
type OfferClassification struct {
	OfferID           string         `json:"offer_id"`
	Classification    Classification `json:"classification"`
	IsWeeklyRecurring bool           `json:"is_weekly_recurring"`
	IsCancellable     bool           `json:"is_cancellable"`
}

type offerService struct {
	pool *pgxpool.Pool
}

func NewOfferService(pool *pgxpool.Pool) OfferService {
	return &offerService{pool: pool}
}

func (s *offerService) CreateOffer(ctx context.Context, providerCode string, input OfferInput) (*Offer, error) {
	if input.Title == "" {
		return nil, &ValidationError{Field: "title", Reason: "required"}
	}
	if input.Type == "" && input.Category == "" {
		return nil, &ValidationError{Field: "type", Reason: "either type or category is required"}
	}
	switch Category(input.Category) {
	case "", CategoryWeekly, CategoryHoliday, CategoryIndividual, CategoryClubPrograms, CategoryRentACoach:
	default:
		return nil, &ValidationError{Field: "category", Reason: "unknown category: " + input.Category}
	}
	if input.MonthlyPrice.Valid && input.MonthlyPrice.Decimal.IsNegative() {
		return nil, &ValidationError{Field: "monthly_price", Reason: "must be a non-negative amount"}
	}

	providerID, err := resolveProviderID(ctx, s.pool, providerCode)
	if err != nil {
		return nil, err
	}

	o := &Offer{
		ID:           uuid.NewString(),
		ProviderID:   providerID,
		Type:         input.Type,
		SubType:      input.SubType,
		Category:     Category(input.Category),
		Title:        input.Title,
		Venue:        input.Venue,
		MonthlyPrice: input.MonthlyPrice,
	}

	err = s.pool.QueryRow(ctx, `
		INSERT INTO offers (id, provider_id, type, sub_type, category, title, venue, monthly_price)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`, o.ID, o.ProviderID, o.Type, o.SubType, string(o.Category), o.Title, o.Venue, o.MonthlyPrice).Scan(&o.CreatedAt)
	if err != nil {
		return nil, storagef("insert offer", err)
	}
	return o, nil
}

func (s *offerService) GetOffer(ctx context.Context, offerID string) (*Offer, error) {
	return fetchOfferQ(ctx, s.pool, offerID)
}

func (s *offerService) ListOffers(ctx context.Context, providerCode string) ([]Offer, error) {
	providerID, err := resolveProviderID(ctx, s.pool, providerCode)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, provider_id, type, COALESCE(sub_type, ''), COALESCE(category, ''),
		       title, COALESCE(venue, ''), monthly_price, created_at
		FROM offers
		WHERE provider_id = $1
		ORDER BY title, id
	`, providerID)
	if err != nil {
		return nil, storagef("query offers", err)
	}
	defer rows.Close()

	var offers []Offer
	for rows.Next() {
		var o Offer
		var category string
		if err := rows.Scan(&o.ID, &o.ProviderID, &o.Type, &o.SubType, &category,
			&o.Title, &o.Venue, &o.MonthlyPrice, &o.CreatedAt); err != nil {
			return nil, storagef("scan offer", err)
		}
		o.Category = Category(category)
		offers = append(offers, o)
	}
	if err := rows.Err(); err != nil {
		return nil, storagef("iterate offers", err)
	}
	return offers, nil
}

func (s *offerService) ClassifyOffer(ctx context.Context, offerID string) (*OfferClassification, error) {
	o, err := fetchOfferQ(ctx, s.pool, offerID)
	if err != nil {
		return nil, err
	}
	return &OfferClassification{
		OfferID:           o.ID,
		Classification:    Classify(*o),
		IsWeeklyRecurring: IsWeeklyRecurring(*o),
		IsCancellable:     IsCancellable(*o),
	}, nil
}

func fetchOfferQ(ctx context.Context, q pgxQuerier, offerID string) (*Offer, error) {
	var o Offer
	var category string
	err := q.QueryRow(ctx, `
		SELECT id, provider_id, type, COALESCE(sub_type, ''), COALESCE(category, ''),
		       title, COALESCE(venue, ''), monthly_price, created_at
		FROM offers
		WHERE id = $1
	`, offerID).Scan(&o.ID, &o.ProviderID, &o.Type, &o.SubType, &category,
		&o.Title, &o.Venue, &o.MonthlyPrice, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Entity: "offer", Ref: offerID}
		}
		return nil, storagef("fetch offer", err)
	}
	o.Category = Category(category)
	return &o, nil
}
