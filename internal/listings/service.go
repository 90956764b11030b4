package listings

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nearmarket/nearmarket-backend/pkg/enums"
	pkgerrors "github.com/nearmarket/nearmarket-backend/pkg/errors"
	"github.com/nearmarket/nearmarket-backend/pkg/geo"
	"github.com/nearmarket/nearmarket-backend/pkg/logger"
	"github.com/nearmarket/nearmarket-backend/pkg/pagination"
	"github.com/nearmarket/nearmarket-backend/pkg/pubsub"

	"github.com/nearmarket/nearmarket-backend/pkg/db/models"
)

// Service exposes seller listing management operations.
type Service interface {
	CreateListing(ctx context.Context, sellerID uuid.UUID, input CreateListingInput) (*ListingDTO, error)
	UpdateListing(ctx context.Context, sellerID, listingID uuid.UUID, input UpdateListingInput) (*ListingDTO, error)
	ArchiveListing(ctx context.Context, sellerID, listingID uuid.UUID) (*ListingDTO, error)
	DeleteListing(ctx context.Context, sellerID, listingID uuid.UUID) error
	GetListing(ctx context.Context, listingID uuid.UUID) (*ListingDTO, error)
	ListSellerListings(ctx context.Context, sellerID uuid.UUID, page pagination.Params) (*ListingListResult, error)
}

// EventPublisher publishes domain events for downstream consumers.
type EventPublisher interface {
	PublishEvent(ctx context.Context, env pubsub.Envelope) error
}

// CreateListingInput holds the validated payload to create a listing.
type CreateListingInput struct {
	Title        string
	Description  *string
	Category     string
	ListingType  enums.ListingType
	PriceCents   int
	Currency     string
	StockQty     int
	Location     *geo.Point
	City         *string
	PostalCode   *string
	OnSale       bool
	FreeShipping bool
	LocalPickup  bool
	Shipping     bool
	Delivery     bool
	ImageKeys    []string
	Tags         []string
}

// UpdateListingInput holds optional mutation values for a listing.
type UpdateListingInput struct {
	Title        *string
	Description  *string
	Category     *string
	ListingType  *enums.ListingType
	Status       *enums.ListingStatus
	PriceCents   *int
	StockQty     *int
	Location     *geo.Point
	City         *string
	PostalCode   *string
	OnSale       *bool
	FreeShipping *bool
	LocalPickup  *bool
	Shipping     *bool
	Delivery     *bool
	ImageKeys    *[]string
	Tags         *[]string
}

type service struct {
	repo   ListingRepository
	events EventPublisher
	logg   *logger.Logger
}

// NewService validates dependencies and builds the listing service. The event
// publisher is optional; without it mutations simply skip event emission.
func NewService(repo ListingRepository, events EventPublisher, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, errors.New("listing repository is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &service{repo: repo, events: events, logg: logg}, nil
}

func (s *service) CreateListing(ctx context.Context, sellerID uuid.UUID, input CreateListingInput) (*ListingDTO, error) {
	if err := validateCreateInput(input); err != nil {
		return nil, err
	}

	listing := &models.Listing{
		SellerID:     sellerID,
		Title:        strings.TrimSpace(input.Title),
		Description:  input.Description,
		Category:     strings.ToLower(strings.TrimSpace(input.Category)),
		ListingType:  input.ListingType,
		Status:       enums.ListingStatusActive,
		PriceCents:   input.PriceCents,
		Currency:     normalizeCurrency(input.Currency),
		StockQty:     input.StockQty,
		City:         input.City,
		PostalCode:   input.PostalCode,
		OnSale:       input.OnSale,
		FreeShipping: input.FreeShipping,
		LocalPickup:  input.LocalPickup,
		Shipping:     input.Shipping,
		Delivery:     input.Delivery,
		ImageKeys:    input.ImageKeys,
		Tags:         input.Tags,
	}
	if input.Location != nil {
		lat, lng := input.Location.Lat, input.Location.Lng
		listing.Lat, listing.Lng = &lat, &lng
	}

	created, err := s.repo.CreateListing(ctx, listing)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create listing")
	}

	s.publish(ctx, enums.EventListingCreated, created.ID)

	dto := toListingDTO(created)
	return &dto, nil
}

func (s *service) UpdateListing(ctx context.Context, sellerID, listingID uuid.UUID, input UpdateListingInput) (*ListingDTO, error) {
	listing, err := s.ownedListing(ctx, sellerID, listingID)
	if err != nil {
		return nil, err
	}

	applyUpdateToListing(listing, input)

	updated, err := s.repo.UpdateListing(ctx, listing)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update listing")
	}

	s.publish(ctx, enums.EventListingUpdated, updated.ID)

	dto := toListingDTO(updated)
	return &dto, nil
}

func (s *service) ArchiveListing(ctx context.Context, sellerID, listingID uuid.UUID) (*ListingDTO, error) {
	listing, err := s.ownedListing(ctx, sellerID, listingID)
	if err != nil {
		return nil, err
	}
	if listing.Status == enums.ListingStatusArchived {
		dto := toListingDTO(listing)
		return &dto, nil
	}

	listing.Status = enums.ListingStatusArchived
	updated, err := s.repo.UpdateListing(ctx, listing)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "archive listing")
	}

	s.publish(ctx, enums.EventListingArchived, updated.ID)

	dto := toListingDTO(updated)
	return &dto, nil
}

func (s *service) DeleteListing(ctx context.Context, sellerID, listingID uuid.UUID) error {
	if _, err := s.ownedListing(ctx, sellerID, listingID); err != nil {
		return err
	}
	if err := s.repo.DeleteListing(ctx, listingID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete listing")
	}
	return nil
}

func (s *service) GetListing(ctx context.Context, listingID uuid.UUID) (*ListingDTO, error) {
	listing, err := s.repo.FindByID(ctx, listingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
	}
	dto := toListingDTO(listing)
	return &dto, nil
}

func (s *service) ListSellerListings(ctx context.Context, sellerID uuid.UUID, page pagination.Params) (*ListingListResult, error) {
	rows, err := s.repo.ListBySeller(ctx, sellerID, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list seller listings")
	}

	pageSize := pagination.NormalizeLimit(page.Limit)
	result := &ListingListResult{Listings: make([]ListingDTO, 0, len(rows))}

	hasMore := len(rows) > pageSize
	if hasMore {
		rows = rows[:pageSize]
	}
	for i := range rows {
		result.Listings = append(result.Listings, toListingDTO(&rows[i]))
	}
	if hasMore && len(rows) > 0 {
		last := rows[len(rows)-1]
		cursor := pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		result.NextCursor = &cursor
	}
	return result, nil
}

func (s *service) ownedListing(ctx context.Context, sellerID, listingID uuid.UUID) (*models.Listing, error) {
	listing, err := s.repo.FindByID(ctx, listingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
	}
	if listing.SellerID != sellerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "listing belongs to another seller")
	}
	return listing, nil
}

func (s *service) publish(ctx context.Context, event enums.EventType, entityID uuid.UUID) {
	if s.events == nil {
		return
	}
	env := pubsub.Envelope{EventType: event, EntityID: entityID.String()}
	if err := s.events.PublishEvent(ctx, env); err != nil {
		// Event delivery is best-effort; the write already committed.
		ctx = s.logg.WithFields(ctx, map[string]any{"event": event.String(), "error": err.Error()})
		s.logg.Warn(ctx, "publish listing event failed")
	}
}

func validateCreateInput(input CreateListingInput) error {
	if strings.TrimSpace(input.Title) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	if strings.TrimSpace(input.Category) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "category is required")
	}
	if !input.ListingType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid listing type")
	}
	if input.PriceCents < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}
	if input.ListingType == enums.ListingTypeFreebie && input.PriceCents != 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "freebie listings must have price 0")
	}
	if input.StockQty < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "stock quantity cannot be negative")
	}
	return nil
}

func applyUpdateToListing(listing *models.Listing, input UpdateListingInput) {
	if input.Title != nil {
		listing.Title = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		listing.Description = input.Description
	}
	if input.Category != nil {
		listing.Category = strings.ToLower(strings.TrimSpace(*input.Category))
	}
	if input.ListingType != nil && input.ListingType.IsValid() {
		listing.ListingType = *input.ListingType
	}
	if input.Status != nil && input.Status.IsValid() {
		listing.Status = *input.Status
	}
	if input.PriceCents != nil && *input.PriceCents >= 0 {
		listing.PriceCents = *input.PriceCents
	}
	if input.StockQty != nil && *input.StockQty >= 0 {
		listing.StockQty = *input.StockQty
	}
	if input.Location != nil {
		lat, lng := input.Location.Lat, input.Location.Lng
		listing.Lat, listing.Lng = &lat, &lng
	}
	if input.City != nil {
		listing.City = input.City
	}
	if input.PostalCode != nil {
		listing.PostalCode = input.PostalCode
	}
	if input.OnSale != nil {
		listing.OnSale = *input.OnSale
	}
	if input.FreeShipping != nil {
		listing.FreeShipping = *input.FreeShipping
	}
	if input.LocalPickup != nil {
		listing.LocalPickup = *input.LocalPickup
	}
	if input.Shipping != nil {
		listing.Shipping = *input.Shipping
	}
	if input.Delivery != nil {
		listing.Delivery = *input.Delivery
	}
	if input.ImageKeys != nil {
		listing.ImageKeys = append([]string(nil), (*input.ImageKeys)...)
	}
	if input.Tags != nil {
		listing.Tags = append([]string(nil), (*input.Tags)...)
	}
}

func normalizeCurrency(currency string) string {
	trimmed := strings.ToUpper(strings.TrimSpace(currency))
	if trimmed == "" {
		return "USD"
	}
	return trimmed
}
