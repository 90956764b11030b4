package listings

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/nearmarket/nearmarket-backend/pkg/db/models"
	"github.com/nearmarket/nearmarket-backend/pkg/enums"
	pkgerrors "github.com/nearmarket/nearmarket-backend/pkg/errors"
	"github.com/nearmarket/nearmarket-backend/pkg/logger"
	"github.com/nearmarket/nearmarket-backend/pkg/pagination"
	"github.com/nearmarket/nearmarket-backend/pkg/pubsub"
)

type fakeRepo struct {
	rows    map[uuid.UUID]*models.Listing
	created []*models.Listing
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{rows: map[uuid.UUID]*models.Listing{}}
}

func (f *fakeRepo) CreateListing(_ context.Context, listing *models.Listing) (*models.Listing, error) {
	if listing.ID == uuid.Nil {
		listing.ID = uuid.New()
	}
	f.rows[listing.ID] = listing
	f.created = append(f.created, listing)
	return listing, nil
}

func (f *fakeRepo) UpdateListing(_ context.Context, listing *models.Listing) (*models.Listing, error) {
	f.rows[listing.ID] = listing
	return listing, nil
}

func (f *fakeRepo) DeleteListing(_ context.Context, id uuid.UUID) error {
	delete(f.rows, id)
	return nil
}

func (f *fakeRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Listing, error) {
	listing, ok := f.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return listing, nil
}

func (f *fakeRepo) ListBySeller(_ context.Context, sellerID uuid.UUID, _ pagination.Params) ([]models.Listing, error) {
	out := []models.Listing{}
	for _, listing := range f.rows {
		if listing.SellerID == sellerID {
			out = append(out, *listing)
		}
	}
	return out, nil
}

func (f *fakeRepo) SearchCandidates(_ context.Context, _ CandidateQuery) ([]models.Listing, error) {
	out := []models.Listing{}
	for _, listing := range f.rows {
		out = append(out, *listing)
	}
	return out, nil
}

type fakeEvents struct {
	published []pubsub.Envelope
}

func (f *fakeEvents) PublishEvent(_ context.Context, env pubsub.Envelope) error {
	f.published = append(f.published, env)
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled, Output: io.Discard})
}

func newTestService(t *testing.T, repo ListingRepository, events EventPublisher) Service {
	t.Helper()
	svc, err := NewService(repo, events, testLogger())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestCreateListingValidation(t *testing.T) {
	svc := newTestService(t, newFakeRepo(), nil)
	sellerID := uuid.New()

	cases := []struct {
		name  string
		input CreateListingInput
	}{
		{"missingTitle", CreateListingInput{Category: "misc", ListingType: enums.ListingTypeSale}},
		{"missingCategory", CreateListingInput{Title: "chair", ListingType: enums.ListingTypeSale}},
		{"badType", CreateListingInput{Title: "chair", Category: "misc", ListingType: "rent"}},
		{"negativePrice", CreateListingInput{Title: "chair", Category: "misc", ListingType: enums.ListingTypeSale, PriceCents: -1}},
		{"pricedFreebie", CreateListingInput{Title: "chair", Category: "misc", ListingType: enums.ListingTypeFreebie, PriceCents: 500}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateListing(context.Background(), sellerID, tc.input)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation code, got %v", err)
			}
		})
	}
}

func TestCreateListingPublishesEvent(t *testing.T) {
	repo := newFakeRepo()
	events := &fakeEvents{}
	svc := newTestService(t, repo, events)

	dto, err := svc.CreateListing(context.Background(), uuid.New(), CreateListingInput{
		Title:       "  Vintage Camera ",
		Category:    " Electronics ",
		ListingType: enums.ListingTypeSale,
		PriceCents:  4500,
		StockQty:    1,
	})
	if err != nil {
		t.Fatalf("CreateListing: %v", err)
	}
	if dto.Title != "Vintage Camera" {
		t.Fatalf("expected trimmed title, got %q", dto.Title)
	}
	if dto.Category != "electronics" {
		t.Fatalf("expected lowercased category, got %q", dto.Category)
	}
	if dto.Currency != "USD" {
		t.Fatalf("expected USD default, got %q", dto.Currency)
	}
	if dto.Price != "45.00" {
		t.Fatalf("expected formatted price 45.00, got %q", dto.Price)
	}

	if len(events.published) != 1 {
		t.Fatalf("expected one event, got %d", len(events.published))
	}
	if events.published[0].EventType != enums.EventListingCreated {
		t.Fatalf("expected listing.created, got %s", events.published[0].EventType)
	}
}

func TestUpdateListingOwnership(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo, nil)

	owner := uuid.New()
	listing := &models.Listing{SellerID: owner, Title: "chair", Category: "furniture", Status: enums.ListingStatusActive}
	repo.CreateListing(context.Background(), listing)

	_, err := svc.UpdateListing(context.Background(), uuid.New(), listing.ID, UpdateListingInput{})
	if err == nil {
		t.Fatal("expected forbidden error for non-owner")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden code, got %v", err)
	}

	newTitle := "better chair"
	dto, err := svc.UpdateListing(context.Background(), owner, listing.ID, UpdateListingInput{Title: &newTitle})
	if err != nil {
		t.Fatalf("owner update failed: %v", err)
	}
	if dto.Title != "better chair" {
		t.Fatalf("expected updated title, got %q", dto.Title)
	}
}

func TestArchiveListingIsIdempotent(t *testing.T) {
	repo := newFakeRepo()
	events := &fakeEvents{}
	svc := newTestService(t, repo, events)

	owner := uuid.New()
	listing := &models.Listing{SellerID: owner, Title: "chair", Category: "furniture", Status: enums.ListingStatusActive}
	repo.CreateListing(context.Background(), listing)

	if _, err := svc.ArchiveListing(context.Background(), owner, listing.ID); err != nil {
		t.Fatalf("first archive: %v", err)
	}
	if _, err := svc.ArchiveListing(context.Background(), owner, listing.ID); err != nil {
		t.Fatalf("second archive: %v", err)
	}
	if len(events.published) != 1 {
		t.Fatalf("expected one archive event, got %d", len(events.published))
	}
}

func TestGetListingNotFound(t *testing.T) {
	svc := newTestService(t, newFakeRepo(), nil)
	_, err := svc.GetListing(context.Background(), uuid.New())
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found code, got %v", err)
	}
}
