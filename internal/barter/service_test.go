package barter

import (
	"context"
	"encoding/json"
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

type fakeProposalRepo struct {
	rows map[uuid.UUID]*models.BarterProposal
}

func newFakeProposalRepo() *fakeProposalRepo {
	return &fakeProposalRepo{rows: map[uuid.UUID]*models.BarterProposal{}}
}

func (f *fakeProposalRepo) Create(_ context.Context, proposal *models.BarterProposal) (*models.BarterProposal, error) {
	if proposal.ID == uuid.Nil {
		proposal.ID = uuid.New()
	}
	f.rows[proposal.ID] = proposal
	return proposal, nil
}

func (f *fakeProposalRepo) Update(_ context.Context, proposal *models.BarterProposal) (*models.BarterProposal, error) {
	f.rows[proposal.ID] = proposal
	return proposal, nil
}

func (f *fakeProposalRepo) FindByID(_ context.Context, id uuid.UUID) (*models.BarterProposal, error) {
	proposal, ok := f.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return proposal, nil
}

func (f *fakeProposalRepo) ListForListing(_ context.Context, listingID uuid.UUID, _ pagination.Params) ([]models.BarterProposal, error) {
	out := []models.BarterProposal{}
	for _, proposal := range f.rows {
		if proposal.ListingID == listingID {
			out = append(out, *proposal)
		}
	}
	return out, nil
}

func (f *fakeProposalRepo) ListForProposer(_ context.Context, proposerID uuid.UUID, _ pagination.Params) ([]models.BarterProposal, error) {
	out := []models.BarterProposal{}
	for _, proposal := range f.rows {
		if proposal.ProposerID == proposerID {
			out = append(out, *proposal)
		}
	}
	return out, nil
}

func (f *fakeProposalRepo) HasPendingProposal(_ context.Context, listingID, proposerID uuid.UUID) (bool, error) {
	for _, proposal := range f.rows {
		if proposal.ListingID == listingID && proposal.ProposerID == proposerID && proposal.Status == enums.BarterStatusPending {
			return true, nil
		}
	}
	return false, nil
}

type fakeListings struct {
	rows map[uuid.UUID]*models.Listing
}

func (f *fakeListings) FindByID(_ context.Context, id uuid.UUID) (*models.Listing, error) {
	listing, ok := f.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return listing, nil
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

func barterListing(sellerID uuid.UUID) *models.Listing {
	return &models.Listing{
		ID:          uuid.New(),
		SellerID:    sellerID,
		Title:       "Road bike",
		Category:    "sports",
		ListingType: enums.ListingTypeBarter,
		Status:      enums.ListingStatusActive,
	}
}

func newBarterService(t *testing.T, repo ProposalRepository, listings ListingReader, events EventPublisher) Service {
	t.Helper()
	svc, err := NewService(repo, listings, events, testLogger())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestProposePublishesEvent(t *testing.T) {
	sellerID := uuid.New()
	listing := barterListing(sellerID)
	listings := &fakeListings{rows: map[uuid.UUID]*models.Listing{listing.ID: listing}}
	events := &fakeEvents{}
	svc := newBarterService(t, newFakeProposalRepo(), listings, events)

	proposerID := uuid.New()
	dto, err := svc.Propose(context.Background(), proposerID, ProposeInput{
		ListingID:   listing.ID,
		OfferedItem: "acoustic guitar",
	})
	if err != nil {
		t.Fatalf("Propose: %v", err)
	}
	if dto.Status != "pending" {
		t.Fatalf("expected pending status, got %s", dto.Status)
	}
	if dto.ListingTitle != "Road bike" {
		t.Fatalf("expected listing title, got %q", dto.ListingTitle)
	}

	if len(events.published) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events.published))
	}
	env := events.published[0]
	if env.EventType != enums.EventBarterProposed {
		t.Fatalf("unexpected event type %s", env.EventType)
	}

	var payload struct {
		ListingTitle string    `json:"listing_title"`
		SellerUserID uuid.UUID `json:"seller_user_id"`
		ProposerID   uuid.UUID `json:"proposer_id"`
		OfferedItem  string    `json:"offered_item"`
	}
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.SellerUserID != sellerID || payload.ProposerID != proposerID {
		t.Fatal("payload must carry both parties")
	}
	if payload.OfferedItem != "acoustic guitar" || payload.ListingTitle != "Road bike" {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestProposeRejectsNonBarterListing(t *testing.T) {
	listing := barterListing(uuid.New())
	listing.ListingType = enums.ListingTypeSale
	listings := &fakeListings{rows: map[uuid.UUID]*models.Listing{listing.ID: listing}}
	svc := newBarterService(t, newFakeProposalRepo(), listings, nil)

	_, err := svc.Propose(context.Background(), uuid.New(), ProposeInput{ListingID: listing.ID, OfferedItem: "guitar"})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestProposeRejectsOwnListing(t *testing.T) {
	sellerID := uuid.New()
	listing := barterListing(sellerID)
	listings := &fakeListings{rows: map[uuid.UUID]*models.Listing{listing.ID: listing}}
	svc := newBarterService(t, newFakeProposalRepo(), listings, nil)

	_, err := svc.Propose(context.Background(), sellerID, ProposeInput{ListingID: listing.ID, OfferedItem: "guitar"})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestProposeRejectsDuplicatePending(t *testing.T) {
	listing := barterListing(uuid.New())
	listings := &fakeListings{rows: map[uuid.UUID]*models.Listing{listing.ID: listing}}
	svc := newBarterService(t, newFakeProposalRepo(), listings, nil)

	proposerID := uuid.New()
	if _, err := svc.Propose(context.Background(), proposerID, ProposeInput{ListingID: listing.ID, OfferedItem: "guitar"}); err != nil {
		t.Fatalf("first Propose: %v", err)
	}
	_, err := svc.Propose(context.Background(), proposerID, ProposeInput{ListingID: listing.ID, OfferedItem: "amp"})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestDecideAcceptPublishesDecision(t *testing.T) {
	sellerID := uuid.New()
	listing := barterListing(sellerID)
	listings := &fakeListings{rows: map[uuid.UUID]*models.Listing{listing.ID: listing}}
	events := &fakeEvents{}
	svc := newBarterService(t, newFakeProposalRepo(), listings, events)

	dto, err := svc.Propose(context.Background(), uuid.New(), ProposeInput{ListingID: listing.ID, OfferedItem: "guitar"})
	if err != nil {
		t.Fatalf("Propose: %v", err)
	}

	decided, err := svc.Decide(context.Background(), sellerID, dto.ID, true)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if decided.Status != "accepted" {
		t.Fatalf("expected accepted, got %s", decided.Status)
	}
	if decided.DecidedAt == nil {
		t.Fatal("DecidedAt must be set")
	}

	if len(events.published) != 2 {
		t.Fatalf("expected proposal + decision events, got %d", len(events.published))
	}
	env := events.published[1]
	if env.EventType != enums.EventBarterDecided {
		t.Fatalf("unexpected event type %s", env.EventType)
	}
	var payload struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.Status != "accepted" {
		t.Fatalf("expected accepted status in payload, got %q", payload.Status)
	}
}

func TestDecideRequiresOwnership(t *testing.T) {
	listing := barterListing(uuid.New())
	listings := &fakeListings{rows: map[uuid.UUID]*models.Listing{listing.ID: listing}}
	svc := newBarterService(t, newFakeProposalRepo(), listings, nil)

	dto, err := svc.Propose(context.Background(), uuid.New(), ProposeInput{ListingID: listing.ID, OfferedItem: "guitar"})
	if err != nil {
		t.Fatalf("Propose: %v", err)
	}

	_, err = svc.Decide(context.Background(), uuid.New(), dto.ID, false)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestDecideTwiceConflicts(t *testing.T) {
	sellerID := uuid.New()
	listing := barterListing(sellerID)
	listings := &fakeListings{rows: map[uuid.UUID]*models.Listing{listing.ID: listing}}
	svc := newBarterService(t, newFakeProposalRepo(), listings, nil)

	dto, err := svc.Propose(context.Background(), uuid.New(), ProposeInput{ListingID: listing.ID, OfferedItem: "guitar"})
	if err != nil {
		t.Fatalf("Propose: %v", err)
	}
	if _, err := svc.Decide(context.Background(), sellerID, dto.ID, false); err != nil {
		t.Fatalf("first Decide: %v", err)
	}
	_, err = svc.Decide(context.Background(), sellerID, dto.ID, true)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestWithdrawByProposer(t *testing.T) {
	listing := barterListing(uuid.New())
	listings := &fakeListings{rows: map[uuid.UUID]*models.Listing{listing.ID: listing}}
	events := &fakeEvents{}
	svc := newBarterService(t, newFakeProposalRepo(), listings, events)

	proposerID := uuid.New()
	dto, err := svc.Propose(context.Background(), proposerID, ProposeInput{ListingID: listing.ID, OfferedItem: "guitar"})
	if err != nil {
		t.Fatalf("Propose: %v", err)
	}

	withdrawn, err := svc.Withdraw(context.Background(), proposerID, dto.ID)
	if err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	if withdrawn.Status != "withdrawn" {
		t.Fatalf("expected withdrawn, got %s", withdrawn.Status)
	}
	// Withdrawals stay quiet; only the proposal itself was announced.
	if len(events.published) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events.published))
	}

	_, err = svc.Withdraw(context.Background(), proposerID, dto.ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict after withdraw, got %v", err)
	}
}

func TestListForListingRequiresOwnership(t *testing.T) {
	sellerID := uuid.New()
	listing := barterListing(sellerID)
	listings := &fakeListings{rows: map[uuid.UUID]*models.Listing{listing.ID: listing}}
	svc := newBarterService(t, newFakeProposalRepo(), listings, nil)

	_, err := svc.ListForListing(context.Background(), uuid.New(), listing.ID, pagination.Params{})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}

	result, err := svc.ListForListing(context.Background(), sellerID, listing.ID, pagination.Params{})
	if err != nil {
		t.Fatalf("ListForListing: %v", err)
	}
	if len(result.Proposals) != 0 {
		t.Fatalf("expected empty page, got %d", len(result.Proposals))
	}
}
