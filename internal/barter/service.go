package barter

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nearmarket/nearmarket-backend/pkg/db/models"
	"github.com/nearmarket/nearmarket-backend/pkg/enums"
	pkgerrors "github.com/nearmarket/nearmarket-backend/pkg/errors"
	"github.com/nearmarket/nearmarket-backend/pkg/logger"
	"github.com/nearmarket/nearmarket-backend/pkg/pagination"
	"github.com/nearmarket/nearmarket-backend/pkg/pubsub"
)

// Service exposes the barter proposal lifecycle.
type Service interface {
	Propose(ctx context.Context, proposerID uuid.UUID, input ProposeInput) (*ProposalDTO, error)
	Decide(ctx context.Context, sellerID, proposalID uuid.UUID, accept bool) (*ProposalDTO, error)
	Withdraw(ctx context.Context, proposerID, proposalID uuid.UUID) (*ProposalDTO, error)
	ListForListing(ctx context.Context, sellerID, listingID uuid.UUID, page pagination.Params) (*ProposalListResult, error)
	ListMine(ctx context.Context, proposerID uuid.UUID, page pagination.Params) (*ProposalListResult, error)
}

// ListingReader is the subset of the listing store the barter flow needs.
type ListingReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Listing, error)
}

// EventPublisher publishes barter events for the notification pipeline.
type EventPublisher interface {
	PublishEvent(ctx context.Context, env pubsub.Envelope) error
}

// ProposeInput is the payload for a new barter proposal.
type ProposeInput struct {
	ListingID   uuid.UUID
	OfferedItem string
	Message     *string
}

type service struct {
	repo     ProposalRepository
	listings ListingReader
	events   EventPublisher
	logg     *logger.Logger
}

// NewService validates dependencies and builds the barter service. Events are
// optional; without a publisher decisions simply skip notification fan-out.
func NewService(repo ProposalRepository, listings ListingReader, events EventPublisher, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, errors.New("barter repository is required")
	}
	if listings == nil {
		return nil, errors.New("listing reader is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &service{repo: repo, listings: listings, events: events, logg: logg}, nil
}

func (s *service) Propose(ctx context.Context, proposerID uuid.UUID, input ProposeInput) (*ProposalDTO, error) {
	if proposerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "proposer id required")
	}
	if input.ListingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing id required")
	}
	offered := strings.TrimSpace(input.OfferedItem)
	if offered == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "offered item required")
	}

	listing, err := s.listings.FindByID(ctx, input.ListingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
	}
	if listing.ListingType != enums.ListingTypeBarter {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing does not accept barter offers")
	}
	if listing.Status != enums.ListingStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "listing is no longer active")
	}
	if listing.SellerID == proposerID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot propose a barter on your own listing")
	}

	pending, err := s.repo.HasPendingProposal(ctx, listing.ID, proposerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check pending proposals")
	}
	if pending {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "you already have a pending proposal on this listing")
	}

	proposal := &models.BarterProposal{
		ListingID:   listing.ID,
		ProposerID:  proposerID,
		SellerID:    listing.SellerID,
		OfferedItem: offered,
		Message:     input.Message,
		Status:      enums.BarterStatusPending,
		Listing:     listing,
	}
	created, err := s.repo.Create(ctx, proposal)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create barter proposal")
	}
	created.Listing = listing

	s.publish(ctx, enums.EventBarterProposed, created)

	dto := toProposalDTO(created)
	return &dto, nil
}

func (s *service) Decide(ctx context.Context, sellerID, proposalID uuid.UUID, accept bool) (*ProposalDTO, error) {
	proposal, err := s.loadProposal(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if proposal.SellerID != sellerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "proposal belongs to another seller")
	}
	if proposal.Status != enums.BarterStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "proposal has already been decided")
	}

	proposal.Status = enums.BarterStatusDeclined
	if accept {
		proposal.Status = enums.BarterStatusAccepted
	}
	now := time.Now().UTC()
	proposal.DecidedAt = &now

	updated, err := s.repo.Update(ctx, proposal)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update barter proposal")
	}
	updated.Listing = proposal.Listing

	s.publish(ctx, enums.EventBarterDecided, updated)

	dto := toProposalDTO(updated)
	return &dto, nil
}

func (s *service) Withdraw(ctx context.Context, proposerID, proposalID uuid.UUID) (*ProposalDTO, error) {
	proposal, err := s.loadProposal(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if proposal.ProposerID != proposerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "proposal belongs to another user")
	}
	if proposal.Status != enums.BarterStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "only pending proposals can be withdrawn")
	}

	proposal.Status = enums.BarterStatusWithdrawn
	now := time.Now().UTC()
	proposal.DecidedAt = &now

	updated, err := s.repo.Update(ctx, proposal)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "withdraw barter proposal")
	}
	updated.Listing = proposal.Listing

	dto := toProposalDTO(updated)
	return &dto, nil
}

func (s *service) ListForListing(ctx context.Context, sellerID, listingID uuid.UUID, page pagination.Params) (*ProposalListResult, error) {
	listing, err := s.listings.FindByID(ctx, listingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
	}
	if listing.SellerID != sellerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "listing belongs to another seller")
	}

	rows, err := s.repo.ListForListing(ctx, listingID, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list proposals")
	}
	return buildProposalPage(rows, page.Limit), nil
}

func (s *service) ListMine(ctx context.Context, proposerID uuid.UUID, page pagination.Params) (*ProposalListResult, error) {
	if proposerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "proposer id required")
	}
	rows, err := s.repo.ListForProposer(ctx, proposerID, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list proposals")
	}
	return buildProposalPage(rows, page.Limit), nil
}

func (s *service) loadProposal(ctx context.Context, proposalID uuid.UUID) (*models.BarterProposal, error) {
	if proposalID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "proposal id required")
	}
	proposal, err := s.repo.FindByID(ctx, proposalID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "proposal not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load proposal")
	}
	return proposal, nil
}

func (s *service) publish(ctx context.Context, event enums.EventType, proposal *models.BarterProposal) {
	if s.events == nil {
		return
	}

	payload := barterEventPayload{
		ListingID:    proposal.ListingID,
		ProposerID:   proposal.ProposerID,
		SellerUserID: proposal.SellerID,
		OfferedItem:  proposal.OfferedItem,
	}
	if proposal.Listing != nil {
		payload.ListingTitle = proposal.Listing.Title
	}
	if event == enums.EventBarterDecided {
		payload.Status = proposal.Status.String()
	}

	body, err := json.Marshal(payload)
	if err != nil {
		ctx = s.logg.WithFields(ctx, map[string]any{"event": event.String(), "error": err.Error()})
		s.logg.Warn(ctx, "encode barter event failed")
		return
	}

	env := pubsub.Envelope{
		EventType: event,
		EntityID:  proposal.ID.String(),
		Payload:   body,
	}
	if err := s.events.PublishEvent(ctx, env); err != nil {
		// Event delivery is best-effort; the write already committed.
		ctx = s.logg.WithFields(ctx, map[string]any{"event": event.String(), "error": err.Error()})
		s.logg.Warn(ctx, "publish barter event failed")
	}
}

// barterEventPayload mirrors the shape the notification consumer decodes.
type barterEventPayload struct {
	ListingID    uuid.UUID `json:"listing_id"`
	ListingTitle string    `json:"listing_title"`
	ProposerID   uuid.UUID `json:"proposer_id"`
	SellerUserID uuid.UUID `json:"seller_user_id"`
	OfferedItem  string    `json:"offered_item"`
	Status       string    `json:"status,omitempty"`
}

func buildProposalPage(rows []models.BarterProposal, limit int) *ProposalListResult {
	pageSize := pagination.NormalizeLimit(limit)
	result := &ProposalListResult{Proposals: make([]ProposalDTO, 0, len(rows))}

	hasMore := len(rows) > pageSize
	if hasMore {
		rows = rows[:pageSize]
	}
	for i := range rows {
		result.Proposals = append(result.Proposals, toProposalDTO(&rows[i]))
	}
	if hasMore && len(rows) > 0 {
		last := rows[len(rows)-1]
		cursor := pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		result.NextCursor = &cursor
	}
	return result
}
