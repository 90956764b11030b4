package barter

import (
	"time"

	"github.com/google/uuid"

	"github.com/nearmarket/nearmarket-backend/pkg/db/models"
)

// ProposalDTO is the API shape of a barter proposal.
type ProposalDTO struct {
	ID           uuid.UUID  `json:"id"`
	ListingID    uuid.UUID  `json:"listing_id"`
	ListingTitle string     `json:"listing_title,omitempty"`
	ProposerID   uuid.UUID  `json:"proposer_id"`
	SellerID     uuid.UUID  `json:"seller_id"`
	OfferedItem  string     `json:"offered_item"`
	Message      *string    `json:"message,omitempty"`
	Status       string     `json:"status"`
	DecidedAt    *time.Time `json:"decided_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// ProposalListResult is one page of proposals.
type ProposalListResult struct {
	Proposals  []ProposalDTO `json:"proposals"`
	NextCursor *string       `json:"next_cursor,omitempty"`
}

func toProposalDTO(proposal *models.BarterProposal) ProposalDTO {
	dto := ProposalDTO{
		ID:          proposal.ID,
		ListingID:   proposal.ListingID,
		ProposerID:  proposal.ProposerID,
		SellerID:    proposal.SellerID,
		OfferedItem: proposal.OfferedItem,
		Message:     proposal.Message,
		Status:      proposal.Status.String(),
		DecidedAt:   proposal.DecidedAt,
		CreatedAt:   proposal.CreatedAt,
	}
	if proposal.Listing != nil {
		dto.ListingTitle = proposal.Listing.Title
	}
	return dto
}
