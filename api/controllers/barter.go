package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/nearmarket/nearmarket-backend/api/responses"
	"github.com/nearmarket/nearmarket-backend/api/validators"
	bartersvc "github.com/nearmarket/nearmarket-backend/internal/barter"
	pkgerrors "github.com/nearmarket/nearmarket-backend/pkg/errors"
	"github.com/nearmarket/nearmarket-backend/pkg/logger"
)

type proposeBarterRequest struct {
	ListingID   string  `json:"listing_id" validate:"required"`
	OfferedItem string  `json:"offered_item" validate:"required,max=300"`
	Message     *string `json:"message,omitempty" validate:"omitempty,max=2000"`
}

type decideBarterRequest struct {
	Accept bool `json:"accept"`
}

// ProposeBarter submits an offer against a barter listing.
func ProposeBarter(svc bartersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		proposerID, err := authenticatedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload proposeBarterRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listingID, err := uuid.Parse(strings.TrimSpace(payload.ListingID))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid listing id"))
			return
		}

		proposal, err := svc.Propose(r.Context(), proposerID, bartersvc.ProposeInput{
			ListingID:   listingID,
			OfferedItem: payload.OfferedItem,
			Message:     payload.Message,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, proposal)
	}
}

// DecideBarter lets the listing's seller accept or decline a proposal.
func DecideBarter(svc bartersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID, err := authenticatedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		proposalID, err := pathUUID(r, "proposalId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload decideBarterRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		proposal, err := svc.Decide(r.Context(), sellerID, proposalID, payload.Accept)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, proposal)
	}
}

// WithdrawBarter lets the proposer pull a pending offer.
func WithdrawBarter(svc bartersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		proposerID, err := authenticatedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		proposalID, err := pathUUID(r, "proposalId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		proposal, err := svc.Withdraw(r.Context(), proposerID, proposalID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, proposal)
	}
}

// ListListingProposals pages through offers targeting a seller-owned listing.
func ListListingProposals(svc bartersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID, err := authenticatedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listingID, err := pathUUID(r, "listingId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := paginationParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListForListing(r.Context(), sellerID, listingID, page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// ListMyProposals pages through the authenticated user's own offers.
func ListMyProposals(svc bartersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		proposerID, err := authenticatedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := paginationParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListMine(r.Context(), proposerID, page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
