package barter

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nearmarket/nearmarket-backend/pkg/db/models"
	"github.com/nearmarket/nearmarket-backend/pkg/enums"
	"github.com/nearmarket/nearmarket-backend/pkg/pagination"
)

// ProposalRepository exposes barter proposal persistence.
type ProposalRepository interface {
	Create(ctx context.Context, proposal *models.BarterProposal) (*models.BarterProposal, error)
	Update(ctx context.Context, proposal *models.BarterProposal) (*models.BarterProposal, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.BarterProposal, error)
	ListForListing(ctx context.Context, listingID uuid.UUID, page pagination.Params) ([]models.BarterProposal, error)
	ListForProposer(ctx context.Context, proposerID uuid.UUID, page pagination.Params) ([]models.BarterProposal, error)
	HasPendingProposal(ctx context.Context, listingID, proposerID uuid.UUID) (bool, error)
}

// Repository wires barter persistence to GORM.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create inserts a new proposal row.
func (r *Repository) Create(ctx context.Context, proposal *models.BarterProposal) (*models.BarterProposal, error) {
	if err := r.db.WithContext(ctx).Create(proposal).Error; err != nil {
		return nil, err
	}
	return proposal, nil
}

// Update saves the proposal row.
func (r *Repository) Update(ctx context.Context, proposal *models.BarterProposal) (*models.BarterProposal, error) {
	if err := r.db.WithContext(ctx).Save(proposal).Error; err != nil {
		return nil, err
	}
	return proposal, nil
}

// FindByID loads a proposal with its listing.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.BarterProposal, error) {
	var proposal models.BarterProposal
	if err := r.db.WithContext(ctx).
		Preload("Listing").
		First(&proposal, "id = ?", id).
		Error; err != nil {
		return nil, err
	}
	return &proposal, nil
}

// ListForListing returns proposals targeting a listing, newest first.
func (r *Repository) ListForListing(ctx context.Context, listingID uuid.UUID, page pagination.Params) ([]models.BarterProposal, error) {
	return r.list(ctx, "listing_id = ?", listingID, page)
}

// ListForProposer returns proposals made by a user, newest first.
func (r *Repository) ListForProposer(ctx context.Context, proposerID uuid.UUID, page pagination.Params) ([]models.BarterProposal, error) {
	return r.list(ctx, "proposer_id = ?", proposerID, page)
}

func (r *Repository) list(ctx context.Context, cond string, id uuid.UUID, page pagination.Params) ([]models.BarterProposal, error) {
	limit := pagination.LimitWithBuffer(page.Limit)

	cursor, err := pagination.ParseCursor(page.Cursor)
	if err != nil {
		return nil, err
	}

	qb := r.db.WithContext(ctx).
		Preload("Listing").
		Where(cond, id).
		Order("created_at DESC, id DESC").
		Limit(limit)
	if cursor != nil {
		qb = qb.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []models.BarterProposal
	if err := qb.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// HasPendingProposal reports whether the proposer already has an open
// proposal on the listing.
func (r *Repository) HasPendingProposal(ctx context.Context, listingID, proposerID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.BarterProposal{}).
		Where("listing_id = ? AND proposer_id = ? AND status = ?", listingID, proposerID, enums.BarterStatusPending).
		Count(&count).
		Error
	return count > 0, err
}
