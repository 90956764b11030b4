package listings

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nearmarket/nearmarket-backend/internal/search"
	"github.com/nearmarket/nearmarket-backend/pkg/db/models"
	"github.com/nearmarket/nearmarket-backend/pkg/enums"
	"github.com/nearmarket/nearmarket-backend/pkg/pagination"
)

// ListingRepository defines the persistence surface for marketplace listings.
type ListingRepository interface {
	CreateListing(context.Context, *models.Listing) (*models.Listing, error)
	UpdateListing(context.Context, *models.Listing) (*models.Listing, error)
	DeleteListing(context.Context, uuid.UUID) error
	FindByID(context.Context, uuid.UUID) (*models.Listing, error)
	ListBySeller(context.Context, uuid.UUID, pagination.Params) ([]models.Listing, error)
	SearchCandidates(context.Context, CandidateQuery) ([]models.Listing, error)
}

// CandidateQuery narrows listings server-side before the in-process
// filter/rank pass. Radius filtering stays out of SQL: distance is computed
// per request against the viewer location.
type CandidateQuery struct {
	Categories    []string
	MinPriceCents *int
	MaxPriceCents *int
	Query         string
	ListingType   *enums.ListingType
	VerifiedOnly  bool
	FeaturedOnly  bool
	OnSaleOnly    bool
	FreeOnly      bool
	Limit         int
}

// Repository wires listing persistence to GORM.
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

// CreateListing inserts a new listing row.
func (r *Repository) CreateListing(ctx context.Context, listing *models.Listing) (*models.Listing, error) {
	if err := r.db.WithContext(ctx).Create(listing).Error; err != nil {
		return nil, err
	}
	return listing, nil
}

// UpdateListing updates an existing listing row.
func (r *Repository) UpdateListing(ctx context.Context, listing *models.Listing) (*models.Listing, error) {
	if err := r.db.WithContext(ctx).Save(listing).Error; err != nil {
		return nil, err
	}
	return listing, nil
}

// DeleteListing removes a listing by ID.
func (r *Repository) DeleteListing(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Listing{}).Error
}

// FindByID loads the listing with its seller.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	var listing models.Listing
	if err := r.db.WithContext(ctx).
		Preload("Seller").
		First(&listing, "id = ?", id).
		Error; err != nil {
		return nil, err
	}
	return &listing, nil
}

// ListBySeller returns the seller's listings, newest first, cursor-paginated.
func (r *Repository) ListBySeller(ctx context.Context, sellerID uuid.UUID, page pagination.Params) ([]models.Listing, error) {
	limit := pagination.LimitWithBuffer(page.Limit)

	cursor, err := pagination.ParseCursor(page.Cursor)
	if err != nil {
		return nil, err
	}

	qb := r.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		Order("created_at DESC, id DESC").
		Limit(limit)

	if cursor != nil {
		qb = qb.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Listing
	if err := qb.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// SearchCandidates loads active listings matching the server-side narrowing
// dimensions, with sellers preloaded so verification filters can apply.
func (r *Repository) SearchCandidates(ctx context.Context, query CandidateQuery) ([]models.Listing, error) {
	qb := r.db.WithContext(ctx).
		Preload("Seller").
		Where("status = ?", enums.ListingStatusActive)

	if categories := selectedCategories(query.Categories); len(categories) > 0 {
		qb = qb.Where("LOWER(category) IN ?", categories)
	}
	if query.MinPriceCents != nil {
		// Freebies trivially pass the minimum bound.
		qb = qb.Where("(price_cents >= ? OR price_cents = 0 OR listing_type = ?)",
			*query.MinPriceCents, enums.ListingTypeFreebie)
	}
	if query.MaxPriceCents != nil {
		qb = qb.Where("price_cents <= ?", *query.MaxPriceCents)
	}
	if query.ListingType != nil {
		qb = qb.Where("listing_type = ?", *query.ListingType)
	}
	if query.FeaturedOnly {
		qb = qb.Where("is_featured = TRUE")
	}
	if query.OnSaleOnly {
		qb = qb.Where("on_sale = TRUE")
	}
	if query.FreeOnly {
		qb = qb.Where("(price_cents = 0 OR listing_type = ?)", enums.ListingTypeFreebie)
	}
	if query.VerifiedOnly {
		qb = qb.Where("seller_id IN (SELECT id FROM sellers WHERE status = ?)", enums.SellerStatusVerified)
	}
	if needle := strings.TrimSpace(query.Query); needle != "" {
		pattern := "%" + strings.ToLower(needle) + "%"
		qb = qb.Where("(LOWER(title) LIKE ? OR LOWER(COALESCE(description, '')) LIKE ?)", pattern, pattern)
	}

	limit := query.Limit
	if limit <= 0 || limit > pagination.MaxLimit {
		limit = pagination.MaxLimit
	}

	var rows []models.Listing
	if err := qb.Order("created_at DESC, id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func selectedCategories(categories []string) []string {
	out := make([]string, 0, len(categories))
	for _, c := range categories {
		trimmed := strings.ToLower(strings.TrimSpace(c))
		if trimmed == "" {
			continue
		}
		if trimmed == search.CategoryAll {
			return nil
		}
		out = append(out, trimmed)
	}
	return out
}
