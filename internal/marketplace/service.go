package marketplace

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/nearmarket/nearmarket-backend/internal/listings"
	"github.com/nearmarket/nearmarket-backend/internal/search"
	"github.com/nearmarket/nearmarket-backend/pkg/config"
	"github.com/nearmarket/nearmarket-backend/pkg/db/models"
	"github.com/nearmarket/nearmarket-backend/pkg/enums"
	pkgerrors "github.com/nearmarket/nearmarket-backend/pkg/errors"
	"github.com/nearmarket/nearmarket-backend/pkg/geo"
	"github.com/nearmarket/nearmarket-backend/pkg/logger"
	"github.com/nearmarket/nearmarket-backend/pkg/metrics"
)

// generationTTL bounds how long an idle viewer's request counter lives.
const generationTTL = time.Hour

// Generations tracks a monotonic per-viewer request counter so a slow older
// browse cannot overwrite the result of a newer one.
type Generations interface {
	NextBrowseGeneration(ctx context.Context, viewerID string, ttl time.Duration) (int64, error)
	BrowseGeneration(ctx context.Context, viewerID string) (int64, error)
}

// SearchRecorder receives one analytics event per browse, asynchronously.
type SearchRecorder interface {
	RecordSearch(ctx context.Context, event SearchEvent)
}

// SearchEvent is the analytics row emitted per browse execution.
type SearchEvent struct {
	ViewerID    string
	Query       string
	Categories  []string
	Sort        string
	ResultCount int
	DurationMs  int64
	HasLocation bool
	RadiusKm    float64
	OccurredAt  time.Time
}

// BrowseInput carries the full filter/sort state for one browse request.
type BrowseInput struct {
	ViewerID    string
	State       search.FilterState
	Sort        search.SortKey
	ListingType *enums.ListingType
	Limit       int
}

// NearbyInput is the location-first browse variant: coordinates are required
// and distance is the default ordering.
type NearbyInput struct {
	ViewerID      string
	Location      geo.Point
	RadiusKm      float64
	Sort          search.SortKey
	Categories    []string
	ListingType   *string
	MinPriceCents *int
	MaxPriceCents *int
	Query         string
	LocalPickup   bool
	Delivery      bool
	Limit         int
}

// Service orchestrates fetch, filter and rank for the public browse surface.
type Service interface {
	Browse(ctx context.Context, input BrowseInput) (*BrowseResult, error)
	Nearby(ctx context.Context, input NearbyInput) (*BrowseResult, error)
}

type service struct {
	repo        listings.ListingRepository
	generations Generations
	recorder    SearchRecorder
	searchStats *metrics.SearchMetrics
	cfg         config.SearchConfig
	logg        *logger.Logger
}

// NewService validates dependencies and builds the marketplace service.
// Generations, recorder and metrics are optional.
func NewService(
	repo listings.ListingRepository,
	generations Generations,
	recorder SearchRecorder,
	searchStats *metrics.SearchMetrics,
	cfg config.SearchConfig,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, errors.New("listing repository is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	if cfg.DefaultRadiusKm <= 0 {
		cfg.DefaultRadiusKm = search.DefaultRadiusKm
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = 100
	}
	return &service{
		repo:        repo,
		generations: generations,
		recorder:    recorder,
		searchStats: searchStats,
		cfg:         cfg,
		logg:        logg,
	}, nil
}

func (s *service) Browse(ctx context.Context, input BrowseInput) (*BrowseResult, error) {
	if err := input.State.Validate(); err != nil {
		return nil, err
	}
	if input.State.RadiusKm <= 0 {
		input.State.RadiusKm = s.cfg.DefaultRadiusKm
	}
	if s.cfg.MaxRadiusKm > 0 && input.State.RadiusKm > s.cfg.MaxRadiusKm {
		input.State.RadiusKm = s.cfg.MaxRadiusKm
	}
	if !input.Sort.IsValid() {
		input.Sort = search.SortBestMatch
	}

	started := time.Now()
	generation := s.nextGeneration(ctx, input.ViewerID)

	rows, err := s.repo.SearchCandidates(ctx, s.candidateQuery(input))
	if err != nil {
		// Fetch failures surface a retryable error and an empty list; the
		// viewer retries by changing filters.
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "search listings")
	}

	byID := make(map[uuid.UUID]*models.Listing, len(rows))
	items := make([]search.Item, 0, len(rows))
	for i := range rows {
		byID[rows[i].ID] = &rows[i]
		items = append(items, toItem(&rows[i]))
	}

	page := search.Apply(items, input.State)
	search.Rank(page, input.Sort, time.Now())

	limit := input.Limit
	if limit <= 0 || limit > s.cfg.MaxPageSize {
		limit = s.cfg.MaxPageSize
	}
	if len(page) > limit {
		page = page[:limit]
	}

	result := &BrowseResult{
		Products:   make([]RankedListingDTO, 0, len(page)),
		Generation: generation,
	}
	for _, ranked := range page {
		listing := byID[ranked.ID]
		if listing == nil {
			continue
		}
		result.Products = append(result.Products, toRankedDTO(ranked, listing, input.State.HasLocation()))
	}

	if len(result.Products) == 0 {
		reason, message := search.EmptyResult(input.State)
		result.EmptyMessage = message
		s.searchStats.IncEmpty(string(reason))
	}

	result.Superseded = s.isSuperseded(ctx, input.ViewerID, generation)
	if result.Superseded {
		s.searchStats.IncStaleDropped()
	}

	elapsed := time.Since(started)
	s.searchStats.ObserveBrowse(input.Sort.String(), len(result.Products), elapsed)
	s.record(ctx, input, len(result.Products), elapsed)

	return result, nil
}

func (s *service) Nearby(ctx context.Context, input NearbyInput) (*BrowseResult, error) {
	state := search.DefaultFilterState()
	state.UserLocation = &input.Location
	state.Categories = input.Categories
	state.MinPriceCents = input.MinPriceCents
	state.MaxPriceCents = input.MaxPriceCents
	state.Query = input.Query
	state.LocalPickup = input.LocalPickup
	state.Delivery = input.Delivery
	if input.RadiusKm > 0 {
		state.RadiusKm = input.RadiusKm
	} else {
		state.RadiusKm = s.cfg.DefaultRadiusKm
	}
	var listingType *enums.ListingType
	if input.ListingType != nil {
		parsed, err := enums.ParseListingType(*input.ListingType)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid listing type")
		}
		listingType = &parsed
		if parsed == enums.ListingTypeFreebie {
			state.FreeOnly = true
		}
	}

	sort := input.Sort
	if !sort.IsValid() {
		sort = search.SortDistance
	}

	return s.Browse(ctx, BrowseInput{
		ViewerID:    input.ViewerID,
		State:       state,
		Sort:        sort,
		ListingType: listingType,
		Limit:       input.Limit,
	})
}

func (s *service) candidateQuery(input BrowseInput) listings.CandidateQuery {
	query := listings.CandidateQuery{
		Categories:    input.State.Categories,
		ListingType:   input.ListingType,
		MinPriceCents: input.State.MinPriceCents,
		MaxPriceCents: input.State.MaxPriceCents,
		VerifiedOnly:  input.State.VerifiedOnly,
		FeaturedOnly:  input.State.FeaturedOnly,
		OnSaleOnly:    input.State.OnSaleOnly,
		FreeOnly:      input.State.FreeOnly,
		Limit:         s.cfg.MaxPageSize,
	}
	// The query only narrows server-side once it clears the length gate.
	if input.State.HasQuery() {
		query.Query = input.State.Query
	}
	return query
}

func (s *service) nextGeneration(ctx context.Context, viewerID string) int64 {
	if s.generations == nil || viewerID == "" {
		return 0
	}
	generation, err := s.generations.NextBrowseGeneration(ctx, viewerID, generationTTL)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "browse generation bump failed")
		return 0
	}
	return generation
}

// isSuperseded reports whether a newer browse from the same viewer started
// while this one was computing. The counter only grows, so a higher value
// means this response is stale and the client should discard it.
func (s *service) isSuperseded(ctx context.Context, viewerID string, generation int64) bool {
	if s.generations == nil || viewerID == "" || generation == 0 {
		return false
	}
	latest, err := s.generations.BrowseGeneration(ctx, viewerID)
	if err != nil {
		return false
	}
	return latest > generation
}

func (s *service) record(ctx context.Context, input BrowseInput, resultCount int, elapsed time.Duration) {
	if s.recorder == nil {
		return
	}
	s.recorder.RecordSearch(ctx, SearchEvent{
		ViewerID:    input.ViewerID,
		Query:       input.State.Query,
		Categories:  input.State.Categories,
		Sort:        input.Sort.String(),
		ResultCount: resultCount,
		DurationMs:  elapsed.Milliseconds(),
		HasLocation: input.State.HasLocation(),
		RadiusKm:    input.State.RadiusKm,
		OccurredAt:  time.Now().UTC(),
	})
}
