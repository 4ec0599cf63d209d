package sponsor

import (
	"context"

	domain "sponsorship/internal/domain/sponsor"
)

// Store persists sponsor levels, sponsors and their benefit records.
type Store interface {
	SaveLevel(ctx context.Context, value domain.Level) error
	ListLevels(ctx context.Context) ([]domain.Level, error)
	GetByID(ctx context.Context, id string) (domain.Sponsor, error)
	Save(ctx context.Context, value domain.Sponsor) error
	List(ctx context.Context, filter ListFilter) ([]domain.Sponsor, error)
	SaveBenefit(ctx context.Context, value domain.BenefitRecord) error
	ListBenefits(ctx context.Context, filter BenefitFilter) ([]domain.BenefitRecord, error)
}

// ListFilter carries filtering parameters for sponsor List operations.
// Results are always ordered by added time, then ID.
type ListFilter struct {
	LevelID    string
	ActiveOnly bool
	IDs        []string // empty means all
}

// BenefitFilter carries filtering parameters for ListBenefits.
// Results are ordered by position, then ID.
type BenefitFilter struct {
	SponsorID   string
	BenefitName string
	ActiveOnly  bool
	WithUpload  bool
}
