package projections

import (
	"context"

	"sponsorship/internal/adapters/storage/sponsor"
	domain "sponsorship/internal/domain/sponsor"
)

// SponsorStore interface for sponsor queries.
type SponsorStore interface {
	ListLevels(ctx context.Context) ([]domain.Level, error)
	List(ctx context.Context, filter sponsor.ListFilter) ([]domain.Sponsor, error)
	ListBenefits(ctx context.Context, filter sponsor.BenefitFilter) ([]domain.BenefitRecord, error)
}
