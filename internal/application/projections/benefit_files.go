package projections

import (
	"context"
	"errors"
	"fmt"

	"sponsorship/internal/adapters/assets"
	"sponsorship/internal/adapters/storage/sponsor"
	domain "sponsorship/internal/domain/sponsor"
)

// BenefitFilesDeps holds dependencies for LocateBenefitFiles.
type BenefitFilesDeps struct {
	SponsorStore SponsorStore
	Files        assets.FileSystem
}

// LocateBenefitFiles lists the stored files a sponsor submitted for one benefit category.
// PRE: s is an active sponsor; category is a benefit name
// POST: Returns the files that exist right now, in submission order, each path at most once
// INVARIANT: A referenced file missing from storage is left out, never reported as an error
func LocateBenefitFiles(ctx context.Context, s domain.Sponsor, category string, deps BenefitFilesDeps) ([]assets.FileInfo, error) {
	var candidates []string
	if category == domain.BenefitWebLogo {
		// The primary logo lives on the sponsor record, not in a benefit record.
		if s.WebLogo != "" {
			candidates = append(candidates, s.WebLogo)
		}
	} else {
		records, err := deps.SponsorStore.ListBenefits(ctx, sponsor.BenefitFilter{
			SponsorID:   s.ID,
			BenefitName: category,
			ActiveOnly:  true,
			WithUpload:  true,
		})
		if err != nil {
			return nil, fmt.Errorf("list %s benefits for %s: %w", category, s.ID, err)
		}
		for _, r := range records {
			if r.HasUpload() {
				candidates = append(candidates, r.Upload)
			}
		}
	}

	seen := make(map[string]bool, len(candidates))
	var found []assets.FileInfo
	for _, p := range candidates {
		if seen[p] {
			continue
		}
		seen[p] = true
		info, err := deps.Files.Stat(ctx, p)
		if errors.Is(err, assets.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		found = append(found, info)
	}
	return found, nil
}
