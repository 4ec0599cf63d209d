package projections

import (
	"context"
	"fmt"

	"sponsorship/internal/adapters/storage/sponsor"
	domain "sponsorship/internal/domain/sponsor"
)

// SponsorDirectoryDeps holds dependencies for QuerySponsorDirectory.
type SponsorDirectoryDeps struct {
	SponsorStore SponsorStore
}

// SponsorDirectoryResult carries the query result.
type SponsorDirectoryResult struct {
	Entries []domain.DirectoryEntry
	Text    string
}

// QuerySponsorDirectory builds the plaintext directory of active sponsors.
// PRE: none
// POST: Text is RenderDirectory(Entries); entries keep storage order within a level
// INVARIANT: Inactive sponsors never appear
func QuerySponsorDirectory(ctx context.Context, deps SponsorDirectoryDeps) (SponsorDirectoryResult, error) {
	sponsors, err := deps.SponsorStore.List(ctx, sponsor.ListFilter{ActiveOnly: true})
	if err != nil {
		return SponsorDirectoryResult{}, fmt.Errorf("list sponsors: %w", err)
	}

	descriptions, err := deps.SponsorStore.ListBenefits(ctx, sponsor.BenefitFilter{
		BenefitName: domain.BenefitDescription,
		ActiveOnly:  true,
	})
	if err != nil {
		return SponsorDirectoryResult{}, fmt.Errorf("list descriptions: %w", err)
	}
	// Later records overwrite earlier ones, so the most recent submission wins.
	latest := make(map[string]string, len(descriptions))
	for _, d := range descriptions {
		latest[d.SponsorID] = d.Text
	}

	entries := make([]domain.DirectoryEntry, 0, len(sponsors))
	for _, s := range sponsors {
		entries = append(entries, domain.DirectoryEntry{
			Name:        s.Name,
			URL:         s.ExternalURL,
			Level:       s.Level,
			Description: latest[s.ID],
		})
	}

	return SponsorDirectoryResult{
		Entries: entries,
		Text:    domain.RenderDirectory(entries),
	}, nil
}
