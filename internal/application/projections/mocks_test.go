package projections

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"sponsorship/internal/adapters/assets"
	"sponsorship/internal/adapters/storage/sponsor"
	domain "sponsorship/internal/domain/sponsor"
)

// mockSponsorStore serves seeded levels, sponsors and benefit records.
type mockSponsorStore struct {
	levels   []domain.Level
	sponsors []domain.Sponsor // storage order
	benefits []domain.BenefitRecord
}

// ListLevels returns the seeded levels as seeded, without sorting.
// PRE: none
// POST: Returns levels in seeded order
func (m *mockSponsorStore) ListLevels(_ context.Context) ([]domain.Level, error) {
	return append([]domain.Level(nil), m.levels...), nil
}

// List returns seeded sponsors matching the filter.
// PRE: filter is valid
// POST: Returns sponsors in seeded order
func (m *mockSponsorStore) List(_ context.Context, f sponsor.ListFilter) ([]domain.Sponsor, error) {
	var out []domain.Sponsor
	for _, s := range m.sponsors {
		if f.ActiveOnly && !s.Active {
			continue
		}
		if f.LevelID != "" && s.Level.ID != f.LevelID {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

// ListBenefits returns seeded benefit records matching the filter.
// PRE: filter is valid
// POST: Returns records in seeded order
func (m *mockSponsorStore) ListBenefits(_ context.Context, f sponsor.BenefitFilter) ([]domain.BenefitRecord, error) {
	var out []domain.BenefitRecord
	for _, b := range m.benefits {
		if f.SponsorID != "" && b.SponsorID != f.SponsorID {
			continue
		}
		if f.BenefitName != "" && b.BenefitName != f.BenefitName {
			continue
		}
		if f.ActiveOnly && !b.Active {
			continue
		}
		if f.WithUpload && b.Upload == "" {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

// memFS is an in-memory FileSystem. Paths in vanishOnOpen pass Stat but fail Open.
type memFS struct {
	mu           sync.Mutex
	files        map[string]string
	mod          time.Time
	vanishOnOpen map[string]bool
	opened       int
	closed       int
}

func newMemFS(mod time.Time, files map[string]string) *memFS {
	return &memFS{files: files, mod: mod, vanishOnOpen: map[string]bool{}}
}

// Stat reports a seeded file.
// PRE: none
// POST: Returns assets.ErrNotFound for unseeded paths
func (m *memFS) Stat(_ context.Context, p string) (assets.FileInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	body, ok := m.files[p]
	if !ok {
		return assets.FileInfo{}, assets.ErrNotFound
	}
	return assets.FileInfo{Path: p, Size: int64(len(body)), ModTime: m.mod}, nil
}

// Open returns a reader over a seeded file.
// PRE: none
// POST: Returns assets.ErrNotFound for unseeded or vanishing paths
func (m *memFS) Open(_ context.Context, p string) (io.ReadCloser, assets.FileInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	body, ok := m.files[p]
	if !ok || m.vanishOnOpen[p] {
		return nil, assets.FileInfo{}, assets.ErrNotFound
	}
	m.opened++
	return &trackedReader{Reader: strings.NewReader(body), fs: m}, assets.FileInfo{Path: p, Size: int64(len(body)), ModTime: m.mod}, nil
}

type trackedReader struct {
	io.Reader
	fs *memFS
}

func (r *trackedReader) Close() error {
	r.fs.mu.Lock()
	r.fs.closed++
	r.fs.mu.Unlock()
	return nil
}
