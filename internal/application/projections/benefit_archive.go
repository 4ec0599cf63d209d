package projections

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"sort"
	"time"

	"github.com/klauspost/compress/zip"

	"sponsorship/internal/adapters/assets"
	"sponsorship/internal/adapters/storage/sponsor"
	domain "sponsorship/internal/domain/sponsor"
)

// ArchiveCategory maps a benefit name to its top-level directory in the archive.
type ArchiveCategory struct {
	Benefit string
	Dir     string
}

// DefaultArchiveCategories lists the packaged benefits in archive order.
var DefaultArchiveCategories = []ArchiveCategory{
	{Benefit: domain.BenefitWebLogo, Dir: "web_logos"},
	{Benefit: domain.BenefitPrintLogo, Dir: "print_logos"},
	{Benefit: domain.BenefitAdvertisement, Dir: "advertisement"},
}

// ArchiveFileName returns the download name of the logo archive.
func ArchiveFileName(prefix string) string {
	if prefix == "" {
		return "sponsorlogos.zip"
	}
	return prefix + "_sponsorlogos.zip"
}

// DuplicateArchivePathError reports two different source files mapping to one entry path.
type DuplicateArchivePathError struct {
	Path   string
	First  string
	Second string
}

func (e *DuplicateArchivePathError) Error() string {
	return fmt.Sprintf("archive path %q is produced by both %q and %q", e.Path, e.First, e.Second)
}

// ArchiveQuery carries query parameters. Empty Categories means DefaultArchiveCategories.
type ArchiveQuery struct {
	Categories []ArchiveCategory
}

// ArchiveEntry describes one file written into the archive.
type ArchiveEntry struct {
	Path     string
	Source   string
	Modified time.Time
	Size     int64
}

// ArchiveResult carries the packaged archive.
type ArchiveResult struct {
	Data    []byte
	Entries []ArchiveEntry
	Skipped []string // sources that vanished between lookup and open
}

// BenefitArchiveDeps holds dependencies for QueryBenefitArchive.
type BenefitArchiveDeps struct {
	SponsorStore SponsorStore
	Files        assets.FileSystem
}

// QueryBenefitArchive packages the benefit files of all active sponsors into a zip archive.
// PRE: categories have distinct, non-empty Dir values
// POST: Entries are ordered by category, then level Order, then sponsor storage order
// INVARIANT: Data is only returned when the whole run succeeded
func QueryBenefitArchive(ctx context.Context, query ArchiveQuery, deps BenefitArchiveDeps) (ArchiveResult, error) {
	categories := query.Categories
	if len(categories) == 0 {
		categories = DefaultArchiveCategories
	}

	levels, err := deps.SponsorStore.ListLevels(ctx)
	if err != nil {
		return ArchiveResult{}, fmt.Errorf("list levels: %w", err)
	}
	sort.SliceStable(levels, func(i, j int) bool { return levels[i].Order < levels[j].Order })

	// Sponsors are loaded once per level and reused for every category.
	byLevel := make([][]domain.Sponsor, len(levels))
	for i, l := range levels {
		byLevel[i], err = deps.SponsorStore.List(ctx, sponsor.ListFilter{LevelID: l.ID, ActiveOnly: true})
		if err != nil {
			return ArchiveResult{}, fmt.Errorf("list sponsors for level %s: %w", l.ID, err)
		}
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	p := packer{
		zw:      zw,
		files:   deps.Files,
		sources: make(map[string]string),
	}
	locate := BenefitFilesDeps{SponsorStore: deps.SponsorStore, Files: deps.Files}

	for _, cat := range categories {
		for i, l := range levels {
			for _, s := range byLevel[i] {
				if err := ctx.Err(); err != nil {
					return ArchiveResult{}, err
				}
				files, err := LocateBenefitFiles(ctx, s, cat.Benefit, locate)
				if err != nil {
					return ArchiveResult{}, err
				}
				dir := path.Join(cat.Dir, domain.Slug(l.Name), domain.Slug(s.Name))
				for _, f := range files {
					if err := p.add(ctx, path.Join(dir, path.Base(f.Path)), f.Path); err != nil {
						return ArchiveResult{}, err
					}
				}
			}
		}
	}

	if err := zw.Close(); err != nil {
		return ArchiveResult{}, fmt.Errorf("finish archive: %w", err)
	}

	slog.Info("benefit_archive_built", "entries", len(p.entries), "skipped", len(p.skipped), "bytes", buf.Len())
	return ArchiveResult{
		Data:    buf.Bytes(),
		Entries: p.entries,
		Skipped: p.skipped,
	}, nil
}

// packer writes entries into one archive and tracks which source owns each path.
type packer struct {
	zw      *zip.Writer
	files   assets.FileSystem
	sources map[string]string
	entries []ArchiveEntry
	skipped []string
}

func (p *packer) add(ctx context.Context, name, source string) error {
	if prev, ok := p.sources[name]; ok {
		if prev == source {
			return nil
		}
		return &DuplicateArchivePathError{Path: name, First: prev, Second: source}
	}

	rc, info, err := p.files.Open(ctx, source)
	if errors.Is(err, assets.ErrNotFound) {
		slog.Warn("benefit_archive_file_vanished", "source", source)
		p.skipped = append(p.skipped, source)
		return nil
	}
	if err != nil {
		return fmt.Errorf("open %s: %w", source, err)
	}
	defer rc.Close()

	// Entry times are UTC so the DOS timestamp does not depend on the host zone.
	modified := info.ModTime.UTC()
	w, err := p.zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: modified,
	})
	if err != nil {
		return fmt.Errorf("create entry %s: %w", name, err)
	}
	n, err := io.Copy(w, rc)
	if err != nil {
		return fmt.Errorf("copy %s: %w", source, err)
	}

	p.sources[name] = source
	p.entries = append(p.entries, ArchiveEntry{
		Path:     name,
		Source:   source,
		Modified: modified,
		Size:     n,
	})
	return nil
}
