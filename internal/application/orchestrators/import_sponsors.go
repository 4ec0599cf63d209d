package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	domain "sponsorship/internal/domain/sponsor"
)

// ImportSponsorsStore defines the store interface needed by the sponsor import.
type ImportSponsorsStore interface {
	SaveLevel(ctx context.Context, value domain.Level) error
	ListLevels(ctx context.Context) ([]domain.Level, error)
	Save(ctx context.Context, value domain.Sponsor) error
	SaveBenefit(ctx context.Context, value domain.BenefitRecord) error
}

// ImportSponsorsInput carries the YAML stream and import options.
// PRE: Reader holds one YAML document with optional `levels` and `sponsors` lists.
// POST: Returns aggregate counts and per-item errors; writes are skipped when DryRun=true.
// INVARIANT: Existing records are never deleted; records with a known or derived ID are updated in place,
// so importing the same document twice creates nothing new.
type ImportSponsorsInput struct {
	Reader io.Reader
	DryRun bool
}

// ImportSponsorsResult holds aggregate counts and per-item errors from an import run.
type ImportSponsorsResult struct {
	Levels   int
	Sponsors int
	Benefits int
	Errors   []ImportSponsorsItemError
	DryRun   bool
}

// ImportSponsorsItemError describes a validation or processing error for one document item.
type ImportSponsorsItemError struct {
	Item    string // e.g. "sponsors[2]" or "sponsors[2].benefits[0]"
	Message string
}

// ImportSponsorsDeps holds external dependencies for the import orchestrator.
type ImportSponsorsDeps struct {
	SponsorStore ImportSponsorsStore
	Now          func() time.Time
}

// importNamespace scopes the IDs derived for records that the document leaves without one.
var importNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:sponsorship:import"))

// ImportedSponsorID is the ID given to a sponsor imported without one. Re-importing the
// same name updates the same sponsor.
func ImportedSponsorID(name string) string {
	return uuid.NewSHA1(importNamespace, []byte("sponsor/"+domain.Slug(name))).String()
}

// ImportedBenefitID is the ID given to a benefit record imported without one. key is the
// upload path, or "#n" for the n-th record of that benefit without an upload.
func ImportedBenefitID(sponsorID, benefit, key string) string {
	return uuid.NewSHA1(importNamespace, []byte("benefit/"+sponsorID+"/"+benefit+"/"+key)).String()
}

type sponsorDocument struct {
	Levels   []levelDoc   `yaml:"levels"`
	Sponsors []sponsorDoc `yaml:"sponsors"`
}

type levelDoc struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Order int    `yaml:"order"`
	Cost  int    `yaml:"cost"`
}

type sponsorDoc struct {
	ID             string       `yaml:"id"`
	Name           string       `yaml:"name"`
	URL            string       `yaml:"url"`
	Level          string       `yaml:"level"`
	ApplicantName  string       `yaml:"applicant_name"`
	ApplicantEmail string       `yaml:"applicant_email"`
	ContactName    string       `yaml:"contact_name"`
	ContactEmails  []string     `yaml:"contact_emails"`
	WebLogo        string       `yaml:"web_logo"`
	Active         *bool        `yaml:"active"`
	AddedAt        time.Time    `yaml:"added_at"`
	Benefits       []benefitDoc `yaml:"benefits"`
}

type benefitDoc struct {
	ID      string `yaml:"id"`
	Benefit string `yaml:"benefit"`
	Upload  string `yaml:"upload"`
	Text    string `yaml:"text"`
	Active  *bool  `yaml:"active"`
}

// boolOr returns *b, or fallback when the key was absent.
func boolOr(b *bool, fallback bool) bool {
	if b == nil {
		return fallback
	}
	return *b
}

// ExecuteImportSponsors parses a YAML document and creates or updates levels, sponsors and benefit records.
// PRE: Input.Reader contains valid YAML; unknown keys are rejected.
// POST: Levels are saved before sponsors and sponsors before their benefits; an invalid
//
//	sponsor skips its benefits; aggregate counts and per-item errors are returned.
//
// INVARIANT: When DryRun=true no writes occur; benefit records keep document order.
func ExecuteImportSponsors(ctx context.Context, input ImportSponsorsInput, deps ImportSponsorsDeps) (ImportSponsorsResult, error) {
	var doc sponsorDocument
	dec := yaml.NewDecoder(input.Reader)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return ImportSponsorsResult{}, &ImportSponsorsValidationError{Message: "invalid YAML: " + err.Error()}
	}

	result := ImportSponsorsResult{DryRun: input.DryRun}
	fail := func(item, format string, args ...any) {
		result.Errors = append(result.Errors, ImportSponsorsItemError{Item: item, Message: fmt.Sprintf(format, args...)})
	}

	stored, err := deps.SponsorStore.ListLevels(ctx)
	if err != nil {
		return ImportSponsorsResult{}, err
	}
	levels := make(map[string]domain.Level, len(stored)+len(doc.Levels))
	orders := make(map[int]string, len(stored)+len(doc.Levels))
	for _, l := range stored {
		levels[l.ID] = l
		orders[l.Order] = l.ID
	}

	for i, ld := range doc.Levels {
		item := fmt.Sprintf("levels[%d]", i)
		l := domain.Level{ID: strings.TrimSpace(ld.ID), Name: strings.TrimSpace(ld.Name), Order: ld.Order, Cost: ld.Cost}
		if l.ID == "" {
			l.ID = domain.Slug(l.Name)
		}
		if err := l.Validate(); err != nil {
			fail(item, "%v", err)
			continue
		}
		if owner, ok := orders[l.Order]; ok && owner != l.ID {
			fail(item, "order %d is already used by level %q", l.Order, owner)
			continue
		}
		if !input.DryRun {
			if err := deps.SponsorStore.SaveLevel(ctx, l); err != nil {
				slog.Error("sponsors_import_save_failed", "item", item, "err", err)
				fail(item, "save failed (see server log)")
				continue
			}
		}
		levels[l.ID] = l
		orders[l.Order] = l.ID
		result.Levels++
	}

	// Sponsors without added_at keep document order: storage orders by added time.
	base := deps.Now().UTC()
	seen := make(map[string]string, len(doc.Sponsors))
	for i, sd := range doc.Sponsors {
		item := fmt.Sprintf("sponsors[%d]", i)
		s, msg := sponsorFromDoc(sd, levels)
		if msg != "" {
			fail(item, "%s", msg)
			continue
		}
		if s.ID == "" && s.Name != "" {
			s.ID = ImportedSponsorID(s.Name)
		}
		if prev, ok := seen[s.ID]; ok && s.ID != "" {
			fail(item, "same sponsor as %s", prev)
			continue
		}
		if s.AddedAt.IsZero() {
			s.AddedAt = base.Add(time.Duration(i) * time.Microsecond)
		}
		if err := s.Validate(); err != nil {
			fail(item, "%v", err)
			continue
		}
		seen[s.ID] = item
		if !input.DryRun {
			if err := deps.SponsorStore.Save(ctx, s); err != nil {
				slog.Error("sponsors_import_save_failed", "item", item, "sponsor", s.Name, "err", err)
				fail(item, "save failed (see server log)")
				continue
			}
		}
		result.Sponsors++

		withoutUpload := make(map[string]int)
		for j, bd := range sd.Benefits {
			bItem := fmt.Sprintf("%s.benefits[%d]", item, j)
			b := domain.BenefitRecord{
				ID:          strings.TrimSpace(bd.ID),
				SponsorID:   s.ID,
				BenefitName: strings.TrimSpace(bd.Benefit),
				Active:      boolOr(bd.Active, true),
				Upload:      strings.TrimSpace(bd.Upload),
				Text:        bd.Text,
			}
			if b.ID == "" {
				key := b.Upload
				if key == "" {
					withoutUpload[b.BenefitName]++
					key = fmt.Sprintf("#%d", withoutUpload[b.BenefitName])
				}
				b.ID = ImportedBenefitID(s.ID, b.BenefitName, key)
			}
			if err := b.Validate(); err != nil {
				fail(bItem, "%v", err)
				continue
			}
			if !input.DryRun {
				if err := deps.SponsorStore.SaveBenefit(ctx, b); err != nil {
					slog.Error("sponsors_import_save_failed", "item", bItem, "err", err)
					fail(bItem, "save failed (see server log)")
					continue
				}
			}
			result.Benefits++
		}
	}

	slog.Info("sponsors_import",
		"dry_run", input.DryRun,
		"levels", result.Levels,
		"sponsors", result.Sponsors,
		"benefits", result.Benefits,
		"errors", len(result.Errors),
	)

	return result, nil
}

// sponsorFromDoc maps one document entry onto a Sponsor; msg is non-empty when the entry is unusable.
func sponsorFromDoc(sd sponsorDoc, levels map[string]domain.Level) (s domain.Sponsor, msg string) {
	level, ok := levels[strings.TrimSpace(sd.Level)]
	if !ok {
		return domain.Sponsor{}, fmt.Sprintf("unknown level %q", sd.Level)
	}

	emails := make([]string, 0, len(sd.ContactEmails))
	for _, raw := range sd.ContactEmails {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		addr, err := mail.ParseAddress(raw)
		if err != nil {
			return domain.Sponsor{}, "invalid contact email: " + raw
		}
		emails = append(emails, addr.Address)
	}
	applicant := strings.TrimSpace(sd.ApplicantEmail)
	if applicant != "" {
		addr, err := mail.ParseAddress(applicant)
		if err != nil {
			return domain.Sponsor{}, "invalid applicant email: " + applicant
		}
		applicant = addr.Address
	}

	return domain.Sponsor{
		ID:             strings.TrimSpace(sd.ID),
		Name:           strings.TrimSpace(sd.Name),
		ExternalURL:    strings.TrimSpace(sd.URL),
		Level:          level,
		ApplicantName:  strings.TrimSpace(sd.ApplicantName),
		ApplicantEmail: applicant,
		ContactName:    strings.TrimSpace(sd.ContactName),
		ContactEmails:  emails,
		WebLogo:        strings.TrimSpace(sd.WebLogo),
		Active:         boolOr(sd.Active, true),
		AddedAt:        sd.AddedAt,
	}, ""
}

// ImportSponsorsValidationError is returned when the document cannot be parsed.
type ImportSponsorsValidationError struct {
	Message string
}

// Error implements the error interface.
// PRE: e.Message is set.
// POST: returns the validation error message string.
func (e *ImportSponsorsValidationError) Error() string {
	return e.Message
}
