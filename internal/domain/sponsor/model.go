package sponsor

import (
	"errors"
	"strings"
	"time"
)

// Benefit names with special meaning to exports and packaging.
const (
	BenefitWebLogo       = "Web logo" // the sponsor's primary logo, stored on the sponsor itself
	BenefitPrintLogo     = "Print logo"
	BenefitAdvertisement = "Advertisement"
	BenefitDescription   = "Company Description"
)

// Domain errors
var (
	ErrEmptyName      = errors.New("sponsor name cannot be empty")
	ErrEmptyLevel     = errors.New("sponsor level is required")
	ErrEmptyLevelName = errors.New("level name cannot be empty")
	ErrEmptyBenefit   = errors.New("benefit name cannot be empty")
	ErrEmptySponsorID = errors.New("sponsor ID is required")
	ErrNegativeOrder  = errors.New("level order cannot be negative")
)

// Level is a sponsorship tier. Order is unique across levels and sorts them
// from most to least prominent.
type Level struct {
	ID    string
	Name  string
	Order int
	Cost  int // whole currency units
}

// Sponsor is a company taking part in the sponsor program.
type Sponsor struct {
	ID             string
	Name           string
	ExternalURL    string
	Level          Level
	ApplicantName  string
	ApplicantEmail string
	ContactName    string
	ContactEmails  []string
	WebLogo        string // upload path of the primary logo, empty if none
	Active         bool
	AddedAt        time.Time
}

// BenefitRecord is one deliverable a sponsor submitted for a benefit category.
// A sponsor may hold several active records for the same benefit.
type BenefitRecord struct {
	ID          string
	SponsorID   string
	BenefitName string
	Active      bool
	Upload      string // upload path, empty when no file was submitted
	Text        string
}

// Validate checks if the Level has valid data.
// PRE: Level struct is populated
// POST: Returns nil if valid, error otherwise
func (l *Level) Validate() error {
	if strings.TrimSpace(l.Name) == "" {
		return ErrEmptyLevelName
	}
	if l.Order < 0 {
		return ErrNegativeOrder
	}
	return nil
}

// Validate checks if the Sponsor has valid data.
// PRE: Sponsor struct is populated
// POST: Returns nil if valid, error otherwise
func (s *Sponsor) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return ErrEmptyName
	}
	if s.Level.ID == "" {
		return ErrEmptyLevel
	}
	return nil
}

// Validate checks if the BenefitRecord has valid data.
// PRE: BenefitRecord struct is populated
// POST: Returns nil if valid, error otherwise
func (b *BenefitRecord) Validate() error {
	if b.SponsorID == "" {
		return ErrEmptySponsorID
	}
	if strings.TrimSpace(b.BenefitName) == "" {
		return ErrEmptyBenefit
	}
	return nil
}

// HasUpload reports whether the record carries an uploaded file.
// INVARIANT: BenefitRecord fields are not mutated
func (b *BenefitRecord) HasUpload() bool {
	return b.Upload != ""
}

// Slug lower-cases name and replaces spaces with underscores.
// It is used for archive directory names and must stay stable across runs.
func Slug(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "_")
}
