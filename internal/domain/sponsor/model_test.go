package sponsor_test

import (
	"testing"

	"sponsorship/internal/domain/sponsor"
)

// TestSlug tests archive slug generation.
func TestSlug(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "Gold", want: "gold"},
		{in: "Python Software Foundation", want: "python_software_foundation"},
		{in: "Diamond  Plus", want: "diamond__plus"},
		{in: "", want: ""},
	}
	for _, tt := range tests {
		if got := sponsor.Slug(tt.in); got != tt.want {
			t.Errorf("Slug(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// TestSponsor_Validate tests validation of Sponsor.
func TestSponsor_Validate(t *testing.T) {
	tests := []struct {
		name    string
		s       sponsor.Sponsor
		wantErr error
	}{
		{name: "valid", s: sponsor.Sponsor{Name: "Acme", Level: gold}, wantErr: nil},
		{name: "blank name", s: sponsor.Sponsor{Name: "  ", Level: gold}, wantErr: sponsor.ErrEmptyName},
		{name: "no level", s: sponsor.Sponsor{Name: "Acme"}, wantErr: sponsor.ErrEmptyLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.s.Validate(); err != tt.wantErr {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

// TestLevel_Validate tests validation of Level.
func TestLevel_Validate(t *testing.T) {
	l := sponsor.Level{Name: "Gold", Order: 2}
	if err := l.Validate(); err != nil {
		t.Errorf("expected valid level, got %v", err)
	}
	l = sponsor.Level{Name: "", Order: 1}
	if err := l.Validate(); err != sponsor.ErrEmptyLevelName {
		t.Errorf("expected ErrEmptyLevelName, got %v", err)
	}
	l = sponsor.Level{Name: "Gold", Order: -1}
	if err := l.Validate(); err != sponsor.ErrNegativeOrder {
		t.Errorf("expected ErrNegativeOrder, got %v", err)
	}
}

// TestBenefitRecord_Validate tests validation of BenefitRecord.
func TestBenefitRecord_Validate(t *testing.T) {
	b := sponsor.BenefitRecord{SponsorID: "s-1", BenefitName: sponsor.BenefitPrintLogo}
	if err := b.Validate(); err != nil {
		t.Errorf("expected valid record, got %v", err)
	}
	if b.HasUpload() {
		t.Error("expected no upload")
	}
	b.Upload = "sponsor_files/logo.eps"
	if !b.HasUpload() {
		t.Error("expected upload")
	}
	if err := (&sponsor.BenefitRecord{BenefitName: "x"}).Validate(); err != sponsor.ErrEmptySponsorID {
		t.Errorf("expected ErrEmptySponsorID, got %v", err)
	}
	if err := (&sponsor.BenefitRecord{SponsorID: "s-1"}).Validate(); err != sponsor.ErrEmptyBenefit {
		t.Errorf("expected ErrEmptyBenefit, got %v", err)
	}
}
