package mailmerge

import (
	"strings"

	"sponsorship/internal/domain/sponsor"
)

// ResolveRecipients collects the contact addresses of the given sponsors.
// PRE: none
// POST: Contact emails then the applicant email of each sponsor, in sponsor order,
// lower-cased, each address at most once; blank addresses are dropped
func ResolveRecipients(sponsors ...sponsor.Sponsor) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(addr string) {
		addr = strings.ToLower(strings.TrimSpace(addr))
		if addr == "" || seen[addr] {
			return
		}
		seen[addr] = true
		out = append(out, addr)
	}
	for _, s := range sponsors {
		for _, addr := range s.ContactEmails {
			add(addr)
		}
		add(s.ApplicantEmail)
	}
	return out
}

// SplitAddressList parses a comma-separated cc/bcc field.
// PRE: none
// POST: Returns trimmed, non-empty addresses in input order
func SplitAddressList(field string) []string {
	var out []string
	for _, part := range strings.Split(field, ",") {
		if addr := strings.TrimSpace(part); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}
