package sponsor

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// NoDescription is written in place of an empty sponsor description.
const NoDescription = "-- NO DESCRIPTION FOR THIS SPONSOR --"

// separatorWidth is the width of the line between two entries of one level.
const separatorWidth = 80

// DirectoryEntry is one sponsor line-up item in the plaintext directory.
type DirectoryEntry struct {
	Name        string
	URL         string
	Level       Level
	Description string
}

// RenderDirectory renders entries as a plaintext sponsor directory.
// PRE: entries belong to active sponsors; Level.Order is unique per level
// POST: Output groups entries by level in ascending Order, keeping input order inside a level
// INVARIANT: A separator line appears only between two entries, never after the last of a level
func RenderDirectory(entries []DirectoryEntry) string {
	sorted := make([]DirectoryEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Level.Order != sorted[j].Level.Order {
			return sorted[i].Level.Order < sorted[j].Level.Order
		}
		return sorted[i].Level.Name < sorted[j].Level.Name
	})

	var b strings.Builder
	for start := 0; start < len(sorted); {
		end := start + 1
		for end < len(sorted) && sameLevel(sorted[start].Level, sorted[end].Level) {
			end++
		}
		writeLevel(&b, sorted[start].Level.Name, sorted[start:end])
		start = end
	}
	return b.String()
}

func sameLevel(a, b Level) bool {
	return a.Order == b.Order && a.Name == b.Name
}

func writeLevel(b *strings.Builder, name string, group []DirectoryEntry) {
	banner := strings.Repeat("-", utf8.RuneCountInString(name)+4)
	b.WriteString(banner + "\n")
	b.WriteString("| " + name + " |\n")
	b.WriteString(banner + "\n\n")

	for i, e := range group {
		description := strings.TrimSpace(e.Description)
		if description == "" {
			description = NoDescription
		}
		b.WriteString(e.Name + "\n\n" + description)

		// lookahead: a separator only when another entry follows
		if i+1 < len(group) {
			b.WriteString("\n\n" + strings.Repeat("-", separatorWidth) + "\n\n")
		} else {
			b.WriteString("\n\n")
		}
	}
}
