package mailmerge

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"sponsorship/internal/domain/sponsor"
)

// marker opens and closes a placeholder, e.g. %%NAME%%.
const marker = "%%"

// ErrUnknownPlaceholder is matched by every UnknownPlaceholderError.
var ErrUnknownPlaceholder = errors.New("unknown placeholder")

// UnknownPlaceholderError reports a placeholder the renderer has no accessor for.
type UnknownPlaceholderError struct {
	Name string
}

func (e *UnknownPlaceholderError) Error() string {
	return fmt.Sprintf("unknown placeholder %s%s%s", marker, e.Name, marker)
}

// Is lets errors.Is match ErrUnknownPlaceholder.
func (e *UnknownPlaceholderError) Is(target error) bool {
	return target == ErrUnknownPlaceholder
}

// accessors is the closed set of placeholders and the sponsor field each one reads.
var accessors = map[string]func(s sponsor.Sponsor) string{
	"NAME":            func(s sponsor.Sponsor) string { return s.Name },
	"URL":             func(s sponsor.Sponsor) string { return s.ExternalURL },
	"LEVEL":           func(s sponsor.Sponsor) string { return s.Level.Name },
	"CONTACT_NAME":    func(s sponsor.Sponsor) string { return s.ContactName },
	"CONTACT_EMAILS":  func(s sponsor.Sponsor) string { return strings.Join(s.ContactEmails, ", ") },
	"APPLICANT_NAME":  func(s sponsor.Sponsor) string { return s.ApplicantName },
	"APPLICANT_EMAIL": func(s sponsor.Sponsor) string { return s.ApplicantEmail },
}

// Placeholders returns the supported placeholder tokens, sorted, for display on the compose form.
func Placeholders() []string {
	names := make([]string, 0, len(accessors))
	for name := range accessors {
		names = append(names, marker+name+marker)
	}
	sort.Strings(names)
	return names
}

// Template is a subject/body pair supplied with a send request.
type Template struct {
	Subject string
	Body    string
}

// Message is a Template rendered against one sponsor.
type Message struct {
	Subject string
	Body    string
}

// Render substitutes every placeholder in tmpl with the sponsor's value.
// PRE: none
// POST: Returns the rendered text, or an UnknownPlaceholderError for the first unknown token
// INVARIANT: Pure; identical inputs always produce identical output
func Render(tmpl string, s sponsor.Sponsor) (string, error) {
	var b strings.Builder
	err := scan(tmpl, func(literal, name string) error {
		b.WriteString(literal)
		if name == "" {
			return nil
		}
		get, ok := accessors[name]
		if !ok {
			return &UnknownPlaceholderError{Name: name}
		}
		b.WriteString(get(s))
		return nil
	})
	if err != nil {
		return "", err
	}
	return b.String(), nil
}

// RenderMessage renders both halves of a template.
// PRE: none
// POST: Returns the rendered message or the first render error (subject first)
func RenderMessage(t Template, s sponsor.Sponsor) (Message, error) {
	subject, err := Render(t.Subject, s)
	if err != nil {
		return Message{}, fmt.Errorf("subject: %w", err)
	}
	body, err := Render(t.Body, s)
	if err != nil {
		return Message{}, fmt.Errorf("body: %w", err)
	}
	return Message{Subject: subject, Body: body}, nil
}

// Validate checks a template without a sponsor.
// PRE: none
// POST: Returns every unknown placeholder in subject and body, joined; nil if all are known
func Validate(t Template) error {
	var errs []error
	seen := make(map[string]bool)
	for _, text := range []string{t.Subject, t.Body} {
		_ = scan(text, func(_, name string) error {
			if name == "" || seen[name] {
				return nil
			}
			if _, ok := accessors[name]; !ok {
				seen[name] = true
				errs = append(errs, &UnknownPlaceholderError{Name: name})
			}
			return nil
		})
	}
	return errors.Join(errs...)
}

// scan walks text, calling emit with each literal run and the placeholder name that follows it.
// The final call carries an empty name. A %% not followed by a token and a closing %% is literal.
func scan(text string, emit func(literal, name string) error) error {
	rest := text
	var literal strings.Builder
	for {
		i := strings.Index(rest, marker)
		if i < 0 {
			literal.WriteString(rest)
			return emit(literal.String(), "")
		}
		literal.WriteString(rest[:i])
		after := rest[i+len(marker):]
		j := strings.Index(after, marker)
		if j < 0 || !isToken(after[:j]) {
			literal.WriteString(marker)
			rest = after
			continue
		}
		if err := emit(literal.String(), after[:j]); err != nil {
			return err
		}
		literal.Reset()
		rest = after[j+len(marker):]
	}
}

// isToken reports whether s is a non-empty run of A-Z, 0-9 and '_' starting with a letter.
func isToken(s string) bool {
	if s == "" || s[0] < 'A' || s[0] > 'Z' {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') && c != '_' {
			return false
		}
	}
	return true
}
