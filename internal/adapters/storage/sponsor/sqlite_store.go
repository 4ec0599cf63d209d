package sponsor

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"sponsorship/internal/adapters/storage"
	domain "sponsorship/internal/domain/sponsor"
)

// addedAtLayout keeps a fixed width so lexical order matches time order.
const addedAtLayout = "2006-01-02T15:04:05.000000000Z"

const sponsorColumns = "s.id, s.name, s.external_url, s.applicant_name, s.applicant_email, s.contact_name, s.web_logo, s.active, s.added_at, l.id, l.name, l.ord, l.cost"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new sponsor Store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Compile-time check that *SQLiteStore satisfies Store.
var _ Store = (*SQLiteStore)(nil)

// SaveLevel persists a Level (insert or update).
// PRE: value has been validated
// POST: Level is persisted
func (s *SQLiteStore) SaveLevel(ctx context.Context, value domain.Level) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sponsor_level (id, name, ord, cost) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name=excluded.name, ord=excluded.ord, cost=excluded.cost`,
		value.ID, value.Name, value.Order, value.Cost,
	)
	if err != nil {
		return fmt.Errorf("save level %s: %w", value.ID, err)
	}
	return nil
}

// ListLevels returns every level ordered by Order ascending.
// PRE: none
// POST: Returns levels, most prominent first
func (s *SQLiteStore) ListLevels(ctx context.Context) ([]domain.Level, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name, ord, cost FROM sponsor_level ORDER BY ord")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Level
	for rows.Next() {
		var l domain.Level
		if err := rows.Scan(&l.ID, &l.Name, &l.Order, &l.Cost); err != nil {
			return nil, err
		}
		results = append(results, l)
	}
	return results, rows.Err()
}

// GetByID retrieves a Sponsor with its level and contact emails.
// PRE: id is non-empty
// POST: Returns the entity or an error if not found
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Sponsor, error) {
	query := "SELECT " + sponsorColumns + " FROM sponsor s JOIN sponsor_level l ON l.id = s.level_id WHERE s.id = ?"
	entity, err := scanSponsor(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return domain.Sponsor{}, fmt.Errorf("sponsor not found: %w", err)
	}
	if err != nil {
		return domain.Sponsor{}, err
	}
	emails, err := s.contactEmails(ctx, []string{entity.ID})
	if err != nil {
		return domain.Sponsor{}, err
	}
	entity.ContactEmails = emails[entity.ID]
	return entity, nil
}

// Save persists a Sponsor and replaces its contact emails.
// PRE: entity has been validated
// POST: Entity is persisted (insert or update)
func (s *SQLiteStore) Save(ctx context.Context, entity domain.Sponsor) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	fields := []string{"id", "name", "external_url", "level_id", "applicant_name", "applicant_email", "contact_name", "web_logo", "active", "added_at"}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(fields)), ", ")
	updates := make([]string, 0, len(fields)-1)
	for _, f := range fields[1:] {
		updates = append(updates, f+"=excluded."+f)
	}
	query := fmt.Sprintf(
		"INSERT INTO sponsor (%s) VALUES (%s) ON CONFLICT(id) DO UPDATE SET %s",
		strings.Join(fields, ", "),
		placeholders,
		strings.Join(updates, ", "),
	)

	_, err = tx.ExecContext(ctx, query,
		entity.ID,
		entity.Name,
		entity.ExternalURL,
		entity.Level.ID,
		entity.ApplicantName,
		entity.ApplicantEmail,
		entity.ContactName,
		entity.WebLogo,
		entity.Active,
		entity.AddedAt.UTC().Format(addedAtLayout),
	)
	if err != nil {
		return fmt.Errorf("save sponsor %s: %w", entity.ID, err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM sponsor_contact_email WHERE sponsor_id = ?", entity.ID); err != nil {
		return err
	}
	for i, email := range entity.ContactEmails {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO sponsor_contact_email (sponsor_id, position, email) VALUES (?, ?, ?)",
			entity.ID, i, email,
		); err != nil {
			return fmt.Errorf("save contact email: %w", err)
		}
	}

	return tx.Commit()
}

// List retrieves sponsors matching the filter in storage order (added time, then ID).
// PRE: filter has valid parameters
// POST: Returns matching entities with levels and contact emails populated
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]domain.Sponsor, error) {
	where := " WHERE 1=1"
	var args []any
	if filter.LevelID != "" {
		where += " AND s.level_id = ?"
		args = append(args, filter.LevelID)
	}
	if filter.ActiveOnly {
		where += " AND s.active = 1"
	}
	if len(filter.IDs) > 0 {
		where += " AND s.id IN (" + strings.TrimSuffix(strings.Repeat("?,", len(filter.IDs)), ",") + ")"
		for _, id := range filter.IDs {
			args = append(args, id)
		}
	}

	query := "SELECT " + sponsorColumns + " FROM sponsor s JOIN sponsor_level l ON l.id = s.level_id" + where + " ORDER BY s.added_at, s.id"
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	var results []domain.Sponsor
	for rows.Next() {
		entity, err := scanSponsor(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		results = append(results, entity)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	// Close before the follow-up query so a single-connection pool is not starved.
	rows.Close()

	if len(results) == 0 {
		return results, nil
	}
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.ID
	}
	emails, err := s.contactEmails(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range results {
		results[i].ContactEmails = emails[results[i].ID]
	}
	return results, nil
}

// SaveBenefit persists a BenefitRecord. New records are appended after the
// sponsor's existing ones; updates keep their position.
// PRE: value has been validated
// POST: Record is persisted
func (s *SQLiteStore) SaveBenefit(ctx context.Context, value domain.BenefitRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sponsor_benefit (id, sponsor_id, benefit_name, active, upload, text, position)
		VALUES (?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(position), 0) + 1 FROM sponsor_benefit WHERE sponsor_id = ?))
		ON CONFLICT(id) DO UPDATE SET benefit_name=excluded.benefit_name, active=excluded.active, upload=excluded.upload, text=excluded.text`,
		value.ID, value.SponsorID, value.BenefitName, value.Active, value.Upload, value.Text, value.SponsorID,
	)
	if err != nil {
		return fmt.Errorf("save benefit %s: %w", value.ID, err)
	}
	return nil
}

// ListBenefits retrieves benefit records matching the filter in submission order.
// PRE: filter has valid parameters
// POST: Returns matching records
func (s *SQLiteStore) ListBenefits(ctx context.Context, filter BenefitFilter) ([]domain.BenefitRecord, error) {
	query := "SELECT id, sponsor_id, benefit_name, active, upload, text FROM sponsor_benefit WHERE 1=1"
	var args []any
	if filter.SponsorID != "" {
		query += " AND sponsor_id = ?"
		args = append(args, filter.SponsorID)
	}
	if filter.BenefitName != "" {
		query += " AND benefit_name = ?"
		args = append(args, filter.BenefitName)
	}
	if filter.ActiveOnly {
		query += " AND active = 1"
	}
	if filter.WithUpload {
		query += " AND upload != ''"
	}
	query += " ORDER BY position, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.BenefitRecord
	for rows.Next() {
		var b domain.BenefitRecord
		if err := rows.Scan(&b.ID, &b.SponsorID, &b.BenefitName, &b.Active, &b.Upload, &b.Text); err != nil {
			return nil, err
		}
		results = append(results, b)
	}
	return results, rows.Err()
}

// contactEmails loads contact emails for the given sponsors keyed by sponsor ID.
func (s *SQLiteStore) contactEmails(ctx context.Context, ids []string) (map[string][]string, error) {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	query := "SELECT sponsor_id, email FROM sponsor_contact_email WHERE sponsor_id IN (" +
		strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",") +
		") ORDER BY sponsor_id, position"
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]string, len(ids))
	for rows.Next() {
		var id, email string
		if err := rows.Scan(&id, &email); err != nil {
			return nil, err
		}
		out[id] = append(out[id], email)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSponsor(row rowScanner) (domain.Sponsor, error) {
	var entity domain.Sponsor
	var addedAt string
	err := row.Scan(
		&entity.ID,
		&entity.Name,
		&entity.ExternalURL,
		&entity.ApplicantName,
		&entity.ApplicantEmail,
		&entity.ContactName,
		&entity.WebLogo,
		&entity.Active,
		&addedAt,
		&entity.Level.ID,
		&entity.Level.Name,
		&entity.Level.Order,
		&entity.Level.Cost,
	)
	if err != nil {
		return domain.Sponsor{}, err
	}
	if entity.AddedAt, err = time.Parse(addedAtLayout, addedAt); err != nil {
		return domain.Sponsor{}, fmt.Errorf("parse added_at %q: %w", addedAt, err)
	}
	return entity, nil
}
