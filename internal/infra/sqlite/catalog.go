package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bilix/bilix/internal/domain"
	"github.com/google/uuid"
)

// ListVendors returns the user's vendors ordered by name.
func (s *Store) ListVendors(ctx context.Context, userID string) ([]domain.Vendor, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT vendor_id, user_id, name, email, phone, address, created_ts
		FROM vendors WHERE user_id = ? ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("ListVendors: query: %w", err)
	}
	defer rows.Close()

	var vendors []domain.Vendor
	for rows.Next() {
		v, err := scanVendor(rows)
		if err != nil {
			return nil, fmt.Errorf("ListVendors: %w", err)
		}
		vendors = append(vendors, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListVendors: rows: %w", err)
	}
	return vendors, nil
}

// InsertVendor stores a vendor, assigning an ID when empty.
func (s *Store) InsertVendor(ctx context.Context, v *domain.Vendor) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO vendors (vendor_id, user_id, name, email, phone, address, created_ts)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.UserID, v.Name, nullable(v.Email), nullable(v.Phone), nullable(v.Address),
		formatTS(v.CreatedAt))
	if err != nil {
		return fmt.Errorf("InsertVendor: %w", err)
	}
	return nil
}

// FindVendorByName matches on trimmed, case-insensitive name. Returns nil when absent.
func (s *Store) FindVendorByName(ctx context.Context, userID, name string) (*domain.Vendor, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT vendor_id, user_id, name, email, phone, address, created_ts
		FROM vendors
		WHERE user_id = ? AND UPPER(TRIM(name)) = UPPER(TRIM(?))
		ORDER BY created_ts LIMIT 1`, userID, name)
	v, err := scanVendor(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("FindVendorByName: %w", err)
	}
	return &v, nil
}

// ListCategories returns the user's categories ordered by name.
func (s *Store) ListCategories(ctx context.Context, userID string) ([]domain.Category, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT category_id, user_id, name, color, created_ts
		FROM categories WHERE user_id = ? ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("ListCategories: query: %w", err)
	}
	defer rows.Close()

	var cats []domain.Category
	for rows.Next() {
		var (
			c       domain.Category
			color   sql.NullString
			created string
		)
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &color, &created); err != nil {
			return nil, fmt.Errorf("ListCategories: scan: %w", err)
		}
		c.Color = color.String
		c.CreatedAt = parseTS(created)
		cats = append(cats, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListCategories: rows: %w", err)
	}
	return cats, nil
}

// InsertCategory stores a category, assigning an ID when empty.
func (s *Store) InsertCategory(ctx context.Context, c *domain.Category) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (category_id, user_id, name, color, created_ts)
		VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.Name, nullable(c.Color), formatTS(c.CreatedAt))
	if err != nil {
		return fmt.Errorf("InsertCategory: %w", err)
	}
	return nil
}

func scanVendor(r rowScanner) (domain.Vendor, error) {
	var (
		v                     domain.Vendor
		email, phone, address sql.NullString
		created               string
	)
	if err := r.Scan(&v.ID, &v.UserID, &v.Name, &email, &phone, &address, &created); err != nil {
		return v, err
	}
	v.Email = email.String
	v.Phone = phone.String
	v.Address = address.String
	v.CreatedAt = parseTS(created)
	return v, nil
}
