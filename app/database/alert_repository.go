package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

const timeLayout = "2006-01-02T15:04:05Z"

const alertColumns = `id, title, message, region, severity, type, source, link,
	is_active, active_until, created_by, created_at, updated_at`

// severityOrder ranks stored severities for ORDER BY, most urgent highest.
const severityOrder = `CASE severity WHEN 'CRITICAL' THEN 3 WHEN 'WARNING' THEN 2 WHEN 'INFO' THEN 1 ELSE 0 END`

type dbAlert struct {
	ID          string         `db:"id"`
	Title       string         `db:"title"`
	Message     string         `db:"message"`
	Region      string         `db:"region"`
	Severity    string         `db:"severity"`
	Type        string         `db:"type"`
	Source      string         `db:"source"`
	Link        string         `db:"link"`
	IsActive    bool           `db:"is_active"`
	ActiveUntil sql.NullString `db:"active_until"`
	CreatedBy   string         `db:"created_by"`
	CreatedAt   string         `db:"created_at"`
	UpdatedAt   string         `db:"updated_at"`
}

func (a dbAlert) toModel() Alert {
	alert := Alert{
		ID:        a.ID,
		Title:     a.Title,
		Message:   a.Message,
		Region:    a.Region,
		Severity:  a.Severity,
		Type:      a.Type,
		Source:    a.Source,
		Link:      a.Link,
		IsActive:  a.IsActive,
		CreatedBy: a.CreatedBy,
	}
	alert.CreatedAt, _ = time.Parse(timeLayout, a.CreatedAt)
	alert.UpdatedAt, _ = time.Parse(timeLayout, a.UpdatedAt)
	if a.ActiveUntil.Valid {
		if until, err := time.Parse(timeLayout, a.ActiveUntil.String); err == nil {
			alert.ActiveUntil = &until
		}
	}
	return alert
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatOptionalTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	v := formatTime(*t)
	return &v
}

// SQLiteAlertRepository stores admin-authored alerts and saved-alert
// bookmarks.
type SQLiteAlertRepository struct {
	db  *DB
	now func() time.Time
}

func NewAlertRepository(db *DB) *SQLiteAlertRepository {
	return &SQLiteAlertRepository{db: db, now: time.Now}
}

// ListActive returns alerts that are active and not expired, most severe
// first and newest first within a severity.
func (r *SQLiteAlertRepository) ListActive(ctx context.Context, filter Filter) ([]Alert, error) {
	conditions := []string{}
	args := []any{}

	if !filter.IncludeInactive {
		conditions = append(conditions, "is_active = 1", "(active_until IS NULL OR active_until > ?)")
		args = append(args, formatTime(r.now()))
	}
	if filter.Region != "" {
		conditions = append(conditions, "region = ?")
		args = append(args, strings.ToUpper(filter.Region))
	}
	if filter.Type != "" {
		conditions = append(conditions, "type = ?")
		args = append(args, strings.ToUpper(filter.Type))
	}

	query := "SELECT " + alertColumns + " FROM alerts"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY " + severityOrder + " DESC, created_at DESC, rowid DESC"

	var rows []dbAlert
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}

	return lo.Map(rows, func(row dbAlert, _ int) Alert { return row.toModel() }), nil
}

func (r *SQLiteAlertRepository) Get(ctx context.Context, id string) (*Alert, error) {
	var row dbAlert
	err := r.db.GetContext(ctx, &row, "SELECT "+alertColumns+" FROM alerts WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}

	alert := row.toModel()
	return &alert, nil
}

func (r *SQLiteAlertRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM alerts"); err != nil {
		return 0, fmt.Errorf("failed to count alerts: %w", err)
	}
	return count, nil
}

// Create validates and inserts alert, filling in its ID and timestamps.
func (r *SQLiteAlertRepository) Create(ctx context.Context, alert *Alert) error {
	now := r.now().UTC().Truncate(time.Second)

	normalize(alert)
	if err := ValidateAlert(alert, now); err != nil {
		return err
	}

	alert.ID = uuid.NewString()
	alert.CreatedAt = now
	alert.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO alerts (`+alertColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, alert.ID, alert.Title, alert.Message, alert.Region, alert.Severity, alert.Type,
		alert.Source, alert.Link, alert.IsActive, formatOptionalTime(alert.ActiveUntil),
		alert.CreatedBy, formatTime(alert.CreatedAt), formatTime(alert.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}

	return nil
}

// Update applies a partial update and returns the stored result.
func (r *SQLiteAlertRepository) Update(ctx context.Context, id string, update AlertUpdate) (*Alert, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var row dbAlert
	err = tx.GetContext(ctx, &row, "SELECT "+alertColumns+" FROM alerts WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load alert: %w", err)
	}

	alert := row.toModel()
	applyUpdate(&alert, update)
	normalize(&alert)
	if err := validateFields(&alert); err != nil {
		return nil, err
	}
	alert.UpdatedAt = r.now().UTC().Truncate(time.Second)

	_, err = tx.ExecContext(ctx, `
		UPDATE alerts
		SET title = ?, message = ?, region = ?, severity = ?, type = ?, source = ?, link = ?,
			is_active = ?, active_until = ?, updated_at = ?
		WHERE id = ?
	`, alert.Title, alert.Message, alert.Region, alert.Severity, alert.Type, alert.Source, alert.Link,
		alert.IsActive, formatOptionalTime(alert.ActiveUntil), formatTime(alert.UpdatedAt), id)
	if err != nil {
		return nil, fmt.Errorf("failed to update alert: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit update: %w", err)
	}

	return &alert, nil
}

func (r *SQLiteAlertRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM saved_alerts WHERE alert_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete saved alerts: %w", err)
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM alerts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete alert: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return tx.Commit()
}

// ToggleSaved flips the user's bookmark on an alert and reports whether it
// is saved afterwards.
func (r *SQLiteAlertRepository) ToggleSaved(ctx context.Context, userID, alertID string) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	if err := tx.GetContext(ctx, &exists, "SELECT COUNT(*) FROM alerts WHERE id = ?", alertID); err != nil {
		return false, fmt.Errorf("failed to check alert: %w", err)
	}
	if exists == 0 {
		return false, ErrNotFound
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM saved_alerts WHERE user_id = ? AND alert_id = ?", userID, alertID)
	if err != nil {
		return false, fmt.Errorf("failed to unsave alert: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}

	saved := removed == 0
	if saved {
		_, err = tx.ExecContext(ctx, "INSERT INTO saved_alerts (user_id, alert_id, created_at) VALUES (?, ?, ?)",
			userID, alertID, formatTime(r.now()))
		if err != nil {
			return false, fmt.Errorf("failed to save alert: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit toggle: %w", err)
	}
	return saved, nil
}

// ListSaved returns the user's saved alerts, most recently saved first.
func (r *SQLiteAlertRepository) ListSaved(ctx context.Context, userID string) ([]Alert, error) {
	var rows []dbAlert
	err := r.db.SelectContext(ctx, &rows, `
		SELECT a.id, a.title, a.message, a.region, a.severity, a.type, a.source, a.link,
			a.is_active, a.active_until, a.created_by, a.created_at, a.updated_at
		FROM saved_alerts s
		JOIN alerts a ON a.id = s.alert_id
		WHERE s.user_id = ?
		ORDER BY s.created_at DESC, s.rowid DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list saved alerts: %w", err)
	}

	return lo.Map(rows, func(row dbAlert, _ int) Alert { return row.toModel() }), nil
}

// ExpireDue deactivates active alerts whose expiry is at or before now.
func (r *SQLiteAlertRepository) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	stamp := formatTime(now)
	res, err := r.db.ExecContext(ctx, `
		UPDATE alerts SET is_active = 0, updated_at = ?
		WHERE is_active = 1 AND active_until IS NOT NULL AND active_until <= ?
	`, stamp, stamp)
	if err != nil {
		return 0, fmt.Errorf("failed to expire alerts: %w", err)
	}
	return res.RowsAffected()
}

func applyUpdate(alert *Alert, update AlertUpdate) {
	if update.Title != nil {
		alert.Title = *update.Title
	}
	if update.Message != nil {
		alert.Message = *update.Message
	}
	if update.Region != nil {
		alert.Region = *update.Region
	}
	if update.Severity != nil {
		alert.Severity = *update.Severity
	}
	if update.Type != nil {
		alert.Type = *update.Type
	}
	if update.Source != nil {
		alert.Source = *update.Source
	}
	if update.Link != nil {
		alert.Link = *update.Link
	}
	if update.IsActive != nil {
		alert.IsActive = *update.IsActive
	}
	if update.ClearActiveUntil {
		alert.ActiveUntil = nil
	} else if update.ActiveUntil != nil {
		until := update.ActiveUntil.UTC().Truncate(time.Second)
		alert.ActiveUntil = &until
	}
}

func normalize(alert *Alert) {
	alert.Title = strings.TrimSpace(alert.Title)
	alert.Message = strings.TrimSpace(alert.Message)
	alert.Region = strings.ToUpper(strings.TrimSpace(alert.Region))
	alert.Severity = strings.ToUpper(strings.TrimSpace(alert.Severity))
	alert.Type = strings.ToUpper(strings.TrimSpace(alert.Type))
	if alert.ActiveUntil != nil {
		until := alert.ActiveUntil.UTC().Truncate(time.Second)
		alert.ActiveUntil = &until
	}
}

// ValidateAlert checks a new alert. now bounds ActiveUntil.
func ValidateAlert(alert *Alert, now time.Time) error {
	if err := validateFields(alert); err != nil {
		return err
	}
	if alert.ActiveUntil != nil && !alert.ActiveUntil.After(now) {
		return &ValidationError{Field: "activeUntil", Message: "must be in the future"}
	}
	return nil
}

func validateFields(alert *Alert) error {
	if alert.Title == "" {
		return &ValidationError{Field: "title", Message: "is required"}
	}
	if alert.Message == "" {
		return &ValidationError{Field: "message", Message: "is required"}
	}
	if !slices.Contains(Regions, alert.Region) {
		return &ValidationError{Field: "region", Message: fmt.Sprintf("must be one of %s", strings.Join(Regions, ", "))}
	}
	if !slices.Contains(Severities, alert.Severity) {
		return &ValidationError{Field: "severity", Message: fmt.Sprintf("must be one of %s", strings.Join(Severities, ", "))}
	}
	if !slices.Contains(Types, alert.Type) {
		return &ValidationError{Field: "type", Message: fmt.Sprintf("must be one of %s", strings.Join(Types, ", "))}
	}
	return nil
}
