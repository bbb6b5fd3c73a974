package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/nusapalma/nusapalma/internal/models"
	"github.com/nusapalma/nusapalma/internal/storage"
)

const userColumns = `id::text, name, email, password_hash, phone, address, province, city,
	plantation_area::float8, subscription_plan, subscription_start_date, subscription_end_date,
	is_active, role, profile_picture, oauth_provider, oauth_id, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Phone, &u.Address, &u.Province, &u.City,
		&u.PlantationArea, &u.SubscriptionPlan, &u.SubscriptionStartDate, &u.SubscriptionEndDate,
		&u.IsActive, &u.Role, &u.ProfilePicture, &u.OAuthProvider, &u.OAuthID, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts u and returns the stored row. A taken email yields storage.ErrAlreadyExists.
func (s *Storage) CreateUser(ctx context.Context, u *models.User) (*models.User, error) {
	const op = "storage.postgres.CreateUser"

	query := `INSERT INTO users (name, email, password_hash, phone, subscription_plan, role,
			      profile_picture, oauth_provider, oauth_id)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			  RETURNING ` + userColumns
	created, err := scanUser(s.db.QueryRow(ctx, query,
		u.Name, u.Email, u.PasswordHash, u.Phone, u.SubscriptionPlan, u.Role,
		u.ProfilePicture, u.OAuthProvider, u.OAuthID))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return created, nil
}

// GetUserByID returns the user with id. An id that is not a UUID is reported as not found.
func (s *Storage) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	const op = "storage.postgres.GetUserByID"

	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	u, err := scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return u, nil
}

// GetUserByEmail returns the user with the given (already normalized) email.
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage.postgres.GetUserByEmail"

	u, err := scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return u, nil
}

// UpdateOAuth links an OAuth identity to an account. Fields that are already
// set are kept; the picture is only filled when the account has none.
func (s *Storage) UpdateOAuth(ctx context.Context, id, provider, oauthID, picture string) (*models.User, error) {
	const op = "storage.postgres.UpdateOAuth"

	query := `UPDATE users
			  SET oauth_provider = COALESCE(oauth_provider, $2),
			      oauth_id = COALESCE(oauth_id, $3),
			      profile_picture = CASE WHEN profile_picture = '' THEN $4 ELSE profile_picture END,
			      updated_at = NOW()
			  WHERE id = $1
			  RETURNING ` + userColumns
	u, err := scanUser(s.db.QueryRow(ctx, query, id, provider, oauthID, picture))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return u, nil
}

// UpdateSubscription writes the tier window of a user. A nil end means unlimited.
func (s *Storage) UpdateSubscription(ctx context.Context, id, planKey string, start time.Time, end *time.Time) error {
	const op = "storage.postgres.UpdateSubscription"

	if err := updateSubscription(ctx, s.db, id, planKey, start, end); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func updateSubscription(ctx context.Context, db execer, id, planKey string, start time.Time, end *time.Time) error {
	tag, err := db.Exec(ctx, `
		UPDATE users
		SET subscription_plan = $2, subscription_start_date = $3, subscription_end_date = $4, updated_at = NOW()
		WHERE id = $1`, id, planKey, start, end)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// UpdateProfile applies the non-nil fields of upd and returns the stored row.
func (s *Storage) UpdateProfile(ctx context.Context, id string, upd models.ProfileUpdate) (*models.User, error) {
	const op = "storage.postgres.UpdateProfile"

	query := `UPDATE users
			  SET name = COALESCE($2, name),
			      phone = COALESCE($3, phone),
			      address = COALESCE($4, address),
			      province = COALESCE($5, province),
			      city = COALESCE($6, city),
			      plantation_area = COALESCE($7, plantation_area),
			      profile_picture = COALESCE($8, profile_picture),
			      updated_at = NOW()
			  WHERE id = $1
			  RETURNING ` + userColumns
	u, err := scanUser(s.db.QueryRow(ctx, query, id,
		upd.Name, upd.Phone, upd.Address, upd.Province, upd.City, upd.PlantationArea, upd.ProfilePicture))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return u, nil
}

// UpdatePassword replaces the password hash of a user.
func (s *Storage) UpdatePassword(ctx context.Context, id, hash string) error {
	const op = "storage.postgres.UpdatePassword"

	tag, err := s.db.Exec(ctx,
		`UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`, id, hash)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	return nil
}

// ListSubscriptionsEndingBetween returns active paid subscriptions whose end
// date falls in [from, to).
func (s *Storage) ListSubscriptionsEndingBetween(ctx context.Context, from, to time.Time) ([]models.SubscriptionDue, error) {
	const op = "storage.postgres.ListSubscriptionsEndingBetween"

	rows, err := s.db.Query(ctx, `
		SELECT id::text, email, name, subscription_plan, subscription_end_date
		FROM users
		WHERE is_active AND subscription_plan <> 'free'
		  AND subscription_end_date >= $1 AND subscription_end_date < $2
		ORDER BY subscription_end_date`, from, to)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var due []models.SubscriptionDue
	for rows.Next() {
		var d models.SubscriptionDue
		if err := rows.Scan(&d.UserID, &d.Email, &d.Name, &d.Plan, &d.EndDate); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		due = append(due, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return due, nil
}
