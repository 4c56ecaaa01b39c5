package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/keygate-dev/keygate/internal/domain"
	internal_errors "github.com/keygate-dev/keygate/internal/errors"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

const userColumns = `id, name, email, password_hash, role, is_email_verified,
	email_verification_digest, email_verification_expires,
	password_reset_digest, password_reset_expires, created_at`

// =========================================================================
// Public Methods (satisfy the service storage interfaces)
// =========================================================================

// SaveUser inserts a new user record, including the digest of the
// outstanding verification token. A duplicate email maps to 409.
func (s *Storage) SaveUser(user domain.User) (domain.UserId, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var id domain.UserId
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		id, err = s.saveUser(tx, user)
		return err
	})
	return id, err
}

// UserByEmail fetches a user by their (lowercased) email.
func (s *Storage) UserByEmail(email string) (domain.User, error) {
	return s.userBy(s.db, "email = $1", email)
}

// UserById fetches a user by id.
func (s *Storage) UserById(id domain.UserId) (domain.User, error) {
	return s.userBy(s.db, "id = $1", id)
}

// Users returns all user records, oldest first.
func (s *Storage) Users() ([]domain.User, error) {
	rows, err := s.db.Query("SELECT " + userColumns + " FROM users ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// DeleteUser removes a user record.
func (s *Storage) DeleteUser(id domain.UserId) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		return s.deleteUser(tx, id)
	})
}

// UpdateRole changes a user's role.
func (s *Storage) UpdateRole(id domain.UserId, role domain.Role) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		return s.updateRole(tx, id, role)
	})
}

// SavePasswordReset stores the digest+expiry of a new reset token,
// overwriting (and thereby invalidating) any previous one.
func (s *Storage) SavePasswordReset(id domain.UserId, data domain.TokenData) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		return s.savePasswordReset(tx, id, data)
	})
}

// ConsumeEmailVerification marks the user holding a live verification
// digest as verified and clears the digest pair, all in one statement,
// so a token verifies successfully at most once.
func (s *Storage) ConsumeEmailVerification(digest string, now time.Time) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		return s.consumeEmailVerification(tx, digest, now)
	})
}

// ConsumePasswordReset sets the new password hash for the user holding a
// live reset digest and clears the digest pair in the same statement.
func (s *Storage) ConsumePasswordReset(digest, newPassHash string, now time.Time) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		return s.consumePasswordReset(tx, digest, newPassHash, now)
	})
}

// =========================================================================
// Internal Methods (Core Database Logic)
// These methods accept a Querier and are transaction-agnostic.
// =========================================================================

func (s *Storage) saveUser(q Querier, user domain.User) (domain.UserId, error) {
	var digest sql.NullString
	var expires sql.NullTime
	if user.EmailVerification != nil {
		digest = sql.NullString{String: user.EmailVerification.Digest, Valid: true}
		expires = sql.NullTime{Time: user.EmailVerification.Expires, Valid: true}
	}

	var id domain.UserId
	err := q.QueryRow(`
        INSERT INTO users(name, email, password_hash, role, email_verification_digest, email_verification_expires)
        VALUES($1, $2, $3, $4, $5, $6) RETURNING id`,
		user.Name, user.Email, user.PassHash, user.Role, digest, expires,
	).Scan(&id)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return -1, &internal_errors.ErrorWithStatusCode{Message: "Email already registered", StatusCode: http.StatusConflict}
		}
		return -1, fmt.Errorf("failed to insert user: %w", err)
	}
	return id, nil
}

func (s *Storage) userBy(q Querier, where string, arg interface{}) (domain.User, error) {
	row := q.QueryRow("SELECT "+userColumns+" FROM users WHERE "+where, arg)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, &internal_errors.ErrorWithStatusCode{Message: "User not found", StatusCode: http.StatusNotFound}
		}
		return domain.User{}, fmt.Errorf("failed to query user: %w", err)
	}
	return user, nil
}

func (s *Storage) deleteUser(q Querier, id domain.UserId) error {
	result, err := q.Exec("DELETE FROM users WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return requireRows(result, "User not found")
}

func (s *Storage) updateRole(q Querier, id domain.UserId, role domain.Role) error {
	result, err := q.Exec("UPDATE users SET role = $1 WHERE id = $2", role, id)
	if err != nil {
		return fmt.Errorf("failed to update role: %w", err)
	}
	return requireRows(result, "User not found")
}

func (s *Storage) savePasswordReset(q Querier, id domain.UserId, data domain.TokenData) error {
	result, err := q.Exec(`
        UPDATE users SET password_reset_digest = $1, password_reset_expires = $2
        WHERE id = $3`,
		data.Digest, data.Expires, id,
	)
	if err != nil {
		return fmt.Errorf("failed to save password reset data: %w", err)
	}
	return requireRows(result, "User not found")
}

func (s *Storage) consumeEmailVerification(q Querier, digest string, now time.Time) error {
	result, err := q.Exec(`
        UPDATE users SET is_email_verified = TRUE,
            email_verification_digest = NULL, email_verification_expires = NULL
        WHERE email_verification_digest = $1 AND email_verification_expires > $2`,
		digest, now,
	)
	if err != nil {
		return fmt.Errorf("failed to consume verification token: %w", err)
	}
	return requireRows(result, "No matching verification token")
}

func (s *Storage) consumePasswordReset(q Querier, digest, newPassHash string, now time.Time) error {
	result, err := q.Exec(`
        UPDATE users SET password_hash = $1,
            password_reset_digest = NULL, password_reset_expires = NULL
        WHERE password_reset_digest = $2 AND password_reset_expires > $3`,
		newPassHash, digest, now,
	)
	if err != nil {
		return fmt.Errorf("failed to consume reset token: %w", err)
	}
	return requireRows(result, "No matching reset token")
}

func requireRows(result sql.Result, notFoundMsg string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return &internal_errors.ErrorWithStatusCode{Message: notFoundMsg, StatusCode: http.StatusNotFound}
	}
	return nil
}

type scannable interface {
	Scan(dest ...interface{}) error
}

func scanUser(row scannable) (domain.User, error) {
	var user domain.User
	var verifyDigest, resetDigest sql.NullString
	var verifyExpires, resetExpires sql.NullTime

	err := row.Scan(&user.Id, &user.Name, &user.Email, &user.PassHash, &user.Role, &user.IsEmailVerified,
		&verifyDigest, &verifyExpires, &resetDigest, &resetExpires, &user.CreatedAt)
	if err != nil {
		return domain.User{}, err
	}

	if verifyDigest.Valid {
		user.EmailVerification = &domain.TokenData{Digest: verifyDigest.String, Expires: verifyExpires.Time.UTC()}
	}
	if resetDigest.Valid {
		user.PasswordReset = &domain.TokenData{Digest: resetDigest.String, Expires: resetExpires.Time.UTC()}
	}
	user.CreatedAt = user.CreatedAt.UTC()

	return user, nil
}
