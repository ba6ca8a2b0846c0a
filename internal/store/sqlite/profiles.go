package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/meganoshop/megano-server/internal/domain"
	"github.com/meganoshop/megano-server/internal/store"
)

const profileColumns = `id, user_id, created_at, updated_at, full_name, email, phone, avatar_src, avatar_alt`

func scanProfile(scanner interface{ Scan(dest ...any) error }) (*domain.Profile, error) {
	var p domain.Profile

	var (
		createdAt string
		updatedAt string
		avatarSrc sql.NullString
		avatarAlt sql.NullString
	)

	err := scanner.Scan(
		&p.ID,
		&p.UserID,
		&createdAt,
		&updatedAt,
		&p.FullName,
		&p.Email,
		&p.Phone,
		&avatarSrc,
		&avatarAlt,
	)
	if err != nil {
		return nil, err
	}

	p.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	p.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}

	if avatarSrc.Valid {
		p.Avatar = &domain.Avatar{Src: avatarSrc.String, Alt: avatarAlt.String}
	}

	return &p, nil
}

// GetProfile returns the profile for a user. The row is created alongside
// the user, so store.ErrNotFound here means the user itself is gone.
func (s *Store) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE user_id = ?`, userID)
	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

// UpdateProfile overwrites the contact fields of a user's profile.
func (s *Store) UpdateProfile(ctx context.Context, userID, fullName, email, phone string) (*domain.Profile, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE profiles SET full_name = ?, email = ?, phone = ?, updated_at = ?
		WHERE user_id = ?`,
		fullName, email, phone, formatTime(time.Now()), userID)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, store.ErrNotFound
	}

	return s.GetProfile(ctx, userID)
}

// UpdateAvatar replaces the profile's avatar reference. A nil avatar clears
// it.
func (s *Store) UpdateAvatar(ctx context.Context, userID string, avatar *domain.Avatar) (*domain.Profile, error) {
	var src, alt sql.NullString
	if avatar != nil {
		src = nullString(avatar.Src)
		alt = sql.NullString{String: avatar.Alt, Valid: true}
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE profiles SET avatar_src = ?, avatar_alt = ?, updated_at = ?
		WHERE user_id = ?`,
		src, alt, formatTime(time.Now()), userID)
	if err != nil {
		return nil, fmt.Errorf("update avatar: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, store.ErrNotFound
	}

	return s.GetProfile(ctx, userID)
}
