package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/meetsched/internal/db"
	"github.com/example/meetsched/internal/domain/scheduling"
)

var ErrEmailTaken = errors.New("email already registered")

type OwnerRepo struct{ db *db.DB }

func NewOwnerRepo(d *db.DB) *OwnerRepo { return &OwnerRepo{db: d} }

const ownerColumns = `id, email, name, password_hash, created_at`

func (r *OwnerRepo) Create(ctx context.Context, o scheduling.Owner) (scheduling.Owner, error) {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	o.Email = strings.ToLower(strings.TrimSpace(o.Email))
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	err := r.db.Exec(ctx,
		`INSERT INTO owners (`+ownerColumns+`) VALUES ($1,$2,$3,$4,$5)`,
		o.ID, o.Email, o.Name, o.PasswordHash, o.CreatedAt,
	)
	if db.HasCode(err, db.CodeUniqueViolation) {
		return scheduling.Owner{}, ErrEmailTaken
	}
	if err != nil {
		return scheduling.Owner{}, fmt.Errorf("insert owner: %w", err)
	}
	return o, nil
}

func (r *OwnerRepo) ByID(ctx context.Context, id string) (scheduling.Owner, error) {
	if _, err := uuid.Parse(id); err != nil {
		return scheduling.Owner{}, scheduling.ErrNoRecord
	}
	return r.scanOne(r.db.QueryRow(ctx, `SELECT `+ownerColumns+` FROM owners WHERE id=$1`, id))
}

func (r *OwnerRepo) ByEmail(ctx context.Context, email string) (scheduling.Owner, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.scanOne(r.db.QueryRow(ctx, `SELECT `+ownerColumns+` FROM owners WHERE email=$1`, email))
}

func (r *OwnerRepo) scanOne(row db.Row) (scheduling.Owner, error) {
	var o scheduling.Owner
	if err := row.Scan(&o.ID, &o.Email, &o.Name, &o.PasswordHash, &o.CreatedAt); err != nil {
		return scheduling.Owner{}, notFound(err)
	}
	return o, nil
}
