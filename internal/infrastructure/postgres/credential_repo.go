package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/example/meetsched/internal/db"
	"github.com/example/meetsched/internal/domain/scheduling"
	"github.com/example/meetsched/internal/infrastructure/crypto"
)

// CredentialRepo stores calendar grants with the token fields sealed.
type CredentialRepo struct {
	db     *db.DB
	sealer *crypto.Sealer
}

func NewCredentialRepo(d *db.DB, sealer *crypto.Sealer) *CredentialRepo {
	return &CredentialRepo{db: d, sealer: sealer}
}

// Save upserts the owner's grant. An empty refresh token keeps the stored
// one, since Google only returns it on first consent.
func (r *CredentialRepo) Save(ctx context.Context, c scheduling.CalendarCredential) error {
	access, err := r.sealer.Seal(c.AccessToken, c.OwnerID)
	if err != nil {
		return fmt.Errorf("seal access token: %w", err)
	}
	refresh, err := r.sealer.Seal(c.RefreshToken, c.OwnerID)
	if err != nil {
		return fmt.Errorf("seal refresh token: %w", err)
	}
	var expiry *time.Time
	if !c.Expiry.IsZero() {
		e := c.Expiry.UTC()
		expiry = &e
	}
	err = r.db.Exec(ctx, `
		INSERT INTO calendar_credentials (owner_id, access_token, refresh_token, token_type, expiry, updated_at)
		VALUES ($1,$2,$3,$4,$5,now())
		ON CONFLICT (owner_id) DO UPDATE SET
			access_token=EXCLUDED.access_token,
			refresh_token=CASE WHEN EXCLUDED.refresh_token='' THEN calendar_credentials.refresh_token ELSE EXCLUDED.refresh_token END,
			token_type=EXCLUDED.token_type,
			expiry=EXCLUDED.expiry,
			updated_at=now()
	`, c.OwnerID, access, refresh, c.TokenType, expiry)
	if err != nil {
		return fmt.Errorf("save calendar credential: %w", err)
	}
	return nil
}

// Get returns scheduling.ErrNoRecord when the owner never connected a calendar.
func (r *CredentialRepo) Get(ctx context.Context, ownerID string) (scheduling.CalendarCredential, error) {
	var (
		c               = scheduling.CalendarCredential{OwnerID: ownerID}
		access, refresh string
		expiry          *time.Time
	)
	err := r.db.QueryRow(ctx, `
		SELECT access_token, refresh_token, token_type, expiry
		FROM calendar_credentials WHERE owner_id=$1
	`, ownerID).Scan(&access, &refresh, &c.TokenType, &expiry)
	if err != nil {
		return scheduling.CalendarCredential{}, notFound(err)
	}
	if c.AccessToken, err = r.sealer.Open(access, ownerID); err != nil {
		return scheduling.CalendarCredential{}, fmt.Errorf("open access token: %w", err)
	}
	if c.RefreshToken, err = r.sealer.Open(refresh, ownerID); err != nil {
		return scheduling.CalendarCredential{}, fmt.Errorf("open refresh token: %w", err)
	}
	if expiry != nil {
		c.Expiry = *expiry
	}
	return c, nil
}
