package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/example/meetsched/internal/db"
	"github.com/example/meetsched/internal/domain/scheduling"
)

type MeetingTypeRepo struct{ db *db.DB }

func NewMeetingTypeRepo(d *db.DB) *MeetingTypeRepo { return &MeetingTypeRepo{db: d} }

const meetingTypeColumns = `id, owner_id, title, description, duration_minutes, timezone, created_at`

func (r *MeetingTypeRepo) Create(ctx context.Context, mt scheduling.MeetingType) (scheduling.MeetingType, error) {
	if err := mt.Validate(); err != nil {
		return scheduling.MeetingType{}, err
	}
	if mt.ID == "" {
		mt.ID = uuid.NewString()
	}
	if mt.CreatedAt.IsZero() {
		mt.CreatedAt = time.Now().UTC()
	}
	err := r.db.Exec(ctx,
		`INSERT INTO meeting_types (`+meetingTypeColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		mt.ID, mt.OwnerID, mt.Title, mt.Description, mt.DurationMinutes, mt.Timezone, mt.CreatedAt,
	)
	if err != nil {
		return scheduling.MeetingType{}, fmt.Errorf("insert meeting type: %w", err)
	}
	return mt, nil
}

func (r *MeetingTypeRepo) ByID(ctx context.Context, id string) (scheduling.MeetingType, error) {
	if _, err := uuid.Parse(id); err != nil {
		return scheduling.MeetingType{}, scheduling.ErrNoRecord
	}
	row := r.db.QueryRow(ctx, `SELECT `+meetingTypeColumns+` FROM meeting_types WHERE id=$1`, id)
	var mt scheduling.MeetingType
	if err := scanMeetingType(row, &mt); err != nil {
		return scheduling.MeetingType{}, notFound(err)
	}
	return mt, nil
}

func (r *MeetingTypeRepo) ListByOwner(ctx context.Context, ownerID string) ([]scheduling.MeetingType, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+meetingTypeColumns+` FROM meeting_types WHERE owner_id=$1 ORDER BY created_at, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list meeting types: %w", err)
	}
	defer rows.Close()

	out := []scheduling.MeetingType{}
	for rows.Next() {
		var mt scheduling.MeetingType
		if err := scanMeetingType(rows, &mt); err != nil {
			return nil, err
		}
		out = append(out, mt)
	}
	return out, rows.Err()
}

func scanMeetingType(row db.Row, mt *scheduling.MeetingType) error {
	return row.Scan(&mt.ID, &mt.OwnerID, &mt.Title, &mt.Description, &mt.DurationMinutes, &mt.Timezone, &mt.CreatedAt)
}
