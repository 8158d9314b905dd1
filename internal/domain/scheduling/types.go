package scheduling

import "time"

type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	return s == StatusConfirmed || s == StatusCancelled
}

// Owner is the host whose calendar backs one or more meeting types.
type Owner struct {
	ID           string
	Email        string
	Name         string
	PasswordHash []byte
	CreatedAt    time.Time
}

type MeetingType struct {
	ID              string
	OwnerID         string
	Title           string
	Description     string
	DurationMinutes int
	Timezone        string
	CreatedAt       time.Time
}

func (m MeetingType) Duration() time.Duration {
	return time.Duration(m.DurationMinutes) * time.Minute
}

// Validate checks the fields an owner controls when creating a meeting type.
func (m MeetingType) Validate() error {
	if m.OwnerID == "" {
		return Invalid("owner id required")
	}
	if m.Title == "" {
		return Invalid("title required")
	}
	if m.DurationMinutes <= 0 {
		return Invalid("duration_minutes must be > 0")
	}
	if m.Timezone == "" {
		return Invalid("timezone required")
	}
	if _, err := time.LoadLocation(m.Timezone); err != nil {
		return Invalid("unknown timezone %q", m.Timezone)
	}
	return nil
}

type Booking struct {
	ID             string
	MeetingTypeID  string
	OwnerID        string
	RecipientName  string
	RecipientEmail string
	Start          time.Time
	End            time.Time
	Status         Status
	EventID        string
	CreatedAt      time.Time
}

func (b Booking) Interval() Interval {
	return Interval{Start: b.Start, End: b.End}
}

// CalendarCredential is the OAuth grant an owner gave for their calendar.
type CalendarCredential struct {
	OwnerID      string
	AccessToken  string
	RefreshToken string
	TokenType    string
	Expiry       time.Time
}
