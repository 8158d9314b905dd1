// Package logging builds the zap logger shared by every component and a few
// field helpers that keep log keys consistent.
package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	KeyOperation = "operation"
	KeyOwner     = "owner_id"
	KeyBooking   = "booking_id"
	KeyUserHash  = "user_hash"
)

// New returns a JSON production logger when env is "production" and a
// colored console logger otherwise. level overrides the default level.
func New(env, level string) (*zap.Logger, error) {
	var cfg zap.Config
	if strings.EqualFold(env, "production") {
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, err
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	return cfg.Build()
}

func Operation(op string) zap.Field { return zap.String(KeyOperation, op) }

func Owner(id string) zap.Field { return zap.String(KeyOwner, id) }

func Booking(id string) zap.Field { return zap.String(KeyBooking, id) }

// AnonymizeEmail hashes an address so log lines can be correlated without
// carrying the address itself.
func AnonymizeEmail(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(email))
	return "user:" + hex.EncodeToString(sum[:8])
}

func UserHash(email string) zap.Field {
	return zap.String(KeyUserHash, AnonymizeEmail(email))
}
