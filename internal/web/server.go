// Package web exposes the booking resolver and the owner console over HTTP.
package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/meetsched/internal/application/booking"
	"github.com/example/meetsched/internal/auth"
	"github.com/example/meetsched/internal/domain/scheduling"
)

type MeetingTypeStore interface {
	Create(ctx context.Context, mt scheduling.MeetingType) (scheduling.MeetingType, error)
	ListByOwner(ctx context.Context, ownerID string) ([]scheduling.MeetingType, error)
}

type BookingLister interface {
	ListByOwner(ctx context.Context, ownerID string, since time.Time, limit int) ([]scheduling.Booking, error)
}

// Connector runs the Google OAuth handshake for an owner.
type Connector interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, ownerID, code string) error
}

type Server struct {
	Resolver     *booking.Resolver
	Owners       auth.OwnerLookup
	MeetingTypes MeetingTypeStore
	Bookings     BookingLister
	Sessions     *auth.Sessions
	Google       Connector

	// Health is probed by /healthz; nil always reports healthy.
	Health func(ctx context.Context) error

	Logger             *zap.Logger
	RateLimitPerMinute int
	Now                func() time.Time
}

func (s *Server) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Server) Routes() *gin.Engine {
	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))

	r.GET("/healthz", s.handleHealth)

	limited := rateLimit(s.RateLimitPerMinute, logger)
	api := r.Group("/api")
	api.GET("/availability", limited, s.handleAvailability)
	api.POST("/book", limited, s.handleBook)
	api.POST("/login", limited, s.handleLogin)
	api.POST("/logout", s.handleLogout)

	owner := api.Group("", requireOwner(s.Sessions))
	owner.GET("/meeting-types", s.handleListMeetingTypes)
	owner.POST("/meeting-types", s.handleCreateMeetingType)
	owner.GET("/bookings", s.handleListBookings)
	owner.POST("/bookings/:id/cancel", s.handleCancelBooking)

	oauth := r.Group("/oauth/google", requireOwner(s.Sessions))
	oauth.GET("/start", s.handleOAuthStart)
	oauth.GET("/callback", s.handleOAuthCallback)

	return r
}

func (s *Server) handleHealth(c *gin.Context) {
	if s.Health != nil {
		if err := s.Health(c.Request.Context()); err != nil {
			c.String(http.StatusServiceUnavailable, "unhealthy\n")
			return
		}
	}
	c.String(http.StatusOK, "ok\n")
}

// Start serves h on addr until ctx is done, then drains in-flight requests.
func Start(ctx context.Context, addr string, h http.Handler, logger *zap.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	logger.Info("http listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
