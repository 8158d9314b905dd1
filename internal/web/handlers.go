package web

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/example/meetsched/internal/application/booking"
	"github.com/example/meetsched/internal/auth"
	"github.com/example/meetsched/internal/domain/scheduling"
)

type slotJSON struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type availabilityResponse struct {
	MeetingTypeID   string     `json:"meetingTypeId"`
	DurationMinutes int        `json:"durationMinutes"`
	Timezone        string     `json:"timezone"`
	Slots           []slotJSON `json:"slots"`
}

func (s *Server) handleAvailability(c *gin.Context) {
	from, err := parseTime(c.Query("from"))
	if err != nil {
		invalid(c, "from must be an RFC 3339 timestamp")
		return
	}
	to, err := parseTime(c.Query("to"))
	if err != nil {
		invalid(c, "to must be an RFC 3339 timestamp")
		return
	}

	av, err := s.Resolver.Availability(c.Request.Context(), c.Query("meetingTypeId"), from, to)
	if err != nil {
		abortWithError(c, err)
		return
	}
	resp := availabilityResponse{
		MeetingTypeID:   av.MeetingTypeID,
		DurationMinutes: av.DurationMinutes,
		Timezone:        av.Timezone,
		Slots:           make([]slotJSON, 0, len(av.Slots)),
	}
	for _, sl := range av.Slots {
		resp.Slots = append(resp.Slots, slotJSON{Start: sl.Start, End: sl.End})
	}
	c.JSON(http.StatusOK, resp)
}

type bookRequest struct {
	MeetingTypeID  string    `json:"meetingTypeId"`
	RecipientName  string    `json:"recipientName"`
	RecipientEmail string    `json:"recipientEmail"`
	StartTime      time.Time `json:"startTime"`
}

type bookingJSON struct {
	BookingID      string    `json:"bookingId"`
	MeetingTypeID  string    `json:"meetingTypeId"`
	EventID        string    `json:"eventId"`
	RecipientName  string    `json:"recipientName,omitempty"`
	RecipientEmail string    `json:"recipientEmail,omitempty"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	Status         string    `json:"status"`
}

func toBookingJSON(b scheduling.Booking, withRecipient bool) bookingJSON {
	out := bookingJSON{
		BookingID:     b.ID,
		MeetingTypeID: b.MeetingTypeID,
		EventID:       b.EventID,
		Start:         b.Start,
		End:           b.End,
		Status:        string(b.Status),
	}
	if withRecipient {
		out.RecipientName, out.RecipientEmail = b.RecipientName, b.RecipientEmail
	}
	return out
}

func (s *Server) handleBook(c *gin.Context) {
	var req bookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalid(c, "malformed request body")
		return
	}
	b, err := s.Resolver.Book(c.Request.Context(), booking.BookRequest{
		MeetingTypeID:  req.MeetingTypeID,
		RecipientName:  req.RecipientName,
		RecipientEmail: req.RecipientEmail,
		Start:          req.StartTime,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toBookingJSON(b, false))
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalid(c, "email and password required")
		return
	}
	o, err := auth.Authenticate(c.Request.Context(), s.Owners, req.Email, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody("UNAUTHORIZED", "invalid email or password"))
		return
	}
	if err != nil {
		abortWithError(c, err)
		return
	}
	if err := s.Sessions.Set(c.Writer, o.ID); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ownerId": o.ID, "name": o.Name})
}

func (s *Server) handleLogout(c *gin.Context) {
	s.Sessions.Clear(c.Writer)
	c.Status(http.StatusNoContent)
}

type meetingTypeJSON struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	DurationMinutes int    `json:"durationMinutes"`
	Timezone        string `json:"timezone"`
}

func toMeetingTypeJSON(mt scheduling.MeetingType) meetingTypeJSON {
	return meetingTypeJSON{
		ID:              mt.ID,
		Title:           mt.Title,
		Description:     mt.Description,
		DurationMinutes: mt.DurationMinutes,
		Timezone:        mt.Timezone,
	}
}

func (s *Server) handleListMeetingTypes(c *gin.Context) {
	mts, err := s.MeetingTypes.ListByOwner(c.Request.Context(), ownerID(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	out := make([]meetingTypeJSON, 0, len(mts))
	for _, mt := range mts {
		out = append(out, toMeetingTypeJSON(mt))
	}
	c.JSON(http.StatusOK, gin.H{"meetingTypes": out})
}

func (s *Server) handleCreateMeetingType(c *gin.Context) {
	var req meetingTypeJSON
	if err := c.ShouldBindJSON(&req); err != nil {
		invalid(c, "malformed request body")
		return
	}
	mt, err := s.MeetingTypes.Create(c.Request.Context(), scheduling.MeetingType{
		OwnerID:         ownerID(c),
		Title:           strings.TrimSpace(req.Title),
		Description:     strings.TrimSpace(req.Description),
		DurationMinutes: req.DurationMinutes,
		Timezone:        strings.TrimSpace(req.Timezone),
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toMeetingTypeJSON(mt))
}

func (s *Server) handleListBookings(c *gin.Context) {
	since := s.now().Add(-24 * time.Hour)
	if v := c.Query("since"); v != "" {
		t, err := parseTime(v)
		if err != nil {
			invalid(c, "since must be an RFC 3339 timestamp")
			return
		}
		since = t
	}
	limit := 100
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			invalid(c, "limit must be between 1 and 500")
			return
		}
		limit = n
	}
	bs, err := s.Bookings.ListByOwner(c.Request.Context(), ownerID(c), since, limit)
	if err != nil {
		abortWithError(c, err)
		return
	}
	out := make([]bookingJSON, 0, len(bs))
	for _, b := range bs {
		out = append(out, toBookingJSON(b, true))
	}
	c.JSON(http.StatusOK, gin.H{"bookings": out})
}

func (s *Server) handleCancelBooking(c *gin.Context) {
	b, err := s.Resolver.Cancel(c.Request.Context(), ownerID(c), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingJSON(b, true))
}

func (s *Server) handleOAuthStart(c *gin.Context) {
	state, err := s.Sessions.NewState(c.Writer, ownerID(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.Redirect(http.StatusFound, s.Google.AuthCodeURL(state))
}

func (s *Server) handleOAuthCallback(c *gin.Context) {
	if e := c.Query("error"); e != "" {
		invalid(c, "authorization denied: "+e)
		return
	}
	if !s.Sessions.CheckState(c.Writer, c.Request, ownerID(c), c.Query("state")) {
		invalid(c, "invalid or expired oauth state")
		return
	}
	code := c.Query("code")
	if code == "" {
		invalid(c, "missing authorization code")
		return
	}
	if err := s.Google.Exchange(c.Request.Context(), ownerID(c), code); err != nil {
		abortWithError(c, scheduling.Upstream("google token exchange", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"connected": true})
}

func parseTime(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, v)
}
