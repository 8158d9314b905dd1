package web

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/example/meetsched/internal/domain/scheduling"
)

type apiError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func errorBody(kind, msg string) gin.H {
	return gin.H{"error": apiError{Kind: kind, Message: msg}}
}

func statusFor(k scheduling.Kind) int {
	switch k {
	case scheduling.KindNotFound:
		return http.StatusNotFound
	case scheduling.KindInvalidInput:
		return http.StatusBadRequest
	case scheduling.KindCalendarConflict, scheduling.KindLocalConflict:
		return http.StatusConflict
	case scheduling.KindUpstreamFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// abortWithError writes err as a JSON error. Upstream and unexpected
// failures keep their detail in the log only.
func abortWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	kind := scheduling.KindOf(err)
	status := statusFor(kind)

	msg := err.Error()
	var se *scheduling.Error
	if errors.As(err, &se) {
		msg = se.Msg
	}
	switch {
	case kind == "":
		kind, msg = "INTERNAL", "internal error"
	case kind == scheduling.KindUpstreamFailure:
		msg = "upstream service failed: " + msg
	}
	c.AbortWithStatusJSON(status, errorBody(string(kind), msg))
}

func invalid(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorBody(string(scheduling.KindInvalidInput), msg))
}
