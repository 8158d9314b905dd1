package scheduling

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNotFound, KindOf(NotFound("meeting type %s", "x")))
	assert.Equal(t, KindInvalidInput, KindOf(fmt.Errorf("wrapped: %w", Invalid("bad"))))
	assert.Equal(t, KindUpstreamFailure, KindOf(Upstream("calendar", errors.New("boom"))))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
	assert.Equal(t, Kind(""), KindOf(nil))
}

func TestErrorIs(t *testing.T) {
	err := fmt.Errorf("book: %w", &Error{Kind: KindLocalConflict, Msg: "slot taken"})
	assert.True(t, errors.Is(err, ErrLocalConflict))
	assert.False(t, errors.Is(err, ErrCalendarConflict))

	cause := errors.New("dial tcp: refused")
	up := Upstream("query busy", cause)
	assert.True(t, errors.Is(up, cause))
	assert.True(t, errors.Is(up, ErrUpstreamFailure))
	assert.Contains(t, up.Error(), "dial tcp: refused")
}
