package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	for _, env := range []string{"production", "local", ""} {
		l, err := New(env, "")
		require.NoError(t, err, env)
		assert.NotNil(t, l)
	}

	l, err := New("production", "warn")
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(-1), "debug must be disabled at warn level")

	_, err = New("local", "loud")
	assert.Error(t, err)
}

func TestAnonymizeEmail(t *testing.T) {
	assert.Equal(t, "", AnonymizeEmail(""))
	a := AnonymizeEmail("Ada@Example.com")
	assert.Equal(t, a, AnonymizeEmail(" ada@example.com "))
	assert.NotContains(t, a, "example")
	assert.Len(t, a, len("user:")+16)
}

func TestFields(t *testing.T) {
	assert.Equal(t, KeyOwner, Owner("o1").Key)
	assert.Equal(t, KeyBooking, Booking("b1").Key)
	assert.Equal(t, KeyOperation, Operation("book").Key)
	assert.Equal(t, KeyUserHash, UserHash("a@b.c").Key)
}
