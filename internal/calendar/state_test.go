package calendar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateSignerRoundTrip(t *testing.T) {
	s := NewStateSigner("secret")

	state, err := s.Sign("google")
	require.NoError(t, err)

	provider, err := s.Verify(state)
	require.NoError(t, err)
	assert.Equal(t, "google", provider)
}

func TestStateSignerRejectsTampering(t *testing.T) {
	s := NewStateSigner("secret")
	state, err := s.Sign("outlook")
	require.NoError(t, err)

	_, err = s.Verify(state + "x")
	assert.Error(t, err)

	_, err = NewStateSigner("other-secret").Verify(state)
	assert.Error(t, err)

	_, err = s.Verify("not-a-jwt")
	assert.Error(t, err)
}
