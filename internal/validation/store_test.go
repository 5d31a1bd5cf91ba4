package validation

import (
	"os"
	"osenaabo-go/internal/models"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "validation_state.json"), zap.NewNop())
}

func TestLoadMissingReturnsDefaults(t *testing.T) {
	s := newTestStore(t)
	assert.Equal(t, models.DefaultValidationState(), s.Load())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)
	payout := 1.85
	at := time.Date(2026, 2, 3, 14, 5, 0, 0, time.UTC)
	state := models.ValidationState{
		ValidationCounter:   3,
		LastPayout:          &payout,
		BlocksSetup:         true,
		PendingBlock2Bet:    true,
		LastPayoutTimestamp: &at,
	}
	require.NoError(t, s.Save(state))

	got := s.Load()
	assert.Equal(t, 3, got.ValidationCounter)
	require.NotNil(t, got.LastPayout)
	assert.Equal(t, 1.85, *got.LastPayout)
	assert.True(t, got.BlocksSetup)
	assert.True(t, got.PendingBlock2Bet)
	assert.False(t, got.SequenceCompleted)
	require.NotNil(t, got.LastPayoutTimestamp)
	assert.True(t, at.Equal(*got.LastPayoutTimestamp))
}

func TestDefaultsSerializeNulls(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save(models.DefaultValidationState()))

	data, err := os.ReadFile(s.path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"last_payout": null`)
	assert.Contains(t, string(data), `"validation_counter": 0`)
}

func TestCorruptFileReturnsDefaults(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.WriteFile(s.path, []byte(`{"validation_counter": "x"`), 0o600))
	assert.Equal(t, models.DefaultValidationState(), s.Load())
}

func TestUpdate(t *testing.T) {
	s := newTestStore(t)
	for i := 0; i < 3; i++ {
		_, err := s.Update(func(st *models.ValidationState) { st.ValidationCounter++ })
		require.NoError(t, err)
	}
	assert.Equal(t, 3, s.Load().ValidationCounter)
}

func TestClearIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save(models.ValidationState{ValidationCounter: 2}))

	require.NoError(t, s.Clear())
	require.NoError(t, s.Clear())
	assert.Equal(t, models.DefaultValidationState(), s.Load())
}
