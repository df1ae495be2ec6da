package player

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePlaying(t *testing.T) {
	statusOut := "BBC World Service\n" +
		"[playing] #1/1   0:42/0:00 (0%)\n" +
		"volume: 85%   repeat: off   random: off   single: off   consume: off\n"

	st := Parse("BBC World Service\n", statusOut)
	assert.Equal(t, "BBC World Service", st.CurrentTrack)
	assert.True(t, st.IsPlaying)
	assert.False(t, st.IsPaused)
	assert.Equal(t, 85, st.Volume)
}

func TestParsePaused(t *testing.T) {
	statusOut := "[paused]  #1/1   0:42/0:00 (0%)\nvolume: 40%\n"
	st := Parse("", statusOut)
	assert.False(t, st.IsPlaying)
	assert.True(t, st.IsPaused)
	assert.Equal(t, 40, st.Volume)
}

func TestParseStopped(t *testing.T) {
	st := Parse("\n", "volume:100%   repeat: off\n")
	assert.Equal(t, "", st.CurrentTrack)
	assert.False(t, st.IsPlaying)
	assert.False(t, st.IsPaused)
	assert.Equal(t, 100, st.Volume)
}

func TestParseVolumeDefault(t *testing.T) {
	st := Parse("", "volume: n/a   repeat: off\n")
	assert.Equal(t, 50, st.Volume)
}
