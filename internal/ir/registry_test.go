package ir

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResourceRegistryInternsByValue(t *testing.T) {
	r := NewResourceRegistry()
	id1 := r.Intern("tex.png")
	id2 := r.Intern("audio.wav")
	id3 := r.Intern("tex.png")

	require.Equal(t, id1, id3)
	require.NotEqual(t, id1, id2)
	require.Equal(t, 2, r.Count())
	require.Equal(t, []string{"tex.png", "audio.wav"}, r.Entries())
}

func TestResourceRegistryEmpty(t *testing.T) {
	r := NewResourceRegistry()
	require.Equal(t, 0, r.Count())
	require.Empty(t, r.Entries())
}
