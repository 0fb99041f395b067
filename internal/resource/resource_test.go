package resource

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetLoadsOnMissAndCachesOnHit(t *testing.T) {
	calls := 0
	c, err := New(0, func(path string, kind Kind) (*Entry, error) {
		calls++
		return &Entry{Path: path, Kind: kind, Data: []byte("data")}, nil
	})
	require.NoError(t, err)

	e1, err := c.Get("tex.png", KindImage)
	require.NoError(t, err)
	require.Equal(t, "tex.png", e1.Path)
	require.Equal(t, 1, calls)

	e2, err := c.Get("tex.png", KindImage)
	require.NoError(t, err)
	require.Same(t, e1, e2)
	require.Equal(t, 1, calls, "second Get for the same key must not reload")
	require.Equal(t, 1, c.Len())
}

func TestGetDistinguishesKindForSamePath(t *testing.T) {
	c, err := New(0, func(path string, kind Kind) (*Entry, error) {
		return &Entry{Path: path, Kind: kind}, nil
	})
	require.NoError(t, err)

	img, err := c.Get("clip", KindImage)
	require.NoError(t, err)
	aud, err := c.Get("clip", KindAudio)
	require.NoError(t, err)
	require.NotSame(t, img, aud)
	require.Equal(t, 2, c.Len())
}

func TestGetPropagatesLoadError(t *testing.T) {
	c, err := New(0, func(path string, kind Kind) (*Entry, error) {
		return nil, fmt.Errorf("not found: %s", path)
	})
	require.NoError(t, err)

	_, err = c.Get("missing.wav", KindAudio)
	require.Error(t, err)
}

func TestPurgeEvictsEverything(t *testing.T) {
	c, err := New(0, func(path string, kind Kind) (*Entry, error) {
		return &Entry{Path: path, Kind: kind}, nil
	})
	require.NoError(t, err)

	_, err = c.Get("a", KindText)
	require.NoError(t, err)
	_, err = c.Get("b", KindText)
	require.NoError(t, err)
	require.Equal(t, 2, c.Len())

	c.Purge()
	require.Equal(t, 0, c.Len())
}

func TestNewUsesDefaultCapacityWhenNonPositive(t *testing.T) {
	c, err := New(-1, func(path string, kind Kind) (*Entry, error) {
		return &Entry{Path: path, Kind: kind}, nil
	})
	require.NoError(t, err)
	require.NotNil(t, c)
}
