package weft

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompileWithDefaultOptions(t *testing.T) {
	res, err := Compile(`display = [me.x, me.y, 0]`, "scene.weft", DefaultOptions())
	require.NoError(t, err)
	require.Len(t, res.VisualUnits, 1)
}

func TestCompileErrorFormatsThroughFormatError(t *testing.T) {
	_, err := Compile(`x = nonexistent + 1`, "scene.weft", DefaultOptions())
	require.Error(t, err)
	_, _, _, msg := FormatError(err)
	require.NotEmpty(t, msg)
}

func TestDefaultOptionsMaterializeThreshold(t *testing.T) {
	require.Equal(t, 30, DefaultOptions().MaterializeThreshold)
}
