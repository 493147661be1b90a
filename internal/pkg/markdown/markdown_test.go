package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	out, err := Render("**Synth** pop from ~~Berlin~~ Lagos")
	require.NoError(t, err)
	assert.Contains(t, out, "<strong>Synth</strong>")
	assert.Contains(t, out, "<del>Berlin</del>")
}

func TestRenderEscapesRawHTML(t *testing.T) {
	out, err := Render("<script>alert(1)</script>")
	require.NoError(t, err)
	assert.NotContains(t, out, "<script>")
}

func TestRenderEmpty(t *testing.T) {
	out, err := Render("")
	require.NoError(t, err)
	assert.Empty(t, out)
}
