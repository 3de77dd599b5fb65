package qrimage

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderPNG(t *testing.T) {
	token := "https://air-code.app/session/sess-1#AIRCODE:YWJjZGVm:aabbccdd"

	data, err := RenderPNG(token, 256)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 256, img.Bounds().Dx())
	assert.Equal(t, 256, img.Bounds().Dy())
}

func TestRenderPNG_Invalid(t *testing.T) {
	_, err := RenderPNG("", 256)
	assert.Error(t, err)

	_, err = RenderPNG("content", 0)
	assert.Error(t, err)
}
