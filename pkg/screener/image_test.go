package screener

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noisePNG(t *testing.T, seed int64, w, h int) Image {
	t.Helper()

	rng := rand.New(rand.NewSource(seed))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(rng.Intn(256)), uint8(rng.Intn(256)), uint8(rng.Intn(256)), 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestAddTextToImage(t *testing.T) {
	src := noisePNG(t, 1, 120, 80)

	out, err := src.AddTextToImage("http://localhost:5173/projects")
	require.NoError(t, err)

	decoded, err := png.Decode(bytes.NewReader(out))
	require.NoError(t, err)

	assert.Equal(t, 120, decoded.Bounds().Dx())
	assert.Equal(t, 80+imprintHeight, decoded.Bounds().Dy())
}

func TestOrigin(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"http://localhost:5173/projects?id=1", "http://localhost:5173"},
		{"http://example.com:80/", "http://example.com"},
		{"https://example.com:443", "https://example.com"},
		{"https://example.com:8443/a", "https://example.com:8443"},
	}

	for _, tt := range tests {
		got, err := origin(tt.url)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := origin("http://[::1")
	assert.Error(t, err)
}

func TestAddTextToImageInvalidPNG(t *testing.T) {
	_, err := Image("not a png").AddTextToImage("http://localhost")
	assert.Error(t, err)
}

func TestIsSimilarTo(t *testing.T) {
	a := noisePNG(t, 1, 200, 200)

	similar, score, err := a.IsSimilarTo(a, 96)
	require.NoError(t, err)
	assert.True(t, similar)
	assert.Equal(t, 100, score)

	_, _, err = a.IsSimilarTo(a, 0)
	assert.Error(t, err)
}
