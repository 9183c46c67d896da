package screener

import (
	"bytes"
	"fmt"
	"image/color"
	"image/png"
	"net/url"

	"github.com/fogleman/gg"
	"github.com/glaslos/ssdeep"
	"golang.org/x/image/font/basicfont"
)

// Image is PNG encoded screenshot data.
type Image []byte

// imprintHeight is the height of the strip AddTextToImage appends.
const imprintHeight = 24

// AddTextToImage appends a white strip with the origin of rawURL to the
// bottom of the image.
func (imgB Image) AddTextToImage(rawURL string) (Image, error) {
	text, err := origin(rawURL)
	if err != nil {
		return nil, err
	}

	img, err := png.Decode(bytes.NewReader(imgB))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	b := img.Bounds()
	dc := gg.NewContext(b.Dx(), b.Dy()+imprintHeight)
	dc.SetColor(color.White)
	dc.Clear()
	dc.DrawImage(img, 0, 0)

	dc.SetColor(color.Black)
	dc.SetFontFace(basicfont.Face7x13)
	dc.DrawStringAnchored(text, 6, float64(b.Dy()+imprintHeight/2), 0, 0.5)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	return buf.Bytes(), nil
}

// origin reduces rawURL to scheme://host, dropping the scheme's default port.
func origin(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse URL: %w", err)
	}

	host := u.Host
	switch {
	case u.Scheme == "http" && u.Port() == "80", u.Scheme == "https" && u.Port() == "443":
		host = u.Hostname()
	}

	return u.Scheme + "://" + host, nil
}

// IsSimilarTo compares the fuzzy hashes of both images. It reports whether
// the score reaches threshold (1-100) together with the score itself.
func (imgB Image) IsSimilarTo(other Image, threshold int) (bool, int, error) {
	if threshold < 1 || threshold > 100 {
		return false, 0, fmt.Errorf("invalid similarity threshold: %d. Must be between 1 and 100", threshold)
	}

	hash1, err := ssdeep.FuzzyBytes(imgB)
	if err != nil {
		return false, 0, fmt.Errorf("failed to hash image: %w", err)
	}

	hash2, err := ssdeep.FuzzyBytes(other)
	if err != nil {
		return false, 0, fmt.Errorf("failed to hash previous image: %w", err)
	}

	score, err := ssdeep.Distance(hash1, hash2)
	if err != nil {
		return false, 0, fmt.Errorf("failed to compare hashes: %w", err)
	}

	return score >= threshold, score, nil
}
