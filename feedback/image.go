package feedback

import (
	"fmt"
	"strings"
)

const (
	ImageWidth  = 5
	ImageHeight = 5
)

// Image is a 5x5 LED matrix. Each row is a bitmask; bit 4 is the leftmost column.
type Image [ImageHeight]uint8

// ImageMapping resolves a feedback key into an image.
type ImageMapping func(key string) Image

// Lit reports whether the LED at column x, row y is on.
func (img Image) Lit(x, y int) bool {
	if x < 0 || x >= ImageWidth || y < 0 || y >= ImageHeight {
		return false
	}
	return img[y]&(1<<(ImageWidth-1-x)) != 0
}

// String renders the image as five lines of '#' and '.' separated by spaces.
func (img Image) String() string {
	var sb strings.Builder
	for y := 0; y < ImageHeight; y++ {
		for x := 0; x < ImageWidth; x++ {
			if x > 0 {
				sb.WriteByte(' ')
			}
			if img.Lit(x, y) {
				sb.WriteByte('#')
			} else {
				sb.WriteByte('.')
			}
		}
		if y < ImageHeight-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// Compact renders the image on one line, rows separated by '|'.
func (img Image) Compact() string {
	return strings.ReplaceAll(strings.ReplaceAll(img.String(), " ", ""), "\n", "|")
}

// ParseImage reads 25 cells in row order. '#', '*' and '1' are lit, '.' and
// '0' are dark; whitespace and '|' are ignored.
func ParseImage(s string) (Image, error) {
	var img Image
	n := 0
	for _, r := range s {
		var lit bool
		switch r {
		case '#', '*', '1':
			lit = true
		case '.', '0':
		case ' ', '\t', '\n', '\r', '|':
			continue
		default:
			return Image{}, fmt.Errorf("invalid image cell %q", r)
		}
		if n >= ImageWidth*ImageHeight {
			return Image{}, fmt.Errorf("image has more than %d cells", ImageWidth*ImageHeight)
		}
		if lit {
			img[n/ImageWidth] |= 1 << (ImageWidth - 1 - n%ImageWidth)
		}
		n++
	}
	if n != ImageWidth*ImageHeight {
		return Image{}, fmt.Errorf("image has %d cells, want %d", n, ImageWidth*ImageHeight)
	}
	return img, nil
}

func mustParseImage(s string) Image {
	img, err := ParseImage(s)
	if err != nil {
		panic(err)
	}
	return img
}
