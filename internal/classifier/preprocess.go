package classifier

import (
	"image"

	"golang.org/x/image/draw"
)

// Preprocess scales img to size x size and lays it out as NHWC float32 RGB
// in [0, 1], the input layout of the bundled NSFW model.
func Preprocess(img image.Image, size int) []float32 {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)

	out := make([]float32, 0, size*size*3)
	for y := 0; y < size; y++ {
		row := dst.Pix[y*dst.Stride : y*dst.Stride+size*4]
		for x := 0; x < size; x++ {
			px := row[x*4 : x*4+3]
			out = append(out,
				float32(px[0])/255,
				float32(px[1])/255,
				float32(px[2])/255,
			)
		}
	}
	return out
}
