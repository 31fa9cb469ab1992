// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package fits

import (
	"bufio"
	"errors"
	"image"
	"image/color"
	"io"
	"math"
	"os"

	colorful "github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/tiff"
)

// Write a label image as RGB TIFF preview, one distinct color per label
func (f *Image) WriteLabelPreviewToFile(fileName string) error {
	file, err := os.Create(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	if err := f.WriteLabelPreview(writer); err != nil {
		return err
	}
	return writer.Flush()
}

// Write a label image as RGB TIFF preview, one distinct color per label. Background
// is black, negative labels are grey. For cubes, shows the first labelled slice along
// each line of sight.
func (f *Image) WriteLabelPreview(writer io.Writer) error {
	if f.Labels == nil {
		return errors.New("label preview needs a label image")
	}
	if len(f.Naxisn) < 2 {
		return errors.New("label preview needs at least two axes")
	}
	width, height := f.Naxisn[0], f.Naxisn[1]
	planes := f.Pixels / (width * height)
	img := image.NewRGBA(image.Rectangle{image.Point{0, 0}, image.Point{width, height}})
	palette := map[int32]color.RGBA{}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			label := int32(0)
			for z := 0; z < planes && label == 0; z++ {
				label = f.Labels[(z*height+y)*width+x]
			}
			c, ok := palette[label]
			if !ok {
				c = labelColor(label)
				palette[label] = c
			}
			img.SetRGBA(x, y, c)
		}
	}

	return tiff.Encode(writer, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
}

// Returns a color for a label, spreading consecutive labels around the hue circle by the golden angle
func labelColor(label int32) color.RGBA {
	switch {
	case label == 0:
		return color.RGBA{0, 0, 0, 255}
	case label < 0:
		return color.RGBA{128, 128, 128, 255}
	}
	hue := math.Mod(float64(label)*137.50776405, 360)
	lum := 0.55 + 0.2*float64(label%3)/2
	r, g, b := colorful.Hcl(hue, 0.55, lum).Clamped().RGB255()
	return color.RGBA{r, g, b, 255}
}
