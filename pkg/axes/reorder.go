package axes

import (
	"fmt"

	"fmriexport/internal/models"
)

// Reorder applies a resolved axis order to the raw 4D array, producing a
// fresh (T,Z,Y,X) series. The input is row-major in its source shape; the
// output never aliases it.
func Reorder(data []float32, shape [4]int, o Order) (*models.VolumeSeries, error) {
	n := shape[0] * shape[1] * shape[2] * shape[3]
	if len(data) != n {
		return nil, fmt.Errorf("data length %d does not match shape %v", len(data), shape)
	}

	// Row-major strides of the source shape.
	var stride [4]int
	stride[3] = 1
	for i := 2; i >= 0; i-- {
		stride[i] = stride[i+1] * shape[i+1]
	}

	out := models.NewVolumeSeries(o.T, o.Z, o.Y, o.X)
	out.AxisStrategy = o.Strategy

	st := stride[o.Perm[0]]
	sz := stride[o.Perm[1]]
	sy := stride[o.Perm[2]]
	sx := stride[o.Perm[3]]

	idx := 0
	for t := 0; t < o.T; t++ {
		for z := 0; z < o.Z; z++ {
			for y := 0; y < o.Y; y++ {
				base := t*st + z*sz + y*sy
				for x := 0; x < o.X; x++ {
					out.Data[idx] = data[base+x*sx]
					idx++
				}
			}
		}
	}
	return out, nil
}
