// Package trajectory interpolates a smooth camera path through the views of a
// reconstructed scene and writes it out for rendering.
package trajectory

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"

	"github.com/lehigh-university-libraries/splatprep/internal/colmap"
	"github.com/lehigh-university-libraries/splatprep/internal/errs"
)

// Camera is a view: a world-to-camera rotation and translation plus pinhole
// intrinsics expressed as fields of view. Values are never mutated; the With
// methods return modified copies.
type Camera struct {
	Name        string
	Rotation    quat.Number
	Translation [3]float64
	FoVx        float64
	FoVy        float64
	Width       int
	Height      int
}

// NewCamera builds a view from an images.txt pose and its cameras.txt entry.
func NewCamera(pose colmap.CameraPoseRecord, intr colmap.Camera) (Camera, error) {
	fx, fy, err := intr.Focal()
	if err != nil {
		return Camera{}, err
	}
	if fx <= 0 || fy <= 0 || intr.Width <= 0 || intr.Height <= 0 {
		return Camera{}, fmt.Errorf("%w: camera %d has non-positive intrinsics", errs.ErrFormat, intr.ID)
	}
	q := quat.Number{Real: pose.Quaternion[0], Imag: pose.Quaternion[1], Jmag: pose.Quaternion[2], Kmag: pose.Quaternion[3]}
	if quat.Abs(q) == 0 {
		return Camera{}, fmt.Errorf("%w: image %s has a zero quaternion", errs.ErrFormat, pose.Filename)
	}
	return Camera{
		Name:        pose.Filename,
		Rotation:    unit(q),
		Translation: pose.Translation,
		FoVx:        FocalToFoV(fx, intr.Width),
		FoVy:        FocalToFoV(fy, intr.Height),
		Width:       intr.Width,
		Height:      intr.Height,
	}, nil
}

// WithPose returns a copy of c with another rotation and translation.
func (c Camera) WithPose(r quat.Number, t [3]float64) Camera {
	c.Rotation = unit(r)
	c.Translation = t
	return c
}

// WithName returns a copy of c with another name.
func (c Camera) WithName(name string) Camera {
	c.Name = name
	return c
}

// RotationMatrix returns the 3x3 world-to-camera rotation.
func (c Camera) RotationMatrix() *mat.Dense {
	q := c.Rotation
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag
	return mat.NewDense(3, 3, []float64{
		1 - 2*y*y - 2*z*z, 2*x*y - 2*w*z, 2*z*x + 2*w*y,
		2*x*y + 2*w*z, 1 - 2*x*x - 2*z*z, 2*y*z - 2*w*x,
		2*z*x - 2*w*y, 2*y*z + 2*w*x, 1 - 2*x*x - 2*y*y,
	})
}

// Center returns the camera position in world coordinates, -Rᵀt.
func (c Camera) Center() [3]float64 {
	t := mat.NewVecDense(3, c.Translation[:])
	var pos mat.VecDense
	pos.MulVec(c.RotationMatrix().T(), t)
	pos.ScaleVec(-1, &pos)
	return [3]float64{pos.AtVec(0), pos.AtVec(1), pos.AtVec(2)}
}

// Scaled returns the intrinsics for an image downscaled by factor: the pixel
// size and the focal lengths that keep the same fields of view.
func (c Camera) Scaled(factor float64) (w, h int, fx, fy float64) {
	w = int(math.Round(float64(c.Width) / factor))
	h = int(math.Round(float64(c.Height) / factor))
	return w, h, FoVToFocal(c.FoVx, w), FoVToFocal(c.FoVy, h)
}

// FocalToFoV converts a focal length in pixels to a field of view in radians.
func FocalToFoV(focal float64, pixels int) float64 {
	return 2 * math.Atan(float64(pixels)/(2*focal))
}

// FoVToFocal converts a field of view in radians to a focal length in pixels.
func FoVToFocal(fov float64, pixels int) float64 {
	return float64(pixels) / (2 * math.Tan(fov/2))
}

func unit(q quat.Number) quat.Number {
	return quat.Scale(1/quat.Abs(q), q)
}

// Slerp interpolates between two rotations along the shorter arc.
func Slerp(q0, q1 quat.Number, t float64) quat.Number {
	q0, q1 = unit(q0), unit(q1)
	dot := q0.Real*q1.Real + q0.Imag*q1.Imag + q0.Jmag*q1.Jmag + q0.Kmag*q1.Kmag
	if dot < 0 {
		q1 = quat.Scale(-1, q1)
		dot = -dot
	}
	// nearly parallel: fall back to normalised lerp
	if dot > 0.9995 {
		return unit(quat.Add(q0, quat.Scale(t, quat.Sub(q1, q0))))
	}
	theta := math.Acos(dot)
	s := math.Sin(theta)
	return quat.Add(
		quat.Scale(math.Sin((1-t)*theta)/s, q0),
		quat.Scale(math.Sin(t*theta)/s, q1),
	)
}

// Interpolate inserts steps intermediate views between every consecutive pair.
// Each pair contributes steps+1 views sampled evenly on [0,1) and the final
// view is appended once, so n views become (n-1)(steps+1)+1. Intermediate
// views take the intrinsics of the earlier view of their pair.
func Interpolate(views []Camera, steps int) []Camera {
	if len(views) == 0 {
		return nil
	}
	if steps < 0 {
		steps = 0
	}
	samples := steps + 2
	out := make([]Camera, 0, (len(views)-1)*(steps+1)+1)
	for i := 0; i+1 < len(views); i++ {
		v0, v1 := views[i], views[i+1]
		for k := 0; k < samples-1; k++ {
			a := float64(k) / float64(samples-1)
			var t [3]float64
			for j := range t {
				t[j] = (1-a)*v0.Translation[j] + a*v1.Translation[j]
			}
			out = append(out, v0.WithPose(Slerp(v0.Rotation, v1.Rotation, a), t))
		}
	}
	return append(out, views[len(views)-1])
}
