package trajectory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"

	"github.com/lehigh-university-libraries/splatprep/internal/colmap"
)

// FrameName is the file name of the idx-th rendered frame.
func FrameName(idx int) string {
	return fmt.Sprintf("%03d.png", idx)
}

// ViewerCamera is one cameras.json entry in the format the Gaussian-splatting
// viewers read.
type ViewerCamera struct {
	ID       int           `json:"id"`
	ImgName  string        `json:"img_name"`
	Width    int           `json:"width"`
	Height   int           `json:"height"`
	Position [3]float64    `json:"position"`
	Rotation [3][3]float64 `json:"rotation"`
	Fy       float64       `json:"fy"`
	Fx       float64       `json:"fx"`
}

// ToViewer converts a view. The rotation is camera-to-world, i.e. Rᵀ.
func ToViewer(idx int, c Camera, scale float64) ViewerCamera {
	w, h, fx, fy := c.Scaled(scale)
	vc := ViewerCamera{
		ID:       idx,
		ImgName:  fmt.Sprintf("%03d", idx),
		Width:    w,
		Height:   h,
		Position: c.Center(),
		Fx:       fx,
		Fy:       fy,
	}
	var rt mat.Dense
	rt.CloneFrom(c.RotationMatrix().T())
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			vc.Rotation[i][j] = rt.At(i, j)
		}
	}
	return vc
}

// Paths are the files written by Write.
type Paths struct {
	Dir        string
	Images     string
	Cameras    string
	ViewerJSON string
}

// Write stores views as a COLMAP text model under out/trajectory, one PINHOLE
// camera per view, and as out/cameras.json. Frames are named by index.
func Write(out string, views []Camera, scale float64) (*Paths, error) {
	p := &Paths{
		Dir:        filepath.Join(out, "trajectory"),
		ViewerJSON: filepath.Join(out, "cameras.json"),
	}
	p.Images = filepath.Join(p.Dir, colmap.ImagesTxt)
	p.Cameras = filepath.Join(p.Dir, colmap.CamerasTxt)
	if err := os.MkdirAll(p.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create trajectory directory: %w", err)
	}

	poses := make([]colmap.CameraPoseRecord, 0, len(views))
	cams := make([]colmap.Camera, 0, len(views))
	viewer := make([]ViewerCamera, 0, len(views))
	for i, v := range views {
		w, h, fx, fy := v.Scaled(scale)
		q := v.Rotation
		poses = append(poses, colmap.CameraPoseRecord{
			ImageID:     i + 1,
			Quaternion:  [4]float64{q.Real, q.Imag, q.Jmag, q.Kmag},
			Translation: v.Translation,
			CameraID:    i + 1,
			Filename:    FrameName(i),
		})
		cams = append(cams, colmap.Camera{
			ID:     i + 1,
			Model:  "PINHOLE",
			Width:  w,
			Height: h,
			Params: []float64{fx, fy, float64(w) / 2, float64(h) / 2},
		})
		viewer = append(viewer, ToViewer(i, v, scale))
	}

	if err := colmap.WriteImagesFile(p.Images, colmap.NewImagesFile(poses)); err != nil {
		return nil, err
	}
	if err := colmap.WriteCamerasFile(p.Cameras, cams); err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(viewer, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode cameras.json: %w", err)
	}
	if err := os.WriteFile(p.ViewerJSON, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write cameras.json: %w", err)
	}
	return p, nil
}
