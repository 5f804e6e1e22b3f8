package colmap

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/lehigh-university-libraries/splatprep/internal/errs"
)

// Camera is one cameras.txt entry.
type Camera struct {
	ID     int
	Model  string
	Width  int
	Height int
	Params []float64
}

// Focal returns the focal lengths in pixels for the supported models.
func (c Camera) Focal() (fx, fy float64, err error) {
	switch c.Model {
	case "SIMPLE_PINHOLE", "SIMPLE_RADIAL", "RADIAL", "SIMPLE_RADIAL_FISHEYE", "RADIAL_FISHEYE":
		if len(c.Params) < 1 {
			break
		}
		return c.Params[0], c.Params[0], nil
	case "PINHOLE", "OPENCV", "OPENCV_FISHEYE", "FULL_OPENCV":
		if len(c.Params) < 2 {
			break
		}
		return c.Params[0], c.Params[1], nil
	default:
		return 0, 0, fmt.Errorf("%w: unsupported camera model %s", errs.ErrFormat, c.Model)
	}
	return 0, 0, fmt.Errorf("%w: camera %d (%s) has %d params", errs.ErrFormat, c.ID, c.Model, len(c.Params))
}

// ReadCamerasFile parses a COLMAP cameras.txt.
func ReadCamerasFile(path string) (map[int]Camera, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.NotFound("cameras file", path)
		}
		return nil, fmt.Errorf("failed to read cameras file: %w", err)
	}

	cams := make(map[int]Camera)
	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		cam, err := parseCamera(line)
		if err != nil {
			return nil, fmt.Errorf("cameras file line %d: %w", i+1, err)
		}
		cams[cam.ID] = cam
	}
	return cams, nil
}

func parseCamera(line string) (Camera, error) {
	var cam Camera
	tokens := strings.Fields(line)
	if len(tokens) < 4 {
		return cam, fmt.Errorf("%w: camera line has %d fields, expected at least 4", errs.ErrFormat, len(tokens))
	}
	var err error
	if cam.ID, err = strconv.Atoi(tokens[0]); err != nil {
		return cam, fmt.Errorf("%w: camera id %q", errs.ErrFormat, tokens[0])
	}
	cam.Model = tokens[1]
	if cam.Width, err = strconv.Atoi(tokens[2]); err != nil {
		return cam, fmt.Errorf("%w: width %q", errs.ErrFormat, tokens[2])
	}
	if cam.Height, err = strconv.Atoi(tokens[3]); err != nil {
		return cam, fmt.Errorf("%w: height %q", errs.ErrFormat, tokens[3])
	}
	for _, tok := range tokens[4:] {
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return cam, fmt.Errorf("%w: camera param %q", errs.ErrFormat, tok)
		}
		cam.Params = append(cam.Params, v)
	}
	return cam, nil
}

// WriteCamerasFile writes cameras in the given order.
func WriteCamerasFile(path string, cams []Camera) error {
	var buf bytes.Buffer
	buf.WriteString("# Camera list with one line of data per camera:\n")
	buf.WriteString("#   CAMERA_ID, MODEL, WIDTH, HEIGHT, PARAMS[]\n")
	fmt.Fprintf(&buf, "# Number of cameras: %d\n", len(cams))
	for _, c := range cams {
		fields := []string{strconv.Itoa(c.ID), c.Model, strconv.Itoa(c.Width), strconv.Itoa(c.Height)}
		for _, p := range c.Params {
			fields = append(fields, formatFloat(p))
		}
		buf.WriteString(strings.Join(fields, " "))
		buf.WriteByte('\n')
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write cameras file: %w", err)
	}
	return nil
}
