package colmap

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lehigh-university-libraries/splatprep/internal/errs"
)

// CameraPoseRecord is one parsed images.txt pose line. The rotation and
// translation map world coordinates into the camera frame.
type CameraPoseRecord struct {
	ImageID     int
	Quaternion  [4]float64 // qw, qx, qy, qz
	Translation [3]float64
	CameraID    int
	Filename    string
}

// ParsePose parses a pose line. The filename is the last field.
func ParsePose(line string) (CameraPoseRecord, error) {
	var rec CameraPoseRecord
	tokens := strings.Fields(line)
	if len(tokens) < MinPoseTokens {
		return rec, fmt.Errorf("%w: pose line has %d fields, expected at least %d", errs.ErrFormat, len(tokens), MinPoseTokens)
	}

	id, err := strconv.Atoi(tokens[0])
	if err != nil {
		return rec, fmt.Errorf("%w: image id %q: %v", errs.ErrFormat, tokens[0], err)
	}
	rec.ImageID = id

	for i := 0; i < 7; i++ {
		v, err := strconv.ParseFloat(tokens[1+i], 64)
		if err != nil {
			return rec, fmt.Errorf("%w: pose value %q: %v", errs.ErrFormat, tokens[1+i], err)
		}
		if i < 4 {
			rec.Quaternion[i] = v
		} else {
			rec.Translation[i-4] = v
		}
	}

	camID, err := strconv.Atoi(tokens[8])
	if err != nil {
		return rec, fmt.Errorf("%w: camera id %q: %v", errs.ErrFormat, tokens[8], err)
	}
	rec.CameraID = camID
	rec.Filename = tokens[len(tokens)-1]
	return rec, nil
}

// String formats the record as an images.txt pose line.
func (r CameraPoseRecord) String() string {
	fields := []string{strconv.Itoa(r.ImageID)}
	for _, v := range r.Quaternion {
		fields = append(fields, formatFloat(v))
	}
	for _, v := range r.Translation {
		fields = append(fields, formatFloat(v))
	}
	fields = append(fields, strconv.Itoa(r.CameraID), r.Filename)
	return strings.Join(fields, " ")
}

// ReadPoses parses every pose line of f.
func (f *ImagesFile) ReadPoses() ([]CameraPoseRecord, error) {
	lines, err := f.PoseLines()
	if err != nil {
		return nil, err
	}
	poses := make([]CameraPoseRecord, 0, len(lines))
	for i, line := range lines {
		rec, err := ParsePose(line)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i+1, err)
		}
		poses = append(poses, rec)
	}
	return poses, nil
}

// NewImagesFile builds an images.txt from poses, each followed by an empty
// points line.
func NewImagesFile(poses []CameraPoseRecord) *ImagesFile {
	f := &ImagesFile{
		Header: []string{
			"# Image list with two lines of data per image:",
			"#   IMAGE_ID, QW, QX, QY, QZ, TX, TY, TZ, CAMERA_ID, NAME",
			"#   POINTS2D[] as (X, Y, POINT3D_ID)",
			fmt.Sprintf("# Number of images: %d", len(poses)),
		},
		Content: make([]string, 0, 2*len(poses)),
	}
	for _, p := range poses {
		f.Content = append(f.Content, p.String(), "")
	}
	return f
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 17, 64)
}
