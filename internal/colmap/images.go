// Package colmap reads, validates and rewrites COLMAP text models and wraps
// the COLMAP executable's model conversion.
package colmap

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/lehigh-university-libraries/splatprep/internal/errs"
)

// MinPoseTokens is the number of fields of an images.txt pose line:
// IMAGE_ID QW QX QY QZ TX TY TZ CAMERA_ID NAME.
const MinPoseTokens = 10

// ImagesFile is an images.txt held in memory. Header keeps the comment lines,
// Content every other line in file order, alternating pose and points lines.
type ImagesFile struct {
	Header  []string
	Content []string
}

// ParseImagesText splits raw images.txt bytes into header and content lines.
func ParseImagesText(data []byte) *ImagesFile {
	f := &ImagesFile{}
	if len(data) == 0 {
		return f
	}
	data = bytes.TrimSuffix(data, []byte("\n"))
	for _, raw := range strings.Split(string(data), "\n") {
		line := strings.TrimSuffix(raw, "\r")
		if strings.HasPrefix(line, "#") {
			f.Header = append(f.Header, line)
			continue
		}
		f.Content = append(f.Content, line)
	}
	return f
}

// ReadImagesFile loads an images.txt from disk.
func ReadImagesFile(path string) (*ImagesFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.NotFound("images file", path)
		}
		return nil, fmt.Errorf("failed to read images file: %w", err)
	}
	return ParseImagesText(data), nil
}

// NumImages returns the number of pose/points pairs.
func (f *ImagesFile) NumImages() (int, error) {
	if len(f.Content)%2 != 0 {
		return 0, fmt.Errorf("%w: images file has %d content lines, expected an even number", errs.ErrFormat, len(f.Content))
	}
	return len(f.Content) / 2, nil
}

// PoseLines returns the first line of every record.
func (f *ImagesFile) PoseLines() ([]string, error) {
	n, err := f.NumImages()
	if err != nil {
		return nil, err
	}
	out := make([]string, n)
	for i := range out {
		out[i] = f.Content[2*i]
	}
	return out, nil
}

// Rewrite returns a copy of f in which every points line is empty and, when
// names is non-nil, the filename of record i is replaced by names[i].
// f is not modified.
func Rewrite(f *ImagesFile, names []string) (*ImagesFile, error) {
	n, err := f.NumImages()
	if err != nil {
		return nil, err
	}
	if names != nil && len(names) != n {
		return nil, fmt.Errorf("%w: %d images in images file but %d names in the name list", errs.ErrConfiguration, n, len(names))
	}

	out := &ImagesFile{
		Header:  append([]string(nil), f.Header...),
		Content: make([]string, 0, 2*n),
	}
	for i := 0; i < n; i++ {
		line := f.Content[2*i]
		if tokens := strings.Fields(line); len(tokens) < MinPoseTokens {
			return nil, fmt.Errorf("%w: pose line %d has %d fields, expected at least %d", errs.ErrFormat, i+1, len(tokens), MinPoseTokens)
		}
		if names != nil {
			line = replaceLastField(line, names[i])
		}
		out.Content = append(out.Content, line, "")
	}
	return out, nil
}

// replaceLastField swaps the final whitespace-separated token of line for
// repl, keeping every other byte before it. Whitespace is what strings.Fields
// splits on.
func replaceLastField(line, repl string) string {
	trimmed := strings.TrimRightFunc(line, unicode.IsSpace)
	i := strings.LastIndexFunc(trimmed, unicode.IsSpace)
	if i < 0 {
		return repl
	}
	_, size := utf8.DecodeRuneInString(trimmed[i:])
	return trimmed[:i+size] + repl
}

// WriteTo writes header lines and then content lines, each newline-terminated.
func (f *ImagesFile) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, group := range [][]string{f.Header, f.Content} {
		for _, line := range group {
			n, err := io.WriteString(w, line+"\n")
			total += int64(n)
			if err != nil {
				return total, err
			}
		}
	}
	return total, nil
}

// WriteImagesFile writes f to path, replacing any existing file.
func WriteImagesFile(path string, f *ImagesFile) error {
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return fmt.Errorf("failed to render images file: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write images file: %w", err)
	}
	return nil
}

// UpdateOptions configures UpdateImagesText.
type UpdateOptions struct {
	// Original is the images.txt to read.
	Original string
	// NewNames is an optional newline-delimited list of replacement filenames.
	NewNames string
	// Output may equal Original.
	Output string
}

// UpdateSummary describes a finished rewrite.
type UpdateSummary struct {
	Images  int
	Renamed bool
	Output  string
}

// UpdateImagesText rewrites an images.txt: optional renaming, points lines
// emptied, header kept. Nothing is written unless every check passes.
func UpdateImagesText(opts UpdateOptions) (*UpdateSummary, error) {
	if opts.Original == "" || opts.Output == "" {
		return nil, fmt.Errorf("%w: original and output paths are required", errs.ErrConfiguration)
	}

	var names []string
	if opts.NewNames != "" {
		var err error
		names, err = ReadNames(opts.NewNames)
		if err != nil {
			return nil, err
		}
	}

	orig, err := ReadImagesFile(opts.Original)
	if err != nil {
		return nil, err
	}

	updated, err := Rewrite(orig, names)
	if err != nil {
		return nil, err
	}

	if err := WriteImagesFile(opts.Output, updated); err != nil {
		return nil, err
	}

	n, _ := updated.NumImages()
	slog.Debug("Rewrote images file", "original", opts.Original, "output", opts.Output, "images", n, "renamed", names != nil)
	return &UpdateSummary{Images: n, Renamed: names != nil, Output: opts.Output}, nil
}
