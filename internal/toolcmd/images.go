package toolcmd

import (
	"fmt"
	"io"

	"github.com/lehigh-university-libraries/splatprep/internal/colmap"
)

func executeImagesUpdate(out io.Writer, original, newNames, output string) error {
	summary, err := colmap.UpdateImagesText(colmap.UpdateOptions{
		Original: original,
		NewNames: newNames,
		Output:   output,
	})
	if err != nil {
		return err
	}
	if summary.Renamed {
		fmt.Fprintf(out, "✅ Updated %d images with new names in %s\n", summary.Images, summary.Output)
		return nil
	}
	fmt.Fprintf(out, "✅ Cleared points of %d images in %s\n", summary.Images, summary.Output)
	return nil
}

func executeValFile(out io.Writer, dir string, names []string) error {
	path, err := colmap.WriteTestList(dir, names)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "✅ Wrote %s with %d names\n", path, len(names))
	return nil
}
