package toolcmd

import (
	"context"
	"fmt"
	"io"

	"github.com/lehigh-university-libraries/splatprep/internal/trajectory"
)

func executeTrajectory(ctx context.Context, out io.Writer, opts trajectory.Options, split string) error {
	s, err := trajectory.ParseSplit(split)
	if err != nil {
		return err
	}
	opts.Split = s
	g := &trajectory.Generator{Runner: newRunner()}
	res, err := g.Run(ctx, opts)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "✅ Interpolated %d views into %d frames\n", res.Views, res.Frames)
	fmt.Fprintf(out, "   %s\n   %s\n   %s\n", res.Paths.Images, res.Paths.Cameras, res.Paths.ViewerJSON)
	return nil
}
