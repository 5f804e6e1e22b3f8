package toolcmd

import (
	"context"
	"fmt"
	"io"

	"github.com/lehigh-university-libraries/splatprep/internal/colmap"
	"github.com/lehigh-university-libraries/splatprep/internal/runner"
	"github.com/lehigh-university-libraries/splatprep/internal/sfm"
)

func executeColmapConvert(ctx context.Context, out io.Writer, input, output, colmapExe string) error {
	conv := &colmap.Converter{
		Runner: newRunner(),
		Colmap: runner.Resolve("colmap", colmapExe, EnvColmap),
	}
	if err := conv.ConvertToText(ctx, input, output); err != nil {
		return err
	}
	fmt.Fprintf(out, "✅ Converted %s to text model in %s\n", input, output)
	return nil
}

func executeSfM(ctx context.Context, out io.Writer, cfg sfm.Config) error {
	cfg.Colmap = runner.Resolve("colmap", cfg.Colmap, EnvColmap)
	if cfg.Magick == "" {
		cfg.Magick = envOr("", EnvMagick, "")
	}
	if err := sfm.New(cfg, newRunner()).Run(ctx); err != nil {
		return err
	}
	fmt.Fprintf(out, "✅ Structure from motion finished for %s\n", cfg.SourcePath)
	return nil
}
