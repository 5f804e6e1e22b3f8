package colmap

import (
	"os"

	"github.com/lehigh-university-libraries/splatprep/internal/errs"
)

func notFoundOr(err error, what, path string) error {
	if os.IsNotExist(err) {
		return errs.NotFound(what, path)
	}
	return err
}
