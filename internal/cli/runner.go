package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/roach88/nucmass/internal/catalog"
	"github.com/roach88/nucmass/internal/pipeline"
	"github.com/roach88/nucmass/internal/store"
)

// parseErrorDetails is the JSON detail payload of an invalid catalog.
type parseErrorDetails struct {
	Field string `json:"field"`
	Line  int    `json:"line,omitempty"`
}

// loadCatalog reads and validates a catalog, reporting failures through
// formatter. The returned error is always an ExitError.
func loadCatalog(formatter *OutputFormatter, path string) (*catalog.Catalog, error) {
	c, err := catalog.Load(path)
	if err == nil {
		return c, nil
	}

	var perr *catalog.ParseError
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, reportError(formatter, ExitCommandError, ErrCodeNotFound,
			fmt.Sprintf("catalog not found: %s", path), nil, err)
	case errors.As(err, &perr):
		details := parseErrorDetails{Field: perr.Field}
		if perr.Pos.IsValid() {
			details.Line = perr.Pos.Line()
		}
		return nil, reportError(formatter, ExitCommandError, ErrCodeInvalidCatalog,
			perr.Error(), details, err)
	default:
		return nil, reportError(formatter, ExitCommandError, ErrCodeInvalidCatalog,
			err.Error(), nil, err)
	}
}

// reconcile runs the pipeline over c. Failures are reported through
// formatter and returned as ExitErrors.
func reconcile(ctx context.Context, opts *RootOptions, cmd *cobra.Command, formatter *OutputFormatter, c *catalog.Catalog) (*pipeline.Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	res, err := pipeline.New(pipeline.WithLogger(opts.logger(cmd))).Run(ctx, c)
	if err == nil {
		return res, nil
	}

	switch {
	case store.IsDuplicateKey(err):
		return nil, reportError(formatter, ExitFailure, ErrCodeDuplicateKey, err.Error(), nil, err)
	case errors.Is(err, fs.ErrNotExist):
		return nil, reportError(formatter, ExitCommandError, ErrCodeNotFound, err.Error(), nil, err)
	default:
		return nil, reportError(formatter, ExitCommandError, ErrCodeReadFailed, err.Error(), nil, err)
	}
}

// reportError writes the error envelope and wraps err with exit code and
// error code, so callers see "E00x: message" from Execute.
func reportError(formatter *OutputFormatter, exit int, code, message string, details interface{}, err error) error {
	_ = formatter.Error(code, message, details)
	return WrapExitError(exit, code, err)
}

// loadAndReconcile is the common front half of every run-based command.
func loadAndReconcile(opts *RootOptions, cmd *cobra.Command, path string, override func(*catalog.Catalog) error) (*catalog.Catalog, *pipeline.Result, error) {
	formatter := opts.formatter(cmd)
	c, err := loadCatalog(formatter, path)
	if err != nil {
		return nil, nil, err
	}
	if override != nil {
		if err := override(c); err != nil {
			return nil, nil, err
		}
	}
	res, err := reconcile(cmd.Context(), opts, cmd, formatter, c)
	if err != nil {
		return nil, nil, err
	}
	return c, res, nil
}
