package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/qembot/qembot/internal/config"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid      bool     `json:"valid"`
	Aggregates int      `json:"aggregates"`
	Errors     []string `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <configs-dir>",
		Short: "Validate aggregate metadata without scheduling",
		Long: `Load every metadata file, vet it against the schema and report all
configuration errors without talking to the dashboard or openQA.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, configsDir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	configs, errs := config.Load(configsDir, config.LoadModeCollectAll)

	// A missing or unreadable directory is a command error, not invalid
	// metadata.
	if len(errs) == 1 {
		var loadErr *config.LoadError
		if !errors.As(errs[0], &loadErr) {
			if outErr := formatter.Error("E_DIR", errs[0].Error(), nil); outErr != nil {
				return WrapExitError(ExitCommandError, "writing output", outErr)
			}
			return WrapExitError(ExitCommandError, "loading metadata", errs[0])
		}
	}

	if len(errs) > 0 {
		result := ValidationResult{Valid: false}
		for _, err := range errs {
			result.Errors = append(result.Errors, err.Error())
		}
		if outErr := formatter.Error("E_METADATA", "invalid metadata", result.Errors); outErr != nil {
			return WrapExitError(ExitCommandError, "writing output", outErr)
		}
		return NewExitError(ExitFailure, "metadata validation failed")
	}

	for _, cfg := range configs {
		formatter.VerboseLog("aggregate %s: flavor=%s archs=%d templates=%d",
			cfg.Product, cfg.Flavor, len(cfg.Archs), len(cfg.TestTemplates))
	}

	result := ValidationResult{Valid: true, Aggregates: len(configs)}
	if opts.Format == "json" {
		if err := formatter.Success(result); err != nil {
			return WrapExitError(ExitCommandError, "writing output", err)
		}
		return nil
	}
	formatter.VerboseLog("all metadata files valid")
	return formatter.Success("OK")
}
