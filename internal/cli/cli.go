package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/ffn-meets/internal/config"
	"github.com/pfrederiksen/ffn-meets/internal/logger"
	"github.com/pfrederiksen/ffn-meets/internal/scraper"
	"github.com/pfrederiksen/ffn-meets/internal/scrapers"
)

const (
	ExitSuccess  = 0
	ExitError    = 1
	ExitNotFound = 2
	ExitInvalid  = 3
)

// app carries the state shared by every subcommand.
type app struct {
	format     OutputFormat
	configPath string
	verbose    bool

	cfg      config.Config
	scrapers *scrapers.Scrapers
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	a := &app{}
	var format string

	cmd := &cobra.Command{
		Use:   "ffn-meets",
		Short: "Read swim meet data from the FFN live results sites",
		Long: `A CLI over the FFN live results and archive sites.
Lists competitions, clubs and swimmers, resolves heats from the program,
reads race results and qualification grids, and builds swimmer timelines.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.format = OutputFormat(strings.ToLower(format))
			if a.format != FormatText && a.format != FormatJSON {
				return scraper.Invalid(fmt.Sprintf("invalid format: %s (must be 'text' or 'json')", format), nil)
			}
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if !a.verbose {
				return
			}
			enc := json.NewEncoder(cmd.ErrOrStderr())
			enc.SetIndent("", "  ")
			enc.Encode(logger.MetricsSnapshot())
		},
	}

	cmd.PersistentFlags().StringVar(&format, "format", "text", "Output format: text or json")
	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Config file (default "+config.DefaultFile+" if present)")
	cmd.PersistentFlags().BoolVar(&a.verbose, "verbose", false, "Enable debug logging and print metrics")

	cmd.AddCommand(
		newCompetitionsCmd(a),
		newClubsCmd(a),
		newSwimmersCmd(a),
		newProgramCmd(a),
		newSeriesCmd(a),
		newResultsCmd(a),
		newRacesCmd(a),
		newQualificationCmd(a),
		newEngagementsCmd(a),
	)
	return cmd
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := cfg.Level()
	if a.verbose {
		level = logger.LevelDebug
	}
	logger.SetDefault(logger.New(level, cmd.ErrOrStderr()))

	a.scrapers = scrapers.New(cfg.Scrapers())
	logger.Debug("scrapers ready", logger.Fields{
		"live":    cfg.LiveBaseURL,
		"archive": cfg.ArchiveBaseURL,
		"cache":   !cfg.DisableCache,
	})
	return nil
}

// ExitCode maps an error to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	e, ok := scraper.AsError(err)
	if !ok {
		return ExitError
	}
	switch e.Kind {
	case scraper.KindNotFound, scraper.KindCompetitionClosed:
		return ExitNotFound
	case scraper.KindValidation:
		return ExitInvalid
	}
	return ExitError
}

// Execute runs the CLI
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitCode(err))
	}
}
