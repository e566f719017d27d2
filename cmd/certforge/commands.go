package main

import (
	"fmt"
	"log/slog"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"certforge/internal/config"
	"certforge/internal/generator"
	"certforge/internal/roster"
	"certforge/internal/workspace"
)

func newRootCmd() *cobra.Command {
	var verbose bool
	root := &cobra.Command{
		Use:           "certforge",
		Short:         "Generate certificate images from a participant roster",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			_ = godotenv.Load()
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log every rendered certificate")

	root.AddCommand(newGenerateCmd(), newRosterCmd())
	return root
}

type generateOptions struct {
	roster      string
	template    string
	out         string
	nameFont    string
	detailsFont string
}

func newGenerateCmd() *cobra.Command {
	var opts generateOptions
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Render one certificate per roster row and zip them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGenerate(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.roster, "roster", "", "participant spreadsheet (.xlsx)")
	flags.StringVar(&opts.template, "template", "", "certificate template image")
	flags.StringVar(&opts.out, "out", "output", "output directory, cleared before rendering")
	flags.StringVar(&opts.nameFont, "name-font", "", "font for participant names (default from NAME_FONT_PATH)")
	flags.StringVar(&opts.detailsFont, "details-font", "", "font for course, position and event (default from DETAILS_FONT_PATH)")
	_ = cmd.MarkFlagRequired("roster")
	_ = cmd.MarkFlagRequired("template")
	return cmd
}

func runGenerate(cmd *cobra.Command, opts generateOptions) error {
	assets, err := resolveAssets(opts)
	if err != nil {
		return err
	}

	gen := generator.New(assets, slog.Default(), nil)
	result, err := gen.Generate(workspace.New(opts.out), opts.roster, opts.template)
	if err != nil {
		return fmt.Errorf("generate certificates: %w", err)
	}

	out := cmd.OutOrStdout()
	if result.FontFallback {
		fmt.Fprintln(cmd.ErrOrStderr(), "warning: fonts unavailable, default font used")
	}
	fmt.Fprintf(out, "%d certificates written for %d records\n", len(result.Files), result.Records)
	fmt.Fprintln(out, result.ArchivePath)
	return nil
}

func resolveAssets(opts generateOptions) (generator.Assets, error) {
	assets := generator.Assets{NameFontPath: opts.nameFont, DetailsFontPath: opts.detailsFont}
	if assets.NameFontPath != "" && assets.DetailsFontPath != "" {
		return assets, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return assets, fmt.Errorf("load config: %w", err)
	}
	if assets.NameFontPath == "" {
		assets.NameFontPath = cfg.Assets.NameFont
	}
	if assets.DetailsFontPath == "" {
		assets.DetailsFontPath = cfg.Assets.DetailsFont
	}
	return assets, nil
}

func newRosterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "roster <file.xlsx>",
		Short: "Print the normalized roster records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := roster.Load(args[0])
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tCOURSE\tPOSITION\tEVENT")
			for _, r := range records {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Name, r.Course, r.Position, r.Event)
			}
			return w.Flush()
		},
	}
}
