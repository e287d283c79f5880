package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/rhuss/morpheus/pkg/config"
)

func newCheckCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Resolve and validate the plugin settings",
		Long: `Resolve every setting through the same precedence chain the plugin uses
and report its value and any validation problem. Secrets are masked.
Exits non-zero when the configuration is invalid.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, rt, err := g.load(cmd)
			if err != nil {
				return err
			}
			cfg := p.Settings(rt)
			verr := cfg.Validate()

			var issues *config.ValidationError
			errors.As(verr, &issues)

			w := cmd.OutOrStdout()
			tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
			bold := color.New(color.Bold)
			green := color.New(color.FgGreen)
			red := color.New(color.FgRed)

			_, _ = fmt.Fprintln(tw, bold.Sprint("KEY")+"\t"+bold.Sprint("VALUE")+"\t"+bold.Sprint("STATUS"))
			for _, row := range settingRows(cfg) {
				status := green.Sprint("ok")
				if issues != nil && issues.Has(row.key) {
					status = red.Sprint(reasonFor(issues, row.key))
				}
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", row.key, row.value, status)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			if verr != nil {
				return fmt.Errorf("configuration is invalid (%d issue(s))", len(issues.Issues))
			}
			_, _ = fmt.Fprintln(w, green.Sprint("configuration is valid"))
			return nil
		},
	}
}

type settingRow struct {
	key, value string
}

func settingRows(cfg config.Config) []settingRow {
	dims := "(model default)"
	if cfg.EmbeddingDimensions != nil {
		dims = fmt.Sprintf("%d", *cfg.EmbeddingDimensions)
	}
	return []settingRow{
		{config.KeyAPIKey, mask(cfg.APIKey)},
		{config.KeyBaseURL, cfg.BaseURL},
		{config.KeySmallModel, cfg.SmallModel},
		{config.KeyLargeModel, cfg.LargeModel},
		{config.KeyEmbeddingAPIKey, mask(cfg.EmbeddingAPIKey)},
		{config.KeyEmbeddingBaseURL, cfg.EmbeddingBaseURL},
		{config.KeyEmbeddingModel, cfg.EmbeddingModel},
		{config.KeyEmbeddingDimensions, dims},
		{config.KeyLogLevel, cfg.LogLevel},
	}
}

// reasonFor returns the first reason recorded for key.
func reasonFor(issues *config.ValidationError, key string) string {
	for _, issue := range issues.Issues {
		if issue.Key == key {
			return issue.Reason
		}
	}
	return "invalid"
}

// mask keeps the last four characters of a secret.
func mask(secret string) string {
	switch {
	case secret == "":
		return "(not set)"
	case len(secret) <= 4:
		return "****"
	default:
		return "****" + secret[len(secret)-4:]
	}
}
