package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/rhuss/morpheus/pkg/plugin"
	"github.com/rhuss/morpheus/pkg/provider"
)

// samplingFlags holds overrides; only flags the user changed are sent.
type samplingFlags struct {
	large            bool
	temperature      float64
	maxTokens        int
	frequencyPenalty float64
	presencePenalty  float64
}

func (s *samplingFlags) register(fs *pflag.FlagSet, full bool) {
	fs.BoolVar(&s.large, "large", false, "use the large model")
	fs.Float64Var(&s.temperature, "temperature", 0, "sampling temperature override")
	if !full {
		return
	}
	fs.IntVar(&s.maxTokens, "max-tokens", 0, "max tokens override")
	fs.Float64Var(&s.frequencyPenalty, "frequency-penalty", 0, "frequency penalty override")
	fs.Float64Var(&s.presencePenalty, "presence-penalty", 0, "presence penalty override")
}

// changed returns a pointer to v when the named flag was set explicitly.
func changed[T any](fs *pflag.FlagSet, name string, v T) *T {
	if f := fs.Lookup(name); f == nil || !f.Changed {
		return nil
	}
	return &v
}

func (s *samplingFlags) textParams(fs *pflag.FlagSet, prompt string) provider.TextParams {
	return provider.TextParams{
		Prompt:           prompt,
		Temperature:      changed(fs, "temperature", s.temperature),
		MaxTokens:        changed(fs, "max-tokens", s.maxTokens),
		FrequencyPenalty: changed(fs, "frequency-penalty", s.frequencyPenalty),
		PresencePenalty:  changed(fs, "presence-penalty", s.presencePenalty),
	}
}

func newTextCmd(g *globalFlags) *cobra.Command {
	s := &samplingFlags{}
	cmd := &cobra.Command{
		Use:   "text [prompt...]",
		Short: "Generate text with the small or large model",
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt, err := promptArg(cmd, args)
			if err != nil {
				return err
			}
			p, rt, err := g.load(cmd)
			if err != nil {
				return err
			}
			kind := plugin.TextSmall
			if s.large {
				kind = plugin.TextLarge
			}
			params := s.textParams(cmd.Flags(), prompt)
			res, err := p.Handle(cmd.Context(), kind, rt, plugin.Params{Text: &params})
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), res.Text)
			return err
		},
	}
	s.register(cmd.Flags(), true)
	return cmd
}

func newObjectCmd(g *globalFlags) *cobra.Command {
	s := &samplingFlags{}
	cmd := &cobra.Command{
		Use:   "object [prompt...]",
		Short: "Generate a JSON object and print it indented",
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt, err := promptArg(cmd, args)
			if err != nil {
				return err
			}
			p, rt, err := g.load(cmd)
			if err != nil {
				return err
			}
			kind := plugin.ObjectSmall
			if s.large {
				kind = plugin.ObjectLarge
			}
			res, err := p.Handle(cmd.Context(), kind, rt, plugin.Params{Object: &provider.ObjectParams{
				Prompt:      prompt,
				Temperature: changed(cmd.Flags(), "temperature", s.temperature),
			}})
			if err != nil {
				return err
			}
			return writeJSON(cmd, res.Object)
		},
	}
	s.register(cmd.Flags(), false)
	return cmd
}

func newEmbedCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "embed [text...]",
		Short: "Embed text and print the vector as a JSON array",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := promptArg(cmd, args)
			if err != nil {
				return err
			}
			p, rt, err := g.load(cmd)
			if err != nil {
				return err
			}
			res, err := p.Handle(cmd.Context(), plugin.TextEmbedding, rt, plugin.Params{
				Embedding: &provider.EmbeddingParams{Text: text},
			})
			if err != nil {
				return err
			}
			return writeJSON(cmd, res.Embedding)
		},
	}
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
