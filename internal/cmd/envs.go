package cmd

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/giantswarm/simenv"
	"github.com/giantswarm/simenv/internal/config"
)

var envsCmd = &cobra.Command{
	Use:   "envs",
	Short: "List the available environment kinds and their spaces",
	Long: `List every environment kind the server would accept, built-in and
external, by starting one throwaway instance of each.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(viper.GetViper())
		if err != nil {
			return err
		}
		reg := simenv.NewRegistry(cfg.RegistryOptions()...)
		defer reg.Shutdown() //nolint:errcheck // no instance outlives printKinds
		return printKinds(cmd.Context(), cmd.OutOrStdout(), reg)
	},
}

func init() {
	rootCmd.AddCommand(envsCmd)
}

// printKinds creates one throwaway instance per kind to report its spaces.
func printKinds(ctx context.Context, w io.Writer, reg simenv.Registry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tACTION SPACE\tOBSERVATION SHAPE\tRENDER")
	for _, kind := range reg.Kinds() {
		id, err := reg.Create(ctx, kind)
		if err != nil {
			return fmt.Errorf("create %s: %w", kind, err)
		}
		info, err := reg.Describe(id)
		if err != nil {
			return fmt.Errorf("describe %s: %w", kind, err)
		}
		if err := reg.Close(ctx, id); err != nil {
			return fmt.Errorf("close %s: %w", kind, err)
		}
		fmt.Fprintf(tw, "%s\t%s\t%v\t%s\n", kind, info.ActionSpace, info.ObservationShape, info.RenderMode)
	}
	return tw.Flush()
}
