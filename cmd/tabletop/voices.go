package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-tabletop/pkg/tts"
)

func newVoicesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "voices",
		Short: "List the supported speech voices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\t")
			for _, v := range tts.SupportedVoices {
				marker := ""
				if v.ID == tts.DefaultVoice.ID {
					marker = "(default)"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", v.ID, v.Name, marker)
			}
			return w.Flush()
		},
	}
}
