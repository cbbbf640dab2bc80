package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jpl-au/cartridge"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var long bool

	cmd := &cobra.Command{
		Use:     "ls ARCHIVE",
		Aliases: []string{"list"},
		Short:   "List archive entries in archive order",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cartridge.Open(args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if !long {
				for _, p := range c.Paths() {
					fmt.Fprintln(w, p)
				}
				return nil
			}

			m, err := cartridge.ReadIntegrity(c)
			if err != nil {
				return err
			}
			var total int64
			rows := make([][]string, 0, len(c.Paths()))
			for _, p := range c.Paths() {
				size, err := c.Size(p)
				if err != nil {
					return err
				}
				total += size
				sum := "-"
				if d, ok := m.Files[p]; ok {
					sum = d.SHA256[:12]
				}
				rows = append(rows, []string{p, humanize.IBytes(uint64(size)), sum})
			}
			id, err := cartridge.ContentID(m, cartridge.AlgXXHash3)
			if err != nil {
				return err
			}
			footer := []string{
				fmt.Sprintf("%d entries, id %s", len(rows), id),
				humanize.IBytes(uint64(total)),
				"",
			}
			cols := []column{{title: "Path"}, {title: "Size", numeric: true}, {title: "SHA-256"}}
			fmt.Fprintln(w, renderTable(cols, rows, footer))
			ctx.log().Debug("listed archive", "archive", args[0], "entries", len(rows))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&long, "long", "l", false, "Show sizes, digests and totals")
	return cmd
}
