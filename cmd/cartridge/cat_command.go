package main

import (
	"github.com/spf13/cobra"

	"github.com/jpl-au/cartridge"
)

func newCatCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cat ARCHIVE PATH",
		Short: "Write one archive entry to stdout",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cartridge.Open(args[0])
			if err != nil {
				return err
			}
			data, err := c.ReadBytes(args[1])
			if err != nil {
				return err
			}
			ctx.log().Debug("read entry", "archive", args[0], "path", args[1], "bytes", len(data))
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
