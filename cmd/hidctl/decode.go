package main

import (
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/joshuapare/hidkit/hid"
)

func init() {
	rootCmd.AddCommand(newDecodeCmd())
}

func newDecodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode <handle>...",
		Short: "Split handles into category and slot index",
		Long: `The decode command reports the category and slot index of each handle.
Handles may be decimal, hex (0x) or octal (0o). Negative values and values
whose tag names no category decode as invalid.

Example:
  hidctl decode 83886122
  hidctl decode 0x0500002a -1 --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDecode(args)
		},
	}
}

func runDecode(args []string) error {
	infos := make([]handleInfo, 0, len(args))
	for _, arg := range args {
		h, err := hid.ParseHandle(arg)
		if err != nil {
			return err
		}
		info := describe(h)
		info.Input = arg
		infos = append(infos, info)
	}

	if jsonOut {
		return printJSON(infos)
	}
	if quiet {
		return nil
	}

	bad := color.New(color.FgRed).SprintFunc()
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, info := range infos {
		if !info.Valid {
			_, _ = tw.Write([]byte(info.Input + "\t" + info.Hex + "\t" + bad("invalid") + "\n"))
			continue
		}
		_, _ = tw.Write([]byte(info.Input + "\t" + info.Hex + "\t" + info.Category.String() + "\t" +
			formatNumber(int(info.Index)) + "\n"))
	}
	return tw.Flush()
}
