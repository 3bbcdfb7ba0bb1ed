package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/joshuapare/hidkit/hid"
)

func init() {
	rootCmd.AddCommand(newEncodeCmd())
}

func newEncodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "encode <category> <index>",
		Short: "Build a handle from a category and slot index",
		Long: `The encode command packs a category tag and a slot index into a handle.
The category may be given by name or by numeric tag.

Example:
  hidctl encode dataset 42
  hidctl encode 5 0x2a --json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEncode(args)
		},
	}
}

// handleInfo is the JSON shape shared by encode and decode.
type handleInfo struct {
	Input    string       `json:"input,omitempty"`
	Handle   hid.Handle   `json:"handle"`
	Hex      string       `json:"hex"`
	Valid    bool         `json:"valid"`
	Category hid.Category `json:"category,omitempty"`
	Index    uint32       `json:"index"`
}

func describe(h hid.Handle) handleInfo {
	info := handleInfo{
		Handle: h,
		Hex:    fmt.Sprintf("0x%08x", uint32(h)),
		Index:  h.Index(),
	}
	if cat := h.Category(); cat >= hid.File && cat < hid.NumCategories {
		info.Valid = true
		info.Category = cat
	}
	return info
}

func runEncode(args []string) error {
	cat, err := hid.ParseCategory(args[0])
	if err != nil {
		return err
	}
	index, err := strconv.ParseUint(args[1], 0, 32)
	if err != nil {
		return fmt.Errorf("invalid index %q: %w", args[1], err)
	}
	if index > hid.MaxIndex {
		return fmt.Errorf("index %d exceeds %d", index, hid.MaxIndex)
	}

	h := hid.Encode(cat, uint32(index))
	printVerbose("Encoding %s index %d\n", cat, index)

	info := describe(h)
	if jsonOut {
		return printJSON(info)
	}
	printInfo("%d\t%s\t%s\n", int32(h), info.Hex, h)
	return nil
}
