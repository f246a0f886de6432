package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/nitrogenlogic/logicclient"
	"github.com/spf13/cobra"
)

var listKVP bool

var listExportsCmd = &cobra.Command{
	Use:   "list-exports",
	Short: "Print the exported parameters",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd.Context(), func(ctx context.Context, c *logicclient.Client) error {
			exports, err := c.GetExports(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, e := range exports {
				if listKVP {
					fmt.Fprintln(out, e.KVP())
				} else {
					fmt.Fprintln(out, e)
				}
			}
			return nil
		})
	},
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Print information about the running graph",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd.Context(), func(ctx context.Context, c *logicclient.Client) error {
			info, err := c.GetInfo(ctx)
			if err != nil {
				return fmt.Errorf("getting the graph info: %w", err)
			}
			out := cmd.OutOrStdout()
			for _, p := range info.Fields {
				fmt.Fprintf(out, "%s=%s\n", p.Key, p.Value)
			}
			return nil
		})
	},
}

var getCmd = &cobra.Command{
	Use:   "get OBJID INDEX",
	Short: "Print one parameter value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		objID, index, err := parseParam(args[0], args[1])
		if err != nil {
			return err
		}
		return withClient(cmd.Context(), func(ctx context.Context, c *logicclient.Client) error {
			v, err := c.Get(ctx, objID, index)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), logicclient.FormatValue(v))
			return nil
		})
	},
}

var setCmd = &cobra.Command{
	Use:   "set OBJID INDEX VALUE",
	Short: "Write one parameter value",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		objID, index, err := parseParam(args[0], args[1])
		if err != nil {
			return err
		}
		return withClient(cmd.Context(), func(ctx context.Context, c *logicclient.Client) error {
			return c.Set(ctx, objID, index, args[2])
		})
	},
}

var setMultiCmd = &cobra.Command{
	Use:   "set-multi OBJID:INDEX=VALUE...",
	Short: "Write several parameter values in order",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := parseEntries(args)
		if err != nil {
			return err
		}
		return withClient(cmd.Context(), func(ctx context.Context, c *logicclient.Client) error {
			count, err := c.SetMulti(ctx, entries)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, e := range entries {
				result := "ok"
				if !e.OK {
					result = "failed"
					if err := e.Command.Err(); err != nil {
						result = err.Error()
					}
				}
				fmt.Fprintf(out, "%d:%d=%v %s\n", e.ObjID, e.Index, e.Value, result)
			}
			fmt.Fprintf(out, "%d of %d\n", count, len(entries))

			if count != len(entries) {
				return fmt.Errorf("%d of %d values not set", len(entries)-count, len(entries))
			}
			return nil
		})
	},
}

func init() {
	listExportsCmd.Flags().BoolVar(&listKVP, "kvp", false, "print exports as key-value lines")

	rootCmd.AddCommand(listExportsCmd, infoCmd, getCmd, setCmd, setMultiCmd)
}

func parseParam(objID, index string) (int, int, error) {
	o, err := strconv.Atoi(objID)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid object id %q", objID)
	}
	i, err := strconv.Atoi(index)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid parameter index %q", index)
	}
	return o, i, nil
}

// parseEntries reads OBJID:INDEX=VALUE arguments.
func parseEntries(args []string) ([]logicclient.SetEntry, error) {
	entries := make([]logicclient.SetEntry, 0, len(args))
	for _, arg := range args {
		param, value, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("invalid entry %q: want OBJID:INDEX=VALUE", arg)
		}
		objID, index, ok := strings.Cut(param, ":")
		if !ok {
			return nil, fmt.Errorf("invalid entry %q: want OBJID:INDEX=VALUE", arg)
		}
		o, i, err := parseParam(objID, index)
		if err != nil {
			return nil, err
		}
		entries = append(entries, logicclient.SetEntry{ObjID: o, Index: i, Value: value})
	}
	return entries, nil
}
