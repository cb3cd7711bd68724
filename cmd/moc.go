// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package cmd

import (
	"context"
	"io"

	"github.com/molecula/moc/ctl"
	"github.com/spf13/cobra"
)

func newConvertCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	conv := ctl.NewConvertCommand(ctl.NewCmdIO(stdin, stdout, stderr))
	c := &cobra.Command{
		Use:   "convert",
		Short: "Convert a MOC between serialization formats.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return conv.Run(context.Background())
		},
	}
	flags := c.Flags()
	flags.StringVarP(&conv.Input, "input", "i", "-", "Input file, - for stdin.")
	flags.StringVarP(&conv.Output, "output", "o", "-", "Output file, - for stdout.")
	flags.StringVar(&conv.From, "from", ctl.FormatFITS, "Input format: fits, ascii, json, stream.")
	flags.StringVar(&conv.To, "to", ctl.FormatASCII, "Output format: fits, uniq, ascii, json, stream.")
	flags.StringVarP(&conv.Qty, "qty", "q", "space", "Quantity for text formats: space, time, freq.")
	return c
}

func newInfoCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	info := ctl.NewInfoCommand(ctl.NewCmdIO(stdin, stdout, stderr))
	c := &cobra.Command{
		Use:   "info",
		Short: "Print quantity, depth, range count and coverage of a MOC.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return info.Run(context.Background())
		},
	}
	flags := c.Flags()
	flags.StringVarP(&info.Input, "input", "i", "-", "Input file, - for stdin.")
	flags.StringVar(&info.From, "from", ctl.FormatFITS, "Input format: fits, ascii, json, stream.")
	flags.StringVarP(&info.Qty, "qty", "q", "space", "Quantity for text formats: space, time, freq.")
	return c
}

func newOpCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	op := ctl.NewOpCommand(ctl.NewCmdIO(stdin, stdout, stderr))
	c := &cobra.Command{
		Use:   "op",
		Short: "Apply a set operation to one or two MOCs.",
		Long: `
Applies a set operation. Binary operations (union, inter, minus, sdiff) read
the --left and --right MOCs; unary operations (compl, degrade, extend,
contract, extborder, intborder, splitcount) read --left only.
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return op.Run(context.Background())
		},
	}
	flags := c.Flags()
	flags.StringVar(&op.Op, "op", "union", "Operation to apply.")
	flags.StringVarP(&op.Left, "left", "l", "-", "Left-hand MOC file.")
	flags.StringVarP(&op.Right, "right", "r", "", "Right-hand MOC file (binary operations).")
	flags.StringVarP(&op.Output, "output", "o", "-", "Output file, - for stdout.")
	flags.StringVar(&op.From, "from", ctl.FormatFITS, "Input format.")
	flags.StringVar(&op.To, "to", ctl.FormatFITS, "Output format.")
	flags.StringVarP(&op.Qty, "qty", "q", "space", "Quantity for text formats.")
	flags.Uint8Var(&op.Depth, "depth", 0, "Target depth for degrade.")
	return c
}

func newFromCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	from := ctl.NewFromCommand(ctl.NewCmdIO(stdin, stdout, stderr))
	c := &cobra.Command{
		Use:   "from",
		Short: "Rasterize a geometric region into a spatial MOC.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return from.Run(context.Background())
		},
	}
	flags := c.Flags()
	flags.StringVar(&from.Shape, "shape", "cone", "Region shape: cone, ring, ellipse, box, zone, polygon, pos.")
	flags.Uint8Var(&from.Depth, "depth", 10, "MOC depth.")
	flags.Uint8Var(&from.DeltaDepth, "delta-depth", 2, "Extra rasterization depth for cone borders.")
	flags.StringVarP(&from.Output, "output", "o", "-", "Output file, - for stdout.")
	flags.StringVar(&from.To, "to", ctl.FormatFITS, "Output format.")
	flags.Float64Var(&from.Lon, "lon", 0, "Center longitude, degrees.")
	flags.Float64Var(&from.Lat, "lat", 0, "Center latitude, degrees.")
	flags.Float64Var(&from.Radius, "radius", 1, "Radius (external radius for ring), degrees.")
	flags.Float64Var(&from.RadiusInt, "radius-int", 0, "Internal ring radius, degrees.")
	flags.Float64Var(&from.A, "a", 1, "Semi-major axis / semi-width, degrees.")
	flags.Float64Var(&from.B, "b", 0.5, "Semi-minor axis / semi-height, degrees.")
	flags.Float64Var(&from.PA, "pa", 0, "Position angle, degrees.")
	flags.Float64Var(&from.LonMin, "lon-min", 0, "Zone minimum longitude, degrees.")
	flags.Float64Var(&from.LatMin, "lat-min", 0, "Zone minimum latitude, degrees.")
	flags.Float64Var(&from.LonMax, "lon-max", 0, "Zone maximum longitude, degrees.")
	flags.Float64Var(&from.LatMax, "lat-max", 0, "Zone maximum latitude, degrees.")
	flags.StringVar(&from.Vertices, "vertices", "", "Polygon vertices: lon1,lat1,lon2,lat2,...")
	flags.BoolVar(&from.Complement, "complement", false, "Cover the polygon complement instead.")
	return c
}

func newSetCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	c := &cobra.Command{
		Use:   "set",
		Short: "Manage persistent MOC-set files.",
	}

	mk := ctl.NewSetMkCommand(ctl.NewCmdIO(stdin, stdout, stderr))
	mkCmd := &cobra.Command{
		Use:   "mk",
		Short: "Create an empty MOC-set file.",
		RunE:  func(cmd *cobra.Command, args []string) error { return mk.Run(context.Background()) },
	}
	mkCmd.Flags().StringVarP(&mk.Path, "file", "f", "", "MOC-set file path.")
	mkCmd.Flags().Int64Var(&mk.N128, "n128", 1, "Slot capacity in units of 128.")
	c.AddCommand(mkCmd)

	list := ctl.NewSetListCommand(ctl.NewCmdIO(stdin, stdout, stderr))
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the entries of a MOC-set file.",
		RunE:  func(cmd *cobra.Command, args []string) error { return list.Run(context.Background()) },
	}
	listCmd.Flags().StringVarP(&list.Path, "file", "f", "", "MOC-set file path.")
	c.AddCommand(listCmd)

	app := ctl.NewSetAppendCommand(ctl.NewCmdIO(stdin, stdout, stderr))
	appCmd := &cobra.Command{
		Use:   "append",
		Short: "Append a MOC to a MOC-set file.",
		RunE:  func(cmd *cobra.Command, args []string) error { return app.Run(context.Background()) },
	}
	appCmd.Flags().StringVarP(&app.Path, "file", "f", "", "MOC-set file path.")
	appCmd.Flags().Uint64Var(&app.ID, "id", 0, "Identifier to store the MOC under.")
	appCmd.Flags().StringVarP(&app.Input, "input", "i", "-", "Input MOC file.")
	appCmd.Flags().StringVar(&app.From, "from", ctl.FormatFITS, "Input format.")
	c.AddCommand(appCmd)

	chg := ctl.NewSetChgStatusCommand(ctl.NewCmdIO(stdin, stdout, stderr))
	var chgIDs []int64
	chgCmd := &cobra.Command{
		Use:   "chgstatus",
		Short: "Change the status of MOC-set entries.",
		RunE: func(cmd *cobra.Command, args []string) error {
			chg.IDs = chg.IDs[:0]
			for _, id := range chgIDs {
				chg.IDs = append(chg.IDs, uint64(id))
			}
			return chg.Run(context.Background())
		},
	}
	chgCmd.Flags().StringVarP(&chg.Path, "file", "f", "", "MOC-set file path.")
	chgCmd.Flags().StringVar(&chg.Status, "status", "", "New status: valid, deprecated or removed.")
	chgCmd.Flags().Int64SliceVar(&chgIDs, "ids", nil, "Identifiers to update.")
	c.AddCommand(chgCmd)

	purge := ctl.NewSetPurgeCommand(ctl.NewCmdIO(stdin, stdout, stderr))
	purgeCmd := &cobra.Command{
		Use:   "purge",
		Short: "Rewrite a MOC-set file without its removed entries.",
		RunE:  func(cmd *cobra.Command, args []string) error { return purge.Run(context.Background()) },
	}
	purgeCmd.Flags().StringVarP(&purge.Path, "file", "f", "", "MOC-set file path.")
	purgeCmd.Flags().Int64Var(&purge.N128, "n128", 0, "New capacity in units of 128, 0 keeps the current one.")
	c.AddCommand(purgeCmd)

	ext := ctl.NewSetExtractCommand(ctl.NewCmdIO(stdin, stdout, stderr))
	extCmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract one MOC from a MOC-set file.",
		RunE:  func(cmd *cobra.Command, args []string) error { return ext.Run(context.Background()) },
	}
	extCmd.Flags().StringVarP(&ext.Path, "file", "f", "", "MOC-set file path.")
	extCmd.Flags().Uint64Var(&ext.ID, "id", 0, "Identifier to extract.")
	extCmd.Flags().StringVarP(&ext.Output, "output", "o", "-", "Output file.")
	extCmd.Flags().StringVar(&ext.To, "to", ctl.FormatFITS, "Output format.")
	c.AddCommand(extCmd)

	un := ctl.NewSetUnionCommand(ctl.NewCmdIO(stdin, stdout, stderr))
	unCmd := &cobra.Command{
		Use:   "union",
		Short: "Write the union of the valid MOCs of a set.",
		RunE:  func(cmd *cobra.Command, args []string) error { return un.Run(context.Background()) },
	}
	unCmd.Flags().StringVarP(&un.Path, "file", "f", "", "MOC-set file path.")
	unCmd.Flags().StringVarP(&un.Output, "output", "o", "-", "Output file.")
	unCmd.Flags().StringVar(&un.To, "to", ctl.FormatFITS, "Output format.")
	unCmd.Flags().BoolVar(&un.Deprecated, "deprecated", false, "Include deprecated entries.")
	c.AddCommand(unCmd)

	q := ctl.NewSetQueryCommand(ctl.NewCmdIO(stdin, stdout, stderr))
	qCmd := &cobra.Command{
		Use:   "query",
		Short: "Scan a MOC-set for entries matching a position or a MOC.",
		RunE:  func(cmd *cobra.Command, args []string) error { return q.Run(context.Background()) },
	}
	qCmd.Flags().StringVarP(&q.Path, "file", "f", "", "MOC-set file path.")
	qCmd.Flags().Float64Var(&q.Lon, "lon", q.Lon, "Query longitude, degrees.")
	qCmd.Flags().Float64Var(&q.Lat, "lat", q.Lat, "Query latitude, degrees.")
	qCmd.Flags().StringVarP(&q.Input, "input", "i", "", "Query MOC file.")
	qCmd.Flags().StringVar(&q.From, "from", ctl.FormatFITS, "Query MOC format.")
	qCmd.Flags().StringVar(&q.Mode, "mode", "intersects", "Match mode: intersects, contains, contained.")
	qCmd.Flags().BoolVar(&q.Deprecated, "deprecated", false, "Include deprecated entries.")
	qCmd.Flags().IntVar(&q.Workers, "workers", 1, "Parallel slot scans (useful on SSDs).")
	c.AddCommand(qCmd)

	return c
}
