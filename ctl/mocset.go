// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package ctl

import (
	"context"
	"fmt"
	"math"

	"github.com/molecula/moc"
	"github.com/molecula/moc/hpx"
	"github.com/molecula/moc/mocset"
	"github.com/pkg/errors"
)

// SetMkCommand creates an empty MOC-set file.
type SetMkCommand struct {
	Path string
	N128 int64

	*CmdIO
}

// NewSetMkCommand returns a new instance of SetMkCommand.
func NewSetMkCommand(cio *CmdIO) *SetMkCommand {
	return &SetMkCommand{N128: 1, CmdIO: cio}
}

// Run creates the file.
func (cmd *SetMkCommand) Run(ctx context.Context) error {
	w, err := mocset.Make(cmd.Path, cmd.N128, cmd.Logger())
	if err != nil {
		return err
	}
	return w.Close()
}

// SetListCommand lists the entries of a MOC-set file.
type SetListCommand struct {
	Path string

	*CmdIO
}

// NewSetListCommand returns a new instance of SetListCommand.
func NewSetListCommand(cio *CmdIO) *SetListCommand {
	return &SetListCommand{CmdIO: cio}
}

// Run lists the entries.
func (cmd *SetListCommand) Run(ctx context.Context) error {
	r, err := mocset.Open(cmd.Path)
	if err != nil {
		return err
	}
	defer r.Close()
	fmt.Fprintln(cmd.Stdout, "id,status,depth,n_ranges,byte_size")
	for _, e := range r.List() {
		fmt.Fprintf(cmd.Stdout, "%d,%s,%d,%d,%d\n", e.ID, e.Status, e.Depth, e.NRanges, e.ByteSize)
	}
	return nil
}

// SetAppendCommand appends a MOC to a MOC-set file.
type SetAppendCommand struct {
	Path  string
	ID    uint64
	Input string
	From  string

	*CmdIO
}

// NewSetAppendCommand returns a new instance of SetAppendCommand.
func NewSetAppendCommand(cio *CmdIO) *SetAppendCommand {
	return &SetAppendCommand{From: FormatFITS, CmdIO: cio}
}

// Run appends the MOC.
func (cmd *SetAppendCommand) Run(ctx context.Context) error {
	m, err := ReadMOC(cmd.Input, cmd.From, moc.Hpx, cmd.Logger())
	if err != nil {
		return errors.Wrap(err, "reading input moc")
	}
	w, err := mocset.OpenWriter(cmd.Path, cmd.Logger())
	if err != nil {
		return err
	}
	defer w.Close()
	return w.Append(cmd.ID, m)
}

// SetChgStatusCommand updates the status of MOC-set entries.
type SetChgStatusCommand struct {
	Path   string
	Status string
	IDs    []uint64

	*CmdIO
}

// NewSetChgStatusCommand returns a new instance of SetChgStatusCommand.
func NewSetChgStatusCommand(cio *CmdIO) *SetChgStatusCommand {
	return &SetChgStatusCommand{CmdIO: cio}
}

// Run updates the statuses.
func (cmd *SetChgStatusCommand) Run(ctx context.Context) error {
	status, err := mocset.ParseStatus(cmd.Status)
	if err != nil {
		return err
	}
	w, err := mocset.OpenWriter(cmd.Path, cmd.Logger())
	if err != nil {
		return err
	}
	defer w.Close()
	return w.ChgStatus(status, cmd.IDs...)
}

// SetPurgeCommand rewrites a MOC-set file without its removed entries.
type SetPurgeCommand struct {
	Path string
	N128 int64

	*CmdIO
}

// NewSetPurgeCommand returns a new instance of SetPurgeCommand.
func NewSetPurgeCommand(cio *CmdIO) *SetPurgeCommand {
	return &SetPurgeCommand{CmdIO: cio}
}

// Run purges the file.
func (cmd *SetPurgeCommand) Run(ctx context.Context) error {
	w, err := mocset.OpenWriter(cmd.Path, cmd.Logger())
	if err != nil {
		return err
	}
	defer w.Close()
	return w.Purge(cmd.N128)
}

// SetExtractCommand extracts one MOC from a MOC-set file.
type SetExtractCommand struct {
	Path   string
	ID     uint64
	Output string
	To     string

	*CmdIO
}

// NewSetExtractCommand returns a new instance of SetExtractCommand.
func NewSetExtractCommand(cio *CmdIO) *SetExtractCommand {
	return &SetExtractCommand{To: FormatFITS, CmdIO: cio}
}

// Run extracts the MOC.
func (cmd *SetExtractCommand) Run(ctx context.Context) error {
	r, err := mocset.Open(cmd.Path)
	if err != nil {
		return err
	}
	defer r.Close()
	m, err := r.Extract(cmd.ID)
	if err != nil {
		return err
	}
	return errors.Wrap(WriteMOC(cmd.Output, cmd.To, m), "writing output moc")
}

// SetUnionCommand writes the union of the valid MOCs of a set.
type SetUnionCommand struct {
	Path       string
	Output     string
	To         string
	Deprecated bool

	*CmdIO
}

// NewSetUnionCommand returns a new instance of SetUnionCommand.
func NewSetUnionCommand(cio *CmdIO) *SetUnionCommand {
	return &SetUnionCommand{To: FormatFITS, CmdIO: cio}
}

// Run writes the union.
func (cmd *SetUnionCommand) Run(ctx context.Context) error {
	r, err := mocset.Open(cmd.Path)
	if err != nil {
		return err
	}
	defer r.Close()
	return errors.Wrap(WriteMOC(cmd.Output, cmd.To, r.UnionAll(cmd.Deprecated)), "writing output moc")
}

// SetQueryCommand scans a MOC-set for entries matching a position or an
// input MOC.
type SetQueryCommand struct {
	Path       string
	Lon, Lat   float64 // degrees; used when Input is empty
	Input      string
	From       string
	Mode       string // intersects | contains | contained
	Deprecated bool
	Workers    int

	*CmdIO
}

// NewSetQueryCommand returns a new instance of SetQueryCommand.
func NewSetQueryCommand(cio *CmdIO) *SetQueryCommand {
	return &SetQueryCommand{
		Lon:     math.NaN(),
		Lat:     math.NaN(),
		From:    FormatFITS,
		Mode:    "intersects",
		Workers: 1,
		CmdIO:   cio,
	}
}

// Run executes the query.
func (cmd *SetQueryCommand) Run(ctx context.Context) error {
	r, err := mocset.Open(cmd.Path)
	if err != nil {
		return err
	}
	defer r.Close()

	var pred mocset.Predicate
	if cmd.Input != "" {
		m, err := ReadMOC(cmd.Input, cmd.From, moc.Hpx, cmd.Logger())
		if err != nil {
			return errors.Wrap(err, "reading query moc")
		}
		switch cmd.Mode {
		case "intersects":
			pred = mocset.IntersectsMOC(m)
		case "contains":
			pred = mocset.ContainsMOC(m)
		case "contained":
			pred = mocset.ContainedInMOC(m)
		default:
			return errors.Errorf("bad query mode %q", cmd.Mode)
		}
	} else {
		if math.IsNaN(cmd.Lon) || math.IsNaN(cmd.Lat) {
			return errors.New("query needs either an input moc or a lon/lat position")
		}
		val := hpx.Hash(moc.HpxMaxDepth, deg2rad(cmd.Lon), deg2rad(cmd.Lat))
		pred = mocset.ContainsValue(val)
	}

	ids, err := r.Query(pred, cmd.Deprecated, cmd.Workers)
	if err != nil {
		return err
	}
	for _, id := range ids {
		fmt.Fprintf(cmd.Stdout, "%d\n", id)
	}
	return nil
}
