// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package ctl

import (
	"context"
	"fmt"

	"github.com/molecula/moc"
	"github.com/pkg/errors"
)

// OpCommand applies a set operation to one or two MOCs.
type OpCommand struct {
	Op     string
	Left   string
	Right  string
	Output string
	From   string
	To     string
	Qty    string
	Depth  uint8 // degrade target

	*CmdIO
}

// NewOpCommand returns a new instance of OpCommand.
func NewOpCommand(cio *CmdIO) *OpCommand {
	return &OpCommand{
		From:  FormatFITS,
		To:    FormatFITS,
		Qty:   "space",
		CmdIO: cio,
	}
}

// Run executes the operation.
func (cmd *OpCommand) Run(ctx context.Context) error {
	q, err := ParseQty(cmd.Qty)
	if err != nil {
		return err
	}
	left, err := ReadMOC(cmd.Left, cmd.From, q, cmd.Logger())
	if err != nil {
		return errors.Wrap(err, "reading left moc")
	}

	binary := func() (moc.RangeMOC, moc.RangeMOC, error) {
		if cmd.Right == "" {
			return moc.RangeMOC{}, moc.RangeMOC{}, errors.Errorf("operation %q needs a right-hand moc", cmd.Op)
		}
		right, err := ReadMOC(cmd.Right, cmd.From, q, cmd.Logger())
		if err != nil {
			return moc.RangeMOC{}, moc.RangeMOC{}, errors.Wrap(err, "reading right moc")
		}
		return left, right, nil
	}

	var out moc.RangeMOC
	switch cmd.Op {
	case "union", "or":
		l, r, err := binary()
		if err != nil {
			return err
		}
		out = l.Union(r)
	case "inter", "and":
		l, r, err := binary()
		if err != nil {
			return err
		}
		out = l.Intersection(r)
	case "minus", "diff":
		l, r, err := binary()
		if err != nil {
			return err
		}
		out = l.Minus(r)
	case "sdiff", "xor":
		l, r, err := binary()
		if err != nil {
			return err
		}
		out = l.SymmetricDifference(r)
	case "compl", "not":
		out = left.Complement()
	case "degrade":
		out = left.Degraded(cmd.Depth)
	case "extend":
		out = left.Extended()
	case "contract":
		out = left.Contracted()
	case "extborder":
		out = left.ExternalBorder()
	case "intborder":
		out = left.InternalBorder()
	case "splitcount":
		fmt.Fprintf(cmd.Stdout, "%d\n", left.SplitCount(false))
		return nil
	default:
		return errors.Errorf("bad operation %q", cmd.Op)
	}
	return errors.Wrap(WriteMOC(cmd.Output, cmd.To, out), "writing output moc")
}
