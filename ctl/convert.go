// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package ctl

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

// ConvertCommand converts a MOC between serialization formats.
type ConvertCommand struct {
	Input  string
	Output string
	From   string
	To     string
	Qty    string

	*CmdIO
}

// NewConvertCommand returns a new instance of ConvertCommand.
func NewConvertCommand(cio *CmdIO) *ConvertCommand {
	return &ConvertCommand{
		From:  FormatFITS,
		To:    FormatASCII,
		Qty:   "space",
		CmdIO: cio,
	}
}

// Run executes the conversion.
func (cmd *ConvertCommand) Run(ctx context.Context) error {
	q, err := ParseQty(cmd.Qty)
	if err != nil {
		return err
	}
	m, err := ReadMOC(cmd.Input, cmd.From, q, cmd.Logger())
	if err != nil {
		return errors.Wrap(err, "reading input moc")
	}
	return errors.Wrap(WriteMOC(cmd.Output, cmd.To, m), "writing output moc")
}

// InfoCommand prints the quantity, depth, range count and coverage of a
// MOC.
type InfoCommand struct {
	Input string
	From  string
	Qty   string

	*CmdIO
}

// NewInfoCommand returns a new instance of InfoCommand.
func NewInfoCommand(cio *CmdIO) *InfoCommand {
	return &InfoCommand{From: FormatFITS, Qty: "space", CmdIO: cio}
}

// Run prints the MOC summary.
func (cmd *InfoCommand) Run(ctx context.Context) error {
	q, err := ParseQty(cmd.Qty)
	if err != nil {
		return err
	}
	m, err := ReadMOC(cmd.Input, cmd.From, q, cmd.Logger())
	if err != nil {
		return errors.Wrap(err, "reading input moc")
	}
	fmt.Fprintf(cmd.Stdout, "qty:      %s\n", m.Qty().Name())
	fmt.Fprintf(cmd.Stdout, "depth:    %d\n", m.DepthMax())
	fmt.Fprintf(cmd.Stdout, "nranges:  %d\n", m.Len())
	fmt.Fprintf(cmd.Stdout, "coverage: %.9f\n", m.CoverageFraction())
	return nil
}
