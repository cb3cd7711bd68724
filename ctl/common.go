// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package ctl implements the moc command-line subcommands: format
// conversion, set algebra, region builders and the moc-set store tools.
// Each subcommand is a struct whose exported fields are bound to flags by
// the cmd package.
package ctl

import (
	"io"
	"os"
	"strings"

	"github.com/molecula/moc"
	"github.com/molecula/moc/codec"
	"github.com/molecula/moc/logger"
	"github.com/pkg/errors"
)

// CmdIO holds standard unix inputs and outputs.
type CmdIO struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	logger logger.Logger
}

// NewCmdIO returns a new instance of CmdIO with inputs and outputs set to
// the arguments.
func NewCmdIO(stdin io.Reader, stdout, stderr io.Writer) *CmdIO {
	return &CmdIO{
		Stdin:  stdin,
		Stdout: stdout,
		Stderr: stderr,
		logger: logger.NewStandardLogger(stderr),
	}
}

func (c *CmdIO) Logger() logger.Logger {
	return c.logger
}

// ParseQty resolves a quantity flag value.
func ParseQty(s string) (moc.Qty, error) {
	switch strings.ToLower(s) {
	case "space", "hpx", "s":
		return moc.Hpx, nil
	case "time", "t":
		return moc.Time, nil
	case "freq", "frequency", "f":
		return moc.Freq, nil
	default:
		return 0, errors.Errorf("bad quantity %q: expected space, time or freq", s)
	}
}

// formats understood by the convert/op commands.
const (
	FormatFITS   = "fits"
	FormatUniq   = "uniq"
	FormatASCII  = "ascii"
	FormatJSON   = "json"
	FormatStream = "stream"
)

// ReadMOC loads a 1-D MOC from a file ("-" reads stdin) in the given
// format.
func ReadMOC(path, format string, q moc.Qty, log logger.Logger) (moc.RangeMOC, error) {
	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return moc.RangeMOC{}, errors.Wrap(err, "opening input")
		}
		defer f.Close()
		r = f
	}
	switch format {
	case FormatFITS, FormatUniq:
		return codec.ReadFITSMOC(r, log)
	case FormatASCII:
		data, err := io.ReadAll(r)
		if err != nil {
			return moc.RangeMOC{}, errors.Wrap(err, "reading input")
		}
		return codec.ParseASCII(q, string(data))
	case FormatJSON:
		data, err := io.ReadAll(r)
		if err != nil {
			return moc.RangeMOC{}, errors.Wrap(err, "reading input")
		}
		return codec.ParseJSON(q, data)
	case FormatStream:
		return codec.ParseStream(r)
	default:
		return moc.RangeMOC{}, errors.Errorf("bad format %q", format)
	}
}

// WriteMOC writes a 1-D MOC to a file ("-" writes stdout) in the given
// format.
func WriteMOC(path, format string, m moc.RangeMOC) error {
	var w io.Writer
	if path == "-" || path == "" {
		w = os.Stdout
	} else {
		f, err := os.Create(path)
		if err != nil {
			return errors.Wrap(err, "creating output")
		}
		defer f.Close()
		w = f
	}
	switch format {
	case FormatFITS:
		return codec.WriteFITS(w, m)
	case FormatUniq:
		return codec.WriteFITSUniq(w, m)
	case FormatASCII:
		if err := codec.WriteASCII(w, m, 80); err != nil {
			return err
		}
		_, err := io.WriteString(w, "\n")
		return errors.Wrap(err, "writing output")
	case FormatJSON:
		if err := codec.WriteJSON(w, m); err != nil {
			return err
		}
		_, err := io.WriteString(w, "\n")
		return errors.Wrap(err, "writing output")
	case FormatStream:
		return codec.WriteStream(w, m)
	default:
		return errors.Errorf("bad format %q", format)
	}
}
