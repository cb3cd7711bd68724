// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package ctl

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/molecula/moc"
	"github.com/stretchr/testify/require"
)

func newTestCmdIO() (*CmdIO, *bytes.Buffer) {
	var out bytes.Buffer
	return NewCmdIO(strings.NewReader(""), &out, &bytes.Buffer{}), &out
}

func TestConvertASCIIToJSON(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.txt")
	out := filepath.Join(dir, "out.json")
	require.NoError(t, os.WriteFile(in, []byte("0/1-2 4 6 8 11"), 0o644))

	cio, _ := newTestCmdIO()
	conv := NewConvertCommand(cio)
	conv.Input = in
	conv.Output = out
	conv.From = FormatASCII
	conv.To = FormatJSON
	require.NoError(t, conv.Run(context.Background()))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Equal(t, `{"0":[1,2,4,6,8,11]}`, strings.TrimSpace(string(data)))
}

func TestConvertFITSRoundTrip(t *testing.T) {
	dir := t.TempDir()
	ascii := filepath.Join(dir, "a.txt")
	fits := filepath.Join(dir, "a.fits")
	back := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(ascii, []byte("3/1-5 12 6/"), 0o644))

	cio, _ := newTestCmdIO()
	conv := NewConvertCommand(cio)
	conv.Input = ascii
	conv.Output = fits
	conv.From = FormatASCII
	conv.To = FormatFITS
	require.NoError(t, conv.Run(context.Background()))

	conv2 := NewConvertCommand(cio)
	conv2.Input = fits
	conv2.Output = back
	conv2.From = FormatFITS
	conv2.To = FormatASCII
	require.NoError(t, conv2.Run(context.Background()))

	data, err := os.ReadFile(back)
	require.NoError(t, err)
	require.Equal(t, "3/1-5 12 6/", strings.TrimSpace(string(data)))
}

func TestOpCommandUnion(t *testing.T) {
	dir := t.TempDir()
	left := filepath.Join(dir, "l.txt")
	right := filepath.Join(dir, "r.txt")
	out := filepath.Join(dir, "u.txt")
	require.NoError(t, os.WriteFile(left, []byte("0/0-1"), 0o644))
	require.NoError(t, os.WriteFile(right, []byte("0/1-2"), 0o644))

	cio, _ := newTestCmdIO()
	op := NewOpCommand(cio)
	op.Op = "union"
	op.Left = left
	op.Right = right
	op.Output = out
	op.From = FormatASCII
	op.To = FormatASCII
	require.NoError(t, op.Run(context.Background()))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Equal(t, "0/0-2", strings.TrimSpace(string(data)))
}

func TestInfoCommand(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "m.txt")
	require.NoError(t, os.WriteFile(in, []byte("0/0-5"), 0o644))

	cio, out := newTestCmdIO()
	info := NewInfoCommand(cio)
	info.Input = in
	info.From = FormatASCII
	require.NoError(t, info.Run(context.Background()))
	require.Contains(t, out.String(), "qty:      HPX")
	require.Contains(t, out.String(), "coverage: 0.5")
}

func TestParseQty(t *testing.T) {
	q, err := ParseQty("space")
	require.NoError(t, err)
	require.Equal(t, moc.Hpx, q)
	q, err = ParseQty("T")
	require.NoError(t, err)
	require.Equal(t, moc.Time, q)
	_, err = ParseQty("bogus")
	require.Error(t, err)
}
