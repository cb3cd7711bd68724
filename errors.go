// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package moc

import "github.com/pkg/errors"

var (
	// ErrInvalidDepth is returned when a depth lies outside [0, MaxDepth]
	// for the quantity at hand.
	ErrInvalidDepth = errors.New("depth out of bounds")

	// ErrIndexOutOfBounds is returned when a cell index is too large for
	// its depth, or a range endpoint exceeds the quantity upper bound.
	ErrIndexOutOfBounds = errors.New("index out of bounds")

	// ErrUnalignedRange is returned by strict constructors when a range
	// endpoint is not a multiple of the cell width at the declared depth.
	ErrUnalignedRange = errors.New("range not aligned to declared depth")

	// ErrInconsistentMap is returned when the uniq cells of a multi-order
	// map overlap each other.
	ErrInconsistentMap = errors.New("overlapping uniq cells in multi-order map")

	// ErrUnsupported is returned for inputs outside the accepted subset
	// (e.g. STC-S frames other than ICRS).
	ErrUnsupported = errors.New("unsupported input")
)
