// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package codec serializes MOCs: FITS (RANGE v2.0 and legacy UNIQ v1.0),
// ASCII, JSON, the newline-delimited stream format, and the skymap /
// multi-order-map FITS readers. Gzip-compressed inputs are detected and
// decoded transparently.
package codec

import "github.com/pkg/errors"

// ErrMalformedInput is the kind wrapped by every parse failure: missing
// keywords, bad TFORM, tokens outside the ASCII grammar, and the like.
var ErrMalformedInput = errors.New("malformed input")
