// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package codec

import (
	"bufio"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

// maybeGunzip sniffs the gzip magic bytes (1f 8b) and, when present, wraps
// the reader in a transparent gzip decoder.
func maybeGunzip(r io.Reader) (io.Reader, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(2)
	if err != nil {
		// too short to be compressed, let the caller fail on content
		return br, nil
	}
	if magic[0] != 0x1f || magic[1] != 0x8b {
		return br, nil
	}
	zr, err := gzip.NewReader(br)
	if err != nil {
		return nil, errors.Wrap(err, "opening gzip stream")
	}
	return zr, nil
}
