// Copyright (C) 2026 Driftlock Authors (dev@driftlock.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package change

import (
	"encoding/hex"
	"hash/fnv"
)

// Fingerprint is a 128-bit FNV-1a digest of file content.
//
// # Description
//
// Fingerprints exist for cheap equality checks during conflict detection.
// This is not a security boundary; collision resistance only needs to be
// good enough that two different file contents in one workspace never
// compare equal in practice. Comparing two fingerprints avoids comparing
// full byte buffers on large files.
type Fingerprint [16]byte

// Sum computes the fingerprint of raw content bytes.
func Sum(content []byte) Fingerprint {
	h := fnv.New128a()
	h.Write(content)

	var fp Fingerprint
	h.Sum(fp[:0])
	return fp
}

// SumString computes the fingerprint of string content.
func SumString(content string) Fingerprint {
	return Sum([]byte(content))
}

// String returns the lowercase hex encoding of the fingerprint.
func (f Fingerprint) String() string {
	return hex.EncodeToString(f[:])
}

// Equal reports whether two fingerprints are identical.
func (f Fingerprint) Equal(other Fingerprint) bool {
	return f == other
}
