// Copyright 2026 The ingestcore Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package objectstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransientKey(t *testing.T) {
	got := TransientKey("uniprot", "2024_03", "records.dat.gz")
	assert.Equal(t, "ingest/uniprot/2024_03/records.dat.gz", got)
}

func TestCanonicalKey(t *testing.T) {
	got := CanonicalKey("uniprot", "p12345", 2, 1, "fasta")
	assert.Equal(t, "uniprot/p12345/2.1/p12345.fasta", got)
}

func TestChecksumIsStableAndContentSensitive(t *testing.T) {
	a := Checksum([]byte("hello"))
	b := Checksum([]byte("hello"))
	c := Checksum([]byte("world"))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64) // hex-encoded sha256
}
