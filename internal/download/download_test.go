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

package download

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseExpectedDigestFindsMatchingFilename(t *testing.T) {
	data := []byte(
		"aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa  uniprot_sprot.dat\n" +
			"bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb *uniprot_trembl.dat\n",
	)

	digest, ok := parseExpectedDigest(data, "uniprot_trembl.dat")
	assert.True(t, ok)
	assert.Equal(t, "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb", digest)
}

func TestParseExpectedDigestMissesUnlistedFilename(t *testing.T) {
	data := []byte("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa  uniprot_sprot.dat\n")

	_, ok := parseExpectedDigest(data, "other.dat")
	assert.False(t, ok)
}

func TestParseExpectedDigestSkipsMalformedLines(t *testing.T) {
	data := []byte("not a checksum line\n\naaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa  release.dat\n")

	digest, ok := parseExpectedDigest(data, "release.dat")
	assert.True(t, ok)
	assert.Equal(t, "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", digest)
}

func TestChecksumIsDeterministic(t *testing.T) {
	assert.Equal(t, checksum([]byte("hello")), checksum([]byte("hello")))
	assert.NotEqual(t, checksum([]byte("hello")), checksum([]byte("world")))
}
