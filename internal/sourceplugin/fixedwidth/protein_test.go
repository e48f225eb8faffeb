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

package fixedwidth

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedWidthLine(accession, name, taxon, seq string) string {
	pad := func(s string, width int) string {
		if len(s) >= width {
			return s[:width]
		}

		return s + strings.Repeat(" ", width-len(s))
	}

	return pad(accession, accessionWidth) + pad(name, nameWidth) + pad(taxon, taxonIDWidth) + seq
}

func TestParseRangeDecodesRecords(t *testing.T) {
	p := &Plugin{}
	raw := fixedWidthLine("P12345", "Cool protein", "9606", "MKV") + "\n" +
		fixedWidthLine("P67890", "Other protein", "10090", "MLL") + "\n"

	records, err := p.ParseRange(context.Background(), []byte(raw), 0, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "P12345", records[0].Protein.PrimaryAccession)
	assert.Equal(t, "Cool protein", records[0].Protein.Name)
	assert.Equal(t, "9606", records[0].Protein.OrganismTaxonID)
	assert.Equal(t, "MKV", records[0].Protein.Sequence)
	assert.Equal(t, "P67890", records[1].Protein.PrimaryAccession)
}

func TestParseRangeRespectsBounds(t *testing.T) {
	p := &Plugin{}
	raw := fixedWidthLine("P1", "n1", "1", "AAA") + "\n" +
		fixedWidthLine("P2", "n2", "2", "BBB") + "\n" +
		fixedWidthLine("P3", "n3", "3", "CCC") + "\n"

	records, err := p.ParseRange(context.Background(), []byte(raw), 1, 2)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "P2", records[0].Protein.PrimaryAccession)
}

func TestParseRangeSkipsMalformedLines(t *testing.T) {
	p := &Plugin{}
	raw := "too short\n" + fixedWidthLine("P1", "n1", "1", "AAA") + "\n"

	records, err := p.ParseRange(context.Background(), []byte(raw), 0, 2)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "P1", records[0].Protein.PrimaryAccession)
}

func TestRecordCountSkipsBlankLines(t *testing.T) {
	p := &Plugin{}
	raw := fixedWidthLine("P1", "n1", "1", "AAA") + "\n\n" + fixedWidthLine("P2", "n2", "2", "BBB") + "\n"

	count, err := p.RecordCount(context.Background(), []byte(raw))
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestArtifactsNamesReleaseFiles(t *testing.T) {
	p := &Plugin{OrgSlug: "uniprot"}
	artifacts := p.Artifacts("2024_03")
	require.Len(t, artifacts, 1)
	assert.Equal(t, "release-2024_03/uniprot_sprot.dat", artifacts[0].RelativePath)
	assert.Equal(t, "records", artifacts[0].FileType)
}
