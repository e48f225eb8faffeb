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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refdata-org/ingestcore/internal/model"
	"github.com/refdata-org/ingestcore/internal/sourceplugin"
)

func proteinPayload(accession, name, taxon, seq string, obsolete bool) model.RecordPayload {
	return model.RecordPayload{
		RecordType: "protein",
		Protein: &model.ProteinPayload{
			PrimaryAccession: accession,
			Name:             name,
			OrganismTaxonID:  taxon,
			Sequence:         seq,
			Obsolete:         obsolete,
		},
	}
}

func TestRenderFasta(t *testing.T) {
	p := &Plugin{}
	out, err := p.Render("fasta", proteinPayload("P12345", "Cool protein", "9606", "MKV", false))
	require.NoError(t, err)
	assert.Equal(t, ">P12345 Cool protein\nMKV\n", string(out))
}

func TestRenderDat(t *testing.T) {
	p := &Plugin{}
	out, err := p.Render("dat", proteinPayload("P12345", "Cool protein", "9606", "MKV", false))
	require.NoError(t, err)
	assert.Contains(t, string(out), "AC   P12345")
	assert.Contains(t, string(out), "SQ   MKV")
}

func TestRenderJSON(t *testing.T) {
	p := &Plugin{}
	out, err := p.Render("json", proteinPayload("P12345", "Cool protein", "9606", "MKV", false))
	require.NoError(t, err)
	assert.Contains(t, string(out), `"primary_accession":"P12345"`)
}

func TestRenderUnsupportedFormat(t *testing.T) {
	p := &Plugin{}
	_, err := p.Render("xml", proteinPayload("P12345", "n", "9606", "MKV", false))
	assert.ErrorIs(t, err, errUnsupportedFormat)
}

func TestRenderNonProteinPayload(t *testing.T) {
	p := &Plugin{}
	_, err := p.Render("fasta", model.RecordPayload{RecordType: "domain"})
	assert.ErrorIs(t, err, errNotProteinPayload)
}

func TestClassifyChange(t *testing.T) {
	p := &Plugin{}

	tests := []struct {
		name         string
		prior, next  model.RecordPayload
		want         sourceplugin.ChangeClass
	}{
		{
			name:  "newly obsoleted record is major",
			prior: proteinPayload("P1", "n", "9606", "MKV", false),
			next:  proteinPayload("P1", "n", "9606", "MKV", true),
			want:  sourceplugin.ChangeMajor,
		},
		{
			name:  "sequence change is major",
			prior: proteinPayload("P1", "n", "9606", "MKV", false),
			next:  proteinPayload("P1", "n", "9606", "MKVL", false),
			want:  sourceplugin.ChangeMajor,
		},
		{
			name:  "name change is minor",
			prior: proteinPayload("P1", "old name", "9606", "MKV", false),
			next:  proteinPayload("P1", "new name", "9606", "MKV", false),
			want:  sourceplugin.ChangeMinor,
		},
		{
			name:  "identical payload is no change",
			prior: proteinPayload("P1", "n", "9606", "MKV", false),
			next:  proteinPayload("P1", "n", "9606", "MKV", false),
			want:  sourceplugin.ChangeNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.ClassifyChange(tt.prior, tt.next))
		})
	}
}
