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

package tsvxref

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refdata-org/ingestcore/internal/model"
	"github.com/refdata-org/ingestcore/internal/sourceplugin"
)

func domainPayload(ids ...string) model.RecordPayload {
	return model.RecordPayload{
		RecordType: "domain",
		Domain: &model.DomainAnnotationPayload{
			DomainID:       "PF00001",
			Name:           "7tm_1",
			ForeignProtein: ids,
		},
	}
}

func TestParseRangeDecodesTSVRows(t *testing.T) {
	p := &Plugin{}
	raw := "PF00001\t7tm_1\tP1,P2,P3\nPF00002\tKinase\tP4\n"

	records, err := p.ParseRange(context.Background(), []byte(raw), 0, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "PF00001", records[0].Domain.DomainID)
	assert.Equal(t, []string{"P1", "P2", "P3"}, records[0].Domain.ForeignProtein)
	assert.Equal(t, "PF00002", records[1].Domain.DomainID)
}

func TestParseRangeSkipsMalformedRows(t *testing.T) {
	p := &Plugin{}
	raw := "not-enough-columns\nPF00001\t7tm_1\tP1,P2\n"

	records, err := p.ParseRange(context.Background(), []byte(raw), 0, 2)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "PF00001", records[0].Domain.DomainID)
}

func TestClassifyChangeDependentLossThresholds(t *testing.T) {
	p := &Plugin{}

	tests := []struct {
		name        string
		prior, next model.RecordPayload
		want        sourceplugin.ChangeClass
	}{
		{
			name:  "no change in membership",
			prior: domainPayload("P1", "P2", "P3", "P4"),
			next:  domainPayload("P1", "P2", "P3", "P4"),
			want:  sourceplugin.ChangeNone,
		},
		{
			name:  "losing one of four dependents is minor",
			prior: domainPayload("P1", "P2", "P3", "P4"),
			next:  domainPayload("P1", "P2", "P3"),
			want:  sourceplugin.ChangeMinor,
		},
		{
			name:  "losing more than half is major",
			prior: domainPayload("P1", "P2", "P3", "P4"),
			next:  domainPayload("P1"),
			want:  sourceplugin.ChangeMajor,
		},
		{
			name:  "gaining a dependent is minor",
			prior: domainPayload("P1", "P2"),
			next:  domainPayload("P1", "P2", "P3"),
			want:  sourceplugin.ChangeMinor,
		},
		{
			name:  "empty prior set with no new dependents is no change",
			prior: domainPayload(),
			next:  domainPayload(),
			want:  sourceplugin.ChangeNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.ClassifyChange(tt.prior, tt.next))
		})
	}
}

func TestRenderRejectsNonDomainPayload(t *testing.T) {
	p := &Plugin{}
	_, err := p.Render("json", model.RecordPayload{RecordType: "protein"})
	assert.ErrorIs(t, err, errNotDomainPayload)
}

func TestRenderUnsupportedFormat(t *testing.T) {
	p := &Plugin{}
	_, err := p.Render("xml", domainPayload("P1"))
	assert.ErrorIs(t, err, errUnsupportedFormat)
}
