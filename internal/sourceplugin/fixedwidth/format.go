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
	"encoding/json"
	"errors"
	"fmt"
	"maps"

	"github.com/refdata-org/ingestcore/internal/model"
	"github.com/refdata-org/ingestcore/internal/sourceplugin"
)

var (
	errUpstreamTransportNotConfigured = errors.New("fixedwidth: upstream transport not configured")
	errLineTooShort                   = errors.New("fixedwidth: record line shorter than fixed columns")
	errMissingAccession               = errors.New("fixedwidth: missing accession column")
	errUnsupportedFormat              = errors.New("fixedwidth: unsupported render format")
	errNotProteinPayload              = errors.New("fixedwidth: payload is not a protein record")
)

// Formats lists the derived artifact formats generated per protein record.
func (p *Plugin) Formats() []string { return []string{"dat", "fasta", "json"} }

// Render produces the bytes for one format variant of a protein record.
func (p *Plugin) Render(format string, payload model.RecordPayload) ([]byte, error) {
	if payload.Protein == nil {
		return nil, errNotProteinPayload
	}
	pr := payload.Protein

	switch format {
	case "fasta":
		return []byte(fmt.Sprintf(">%s %s\n%s\n", pr.PrimaryAccession, pr.Name, pr.Sequence)), nil
	case "dat":
		return []byte(fmt.Sprintf("AC   %s\nDE   %s\nOX   %s\nSQ   %s\n//\n", pr.PrimaryAccession, pr.Name, pr.OrganismTaxonID, pr.Sequence)), nil
	case "json":
		return json.Marshal(pr)
	default:
		return nil, fmt.Errorf("%w: %q", errUnsupportedFormat, format)
	}
}

// ClassifyChange implements the internal versioning rule for protein
// records: obsoleting a previously live record or changing its sequence is
// a breaking change; a difference in name, taxon, obsolete flag or
// attributes is additive.
func (p *Plugin) ClassifyChange(prior, next model.RecordPayload) sourceplugin.ChangeClass {
	if prior.Protein == nil || next.Protein == nil {
		return sourceplugin.ChangeMinor
	}

	if next.Protein.Obsolete && !prior.Protein.Obsolete {
		return sourceplugin.ChangeMajor
	}
	if next.Protein.Sequence != prior.Protein.Sequence {
		return sourceplugin.ChangeMajor
	}
	if next.Protein.Name != prior.Protein.Name || next.Protein.OrganismTaxonID != prior.Protein.OrganismTaxonID ||
		next.Protein.Obsolete != prior.Protein.Obsolete || !maps.Equal(next.Protein.Attributes, prior.Protein.Attributes) {
		return sourceplugin.ChangeMinor
	}

	return sourceplugin.ChangeNone
}
