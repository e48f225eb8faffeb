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

package model

import "encoding/json"

// RecordPayload is the tagged-variant representation of a Staged Record's
// schema-less payload: one variant per supported record type, plus an
// opaque passthrough so record types the coordination layer doesn't know
// about still round-trip.
type RecordPayload struct {
	RecordType string `json:"record_type"`

	Protein          *ProteinPayload          `json:"protein,omitempty"`
	Domain           *DomainAnnotationPayload `json:"domain,omitempty"`
	Taxon            *TaxonPayload            `json:"taxon,omitempty"`
	Opaque           json.RawMessage          `json:"opaque,omitempty"`
}

// ProteinPayload is the variant for record_type="protein".
type ProteinPayload struct {
	PrimaryAccession string            `json:"primary_accession"`
	Name             string            `json:"name"`
	OrganismTaxonID  string            `json:"organism_taxon_id"`
	Sequence         string            `json:"sequence"`
	Obsolete         bool              `json:"obsolete"`
	Attributes       map[string]string `json:"attributes,omitempty"`
}

// DomainAnnotationPayload is the variant for record_type="domain", the
// secondary-source shape used by the Cross-Reference Resolver:
// it names the foreign proteins this domain annotation references.
type DomainAnnotationPayload struct {
	DomainID       string   `json:"domain_id"`
	Name           string   `json:"name"`
	ForeignProtein []string `json:"foreign_protein_accessions"`
}

// TaxonPayload is the variant for record_type="taxon".
type TaxonPayload struct {
	TaxonID      string `json:"taxon_id"`
	ScientificName string `json:"scientific_name"`
	ParentTaxonID  string `json:"parent_taxon_id,omitempty"`
}

// ForeignIdentifiers returns the foreign identifiers a Staged Record's
// payload references, if any, keyed by foreign type. Used by the Store
// Stage to build the resolver's lookup batch.
func (p RecordPayload) ForeignIdentifiers() (foreignType string, ids []string) {
	if p.Domain != nil {
		return "protein", p.Domain.ForeignProtein
	}

	return "", nil
}
