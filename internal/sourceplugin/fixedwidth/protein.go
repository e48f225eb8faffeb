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

// Package fixedwidth is an illustrative source plugin for a primary
// protein-record source whose records are one line per accession in a
// fixed-width flat file (the shape of UniProt's historical DAT-line
// summaries). It exists to exercise internal/download, internal/parse, and
// internal/store end to end; it is not a production parser for a specific
// upstream.
package fixedwidth

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/refdata-org/ingestcore/internal/model"
	"github.com/refdata-org/ingestcore/internal/sourceplugin"
	"github.com/refdata-org/ingestcore/internal/versiondiscovery"
)

// record field widths, in columns: accession(10) name(30) taxonID(8) sequence(rest)
const (
	accessionWidth = 10
	nameWidth      = 30
	taxonIDWidth   = 8
)

// Plugin implements sourceplugin.Plugin for the fixed-width protein format.
type Plugin struct {
	OrgSlug string
}

var _ sourceplugin.Plugin = (*Plugin)(nil)

func (p *Plugin) Name() string                     { return "uniprot-flatfile" }
func (p *Plugin) SourceType() model.SourceType      { return model.SourceProtein }
func (p *Plugin) BasePath() string                  { return "https://upstream.example/uniprot" }
func (p *Plugin) Ordering() versiondiscovery.Ordering { return versiondiscovery.OrderingLexicographic }

func (p *Plugin) Artifacts(externalVersion string) []sourceplugin.ArtifactDescriptor {
	return []sourceplugin.ArtifactDescriptor{
		{RelativePath: fmt.Sprintf("release-%s/uniprot_sprot.dat", externalVersion), FileType: "records", ExpectedDigestFrom: fmt.Sprintf("release-%s/CHECKSUMS", externalVersion)},
	}
}

// CurrentVersion fetches the release-notes artifact and extracts a concrete
// label. Left as a documented stub: the HTTP/FTP transport itself is a
// Non-goal; a real deployment supplies a sourceplugin.Plugin
// backed by an actual fetch.
func (p *Plugin) CurrentVersion(ctx context.Context) (string, error) {
	return "", fmt.Errorf("fixedwidth: CurrentVersion: %w", errUpstreamTransportNotConfigured)
}

// ListVersions is likewise a documented stub for the same reason.
func (p *Plugin) ListVersions(ctx context.Context) ([]string, error) {
	return nil, fmt.Errorf("fixedwidth: ListVersions: %w", errUpstreamTransportNotConfigured)
}

// ParseRange decodes lines [start, end) of the flat file into protein
// payloads.
func (p *Plugin) ParseRange(ctx context.Context, raw []byte, start, end int64) ([]model.RecordPayload, error) {
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	var records []model.RecordPayload
	var lineNo int64
	for scanner.Scan() {
		line := scanner.Text()
		if lineNo < start {
			lineNo++
			continue
		}
		if lineNo >= end {
			break
		}
		lineNo++

		if strings.TrimSpace(line) == "" {
			continue
		}

		rec, err := parseLine(line)
		if err != nil {
			// parser-level errors on individual records do not fail the
			// unit; the caller counts these.
			continue
		}
		records = append(records, rec)
	}

	return records, scanner.Err()
}

// RecordCount counts non-empty lines, used by the Coordinator to size parse
// Work Units.
func (p *Plugin) RecordCount(ctx context.Context, raw []byte) (int64, error) {
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	var count int64
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) != "" {
			count++
		}
	}

	return count, scanner.Err()
}

func parseLine(line string) (model.RecordPayload, error) {
	if len(line) < accessionWidth+nameWidth+taxonIDWidth {
		return model.RecordPayload{}, errLineTooShort
	}

	accession := strings.TrimSpace(line[0:accessionWidth])
	name := strings.TrimSpace(line[accessionWidth : accessionWidth+nameWidth])
	taxonRaw := strings.TrimSpace(line[accessionWidth+nameWidth : accessionWidth+nameWidth+taxonIDWidth])
	sequence := strings.TrimSpace(line[accessionWidth+nameWidth+taxonIDWidth:])

	if _, err := strconv.Atoi(taxonRaw); err != nil {
		return model.RecordPayload{}, fmt.Errorf("parse taxon id %q: %w", taxonRaw, err)
	}
	if accession == "" {
		return model.RecordPayload{}, errMissingAccession
	}

	return model.RecordPayload{
		RecordType: "protein",
		Protein: &model.ProteinPayload{
			PrimaryAccession: accession,
			Name:             name,
			OrganismTaxonID:  taxonRaw,
			Sequence:         sequence,
		},
	}, nil
}
