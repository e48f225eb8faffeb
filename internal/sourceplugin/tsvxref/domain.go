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

// Package tsvxref is an illustrative source plugin for a secondary
// domain-annotation source: a TSV file mapping a domain identifier to the
// protein accessions it appears in (the shape of a Pfam-to-UniProt mapping
// table). Each Staged Record carries foreign protein identifiers the
// Cross-Reference Resolver resolves. Like sourceplugin/fixedwidth,
// it exists to exercise the pipeline, not as a production parser.
package tsvxref

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/refdata-org/ingestcore/internal/model"
	"github.com/refdata-org/ingestcore/internal/sourceplugin"
	"github.com/refdata-org/ingestcore/internal/versiondiscovery"
)

var (
	errUpstreamTransportNotConfigured = errors.New("tsvxref: upstream transport not configured")
	errMalformedRow                   = errors.New("tsvxref: expected 3 tab-separated columns")
	errUnsupportedFormat              = errors.New("tsvxref: unsupported render format")
	errNotDomainPayload               = errors.New("tsvxref: payload is not a domain annotation record")
)

// Plugin implements sourceplugin.Plugin for the TSV domain-annotation format.
type Plugin struct {
	OrgSlug string
}

var _ sourceplugin.Plugin = (*Plugin)(nil)

func (p *Plugin) Name() string                        { return "pfam-mapping" }
func (p *Plugin) SourceType() model.SourceType        { return model.SourceDomain }
func (p *Plugin) BasePath() string                    { return "https://upstream.example/pfam" }
func (p *Plugin) Ordering() versiondiscovery.Ordering { return versiondiscovery.OrderingLexicographic }

func (p *Plugin) Artifacts(externalVersion string) []sourceplugin.ArtifactDescriptor {
	return []sourceplugin.ArtifactDescriptor{
		{RelativePath: fmt.Sprintf("release-%s/pfamA_mapping.tsv", externalVersion), FileType: "records"},
	}
}

func (p *Plugin) CurrentVersion(ctx context.Context) (string, error) {
	return "", fmt.Errorf("tsvxref: CurrentVersion: %w", errUpstreamTransportNotConfigured)
}

func (p *Plugin) ListVersions(ctx context.Context) ([]string, error) {
	return nil, fmt.Errorf("tsvxref: ListVersions: %w", errUpstreamTransportNotConfigured)
}

// ParseRange decodes TSV rows [start, end) into domain annotation payloads.
// Each row is "domain_id\tname\tcomma-separated-protein-accessions".
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

		rec, err := parseRow(line)
		if err != nil {
			continue
		}
		records = append(records, rec)
	}

	return records, scanner.Err()
}

// RecordCount counts non-empty rows.
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

func parseRow(line string) (model.RecordPayload, error) {
	cols := strings.Split(line, "\t")
	if len(cols) != 3 {
		return model.RecordPayload{}, errMalformedRow
	}

	domainID := strings.TrimSpace(cols[0])
	name := strings.TrimSpace(cols[1])
	proteins := strings.Split(cols[2], ",")
	for i := range proteins {
		proteins[i] = strings.TrimSpace(proteins[i])
	}

	return model.RecordPayload{
		RecordType: "domain",
		Domain: &model.DomainAnnotationPayload{
			DomainID:       domainID,
			Name:           name,
			ForeignProtein: proteins,
		},
	}, nil
}

// Formats lists the derived artifact formats generated per domain record.
func (p *Plugin) Formats() []string { return []string{"json"} }

// Render produces the bytes for one format variant of a domain record.
func (p *Plugin) Render(format string, payload model.RecordPayload) ([]byte, error) {
	if payload.Domain == nil {
		return nil, errNotDomainPayload
	}
	if format != "json" {
		return nil, fmt.Errorf("%w: %q", errUnsupportedFormat, format)
	}

	return json.Marshal(payload.Domain)
}

// ClassifyChange implements the internal versioning rule for domain
// records: dropping more than half the prior dependent proteins is
// breaking; any other change to the member set is additive.
func (p *Plugin) ClassifyChange(prior, next model.RecordPayload) sourceplugin.ChangeClass {
	if prior.Domain == nil || next.Domain == nil {
		return sourceplugin.ChangeMinor
	}

	priorSet := toSet(prior.Domain.ForeignProtein)
	nextSet := toSet(next.Domain.ForeignProtein)

	if len(priorSet) == 0 {
		if len(nextSet) == len(priorSet) {
			return sourceplugin.ChangeNone
		}

		return sourceplugin.ChangeMinor
	}

	var retained int
	for id := range priorSet {
		if nextSet[id] {
			retained++
		}
	}
	lossRatio := 1 - float64(retained)/float64(len(priorSet))

	switch {
	case lossRatio > 0.5:
		return sourceplugin.ChangeMajor
	case lossRatio > 0 || len(nextSet) > len(priorSet):
		return sourceplugin.ChangeMinor
	default:
		return sourceplugin.ChangeNone
	}
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}

	return set
}
