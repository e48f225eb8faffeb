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

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestFailuresTotalIncrementsByKind(t *testing.T) {
	FailuresTotal.Reset()
	FailuresTotal.WithLabelValues("transient").Inc()
	FailuresTotal.WithLabelValues("transient").Inc()
	FailuresTotal.WithLabelValues("permanent").Inc()

	assert.Equal(t, float64(2), testutil.ToFloat64(FailuresTotal.WithLabelValues("transient")))
	assert.Equal(t, float64(1), testutil.ToFloat64(FailuresTotal.WithLabelValues("permanent")))
}

func TestJobsByStatusGaugeSet(t *testing.T) {
	JobsByStatus.Reset()
	JobsByStatus.WithLabelValues("storing").Set(3)

	assert.Equal(t, float64(3), testutil.ToFloat64(JobsByStatus.WithLabelValues("storing")))
}

func TestHandlerIsNotNil(t *testing.T) {
	assert.NotNil(t, Handler())
}
