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

package jobstore

import "github.com/refdata-org/ingestcore/internal/errorsx"

// errNotFoundSentinel is a local alias kept so each repository file reads
// top-to-bottom without an extra import line; it is exactly errorsx.ErrNotFound.
var errNotFoundSentinel = errorsx.ErrNotFound
