// Copyright 2025 Ontolite Authors
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

// Package hierarchy turns a flat concept extraction into a per-document tree.
//
// Clustering is a connected-components pass over the structural relation
// edges: each component of two or more concepts becomes a cluster, large
// clusters are subdivided into refinements along a tighter edge set, and
// unconnected concepts become root-level orphans. Synthetic nodes get
// deterministic content-derived IDs and short labels from the labeling
// collaborator, with the first member's label as the fallback.
//
// Build is deterministic for identical inputs (aside from labels, which
// depend on the collaborator) and always terminates in bounded time: every
// external call runs under a timeout with a local fallback.
package hierarchy
