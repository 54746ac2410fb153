// Copyright 2024 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package plugin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/GoogleCloudPlatform/update-graph-engine/pkg/graph"
)

func TestConditionalEdgeOverlayAttachesMatchingRisk(t *testing.T) {
	g := graph.New()
	fromID := addRelease(t, g, "4.1.0", graph.NewMetadata())
	toID := addRelease(t, g, "4.2.0", graph.NewMetadata())
	require.NoError(t, g.AddEdge(fromID, toID))

	overlay := ConditionalEdgeOverlay{Rules: []RiskRule{
		{FromPattern: `^4\.1\..*`, ToPattern: `^4\.2\..*`, Risk: graph.Risk{Name: "known-issue"}},
	}}

	out, _, err := overlay.Run(context.Background(), g, graph.NewMetadata())
	require.NoError(t, err)
	risks := out.Risks(fromID, toID)
	require.Len(t, risks, 1)
	require.Equal(t, "known-issue", risks[0].Name)
}

func TestConditionalEdgeOverlaySkipsNonMatchingEdge(t *testing.T) {
	g := graph.New()
	fromID := addRelease(t, g, "4.1.0", graph.NewMetadata())
	toID := addRelease(t, g, "5.0.0", graph.NewMetadata())
	require.NoError(t, g.AddEdge(fromID, toID))

	overlay := ConditionalEdgeOverlay{Rules: []RiskRule{
		{FromPattern: `^4\.1\..*`, ToPattern: `^4\.2\..*`, Risk: graph.Risk{Name: "known-issue"}},
	}}

	out, _, err := overlay.Run(context.Background(), g, graph.NewMetadata())
	require.NoError(t, err)
	require.Empty(t, out.Risks(fromID, toID))
}

func TestConditionalEdgeOverlayInvalidPatternErrors(t *testing.T) {
	g := graph.New()
	overlay := ConditionalEdgeOverlay{Rules: []RiskRule{
		{FromPattern: "(", ToPattern: ".*"},
	}}
	_, _, err := overlay.Run(context.Background(), g, graph.NewMetadata())
	require.Error(t, err)
}
