package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/voxflow/voxflow/internal/logging"
	"github.com/voxflow/voxflow/pkg/domain"
)

func TestValidateFlowClean(t *testing.T) {
	doc := domain.FlowDocument{
		Nodes: []map[string]any{
			{"id": "start", "type": "playback", "file": "hi", "o_connection": "ask"},
			{
				"id": "ask", "type": "get_data", "variable": "opt", "validation": "{{ opt }}",
				"cases": []map[string]any{
					{"id": "1", "o_connection": "bye"},
					{"id": "default", "o_connection": "start"},
				},
			},
			{"id": "bye", "type": "hangup"},
		},
	}
	flow := domain.DecodeFlow("main", doc, logging.NewNop())
	assert.Empty(t, ValidateFlow(flow))
}

func TestValidateFlowReportsIssues(t *testing.T) {
	doc := domain.FlowDocument{
		Nodes: []map[string]any{
			{"id": "start", "type": "no_op", "o_connection": "ghost"},
			{"id": "island", "type": "no_op"},
		},
	}
	flow := domain.DecodeFlow("main", doc, logging.NewNop())

	issues := ValidateFlow(flow)
	assert.Len(t, issues, 2)
	assert.Contains(t, issues[0], "ghost")
	assert.Contains(t, issues[1], "island")
}

func TestValidateFlowMissingStart(t *testing.T) {
	flow := domain.DecodeFlow("main", domain.FlowDocument{
		Nodes: []map[string]any{{"id": "menu", "type": "no_op"}},
	}, logging.NewNop())

	issues := ValidateFlow(flow)
	assert.NotEmpty(t, issues)
	assert.Contains(t, issues[0], `"start"`)
}
