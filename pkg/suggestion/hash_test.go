package suggestion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blueberry-browser/blueberry-go/pkg/model"
)

func TestHash(t *testing.T) {
	base := &model.Workflow{
		ID:             "wf-1",
		Title:          "Open docs",
		TriggerContext: "reading go.dev",
		Actions: []model.Action{
			{Type: model.ActionNavigate, Target: "https://pkg.go.dev"},
			{Type: model.ActionReorderTabs, Payload: map[string]interface{}{"order": []interface{}{"b", "a"}, "anchor": "x"}},
		},
	}

	h1, err := Hash(base)
	require.NoError(t, err)
	assert.Len(t, h1, 64)

	renamed := *base
	renamed.ID = "wf-2"
	renamed.Title = "Something else"
	renamed.Description = "different words"
	h2, err := Hash(&renamed)
	require.NoError(t, err)
	assert.Equal(t, h1, h2, "title, description and id do not affect the hash")

	retriggered := *base
	retriggered.TriggerContext = "another reason"
	h3, err := Hash(&retriggered)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)

	reordered := *base
	reordered.Actions = []model.Action{base.Actions[1], base.Actions[0]}
	h4, err := Hash(&reordered)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h4, "action order matters")
}

func TestHash_NilAndEmptyActionsMatch(t *testing.T) {
	a, err := Hash(&model.Workflow{TriggerContext: "x"})
	require.NoError(t, err)
	b, err := Hash(&model.Workflow{TriggerContext: "x", Actions: []model.Action{}})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
