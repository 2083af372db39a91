package suggestion

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/blueberry-browser/blueberry-go/pkg/model"
)

// hashInput fixes the field order of the hashed document.
type hashInput struct {
	Actions []model.Action `json:"actions"`
	Trigger string         `json:"trigger"`
}

// Hash returns the content hash of a workflow: the hex SHA-256 of the JSON
// encoding of its actions and trigger context. Title, description and ID do
// not take part, so two workflows that do the same thing for the same reason
// hash equally. Map keys in payloads are sorted by encoding/json.
func Hash(wf *model.Workflow) (string, error) {
	actions := wf.Actions
	if actions == nil {
		actions = []model.Action{}
	}

	data, err := json.Marshal(hashInput{Actions: actions, Trigger: wf.TriggerContext})
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
