package model

// ActionType names one browser action a workflow can perform.
type ActionType string

const (
	ActionNavigate    ActionType = "navigate"
	ActionClick       ActionType = "click"
	ActionInput       ActionType = "input"
	ActionWait        ActionType = "wait"
	ActionReorderTabs ActionType = "reorder-tabs"
)

// Known reports whether t is one of the supported action types.
func (t ActionType) Known() bool {
	switch t {
	case ActionNavigate, ActionClick, ActionInput, ActionWait, ActionReorderTabs:
		return true
	}
	return false
}

// Action is a single step of a workflow.
//
// Target is a URL for navigate and a CSS selector for click/input. Value is
// the text for input and the delay in milliseconds for wait. Payload carries
// structured data such as the tab order for reorder-tabs.
type Action struct {
	Type        ActionType             `json:"type"`
	Target      string                 `json:"target,omitempty"`
	Value       string                 `json:"value,omitempty"`
	Payload     map[string]interface{} `json:"payload,omitempty"`
	Description string                 `json:"description,omitempty"`
}

// Workflow is an ordered list of actions proposed by the inference step.
// Its content is untrusted until validated by the executor.
type Workflow struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Description    string   `json:"description,omitempty"`
	TriggerContext string   `json:"triggerContext,omitempty"`
	Actions        []Action `json:"actions"`
}

// SuggestionStatus is the lifecycle state of a suggestion.
type SuggestionStatus string

const (
	StatusPending  SuggestionStatus = "pending"
	StatusAccepted SuggestionStatus = "accepted"
	StatusRejected SuggestionStatus = "rejected"
	StatusExpired  SuggestionStatus = "expired"
)

// Valid reports whether s is a known status.
func (s SuggestionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRejected, StatusExpired:
		return true
	}
	return false
}

// Suggestion is a surfaced workflow together with its lifecycle state.
//
// Hash is the dedup identity: two suggestions with the same hash are the
// same suggestion regardless of ID.
type Suggestion struct {
	ID              string           `json:"id"`
	Hash            string           `json:"hash"`
	Kind            string           `json:"type"`
	Title           string           `json:"title"`
	Description     string           `json:"description"`
	Workflow        Workflow         `json:"workflow"`
	Status          SuggestionStatus `json:"status"`
	Timestamp       int64            `json:"timestamp"`
	ContextSnapshot *ContextSnapshot `json:"contextSnapshot,omitempty"`
}
