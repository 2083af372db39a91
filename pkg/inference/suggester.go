// Package inference turns a context snapshot into a candidate workflow.
package inference

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/blueberry-browser/blueberry-go/pkg/llm"
	"github.com/blueberry-browser/blueberry-go/pkg/model"
)

// Suggester proposes a workflow for a snapshot. A nil workflow with a nil
// error means no pattern was found.
type Suggester interface {
	SuggestWorkflow(ctx context.Context, snapshot *model.ContextSnapshot) (*model.Workflow, error)
}

// SuggesterFunc adapts a function to Suggester.
type SuggesterFunc func(ctx context.Context, snapshot *model.ContextSnapshot) (*model.Workflow, error)

// SuggestWorkflow implements Suggester.
func (f SuggesterFunc) SuggestWorkflow(ctx context.Context, snapshot *model.ContextSnapshot) (*model.Workflow, error) {
	return f(ctx, snapshot)
}

// LLMSuggester asks a generative model to act as a workflow analyst.
type LLMSuggester struct {
	provider llm.Provider
	log      zerolog.Logger
	opts     []llm.GenerateOption
}

// NewLLMSuggester creates a suggester backed by provider.
func NewLLMSuggester(provider llm.Provider, log zerolog.Logger) *LLMSuggester {
	return &LLMSuggester{
		provider: provider,
		log:      log,
		opts: []llm.GenerateOption{
			llm.WithJSONMode(),
			llm.WithTemperature(0.2),
			llm.WithMaxTokens(1024),
		},
	}
}

// reply is the JSON object the model is asked to return. Actions are kept
// raw so that one malformed action does not discard the whole reply.
type reply struct {
	Title          string            `json:"title"`
	Description    string            `json:"description"`
	TriggerContext string            `json:"triggerContext"`
	IsValid        bool              `json:"isValid"`
	Actions        []json.RawMessage `json:"actions"`
}

// replyAction is the loosely typed form of an action in a model reply.
type replyAction struct {
	Type        model.ActionType       `json:"type"`
	Target      string                 `json:"target"`
	Value       json.RawMessage        `json:"value"`
	Payload     map[string]interface{} `json:"payload"`
	Description string                 `json:"description"`
}

// SuggestWorkflow implements Suggester.
func (s *LLMSuggester) SuggestWorkflow(ctx context.Context, snapshot *model.ContextSnapshot) (*model.Workflow, error) {
	if snapshot == nil {
		return nil, nil
	}

	prompt, err := buildPrompt(snapshot)
	if err != nil {
		return nil, model.NewEngineError("SuggestWorkflow", err)
	}

	response, err := s.provider.GenerateWithMessages(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: analystPrompt},
		{Role: llm.RoleUser, Content: prompt},
	}, s.opts...)
	if err != nil {
		return nil, model.NewEngineError("SuggestWorkflow", fmt.Errorf("%w: %w", model.ErrLLMOperation, err))
	}

	wf, err := s.parseReply(response)
	if err != nil {
		return nil, model.NewEngineError("SuggestWorkflow", fmt.Errorf("%w: %w", model.ErrLLMOperation, err))
	}
	return wf, nil
}

func (s *LLMSuggester) parseReply(response string) (*model.Workflow, error) {
	var r reply
	if err := json.Unmarshal([]byte(removeCodeBlocks(response)), &r); err != nil {
		return nil, fmt.Errorf("invalid JSON response: %w", err)
	}
	if !r.IsValid {
		return nil, nil
	}

	actions := make([]model.Action, 0, len(r.Actions))
	for i, raw := range r.Actions {
		a, err := decodeAction(raw)
		if err != nil {
			s.log.Warn().Err(err).Int("index", i).Msg("dropping malformed action from model reply")
			continue
		}
		if !a.Type.Known() {
			s.log.Warn().Str("type", string(a.Type)).Msg("dropping action of unknown type from model reply")
			continue
		}
		actions = append(actions, a)
	}
	if len(actions) == 0 {
		return nil, nil
	}

	return &model.Workflow{
		ID:             uuid.NewString(),
		Title:          r.Title,
		Description:    r.Description,
		TriggerContext: r.TriggerContext,
		Actions:        actions,
	}, nil
}

func decodeAction(raw json.RawMessage) (model.Action, error) {
	var a replyAction
	if err := json.Unmarshal(raw, &a); err != nil {
		return model.Action{}, err
	}
	value, err := actionValue(a.Value)
	if err != nil {
		return model.Action{}, err
	}
	return model.Action{
		Type:        a.Type,
		Target:      a.Target,
		Value:       value,
		Payload:     a.Payload,
		Description: a.Description,
	}, nil
}

// actionValue accepts a string or a number; models often send wait
// durations as bare numbers.
func actionValue(raw json.RawMessage) (string, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return "", nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if i, err := n.Int64(); err == nil {
			return strconv.FormatInt(i, 10), nil
		}
		f, err := n.Float64()
		if err != nil {
			return "", err
		}
		return strconv.FormatFloat(f, 'f', -1, 64), nil
	}

	return "", errors.New("action value must be a string or a number")
}

// removeCodeBlocks strips ```json fences some models wrap replies in.
func removeCodeBlocks(response string) string {
	response = strings.ReplaceAll(response, "```json", "")
	response = strings.ReplaceAll(response, "```", "")
	return strings.TrimSpace(response)
}

func buildPrompt(snapshot *model.ContextSnapshot) (string, error) {
	tabs, err := json.MarshalIndent(snapshot.OpenTabs, "", "  ")
	if err != nil {
		return "", err
	}
	events, err := json.MarshalIndent(snapshot.RecentEvents, "", "  ")
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("Analyze this context:\nOPEN TABS:\n%s\n\nRECENT ACTIVITY (last 5 minutes):\n%s\n", tabs, events), nil
}

const analystPrompt = `You are the "Workflow Analyst" of a browser. Detect repetitive patterns or helpful automations in the user's current context.

AVAILABLE ACTIONS:
1. navigate: open the URL in "target".
2. click: click the element matching the CSS selector in "target".
3. input: type "value" into the element matching the CSS selector in "target".
4. wait: pause for "value" milliseconds.
5. reorder-tabs: arrange tabs; "payload.order" lists every open tab id in the new order.

GUIDELINES:
- Research sessions: several tabs on one topic suggest opening related resources or grouping the tabs.
- Form filling: a login or signup page suggests going to the dashboard.
- Daily routines: sites opened together suggest opening them all at once.

OUTPUT:
Reply with one JSON object:
{"title": string, "description": string, "triggerContext": string, "isValid": boolean,
 "actions": [{"type": string, "target": string, "value": string, "payload": object, "description": string}]}
- Set "isValid" to true and fill "actions" only when a pattern clearly saves time.
- Otherwise set "isValid" to false and return an empty "actions" list.`
