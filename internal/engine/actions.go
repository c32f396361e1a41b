package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"counsellor/internal/ai"
	"counsellor/internal/events"
)

// ActionResult reports one attempted action. Exactly one of Result or
// Error is set; the original type and args are always echoed back.
type ActionResult struct {
	Type   string         `json:"type"`
	Args   map[string]any `json:"args,omitempty"`
	Result map[string]any `json:"result,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// executeActions runs actions in order with per-action isolation: a
// failure is recorded and the loop continues. Anything past the cap is
// dropped without a result entry.
func (e Engine) executeActions(ctx context.Context, userID string, actions []ai.Action) []ActionResult {
	executed := []ActionResult{}
	for i, a := range actions {
		if i >= maxActionsPerChat {
			break
		}
		result, err := e.executeAction(ctx, userID, a)
		if err != nil {
			executed = append(executed, ActionResult{Type: a.Type, Args: a.Args, Error: err.Error()})
			continue
		}
		executed = append(executed, ActionResult{Type: a.Type, Args: a.Args, Result: result})
		e.appendEvent(ctx, "action.executed", userID, "action", strings.ToLower(a.Type), events.EventPayload{"result": result})
	}
	return executed
}

// executeAction validates args at the boundary and dispatches. Unknown
// types are not errors; they come back as an ignored result so one odd
// model suggestion never poisons the batch.
func (e Engine) executeAction(ctx context.Context, userID string, a ai.Action) (map[string]any, error) {
	switch strings.ToLower(strings.TrimSpace(a.Type)) {
	case "shortlist":
		id, err := universityArg(a.Args)
		if err != nil {
			return nil, err
		}
		r, err := e.Shortlist(ctx, userID, id)
		if err != nil {
			return nil, err
		}
		return r.resultMap(), nil
	case "lock":
		id, err := universityArg(a.Args)
		if err != nil {
			return nil, err
		}
		r, err := e.Lock(ctx, userID, id)
		if err != nil {
			return nil, err
		}
		return r.resultMap(), nil
	case "unlock":
		id, err := universityArg(a.Args)
		if err != nil {
			return nil, err
		}
		r, err := e.Unlock(ctx, userID, id)
		if err != nil {
			return nil, err
		}
		return r.resultMap(), nil
	case "lock_recent_shortlisted":
		r, err := e.LockRecentShortlisted(ctx, userID)
		if err != nil {
			return nil, err
		}
		return r.resultMap(), nil
	case "create_task":
		title := strings.TrimSpace(stringArg(a.Args, "title"))
		if title == "" {
			return nil, errors.New("task title missing")
		}
		return e.createTaskFromAction(ctx, userID, title)
	default:
		return map[string]any{"ignored": true, "reason": "unknown action type: " + a.Type}, nil
	}
}

// universityArg requires a uuid-shaped universityId before any lookup.
func universityArg(args map[string]any) (string, error) {
	raw, ok := args["universityId"]
	if !ok || raw == nil {
		return "", errors.New("universityId missing")
	}
	id := strings.TrimSpace(fmt.Sprint(raw))
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", fmt.Errorf("invalid universityId %q", id)
	}
	return parsed.String(), nil
}

func stringArg(args map[string]any, key string) string {
	if args == nil {
		return ""
	}
	raw, ok := args[key]
	if !ok || raw == nil {
		return ""
	}
	return fmt.Sprint(raw)
}
