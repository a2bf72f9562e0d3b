package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/opshq/backoffice/internal/jobs"
	"github.com/opshq/backoffice/internal/models"
	"github.com/opshq/backoffice/pkg/repository"
)

// Event is a trigger delivered to the engine: a name plus the data and
// context maps rule conditions are evaluated against.
type Event struct {
	Name    string         `json:"event"`
	Data    map[string]any `json:"data"`
	Context map[string]any `json:"context"`
}

// Action is one entry of a rule's action list.
type Action struct {
	Type               string  `json:"type"`
	Target             string  `json:"target,omitempty"`
	Message            string  `json:"message,omitempty"`
	EscalateAfterHours float64 `json:"escalate_after_hours,omitempty"`
}

// ActionResult is one entry of an instance's persisted action log.
type ActionResult struct {
	Type    string `json:"type"`
	Outcome string `json:"outcome"`
	Detail  string `json:"detail,omitempty"`
	At      int64  `json:"at"`
}

// Queue schedules background jobs; satisfied by jobs.WorkerPool.
type Queue interface {
	EnqueueAt(ctx context.Context, typ string, payload any, at time.Time, priority, maxAttempts int) (int64, error)
}

// Publisher pushes an event to connected clients; satisfied by notify.Hub.
type Publisher interface {
	Publish(orgID int64, kind, message string)
}

// Engine evaluates persisted workflow rules against incoming events and runs
// the matching rules' action lists. Instances and their action logs are
// persisted; escalation timers are durable scheduled jobs, not in-memory
// timestamps.
type Engine struct {
	rules  repository.WorkflowRepo
	notes  repository.NotificationRepo
	audit  repository.AuditRepo
	queue  Queue
	pub    Publisher
	logger *slog.Logger
}

func NewEngine(rules repository.WorkflowRepo, notes repository.NotificationRepo, audit repository.AuditRepo, queue Queue, pub Publisher, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{rules: rules, notes: notes, audit: audit, queue: queue, pub: pub, logger: logger}
}

// Trigger evaluates every enabled rule registered for the event and runs the
// action lists of the ones that match. One instance is persisted per matching
// rule; the slice of created instances is returned.
func (e *Engine) Trigger(ctx context.Context, orgID int64, ev Event) ([]models.WorkflowInstance, error) {
	rules, err := e.rules.ListRules(ctx, orgID, ev.Name, true)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}

	var out []models.WorkflowInstance
	for _, rule := range rules {
		matched, err := Matches(rule.Conditions, ev)
		if err != nil {
			e.logger.Error("evaluate rule conditions", "rule", rule.Name, "err", err)
			continue
		}
		if !matched {
			continue
		}

		inst, err := e.run(ctx, &rule, ev)
		if err != nil {
			return nil, fmt.Errorf("run rule %q: %w", rule.Name, err)
		}
		out = append(out, *inst)
	}

	return out, nil
}

// Matches reports whether the conditions document accepts the event. Every
// condition key must pass: "any" always passes, a {min,max} object checks a
// numeric range, anything else is compared for equality. Values are looked up
// in the event's data map first, then its context map.
func Matches(conditions json.RawMessage, ev Event) (bool, error) {
	var conds map[string]any
	if len(conditions) > 0 {
		if err := json.Unmarshal(conditions, &conds); err != nil {
			return false, fmt.Errorf("decode conditions: %w", err)
		}
	}

	for key, want := range conds {
		got, ok := lookup(ev, key)

		switch w := want.(type) {
		case string:
			if w == "any" {
				continue
			}
			if !ok || !equal(got, w) {
				return false, nil
			}
		case map[string]any:
			n, isNum := toFloat(got)
			if !ok || !isNum {
				return false, nil
			}
			if min, has := toFloat(w["min"]); has && n < min {
				return false, nil
			}
			if max, has := toFloat(w["max"]); has && n > max {
				return false, nil
			}
		default:
			if !ok || !equal(got, want) {
				return false, nil
			}
		}
	}

	return true, nil
}

func lookup(ev Event, key string) (any, bool) {
	if v, ok := ev.Data[key]; ok {
		return v, true
	}
	v, ok := ev.Context[key]
	return v, ok
}

// equal compares condition and event values, treating all numeric types as
// float64 the way encoding/json does.
func equal(got, want any) bool {
	if gn, ok := toFloat(got); ok {
		if wn, ok := toFloat(want); ok {
			return gn == wn
		}
		return false
	}
	return got == want
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// run executes a matched rule's actions sequentially and persists the
// resulting instance.
func (e *Engine) run(ctx context.Context, rule *models.WorkflowRule, ev Event) (*models.WorkflowInstance, error) {
	var actions []Action
	if err := json.Unmarshal(rule.Actions, &actions); err != nil {
		return nil, fmt.Errorf("decode actions: %w", err)
	}

	inst := &models.WorkflowInstance{
		ID:     uuid.NewString(),
		OrgID:  rule.OrgID,
		RuleID: rule.ID,
		Event:  ev.Name,
		Status: models.InstanceCompleted,
	}

	log := make([]ActionResult, 0, len(actions))
	for _, a := range actions {
		res := e.execute(ctx, rule, inst, a)
		log = append(log, res)
	}

	b, err := json.Marshal(log)
	if err != nil {
		return nil, fmt.Errorf("encode action log: %w", err)
	}
	inst.ActionLog = b

	if err := e.rules.CreateInstance(ctx, inst); err != nil {
		return nil, fmt.Errorf("persist instance: %w", err)
	}

	ts := time.Now().UTC().UnixMilli()
	inst.Created, inst.Updated = ts, ts
	return inst, nil
}

func (e *Engine) execute(ctx context.Context, rule *models.WorkflowRule, inst *models.WorkflowInstance, a Action) ActionResult {
	res := ActionResult{Type: a.Type, At: time.Now().UTC().UnixMilli()}

	switch a.Type {
	case "auto-approve":
		res.Outcome = "approved"

	case "require-approval":
		inst.Status = models.InstancePendingApproval
		res.Outcome = "approval-requested"
		if a.EscalateAfterHours > 0 {
			at := time.Now().Add(time.Duration(a.EscalateAfterHours * float64(time.Hour)))
			payload := jobs.EscalatePayload{OrgID: rule.OrgID, InstanceID: inst.ID, RuleName: rule.Name}
			if _, err := e.queue.EnqueueAt(ctx, jobs.TypeWorkflowEscalate, payload, at, 100, 3); err != nil {
				res.Outcome = "approval-requested-escalation-failed"
				res.Detail = err.Error()
				e.logger.Error("enqueue escalation", "rule", rule.Name, "err", err)
			} else {
				res.Detail = fmt.Sprintf("escalates at %s", at.UTC().Format(time.RFC3339))
			}
		}

	case "send-reminder":
		payload := jobs.NotifyPayload{OrgID: rule.OrgID, Kind: "reminder", Message: a.Message}
		if _, err := e.queue.EnqueueAt(ctx, jobs.TypeNotifyDispatch, payload, time.Now(), 100, 3); err != nil {
			res.Outcome = "reminder-failed"
			res.Detail = err.Error()
		} else {
			res.Outcome = "reminder-queued"
		}

	case "notify":
		n := &models.Notification{OrgID: rule.OrgID, Kind: "workflow", Message: a.Message}
		if _, err := e.notes.CreateNotification(ctx, n); err != nil {
			res.Outcome = "notify-failed"
			res.Detail = err.Error()
		} else {
			res.Outcome = "notified"
			if e.pub != nil {
				e.pub.Publish(rule.OrgID, "workflow", a.Message)
			}
		}

	case "update-compliance":
		ev := &models.AuditEvent{OrgID: rule.OrgID, ActorID: 0, Action: "compliance-update", Entity: "workflow", EntityID: inst.ID}
		if err := e.audit.RecordAudit(ctx, ev); err != nil {
			res.Outcome = "compliance-failed"
			res.Detail = err.Error()
		} else {
			res.Outcome = "compliance-updated"
		}

	default:
		res.Outcome = "skipped"
		res.Detail = "unknown action type"
	}

	return res
}

// HandleEscalate processes a workflow.escalate job. It is idempotent: an
// instance that already left pending-approval is left alone.
func (e *Engine) HandleEscalate(ctx context.Context, j *jobs.Job) error {
	var p jobs.EscalatePayload
	if err := json.Unmarshal(j.Payload, &p); err != nil {
		return fmt.Errorf("decode escalate payload: %w", err)
	}

	inst, err := e.rules.GetInstance(ctx, p.OrgID, p.InstanceID)
	if err != nil {
		return fmt.Errorf("load instance: %w", err)
	}
	if inst == nil || inst.Status != models.InstancePendingApproval {
		// resolved before the timer fired
		return nil
	}

	if err := e.rules.SetInstanceStatus(ctx, p.OrgID, p.InstanceID, models.InstanceEscalated); err != nil {
		return fmt.Errorf("escalate instance: %w", err)
	}

	msg := fmt.Sprintf("approval for rule %q overdue", p.RuleName)
	if _, err := e.notes.CreateNotification(ctx, &models.Notification{OrgID: p.OrgID, Kind: "escalation", Message: msg}); err != nil {
		return fmt.Errorf("escalation notification: %w", err)
	}
	if e.pub != nil {
		e.pub.Publish(p.OrgID, "escalation", msg)
	}

	return nil
}
