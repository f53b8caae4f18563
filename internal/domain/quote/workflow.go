package quote

import (
	"fmt"

	"hubchantier/internal/core/apperror"
)

// Status is the commercial lifecycle state of a quote.
type Status string

const (
	StatusDraft         Status = "draft"
	StatusInValidation  Status = "in_validation"
	StatusSent          Status = "sent"
	StatusViewed        Status = "viewed"
	StatusInNegotiation Status = "in_negotiation"
	StatusAccepted      Status = "accepted"
	StatusRefused       Status = "refused"
	StatusLost          Status = "lost"
	StatusExpired       Status = "expired"
)

// Statuses lists every status.
var Statuses = []Status{
	StatusDraft, StatusInValidation, StatusSent, StatusViewed, StatusInNegotiation,
	StatusAccepted, StatusRefused, StatusLost, StatusExpired,
}

// transitions is the legal transition table. Statuses absent from the map
// are terminal.
var transitions = map[Status][]Status{
	StatusDraft:         {StatusInValidation},
	StatusInValidation:  {StatusDraft, StatusSent},
	StatusSent:          {StatusViewed, StatusInNegotiation, StatusAccepted, StatusRefused, StatusExpired},
	StatusViewed:        {StatusInNegotiation, StatusAccepted, StatusRefused, StatusExpired},
	StatusInNegotiation: {StatusAccepted, StatusRefused, StatusLost},
	StatusExpired:       {StatusInNegotiation},
}

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	_, ok := transitions[s]
	return ok || s.IsTerminal()
}

// IsTerminal reports whether no transition leaves s.
func (s Status) IsTerminal() bool {
	return s == StatusAccepted || s == StatusRefused || s == StatusLost
}

// CanTransitionTo checks the transition table.
func (s Status) CanTransitionTo(target Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// AllowedTransitions returns the statuses reachable from s.
func (s Status) AllowedTransitions() []Status {
	return append([]Status(nil), transitions[s]...)
}

// ParseStatus validates a raw status value.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.IsValid() {
		return "", apperror.NewValidation(fmt.Sprintf("Statut inconnu: %s", raw)).
			WithDetail("field", "status")
	}
	return s, nil
}

// Action names a workflow transition as exposed to callers.
type Action string

const (
	ActionSubmit      Action = "submit"
	ActionRevert      Action = "revert"
	ActionSend        Action = "send"
	ActionMarkViewed  Action = "view"
	ActionNegotiate   Action = "negotiate"
	ActionAccept      Action = "accept"
	ActionRefuse      Action = "refuse"
	ActionMarkLost    Action = "lose"
	ActionMarkExpired Action = "expire"
)

var actionTargets = map[Action]Status{
	ActionSubmit:      StatusInValidation,
	ActionRevert:      StatusDraft,
	ActionSend:        StatusSent,
	ActionMarkViewed:  StatusViewed,
	ActionNegotiate:   StatusInNegotiation,
	ActionAccept:      StatusAccepted,
	ActionRefuse:      StatusRefused,
	ActionMarkLost:    StatusLost,
	ActionMarkExpired: StatusExpired,
}

// ParseAction validates a raw action name.
func ParseAction(raw string) (Action, error) {
	a := Action(raw)
	if _, ok := actionTargets[a]; !ok {
		return "", apperror.NewValidation(fmt.Sprintf("Action inconnue: %s", raw)).
			WithDetail("field", "action")
	}
	return a, nil
}

// Target returns the status an action leads to.
func (a Action) Target() Status {
	return actionTargets[a]
}

// Apply runs the transition method matching the action.
func (q *Quote) Apply(a Action) error {
	target, ok := actionTargets[a]
	if !ok {
		return apperror.NewValidation(fmt.Sprintf("Action inconnue: %s", a))
	}
	return q.transitionTo(target)
}

func (q *Quote) transitionTo(target Status) error {
	if !q.Status.CanTransitionTo(target) {
		return apperror.NewInvalidTransition(string(q.Status), string(target)).
			WithDetail("quote_id", q.ID.String())
	}
	q.Status = target
	q.Stamp()
	return nil
}

// SubmitForValidation moves a draft to internal validation.
func (q *Quote) SubmitForValidation() error { return q.transitionTo(StatusInValidation) }

// RevertToDraft sends a quote under validation back to draft.
func (q *Quote) RevertToDraft() error { return q.transitionTo(StatusDraft) }

// Send marks the quote as sent to the client.
func (q *Quote) Send() error { return q.transitionTo(StatusSent) }

// MarkViewed records that the client opened the quote.
func (q *Quote) MarkViewed() error { return q.transitionTo(StatusViewed) }

// Negotiate opens a negotiation round.
func (q *Quote) Negotiate() error { return q.transitionTo(StatusInNegotiation) }

// Accept records the client's acceptance.
func (q *Quote) Accept() error { return q.transitionTo(StatusAccepted) }

// Refuse records the client's refusal.
func (q *Quote) Refuse() error { return q.transitionTo(StatusRefused) }

// MarkLost closes a negotiation without deal.
func (q *Quote) MarkLost() error { return q.transitionTo(StatusLost) }

// MarkExpired records that the validity period ran out.
func (q *Quote) MarkExpired() error { return q.transitionTo(StatusExpired) }
