package statemachine

import (
	"strings"

	"food-marketplace-api/apperrors"
	"food-marketplace-api/models"
)

// Policy selects how far a single transition may jump.
type Policy string

const (
	// Permissive accepts any enumerated status from any non-terminal state.
	Permissive Policy = "permissive"
	// Strict follows the adjacency table plus cancellation from any non-terminal state.
	Strict Policy = "strict"
)

// Transition defines a valid state change and who can perform it
type Transition struct {
	From  models.OrderStatus `json:"from"`
	To    models.OrderStatus `json:"to"`
	Actor models.UserRole    `json:"actor"`
}

// lifecycle is the happy path of an order
var lifecycle = []models.OrderStatus{
	models.StatusPlaced,
	models.StatusAccepted,
	models.StatusPreparing,
	models.StatusOutForDelivery,
	models.StatusDelivered,
}

// actorTargets lists which statuses each non-admin role may request.
var actorTargets = map[models.UserRole][]models.OrderStatus{
	models.RoleRestaurant: {
		models.StatusAccepted,
		models.StatusPreparing,
		models.StatusOutForDelivery,
		models.StatusCancelled,
	},
	models.RoleDriver: {
		models.StatusOutForDelivery,
		models.StatusDelivered,
	},
	models.RoleCustomer: {
		models.StatusCancelled,
	},
}

// customerCancellable are the states a customer may still cancel from
var customerCancellable = map[models.OrderStatus]bool{
	models.StatusPlaced:   true,
	models.StatusAccepted: true,
}

type transitionKey struct {
	From models.OrderStatus
	To   models.OrderStatus
}

// adjacency holds the strict successor table
var adjacency = func() map[transitionKey]bool {
	m := make(map[transitionKey]bool)
	for i := 0; i+1 < len(lifecycle); i++ {
		m[transitionKey{lifecycle[i], lifecycle[i+1]}] = true
	}
	for _, s := range models.AllStatuses {
		if !s.Terminal() {
			m[transitionKey{s, models.StatusCancelled}] = true
		}
	}
	return m
}()

// Machine validates status changes under one policy.
type Machine struct {
	policy Policy
}

// ParsePolicy maps a config value to a Policy, defaulting to Permissive.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", Permissive:
		return Permissive, nil
	case Strict:
		return Strict, nil
	}
	return "", apperrors.Validation("unknown transition policy %q", s)
}

func New(policy Policy) *Machine {
	if policy != Strict {
		policy = Permissive
	}
	return &Machine{policy: policy}
}

func (m *Machine) Policy() Policy {
	return m.policy
}

// ValidTransitionsFrom returns all valid next states from a given state
func (m *Machine) ValidTransitionsFrom(status models.OrderStatus) []models.OrderStatus {
	if status.Terminal() || !status.Valid() {
		return nil
	}
	var nexts []models.OrderStatus
	for _, to := range models.AllStatuses {
		if m.allowedByPolicy(status, to) {
			nexts = append(nexts, to)
		}
	}
	return nexts
}

// CanTransition checks if a given actor can move from one state to another.
// The returned error carries the apperrors kind the caller should surface.
func (m *Machine) CanTransition(from, to models.OrderStatus, actor models.UserRole) error {
	if !to.Valid() {
		return apperrors.Validation("invalid status %q, must be one of: %s", to, joinStatuses(models.AllStatuses))
	}
	if from.Terminal() {
		return apperrors.Conflict("order is already %s, no further transitions allowed", from)
	}
	if !ActorMayRequest(actor, from, to) {
		return apperrors.Authorization("role '%s' may not move an order from %s to %s", actor, from, to)
	}
	if !m.allowedByPolicy(from, to) {
		return apperrors.Conflict(
			"invalid transition: %s → %s. Valid transitions from %s are: %s",
			from, to, from, describeValidFrom(m.ValidTransitionsFrom(from)),
		)
	}
	return nil
}

func (m *Machine) allowedByPolicy(from, to models.OrderStatus) bool {
	if from.Terminal() || !to.Valid() {
		return false
	}
	if m.policy == Permissive {
		return true
	}
	return adjacency[transitionKey{from, to}]
}

// ActorMayRequest applies the role table. Admins may request anything.
func ActorMayRequest(actor models.UserRole, from, to models.OrderStatus) bool {
	if actor == models.RoleAdmin {
		return true
	}
	if actor == models.RoleCustomer && !customerCancellable[from] {
		return false
	}
	for _, s := range actorTargets[actor] {
		if s == to {
			return true
		}
	}
	return false
}

// GetAllTransitions returns the full state machine for documentation
func (m *Machine) GetAllTransitions() []Transition {
	var out []Transition
	roles := []models.UserRole{models.RoleAdmin, models.RoleRestaurant, models.RoleDriver, models.RoleCustomer}
	for _, from := range models.AllStatuses {
		for _, to := range m.ValidTransitionsFrom(from) {
			for _, r := range roles {
				if ActorMayRequest(r, from, to) {
					out = append(out, Transition{From: from, To: to, Actor: r})
				}
			}
		}
	}
	return out
}

func describeValidFrom(nexts []models.OrderStatus) string {
	if len(nexts) == 0 {
		return "none (terminal state)"
	}
	return joinStatuses(nexts)
}

func joinStatuses(ss []models.OrderStatus) string {
	parts := make([]string, len(ss))
	for i, s := range ss {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}
