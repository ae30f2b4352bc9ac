package game

type Phase string

const (
	PhaseLobby         Phase = "lobby"
	PhasePicking       Phase = "picking"
	PhaseActiveRound   Phase = "active_round"
	PhaseRoundResolved Phase = "round_resolved"
	PhaseGameOver      Phase = "game_over"
)

var phaseTransitions = map[Phase][]Phase{
	PhaseLobby:         {PhasePicking, PhaseActiveRound},
	PhasePicking:       {PhasePicking, PhaseActiveRound, PhaseGameOver, PhaseLobby},
	PhaseActiveRound:   {PhaseRoundResolved, PhaseGameOver, PhaseLobby},
	PhaseRoundResolved: {PhasePicking, PhaseActiveRound, PhaseGameOver, PhaseLobby},
	PhaseGameOver:      {PhaseLobby},
}

// CanTransitionTo reports whether next is a legal successor. picking -> picking
// restarts the pick for the same round after the picker leaves.
func (p Phase) CanTransitionTo(next Phase) bool {
	for _, allowed := range phaseTransitions[p] {
		if allowed == next {
			return true
		}
	}
	return false
}

// InGame is true between start and game over.
func (p Phase) InGame() bool {
	return p == PhasePicking || p == PhaseActiveRound || p == PhaseRoundResolved
}
