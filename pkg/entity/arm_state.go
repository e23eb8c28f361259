package entity

import "github.com/opd-ai/go-blob/pkg/physics"

// ArmState is the phase of an arm's grab cycle
type ArmState int

const (
	// ArmIdle arms wave around their rest direction and probe for walls
	ArmIdle ArmState = iota
	// ArmDeploying arms stretch toward a wall they have seen
	ArmDeploying
	// ArmAnchored arms are stuck to a wall and can pull the body
	ArmAnchored
	// ArmRetracting arms relax back to their rest length and angle
	ArmRetracting
)

func (s ArmState) String() string {
	switch s {
	case ArmIdle:
		return "idle"
	case ArmDeploying:
		return "deploying"
	case ArmAnchored:
		return "anchored"
	case ArmRetracting:
		return "retracting"
	default:
		return "unknown"
	}
}

// ArmTransition records one state change of one arm during a tick
type ArmTransition struct {
	Arm  int
	From ArmState
	To   ArmState
	// Point is the wall hit when deploying or anchoring, otherwise the
	// arm target at the time of the change
	Point physics.Vector2D
}
