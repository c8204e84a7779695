package sim

import "fmt"

// RecordPolicy decides when a shot's root bone gets a keyframe.
type RecordPolicy uint8

const (
	// RecordNone never records on its own.
	RecordNone RecordPolicy = iota
	// RecordVelocity records when velocity or upward changed.
	RecordVelocity
	// RecordLocalMat records when position or rotation changed.
	RecordLocalMat
)

var recordPolicyNames = map[RecordPolicy]string{
	RecordNone:     "none",
	RecordVelocity: "velocity",
	RecordLocalMat: "localmat",
}

func (p RecordPolicy) String() string {
	if n, ok := recordPolicyNames[p]; ok {
		return n
	}
	return fmt.Sprintf("RecordPolicy(%d)", p)
}

// ParseRecordPolicy parses a policy name.
func ParseRecordPolicy(s string) (RecordPolicy, error) {
	for p, n := range recordPolicyNames {
		if n == s {
			return p, nil
		}
	}
	return RecordNone, fmt.Errorf("unknown record policy %q", s)
}

// CollisionPolicy decides what happens when a shot reaches the scene.
type CollisionPolicy uint8

const (
	CollisionNone CollisionPolicy = iota
	CollisionVanish
	CollisionStick
	CollisionReflect
)

var collisionPolicyNames = map[CollisionPolicy]string{
	CollisionNone:    "none",
	CollisionVanish:  "vanish",
	CollisionStick:   "stick",
	CollisionReflect: "reflect",
}

func (p CollisionPolicy) String() string {
	if n, ok := collisionPolicyNames[p]; ok {
		return n
	}
	return fmt.Sprintf("CollisionPolicy(%d)", p)
}

// ParseCollisionPolicy parses a policy name.
func ParseCollisionPolicy(s string) (CollisionPolicy, error) {
	for p, n := range collisionPolicyNames {
		if n == s {
			return p, nil
		}
	}
	return CollisionNone, fmt.Errorf("unknown collision policy %q", s)
}
