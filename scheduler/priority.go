package scheduler

import (
	"fmt"
	"math"
	"time"
)

type Priority uint8

const (
	NoPriority Priority = iota
	ImmediatePriority
	UserBlockingPriority
	NormalPriority
	LowPriority
	IdlePriority
)

func (p Priority) String() string {
	switch p {
	case NoPriority:
		return "none"
	case ImmediatePriority:
		return "immediate"
	case UserBlockingPriority:
		return "user_blocking"
	case NormalPriority:
		return "normal"
	case LowPriority:
		return "low"
	case IdlePriority:
		return "idle"
	default:
		return fmt.Sprintf("priority(%d)", uint8(p))
	}
}

func ParsePriority(s string) (Priority, error) {
	for p := ImmediatePriority; p <= IdlePriority; p++ {
		if p.String() == s {
			return p, nil
		}
	}
	return NoPriority, fmt.Errorf("unknown priority %q", s)
}

const (
	// Immediate work is already expired the moment it is scheduled.
	immediateTimeout = -1 * time.Millisecond
	// Roughly max int31 milliseconds; idle work never expires in practice.
	idleTimeout = time.Duration(math.MaxInt32) * time.Millisecond
)

func (s *Scheduler) timeout(p Priority) time.Duration {
	switch p {
	case ImmediatePriority:
		return immediateTimeout
	case UserBlockingPriority:
		return s.cfg.UserBlockingTimeout
	case IdlePriority:
		return idleTimeout
	case LowPriority:
		return s.cfg.LowTimeout
	default:
		return s.cfg.NormalTimeout
	}
}
