// Package lanes is the priority bitset used to tag pending work. The lower
// the set bit, the more urgent the lane.
package lanes

import (
	"math/bits"
	"strconv"
	"strings"

	"github.com/delaneyj/fiberparty/scheduler"
)

type Lanes uint32

// Lane is a Lanes value with at most one bit set.
type Lane = Lanes

const (
	NoLanes Lanes = 0
	NoLane  Lane  = 0

	SyncLane            Lane = 1 << 0
	InputContinuousLane Lane = 1 << 1
	DefaultLane         Lane = 1 << 2
	TransitionLane      Lane = 1 << 3
	IdleLane            Lane = 1 << 4
)

var names = [...]string{"sync", "input_continuous", "default", "transition", "idle"}

func Merge(a, b Lanes) Lanes {
	return a | b
}

// Highest isolates the most urgent lane in set.
func Highest(set Lanes) Lane {
	return set & -set
}

func IncludesAny(set, subset Lanes) bool {
	return set&subset != 0
}

func IsSubset(set, subset Lanes) bool {
	return set&subset == subset
}

func Remove(set, subset Lanes) Lanes {
	return set &^ subset
}

func (l Lanes) String() string {
	if l == NoLanes {
		return "none"
	}
	var parts []string
	for set := l; set != 0; set &= set - 1 {
		i := bits.TrailingZeros32(uint32(set))
		if i < len(names) {
			parts = append(parts, names[i])
		} else {
			parts = append(parts, "lane"+strconv.Itoa(i))
		}
	}
	return strings.Join(parts, "|")
}

var toPriority = map[Lane]scheduler.Priority{
	SyncLane:            scheduler.ImmediatePriority,
	InputContinuousLane: scheduler.UserBlockingPriority,
	DefaultLane:         scheduler.NormalPriority,
	TransitionLane:      scheduler.LowPriority,
	IdleLane:            scheduler.IdlePriority,
}

var fromPriority = map[scheduler.Priority]Lane{
	scheduler.ImmediatePriority:    SyncLane,
	scheduler.UserBlockingPriority: InputContinuousLane,
	scheduler.NormalPriority:       DefaultLane,
	scheduler.LowPriority:          TransitionLane,
	scheduler.IdlePriority:         IdleLane,
}

// ToSchedulerPriority maps the most urgent lane of set to the priority its
// render task is scheduled at.
func ToSchedulerPriority(set Lanes) scheduler.Priority {
	if p, ok := toPriority[Highest(set)]; ok {
		return p
	}
	return scheduler.IdlePriority
}

// FromSchedulerPriority picks the lane for an update raised while p is the
// ambient priority.
func FromSchedulerPriority(p scheduler.Priority) Lane {
	if l, ok := fromPriority[p]; ok {
		return l
	}
	return DefaultLane
}
