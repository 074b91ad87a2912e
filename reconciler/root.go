package reconciler

import (
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/delaneyj/fiberparty/lanes"
	"github.com/delaneyj/fiberparty/scheduler"
)

// Root is one mounted tree.
type Root struct {
	ID        uint64
	container Instance
	current   *Fiber

	finishedWork  *Fiber
	finishedLanes lanes.Lanes

	pendingLanes   lanes.Lanes
	suspendedLanes lanes.Lanes
	pingedLanes    lanes.Lanes

	callbackNode     scheduler.TaskID
	callbackPriority lanes.Lane

	pendingPassive *passiveEffects
	pingCache      map[Thenable]mapset.Set[lanes.Lane]
}

func (root *Root) Container() Instance { return root.container }

// Current is the fiber of the committed tree.
func (root *Root) Current() *Fiber { return root.current }

func (root *Root) PendingLanes() lanes.Lanes { return root.pendingLanes }

func (root *Root) SuspendedLanes() lanes.Lanes { return root.suspendedLanes }

// nextLanes picks the most urgent lane that is pending and not waiting on a
// thenable, unless that thenable has pinged since.
func (root *Root) nextLanes() lanes.Lanes {
	if root.pendingLanes == lanes.NoLanes {
		return lanes.NoLanes
	}
	blocked := lanes.Remove(root.suspendedLanes, root.pingedLanes)
	return lanes.Highest(lanes.Remove(root.pendingLanes, blocked))
}

func (root *Root) markUpdated(lane lanes.Lane) {
	root.pendingLanes = lanes.Merge(root.pendingLanes, lane)
	if lane != lanes.IdleLane {
		root.suspendedLanes = lanes.NoLanes
		root.pingedLanes = lanes.NoLanes
	}
}

func (root *Root) markSuspended(set lanes.Lanes) {
	root.suspendedLanes = lanes.Merge(root.suspendedLanes, set)
	root.pingedLanes = lanes.Remove(root.pingedLanes, set)
}

func (root *Root) markPinged(set lanes.Lanes) {
	root.pingedLanes = lanes.Merge(root.pingedLanes, root.suspendedLanes&set)
}

// markFinished keeps only the lanes still pending somewhere in the committed
// tree.
func (root *Root) markFinished(remaining lanes.Lanes) {
	done := lanes.Remove(root.pendingLanes, remaining)
	root.pendingLanes = remaining
	root.suspendedLanes = lanes.Remove(root.suspendedLanes, done)
	root.pingedLanes = lanes.Remove(root.pingedLanes, done)
}

// dropLanes forgets set without committing anything for it.
func (root *Root) dropLanes(set lanes.Lanes) {
	root.pendingLanes = lanes.Remove(root.pendingLanes, set)
	root.suspendedLanes = lanes.Remove(root.suspendedLanes, set)
	root.pingedLanes = lanes.Remove(root.pingedLanes, set)
}

func (root *Root) passive() *passiveEffects {
	if root.pendingPassive == nil {
		root.pendingPassive = &passiveEffects{}
	}
	return root.pendingPassive
}
