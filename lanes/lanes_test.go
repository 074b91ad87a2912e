package lanes_test

import (
	"testing"

	"github.com/delaneyj/fiberparty/lanes"
	"github.com/delaneyj/fiberparty/scheduler"
	"github.com/stretchr/testify/assert"
)

var all = []lanes.Lanes{
	lanes.NoLanes,
	lanes.SyncLane,
	lanes.DefaultLane,
	lanes.SyncLane | lanes.IdleLane,
	lanes.InputContinuousLane | lanes.TransitionLane,
	lanes.DefaultLane | lanes.TransitionLane | lanes.IdleLane,
}

func TestMergeAlgebra(t *testing.T) {
	for _, a := range all {
		assert.Equal(t, a, lanes.Merge(a, lanes.NoLane))
		assert.Equal(t, a, lanes.Merge(a, a))
		for _, b := range all {
			assert.Equal(t, lanes.Merge(a, b), lanes.Merge(b, a))
		}
	}
}

func TestHighestIsLowestSetBit(t *testing.T) {
	assert.Equal(t, lanes.NoLane, lanes.Highest(lanes.NoLanes))
	assert.Equal(t, lanes.SyncLane, lanes.Highest(lanes.SyncLane|lanes.IdleLane))
	assert.Equal(t, lanes.InputContinuousLane, lanes.Highest(lanes.InputContinuousLane|lanes.TransitionLane))
	assert.Equal(t, lanes.DefaultLane, lanes.Highest(lanes.DefaultLane|lanes.TransitionLane|lanes.IdleLane))
	for _, set := range all {
		h := lanes.Highest(set)
		if set == 0 {
			continue
		}
		assert.True(t, lanes.IsSubset(set, h))
		assert.Zero(t, (h-1)&set, "no more urgent bit than the highest")
	}
}

func TestSetOperations(t *testing.T) {
	set := lanes.SyncLane | lanes.DefaultLane
	assert.True(t, lanes.IncludesAny(set, lanes.DefaultLane|lanes.IdleLane))
	assert.False(t, lanes.IncludesAny(set, lanes.IdleLane))
	assert.True(t, lanes.IsSubset(set, lanes.SyncLane))
	assert.False(t, lanes.IsSubset(set, lanes.SyncLane|lanes.IdleLane))
	assert.Equal(t, lanes.DefaultLane, lanes.Remove(set, lanes.SyncLane))
	assert.Equal(t, set, lanes.Remove(set, lanes.IdleLane))
}

func TestPriorityTablesAreInverse(t *testing.T) {
	for _, l := range []lanes.Lane{lanes.SyncLane, lanes.InputContinuousLane, lanes.DefaultLane, lanes.TransitionLane, lanes.IdleLane} {
		assert.Equal(t, l, lanes.FromSchedulerPriority(lanes.ToSchedulerPriority(l)))
	}
	assert.Equal(t, scheduler.ImmediatePriority, lanes.ToSchedulerPriority(lanes.SyncLane|lanes.DefaultLane))
	assert.Equal(t, lanes.DefaultLane, lanes.FromSchedulerPriority(scheduler.NoPriority))
}

func TestString(t *testing.T) {
	assert.Equal(t, "none", lanes.NoLanes.String())
	assert.Equal(t, "sync|default", (lanes.SyncLane | lanes.DefaultLane).String())
}
