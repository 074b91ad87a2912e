package reconciler

import (
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// childReconciler diffs the children of one fiber. Mounting does not track
// effects: nothing exists in the host yet, so the whole new subtree is placed
// once by its topmost new ancestor.
type childReconciler struct {
	trackEffects bool
}

var (
	reconcileChildFibers = childReconciler{trackEffects: true}
	mountChildFibers     = childReconciler{trackEffects: false}
)

func (c childReconciler) reconcile(parent, currentFirst *Fiber, next Node) *Fiber {
	if el, ok := next.(*Element); ok && el.Type == Fragment && el.Key == "" {
		next = propsOf(el).Children
	}

	switch n := next.(type) {
	case *Element:
		return c.placeSingleChild(c.reconcileSingleElement(parent, currentFirst, n))
	case Text:
		return c.placeSingleChild(c.reconcileSingleText(parent, currentFirst, string(n)))
	case List:
		return c.reconcileChildrenArray(parent, currentFirst, n)
	case nil:
		c.deleteRemainingChildren(parent, currentFirst)
		return nil
	default:
		panic(fmt.Sprintf("reconciler: unsupported child %T", next))
	}
}

func (c childReconciler) deleteChild(parent, child *Fiber) {
	if !c.trackEffects {
		return
	}
	parent.deletions = append(parent.deletions, child)
	parent.flags |= ChildDeletion
}

func (c childReconciler) deleteRemainingChildren(parent, first *Fiber) {
	if !c.trackEffects {
		return
	}
	for child := first; child != nil; child = child.sibling {
		c.deleteChild(parent, child)
	}
}

func (c childReconciler) placeSingleChild(f *Fiber) *Fiber {
	if c.trackEffects && f.alternate == nil {
		f.flags |= Placement
	}
	return f
}

func useFiber(f *Fiber, props *Props) *Fiber {
	clone := createWorkInProgress(f, props)
	clone.index = 0
	clone.sibling = nil
	return clone
}

func propsOf(el *Element) *Props {
	if el.Props == nil {
		el.Props = &Props{}
	}
	return el.Props
}

func (c childReconciler) reconcileSingleElement(parent, currentFirst *Fiber, el *Element) *Fiber {
	for child := currentFirst; child != nil; child = child.sibling {
		if child.Key != el.Key {
			c.deleteChild(parent, child)
			continue
		}
		if child.Type == el.Type {
			c.deleteRemainingChildren(parent, child.sibling)
			existing := useFiber(child, propsOf(el))
			existing.Ref = el.Ref
			existing.parent = parent
			return existing
		}
		c.deleteRemainingChildren(parent, child)
		break
	}

	f := createFiberFromElement(el)
	f.parent = parent
	return f
}

func (c childReconciler) reconcileSingleText(parent, currentFirst *Fiber, text string) *Fiber {
	if currentFirst != nil && currentFirst.Tag == HostText {
		c.deleteRemainingChildren(parent, currentFirst.sibling)
		existing := useFiber(currentFirst, textProps(text))
		existing.parent = parent
		return existing
	}
	c.deleteRemainingChildren(parent, currentFirst)
	f := createFiberFromText(text)
	f.parent = parent
	return f
}

func (c childReconciler) reconcileChildrenArray(parent, currentFirst *Fiber, children List) *Fiber {
	existing := newChildMap(currentFirst)
	var first, prev *Fiber
	lastPlacedIndex := 0

	for i, child := range children {
		f := c.updateFromMap(existing, parent, i, child)
		if f == nil {
			continue
		}
		f.parent = parent
		lastPlacedIndex = c.placeChild(f, lastPlacedIndex, i)
		if prev == nil {
			first = f
		} else {
			prev.sibling = f
		}
		prev = f
	}

	// whatever nobody claimed is gone; delete in the old sibling order
	for child := currentFirst; child != nil; child = child.sibling {
		if existing.holds(child) {
			c.deleteChild(parent, child)
		}
	}
	return first
}

func (c childReconciler) updateFromMap(existing childMap, parent *Fiber, index int, child Node) *Fiber {
	switch n := child.(type) {
	case Text:
		before := existing.take("", index)
		if before != nil && before.Tag == HostText {
			return useFiber(before, textProps(string(n)))
		}
		if before != nil {
			c.deleteChild(parent, before)
		}
		return createFiberFromText(string(n))

	case *Element:
		before := existing.take(n.Key, index)
		if before != nil && before.Type == n.Type {
			f := useFiber(before, propsOf(n))
			f.Ref = n.Ref
			return f
		}
		if before != nil {
			c.deleteChild(parent, before)
		}
		return createFiberFromElement(n)

	case List:
		before := existing.take("", index)
		if before != nil && before.Tag == FragmentTag {
			return useFiber(before, &Props{Children: n})
		}
		if before != nil {
			c.deleteChild(parent, before)
		}
		return createFiberFromFragment(n, "")

	case nil:
		return nil

	default:
		panic(fmt.Sprintf("reconciler: unsupported child %T", child))
	}
}

// placeChild records f's new position and flags it when it is new or has
// to move left past a sibling that stayed put.
func (c childReconciler) placeChild(f *Fiber, lastPlacedIndex, newIndex int) int {
	f.index = newIndex
	if !c.trackEffects {
		return lastPlacedIndex
	}
	if current := f.alternate; current != nil {
		if current.index < lastPlacedIndex {
			f.flags |= Placement
			return lastPlacedIndex
		}
		return current.index
	}
	f.flags |= Placement
	return lastPlacedIndex
}

// childMap indexes existing children by explicit key, or by position when
// they have none.
type childMap map[uint64][]*Fiber

func childKey(key string, index int) uint64 {
	if key != "" {
		return xxhash.Sum64String("k:" + key)
	}
	return xxhash.Sum64String("i:" + strconv.Itoa(index))
}

func newChildMap(first *Fiber) childMap {
	m := childMap{}
	for child := first; child != nil; child = child.sibling {
		h := childKey(child.Key, child.index)
		m[h] = append(m[h], child)
	}
	return m
}

func (m childMap) take(key string, index int) *Fiber {
	h := childKey(key, index)
	bucket := m[h]
	for i, f := range bucket {
		if f.Key != key || (key == "" && f.index != index) {
			continue
		}
		if len(bucket) == 1 {
			delete(m, h)
		} else {
			m[h] = append(bucket[:i:i], bucket[i+1:]...)
		}
		return f
	}
	return nil
}

func (m childMap) holds(f *Fiber) bool {
	for _, candidate := range m[childKey(f.Key, f.index)] {
		if candidate == f {
			return true
		}
	}
	return false
}
