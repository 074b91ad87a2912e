package reconciler

import (
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/delaneyj/fiberparty/lanes"
)

type Tag uint8

const (
	FunctionComponent Tag = iota
	HostRoot
	HostComponent
	HostText
	FragmentTag
	ContextProvider
	MemoComponent
	SuspenseComponent
)

func (t Tag) String() string {
	switch t {
	case FunctionComponent:
		return "FunctionComponent"
	case HostRoot:
		return "HostRoot"
	case HostComponent:
		return "HostComponent"
	case HostText:
		return "HostText"
	case FragmentTag:
		return "Fragment"
	case ContextProvider:
		return "ContextProvider"
	case MemoComponent:
		return "MemoComponent"
	case SuspenseComponent:
		return "SuspenseComponent"
	default:
		return fmt.Sprintf("Tag(%d)", uint8(t))
	}
}

type Flags uint16

const (
	Placement Flags = 1 << iota
	Update
	ChildDeletion
	RefEffect
	PassiveEffect
	DidCapture
	ShouldCapture

	NoFlags Flags = 0

	MutationMask = Placement | Update | ChildDeletion
	LayoutMask   = RefEffect
	PassiveMask  = PassiveEffect | ChildDeletion
)

// Fiber is one position in the tree. Every fiber has at most one alternate
// and the pair is reused for the lifetime of that position.
type Fiber struct {
	Tag  Tag
	Type Type
	Key  string
	Ref  *Ref

	pendingProps  *Props
	memoizedProps *Props
	memoizedState any
	updateQueue   *UpdateQueue
	dependencies  *dependencies
	effects       []*effect

	// host Instance, or *Root for the host root
	stateNode any

	parent    *Fiber
	child     *Fiber
	sibling   *Fiber
	alternate *Fiber
	index     int

	flags        Flags
	subtreeFlags Flags
	lanes        lanes.Lanes
	childLanes   lanes.Lanes
	deletions    []*Fiber
}

type dependencies struct {
	lanes    lanes.Lanes
	contexts mapset.Set[*Context]
}

func (f *Fiber) Parent() *Fiber          { return f.parent }
func (f *Fiber) Child() *Fiber           { return f.child }
func (f *Fiber) Sibling() *Fiber         { return f.sibling }
func (f *Fiber) Alternate() *Fiber       { return f.alternate }
func (f *Fiber) Flags() Flags            { return f.flags }
func (f *Fiber) SubtreeFlags() Flags     { return f.subtreeFlags }
func (f *Fiber) Lanes() lanes.Lanes      { return f.lanes }
func (f *Fiber) ChildLanes() lanes.Lanes { return f.childLanes }
func (f *Fiber) StateNode() any          { return f.stateNode }
func (f *Fiber) MemoizedProps() *Props   { return f.memoizedProps }
func (f *Fiber) PendingProps() *Props    { return f.pendingProps }

// Deletions are the children removed by the render that produced this fiber.
func (f *Fiber) Deletions() []*Fiber { return f.deletions }

// Children returns the direct children in sibling order.
func (f *Fiber) Children() []*Fiber {
	var out []*Fiber
	for c := f.child; c != nil; c = c.sibling {
		out = append(out, c)
	}
	return out
}

func (f *Fiber) String() string {
	switch t := f.Type.(type) {
	case Host:
		return fmt.Sprintf("%s<%s>", f.Tag, string(t))
	case *Component:
		return fmt.Sprintf("%s<%s>", f.Tag, t.Name)
	case *Memo:
		return fmt.Sprintf("%s<%s>", f.Tag, t.Component.Name)
	default:
		return f.Tag.String()
	}
}

func newFiber(tag Tag, props *Props, key string) *Fiber {
	return &Fiber{
		Tag:          tag,
		Key:          key,
		pendingProps: props,
	}
}

// createWorkInProgress returns current's twin primed with props, allocating
// the twin only the first time.
func createWorkInProgress(current *Fiber, props *Props) *Fiber {
	wip := current.alternate
	if wip == nil {
		wip = newFiber(current.Tag, props, current.Key)
		wip.Type = current.Type
		wip.stateNode = current.stateNode
		wip.alternate = current
		current.alternate = wip
	} else {
		wip.pendingProps = props
		wip.Type = current.Type
		wip.flags = NoFlags
		wip.subtreeFlags = NoFlags
		wip.deletions = nil
	}

	wip.Ref = current.Ref
	wip.updateQueue = current.updateQueue
	wip.child = current.child
	wip.sibling = current.sibling
	wip.index = current.index
	wip.memoizedProps = current.memoizedProps
	wip.memoizedState = current.memoizedState
	wip.effects = current.effects
	wip.lanes = current.lanes
	wip.childLanes = current.childLanes
	if d := current.dependencies; d != nil {
		wip.dependencies = &dependencies{lanes: d.lanes, contexts: d.contexts}
	} else {
		wip.dependencies = nil
	}
	return wip
}

func createFiberFromElement(el *Element) *Fiber {
	var f *Fiber
	switch t := el.Type.(type) {
	case Host:
		f = newFiber(HostComponent, propsOf(el), el.Key)
	case *Component:
		f = newFiber(FunctionComponent, propsOf(el), el.Key)
	case *Memo:
		f = newFiber(MemoComponent, propsOf(el), el.Key)
	case *Provider:
		f = newFiber(ContextProvider, propsOf(el), el.Key)
	default:
		switch t {
		case Fragment:
			f = newFiber(FragmentTag, propsOf(el), el.Key)
		case Suspense:
			f = newFiber(SuspenseComponent, propsOf(el), el.Key)
		default:
			panic(fmt.Sprintf("reconciler: unsupported element type %T", el.Type))
		}
	}
	f.Type = el.Type
	f.Ref = el.Ref
	return f
}

func createFiberFromText(content string) *Fiber {
	return newFiber(HostText, textProps(content), "")
}

func createFiberFromFragment(children List, key string) *Fiber {
	f := newFiber(FragmentTag, &Props{Children: children}, key)
	f.Type = Fragment
	return f
}

func createHostRootFiber(root *Root) *Fiber {
	f := newFiber(HostRoot, nil, "")
	f.stateNode = root
	f.updateQueue = &UpdateQueue{}
	return f
}

func isHostParent(f *Fiber) bool {
	return f.Tag == HostComponent || f.Tag == HostRoot
}

func isHostNode(f *Fiber) bool {
	return f.Tag == HostComponent || f.Tag == HostText
}
