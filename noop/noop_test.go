package noop_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/delaneyj/fiberparty/noop"
	"github.com/delaneyj/fiberparty/reconciler"
	"github.com/delaneyj/fiberparty/value"
	"github.com/google/go-cmp/cmp"
	"github.com/sebdah/goldie/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type microtasks struct {
	queue []func()
}

func (m *microtasks) QueueMicrotask(fn func()) {
	m.queue = append(m.queue, fn)
}

func newHost() (*noop.Host, *microtasks) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	m := &microtasks{}
	return noop.New(m, noop.WithLogger(log)), m
}

func buildPage(h *noop.Host) *noop.Container {
	c := h.NewContainer()
	ul := h.CreateInstance("ul", &reconciler.Props{Attrs: value.Map{
		"data-n": value.Int(2),
		"class":  value.String("items"),
	}})
	li1 := h.CreateInstance("li", nil)
	h.AppendInitialChild(li1, h.CreateTextInstance("fish & chips"))
	li2 := h.CreateInstance("li", nil)
	h.AppendInitialChild(li2, h.CreateTextInstance("<tea>"))
	h.AppendInitialChild(ul, li1)
	h.AppendInitialChild(ul, li2)
	h.AppendChildToContainer(ul, c)
	return c
}

func TestHTML(t *testing.T) {
	h, _ := newHost()
	c := buildPage(h)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "page", []byte(noop.HTML(c)))
}

func TestSnapshot(t *testing.T) {
	h, _ := newHost()
	c := buildPage(h)

	want := []noop.Node{{
		Type:  "ul",
		Attrs: map[string]string{"class": "items", "data-n": "2"},
		Children: []noop.Node{
			{Type: "li", Children: []noop.Node{{Text: "fish & chips"}}},
			{Type: "li", Children: []noop.Node{{Text: "<tea>"}}},
		},
	}}
	if diff := cmp.Diff(want, c.Snapshot()); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestInsertAndRemove(t *testing.T) {
	h, _ := newHost()
	c := h.NewContainer()
	a, b, x := h.CreateTextInstance("a"), h.CreateTextInstance("b"), h.CreateTextInstance("x")
	h.AppendChildToContainer(a, c)
	h.AppendChildToContainer(b, c)

	h.InsertChildToContainer(x, c, b)
	assert.Equal(t, "axb", noop.HTML(c))

	// moving a child that is already in place
	h.InsertChildToContainer(b, c, a)
	assert.Equal(t, "bax", noop.HTML(c))

	h.RemoveChild(a, c)
	assert.Equal(t, "bx", noop.HTML(c))
	assert.Nil(t, a.(*noop.Instance).Parent())
}

func TestOwnershipViolationsPanic(t *testing.T) {
	h, _ := newHost()
	c1, c2 := h.NewContainer(), h.NewContainer()
	a := h.CreateTextInstance("a")
	stray := h.CreateTextInstance("stray")
	h.AppendChildToContainer(a, c1)

	assert.Panics(t, func() { h.AppendChildToContainer(a, c2) }, "already owned")
	assert.Panics(t, func() { h.RemoveChild(stray, c1) }, "not a child")
	assert.Panics(t, func() { h.InsertChildToContainer(stray, c1, h.CreateTextInstance("nowhere")) }, "missing sibling")
	assert.Panics(t, func() { h.AppendInitialChild(a, stray) }, "text has no children")
	assert.Panics(t, func() { h.CommitTextUpdate(h.CreateInstance("div", nil), "x") })
}

func TestScheduleMicrotaskDelegates(t *testing.T) {
	h, m := newHost()
	ran := false
	h.ScheduleMicrotask(func() { ran = true })
	require.Len(t, m.queue, 1)
	m.queue[0]()
	assert.True(t, ran)
}

func TestOpsJournal(t *testing.T) {
	h, _ := newHost()
	c := h.NewContainer()
	txt := h.CreateTextInstance("hi")
	h.AppendChildToContainer(txt, c)
	h.CommitTextUpdate(txt, "bye")

	ops := h.Ops()
	require.Len(t, ops, 3)
	assert.Equal(t, `create #text1("hi")`, ops[0])
	assert.Equal(t, `text #text1("bye")`, ops[2])

	h.ResetOps()
	assert.Empty(t, h.Ops())
}

func TestOpsAreLoggedAtDebug(t *testing.T) {
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)
	log.SetLevel(logrus.DebugLevel)
	h := noop.New(&microtasks{}, noop.WithLogger(log))

	h.AppendChildToContainer(h.CreateTextInstance("hi"), h.NewContainer())

	assert.Contains(t, buf.String(), "append #text1")
	assert.Contains(t, buf.String(), "component=noop")
}
