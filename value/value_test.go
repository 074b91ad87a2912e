package value_test

import (
	"testing"

	"github.com/delaneyj/fiberparty/value"
	"github.com/stretchr/testify/assert"
)

func TestEqual(t *testing.T) {
	fn := &struct{ n int }{1}
	a := value.Map{
		"class": value.String("row"),
		"span":  value.Int(2),
		"tags":  value.List{value.String("a"), value.Bool(true)},
		"click": value.Ref{Target: fn},
	}
	b := value.Map{
		"class": value.String("row"),
		"span":  value.Int(2),
		"tags":  value.List{value.String("a"), value.Bool(true)},
		"click": value.Ref{Target: fn},
	}
	assert.True(t, value.Equal(a, b))

	b["click"] = value.Ref{Target: &struct{ n int }{1}}
	assert.False(t, value.Equal(a, b))

	assert.False(t, value.Equal(value.Int(1), value.Float(1)))
	assert.True(t, value.Equal(nil, nil))
	assert.False(t, value.Equal(value.Null{}, nil))
}

func TestIdenticalUncomparable(t *testing.T) {
	s := []int{1}
	assert.False(t, value.Identical(s, s))
	assert.True(t, value.Identical("x", "x"))
}

func TestOfAndText(t *testing.T) {
	v := value.Of(map[string]any{"n": 3, "ok": true, "items": []any{"a", 1.5}})
	m, ok := v.(value.Map)
	assert.True(t, ok)
	assert.Equal(t, []string{"items", "n", "ok"}, m.SortedKeys())
	assert.Equal(t, "3", value.Text(m["n"]))
	assert.Equal(t, "true", value.Text(m["ok"]))
	assert.Equal(t, "a 1.5", value.Text(m["items"]))
	assert.Equal(t, "", value.Text(value.Null{}))
}
