package environment

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/riftbot/botscript/values"
)

func TestDefineShadowsOuter(t *testing.T) {
	global := NewGlobal()
	global.Define("x", &values.Integer{Value: 1})

	child := global.NewChild()
	child.Define("x", &values.Integer{Value: 2})

	v, ok := child.Get("x")
	assert.True(t, ok)
	assert.Equal(t, int64(2), v.(*values.Integer).Value)

	v, ok = global.Get("x")
	assert.True(t, ok)
	assert.Equal(t, int64(1), v.(*values.Integer).Value)
}

// P4: scope isolation — bindings made inside a child frame are not
// reachable from the parent once the child is discarded (there is nothing
// special to "pop"; simply not holding a reference to the child is enough
// since Define never reaches upward).
func TestScopeIsolation(t *testing.T) {
	global := NewGlobal()
	child := global.NewChild()
	child.Define("inner", &values.Integer{Value: 7})

	_, ok := global.Get("inner")
	assert.False(t, ok)
}

func TestAssignMutatesDefiningFrame(t *testing.T) {
	global := NewGlobal()
	global.Define("n", &values.Integer{Value: 1})
	child := global.NewChild()

	ok := child.Assign("n", &values.Integer{Value: 42})
	assert.True(t, ok)

	v, _ := global.Get("n")
	assert.Equal(t, int64(42), v.(*values.Integer).Value)
}

func TestAssignUndefinedFails(t *testing.T) {
	global := NewGlobal()
	ok := global.Assign("missing", &values.Integer{Value: 1})
	assert.False(t, ok)
}

func TestGetUndefinedFails(t *testing.T) {
	global := NewGlobal()
	_, ok := global.Get("missing")
	assert.False(t, ok)
}
