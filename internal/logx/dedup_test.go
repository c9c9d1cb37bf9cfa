package logx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedup_SeenOnceThenSuppressed(t *testing.T) {
	d := NewDedup(64)

	assert.False(t, d.Seen("a"))
	assert.True(t, d.Seen("a"))
	assert.True(t, d.Seen("a"))
}

func TestDedup_DistinctKeysIndependent(t *testing.T) {
	d := NewDedup(64)

	assert.False(t, d.Seen("a"))
	assert.False(t, d.Seen("b"))
}

func TestListenerRangeKey_Format(t *testing.T) {
	assert.Equal(t, "0xdeadbeef:2-5", ListenerRangeKey("0xdeadbeef", 2, 5))
}
