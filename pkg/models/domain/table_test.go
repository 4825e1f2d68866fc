package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWarningLog(t *testing.T) {
	ws := []Warning{
		{MapUnitID: "10", ComponentID: "101", Reason: "b"},
		{MapUnitID: "9", ComponentID: "91", Reason: "a"},
		{MapUnitID: "10", ComponentID: "100", Reason: "c"},
		{MapUnitID: "2", Reason: "d"},
	}

	t.Run("keeps the lowest warnings whatever the arrival order", func(t *testing.T) {
		forward := NewWarningLog(2)
		for _, w := range ws {
			forward.Add(w)
		}
		backward := NewWarningLog(2)
		for i := len(ws) - 1; i >= 0; i-- {
			backward.Add(ws[i])
		}

		assert.Equal(t, 4, forward.Count)
		assert.Equal(t, []Warning{ws[3], ws[1]}, forward.Items)
		assert.Equal(t, forward, backward)
	})

	t.Run("merge is independent of shard order", func(t *testing.T) {
		a, b := NewWarningLog(3), NewWarningLog(3)
		a.Add(ws[0])
		a.Add(ws[1])
		b.Add(ws[2])
		b.Add(ws[3])

		ab := NewWarningLog(3)
		ab.Merge(a)
		ab.Merge(b)
		ba := NewWarningLog(3)
		ba.Merge(b)
		ba.Merge(a)
		ba.Merge(nil)

		assert.Equal(t, 4, ab.Count)
		assert.Equal(t, []Warning{ws[3], ws[1], ws[2]}, ab.Items)
		assert.Equal(t, ab, ba)
	})
}
