package exchange

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strongbridge/pkg/core"
	"strongbridge/pkg/exchange/stronghold"
)

func TestContainer_Default(t *testing.T) {
	c := DefaultContainer()

	assert.True(t, c.Exists("stronghold"))
	p, err := c.Protocol("stronghold")
	require.NoError(t, err)
	assert.Equal(t, "stronghold", p.Name())
}

func TestContainer_RegisterAndGet(t *testing.T) {
	c := NewContainer()
	c.Register("sandbox-copy", func() core.Protocol { return stronghold.NewProtocol() })

	_, err := c.Protocol("sandbox-copy")
	require.NoError(t, err)

	_, err = c.Protocol("notfound")
	require.Error(t, err)
	assert.True(t, core.IsConfigError(err))
}

func TestContainer_Names(t *testing.T) {
	c := NewContainer()
	factory := func() core.Protocol { return stronghold.NewProtocol() }
	c.Register("b", factory)
	c.Register("a", factory)

	assert.Equal(t, []string{"a", "b"}, c.Names())
}

func TestContainer_Unregister(t *testing.T) {
	c := DefaultContainer()
	c.Unregister("stronghold")
	assert.False(t, c.Exists("stronghold"))
	assert.Empty(t, c.Names())
}

func TestApplyOptions(t *testing.T) {
	start := time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	o := ApplyOptions(
		WithLimit(10),
		WithTimeRange(start, end),
		WithAccount("acc-2"),
		WithParams(core.Params{"a": 1}),
		WithParams(core.Params{"b": 2}),
	)

	assert.Equal(t, 10, o.Limit)
	assert.Equal(t, "acc-2", o.AccountID)
	assert.Equal(t, core.Params{"a": 1, "b": 2}, o.Params)
	assert.True(t, o.InRange(start.Add(time.Hour)))
	assert.False(t, o.InRange(start.Add(-time.Second)))
	assert.False(t, o.InRange(end.Add(time.Second)))
	assert.True(t, ApplyOptions().InRange(time.Time{}))
}
