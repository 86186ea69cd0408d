package strategy

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryReloadKeepsPreviousOnFailure(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "esm.json", esmJSON)

	reg := NewRegistry(dir, nil)
	assert.Equal(t, 0, reg.Snapshot().Len())

	first, err := reg.Reload()
	require.NoError(t, err)
	assert.Equal(t, []string{"ESM"}, first.Codes())

	def, ok := reg.Get("esm")
	require.True(t, ok)
	assert.Equal(t, "ESM", def.Code)

	writeFile(t, dir, "zz_bad.json", `{"strategy_code": "ZZ", "scan": {"type": "ma_cross"}}`)
	_, err = reg.Reload()
	require.Error(t, err)
	assert.Same(t, first, reg.Snapshot())
	_, ok = reg.Get("ZZ")
	assert.False(t, ok)
}

func TestRegistrySnapshotIsStableAcrossSwap(t *testing.T) {
	reg := NewRegistry("", nil)
	esm := &Definition{Code: "ESM", Enabled: true}
	old := reg.Swap(map[string]*Definition{"ESM": esm})

	pf := &Definition{Code: "PF", Enabled: false}
	next := reg.Swap(map[string]*Definition{"PF": pf})

	_, ok := old.Get("PF")
	assert.False(t, ok, "held snapshot must not observe later swaps")
	_, ok = old.Get("ESM")
	assert.True(t, ok)

	assert.Greater(t, next.Version, old.Version)
	assert.Empty(t, next.Enabled())
	assert.Equal(t, []*Definition{pf}, next.All())
}

func TestRegistryConcurrentReadsDuringSwap(t *testing.T) {
	reg := NewRegistry("", nil)
	reg.Swap(map[string]*Definition{"ESM": {Code: "ESM", Enabled: true}})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				if i%2 == 0 {
					reg.Swap(map[string]*Definition{"ESM": {Code: "ESM", Enabled: j%2 == 0}})
					continue
				}
				snap := reg.Snapshot()
				_, ok := snap.Get("ESM")
				assert.True(t, ok)
			}
		}(i)
	}
	wg.Wait()
}
