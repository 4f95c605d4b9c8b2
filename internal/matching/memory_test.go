package matching

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatternMemoryAppendKeepsNewestFirst(t *testing.T) {
	memory := NewPatternMemory(3)
	for i := 1; i <= 4; i++ {
		memory.Append(Pattern{AssetTag: fmt.Sprint(i)})
	}

	snapshot := memory.Snapshot()
	require.Len(t, snapshot, 3)
	assert.Equal(t, "4", snapshot[0].AssetTag)
	assert.Equal(t, "3", snapshot[1].AssetTag)
	assert.Equal(t, "2", snapshot[2].AssetTag)
}

func TestPatternMemoryDefaultCapacity(t *testing.T) {
	memory := NewPatternMemory(0)
	require.Equal(t, DefaultPatternCapacity, memory.Capacity())

	for i := 0; i < DefaultPatternCapacity+1; i++ {
		memory.Append(Pattern{AssetTag: fmt.Sprint(i)})
	}
	snapshot := memory.Snapshot()
	require.Len(t, snapshot, DefaultPatternCapacity)
	assert.Equal(t, fmt.Sprint(DefaultPatternCapacity), snapshot[0].AssetTag)
	assert.Equal(t, "1", snapshot[len(snapshot)-1].AssetTag)
}

func TestPatternMemorySeedTruncatesToCapacity(t *testing.T) {
	seed := []Pattern{{AssetTag: "c"}, {AssetTag: "b"}, {AssetTag: "a"}}
	memory := NewPatternMemory(2, seed...)

	snapshot := memory.Snapshot()
	require.Len(t, snapshot, 2)
	assert.Equal(t, "c", snapshot[0].AssetTag)
	assert.Equal(t, "b", snapshot[1].AssetTag)

	seed[0].AssetTag = "mutated"
	assert.Equal(t, "c", memory.Snapshot()[0].AssetTag)
}

func TestPatternMemorySnapshotIsACopy(t *testing.T) {
	memory := NewPatternMemory(5, Pattern{AssetTag: "1"})
	snapshot := memory.Snapshot()
	snapshot[0].AssetTag = "changed"

	assert.Equal(t, "1", memory.Snapshot()[0].AssetTag)
}

func TestPatternMemoryNilSafe(t *testing.T) {
	var memory *PatternMemory
	assert.Nil(t, memory.Snapshot())
	assert.Zero(t, memory.Len())
	assert.Zero(t, memory.Capacity())
}

func TestPatternMemoryConcurrentAppend(t *testing.T) {
	memory := NewPatternMemory(50)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				memory.Append(Pattern{AssetTag: fmt.Sprintf("%d-%d", worker, i)})
				_ = memory.Snapshot()
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, 50, memory.Len())
}
