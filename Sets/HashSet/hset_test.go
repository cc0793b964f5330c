package HashSet

import (
	"sync"
	"testing"

	Go_Lockfree "github.com/g-m-twostay/go-lockfree"
	"github.com/g-m-twostay/go-lockfree/Sets"
	"github.com/stretchr/testify/require"
)

var _ Sets.Set[int] = (*HashSet[int])(nil)

func TestHashSet_All(t *testing.T) {
	S := New[int](Go_Lockfree.HashInt[int])
	require.Zero(t, S.Take())
	for i := 0; i < 10; i++ {
		if !S.Put(i) {
			t.Error("wrong put 1")
		}
		if S.Put(i) {
			t.Error("wrong put 2")
		}
	}
	for i := 0; i < 10; i++ {
		if !S.Has(i) {
			t.Error("wrong has 1")
		}
	}
	for i := 0; i < 5; i++ {
		if !S.Remove(i) {
			t.Error("wrong remove 1")
		}
		if S.Remove(i) {
			t.Error("wrong remove 2")
		}
	}
	for i := 0; i < 5; i++ {
		if S.Has(i) {
			t.Error("wrong has 2")
		}
	}
	require.EqualValues(t, 5, S.Size())
	require.True(t, S.Has(S.Take()))
	seen := map[int]bool{}
	S.Range(func(e int) bool {
		seen[e] = true
		return true
	})
	require.Equal(t, map[int]bool{5: true, 6: true, 7: true, 8: true, 9: true}, seen)
}

func TestHashSet_Concurrent(t *testing.T) {
	const blockNum, blockSize = 64, 64
	S := New[string](nil)
	wg := &sync.WaitGroup{}
	wg.Add(blockNum)
	for j := 0; j < blockNum; j++ {
		go func(l, h int) {
			defer wg.Done()
			for i := l; i < h; i++ {
				S.Put(string(rune('a'+i%26)) + string(rune(i)))
			}
			for i := l; i < h; i++ {
				if !S.Has(string(rune('a'+i%26)) + string(rune(i))) {
					t.Errorf("not put: %v\n", i)
				}
			}
			for i := l; i < h; i += 2 {
				S.Remove(string(rune('a'+i%26)) + string(rune(i)))
			}
		}(j*blockSize, (j+1)*blockSize)
	}
	wg.Wait()
	require.EqualValues(t, blockNum*blockSize/2, S.Size())
}
