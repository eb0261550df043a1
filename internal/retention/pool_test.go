package retention

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForEachCategory_Sequential(t *testing.T) {
	categories := []string{"a", "b", "c"}

	results := forEachCategory(context.Background(), categories, 0,
		func(_ context.Context, category string) (string, error) {
			return category + "!", nil
		})

	require.Len(t, results, 3)
	for _, category := range categories {
		assert.NoError(t, results[category].err)
		assert.Equal(t, category+"!", results[category].value)
	}
}

func TestForEachCategory_Concurrent(t *testing.T) {
	categories := make([]string, 50)
	for i := range categories {
		categories[i] = fmt.Sprintf("cat_%02d", i)
	}

	var running, peak int64
	results := forEachCategory(context.Background(), categories, 4,
		func(_ context.Context, category string) (string, error) {
			n := atomic.AddInt64(&running, 1)
			for {
				old := atomic.LoadInt64(&peak)
				if n <= old || atomic.CompareAndSwapInt64(&peak, old, n) {
					break
				}
			}
			defer atomic.AddInt64(&running, -1)
			return category, nil
		})

	require.Len(t, results, 50)
	assert.LessOrEqual(t, atomic.LoadInt64(&peak), int64(4))
}

func TestForEachCategory_ErrorDoesNotCancelSiblings(t *testing.T) {
	categories := []string{"ok_1", "broken", "ok_2"}
	boom := errors.New("boom")

	results := forEachCategory(context.Background(), categories, 2,
		func(_ context.Context, category string) (int, error) {
			if category == "broken" {
				return 0, boom
			}
			return 1, nil
		})

	require.Len(t, results, 3)
	assert.ErrorIs(t, results["broken"].err, boom)
	assert.Equal(t, 1, results["ok_1"].value)
	assert.Equal(t, 1, results["ok_2"].value)
}
