package collections_test

import (
	"strings"
	"testing"

	"github.com/alkime/saywhat/pkg/collections"

	"github.com/stretchr/testify/require"
)

func TestApply(t *testing.T) {
	codes := []string{"es", "fr", "ja"}
	upper := collections.Apply(codes, strings.ToUpper)
	require.Equal(t, []string{"ES", "FR", "JA"}, upper)

	lengths := collections.Apply([]string{"a", "bb", "ccc"}, func(s string) int {
		return len(s)
	})
	require.Equal(t, []int{1, 2, 3}, lengths)
}

func TestFilter(t *testing.T) {
	evens := collections.Filter([]int{1, 2, 3, 4, 5, 6}, func(i int) bool {
		return i%2 == 0
	})
	require.Equal(t, []int{2, 4, 6}, evens)

	require.Empty(t, collections.Filter([]int{1, 3}, func(i int) bool { return i > 10 }))
}

func TestFind(t *testing.T) {
	type lang struct {
		Code string
		Name string
	}

	langs := []lang{{"es", "Spanish"}, {"fr", "French"}}

	got, ok := collections.Find(langs, func(l lang) bool { return l.Code == "fr" })
	require.True(t, ok)
	require.Equal(t, "French", got.Name)

	_, ok = collections.Find(langs, func(l lang) bool { return l.Code == "xx" })
	require.False(t, ok)
}

func TestConcat(t *testing.T) {
	a := []byte{1, 2}
	b := []byte{3}
	joined := collections.Concat(a, nil, b)
	require.Equal(t, []byte{1, 2, 3}, joined)

	joined[0] = 9
	require.Equal(t, byte(1), a[0], "result must not alias inputs")
}
