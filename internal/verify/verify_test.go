package verify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTapSignalFiresAtExactlyThreshold(t *testing.T) {
	s := NewTapSignal(5)
	for i := 1; i < 5; i++ {
		assert.False(t, s.Observe(Event{Kind: EventTap}), "tap %d", i)
		assert.Equal(t, i, s.Count())
	}
	assert.True(t, s.Observe(Event{Kind: EventTap}))
	assert.Equal(t, 0, s.Count())

	// a second round needs five more
	for i := 1; i < 5; i++ {
		assert.False(t, s.Observe(Event{Kind: EventTap}))
	}
	assert.True(t, s.Observe(Event{Kind: EventTap}))
}

func TestTapSignalIgnoresVotes(t *testing.T) {
	s := NewTapSignal(1)
	assert.False(t, s.Observe(Event{Kind: EventVote, Source: "a", Confirmed: true}))
	assert.True(t, s.Observe(Event{Kind: EventTap}))
}

func TestTapSignalDefaultsAndReset(t *testing.T) {
	s := NewTapSignal(0)
	assert.Equal(t, DefaultTapThreshold, s.Threshold())
	s.Observe(Event{Kind: EventTap})
	s.Reset()
	assert.Equal(t, 0, s.Count())
}

func TestCrowdSignalDistinctSources(t *testing.T) {
	s := NewCrowdSignal(2)
	assert.False(t, s.Observe(Event{Kind: EventVote, Source: "u1", Confirmed: true}))
	assert.False(t, s.Observe(Event{Kind: EventVote, Source: "u1", Confirmed: true}))
	assert.Equal(t, 1, s.Count())

	// withdrawn vote
	assert.False(t, s.Observe(Event{Kind: EventVote, Source: "u1", Confirmed: false}))
	assert.Equal(t, 0, s.Count())

	assert.False(t, s.Observe(Event{Kind: EventVote, Source: "u1", Confirmed: true}))
	assert.False(t, s.Observe(Event{Kind: EventVote, Source: "", Confirmed: true}))
	assert.True(t, s.Observe(Event{Kind: EventVote, Source: "u2", Confirmed: true}))
	assert.Equal(t, 0, s.Count())
}

func TestCombine(t *testing.T) {
	sig := Combine(Taps(3), func() Signal { return NewCrowdSignal(1) })()
	assert.False(t, sig.Observe(Event{Kind: EventTap}))
	taps, ok := ProgressOf(sig, EventTap)
	require.True(t, ok)
	assert.Equal(t, Progress{Kind: EventTap, Count: 1, Threshold: 3}, taps)
	assert.True(t, sig.Observe(Event{Kind: EventVote, Source: "n", Confirmed: true}))
	// every member was reset
	assert.Equal(t, []Progress{
		{Kind: EventTap, Count: 0, Threshold: 3},
		{Kind: EventVote, Count: 0, Threshold: 1},
	}, sig.Progress())
}

func TestCombineKeepsCountsApart(t *testing.T) {
	sig := Combine(Taps(5), Crowd(3))()
	sig.Observe(Event{Kind: EventVote, Source: "a", Confirmed: true})
	sig.Observe(Event{Kind: EventVote, Source: "b", Confirmed: true})
	sig.Observe(Event{Kind: EventTap})

	taps, _ := ProgressOf(sig, EventTap)
	votes, _ := ProgressOf(sig, EventVote)
	assert.Equal(t, Progress{Kind: EventTap, Count: 1, Threshold: 5}, taps)
	assert.Equal(t, Progress{Kind: EventVote, Count: 2, Threshold: 3}, votes)

	_, ok := ProgressOf(Taps(5)(), EventVote)
	assert.False(t, ok)
}

func TestFactoryBuildsFreshSignals(t *testing.T) {
	f := Taps(5)
	a := f()
	a.Observe(Event{Kind: EventTap})
	b := f()
	assert.Equal(t, 1, a.Progress()[0].Count)
	assert.Equal(t, 0, b.Progress()[0].Count)
}
