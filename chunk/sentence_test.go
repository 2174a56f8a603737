package chunk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextSentenceEnd(t *testing.T) {
	t.Run("simple period", func(t *testing.T) {
		text := "First sentence. Second sentence."
		pos := nextSentenceEnd(text, 0, len(text), false)
		assert.Equal(t, len("First sentence."), pos)
	})

	t.Run("question and exclamation", func(t *testing.T) {
		text := "Really? Yes!"
		assert.Equal(t, len("Really?"), nextSentenceEnd(text, 0, len(text), false))
		assert.Equal(t, len("Really? Yes!"), nextSentenceEnd(text, 8, len(text), false))
	})

	t.Run("abbreviation is not a boundary", func(t *testing.T) {
		text := "Dr. Smith arrived late. He apologized."
		pos := nextSentenceEnd(text, 0, len(text), false)
		assert.Equal(t, len("Dr. Smith arrived late."), pos)
	})

	t.Run("decimal dot is not a boundary", func(t *testing.T) {
		text := "Pi is 3.14 roughly. More follows."
		pos := nextSentenceEnd(text, 0, len(text), false)
		assert.Equal(t, len("Pi is 3.14 roughly."), pos)
	})

	t.Run("no terminator", func(t *testing.T) {
		text := "no end in sight"
		assert.Equal(t, -1, nextSentenceEnd(text, 0, len(text), false))
	})

	t.Run("wide terminator requires multilingual", func(t *testing.T) {
		text := "これは文です。次の文。"
		assert.Equal(t, -1, nextSentenceEnd(text, 0, len(text), false))

		pos := nextSentenceEnd(text, 0, len(text), true)
		assert.Equal(t, len("これは文です。"), pos)
	})
}

func TestPrevSentenceStart(t *testing.T) {
	t.Run("finds start after terminator", func(t *testing.T) {
		text := "First sentence. Second sentence"
		start := prevSentenceStart(text, len(text), 0, false)
		assert.Equal(t, len("First sentence. "), start)
	})

	t.Run("skips abbreviation", func(t *testing.T) {
		text := "He met Dr. Smith today"
		assert.Equal(t, -1, prevSentenceStart(text, len(text), 0, false))
	})

	t.Run("respects minimum bound", func(t *testing.T) {
		text := "One. Two. Three."
		// Scanning back only to position 10 must not find the boundary at 4.
		start := prevSentenceStart(text, len(text)-1, 10, false)
		assert.Equal(t, -1, start)
	})
}
