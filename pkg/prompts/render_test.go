package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompose(t *testing.T) {
	assert.Equal(t, "base", Compose("base"))
	assert.Equal(t, "base\n\nextra", Compose("base", "extra"))
	assert.Equal(t, "base\n\na\n\nb", Compose("base", "a", "", "  ", "b"))
}

func TestFactsBlock(t *testing.T) {
	assert.Empty(t, FactsBlock(nil))

	block := FactsBlock([]string{"Water boils at 100C.", "Ice floats."})
	assert.Contains(t, block, "Relevant reference material:")
	assert.Contains(t, block, "- Water boils at 100C.")
	assert.Contains(t, block, "- Ice floats.")
}

func TestDetailBlock(t *testing.T) {
	assert.Contains(t, DetailBlock("simple"), "short and simple")
	assert.Contains(t, DetailBlock("detailed"), "thorough")
	assert.Empty(t, DetailBlock("medium"))
	assert.Empty(t, DetailBlock(""))
	assert.Empty(t, DetailBlock("bogus"))
}

func TestDifficultyBlock(t *testing.T) {
	assert.Contains(t, DifficultyBlock("easy"), "easy")
	assert.Contains(t, DifficultyBlock("medium"), "medium")
	assert.Contains(t, DifficultyBlock("hard"), "hard")
	assert.Empty(t, DifficultyBlock(""))
}
