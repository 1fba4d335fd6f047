package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestState_Transitions(t *testing.T) {
	var path []string
	for s := StateIdle; !s.Terminal(); s = s.next() {
		path = append(path, s.String())
	}
	assert.Equal(t, []string{"Idle", "Normalizing", "Embedding", "Reducing", "Clustering", "Labeling"}, path)

	assert.Equal(t, StateDone, StateDone.next())
	assert.Equal(t, StateFailed, StateFailed.next())
	assert.Equal(t, "Unknown", State(99).String())
}

func TestState_Stage(t *testing.T) {
	assert.Equal(t, "embedding", StateEmbedding.Stage())
	assert.Equal(t, "labeling", StateLabeling.Stage())
	assert.Empty(t, StateIdle.Stage())
	assert.Empty(t, StateDone.Stage())
}
