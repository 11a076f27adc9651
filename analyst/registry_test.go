package analyst

import (
	"context"
	"testing"

	"github.com/GolferGeek/predictor-pipeline/repo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSynthesizeArbitratorContextMergesBothForks(t *testing.T) {
	user := repo.AnalystContextVersion{
		Perspective:      "stay conservative",
		TierInstructions: map[string]string{"gold": "be terse"},
		DefaultWeight:    0.4,
		VersionNumber:    2,
	}
	ai := repo.AnalystContextVersion{
		Perspective:      "watch momentum",
		TierInstructions: map[string]string{"gold": "cite sources"},
		DefaultWeight:    0.7,
		VersionNumber:    5,
		AgentJournal:     "learned to discount rumor-only signals",
	}

	merged, ok := SynthesizeArbitratorContext("analyst-1", user, true, ai, true)
	require.True(t, ok)

	assert.Contains(t, merged.Perspective, "## User-Maintained Context\nstay conservative")
	assert.Contains(t, merged.Perspective, "## AI-Maintained Context\nwatch momentum")
	assert.Contains(t, merged.TierInstructions["gold"], "## User Instructions\nbe terse")
	assert.Contains(t, merged.TierInstructions["gold"], "## AI Instructions\ncite sources")
	assert.Equal(t, 0.7, merged.DefaultWeight)
	assert.Equal(t, 5, merged.VersionNumber)
	assert.Equal(t, "learned to discount rumor-only signals", merged.AgentJournal)
	assert.Equal(t, "system", merged.ChangedBy)
	assert.Equal(t, repo.ForkArbitrator, merged.ForkType)
}

func TestSynthesizeArbitratorContextNoSourcesYieldsNotOK(t *testing.T) {
	_, ok := SynthesizeArbitratorContext("analyst-1", repo.AnalystContextVersion{}, false, repo.AnalystContextVersion{}, false)
	assert.False(t, ok)
}

func TestGetOrSynthesizeArbitratorVersionPersistsAndIsStable(t *testing.T) {
	repos := repo.NewInMemoryRepos()
	reg := NewRegistry(repos.AnalystRepo)
	ctx := context.Background()

	_, err := reg.CreateContextVersion(ctx, repo.AnalystContextVersion{AnalystID: "a1", ForkType: repo.ForkUser, Perspective: "u", VersionNumber: 1, DefaultWeight: 0.3})
	require.NoError(t, err)
	_, err = reg.CreateContextVersion(ctx, repo.AnalystContextVersion{AnalystID: "a1", ForkType: repo.ForkAI, Perspective: "ai", VersionNumber: 1, DefaultWeight: 0.5})
	require.NoError(t, err)

	first, ok, err := reg.GetOrSynthesizeArbitratorVersion(ctx, "a1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 0.5, first.DefaultWeight)

	// Calling again with unchanged user/ai versions returns the same
	// persisted version rather than creating a new one.
	second, ok, err := reg.GetOrSynthesizeArbitratorVersion(ctx, "a1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, first.ID, second.ID)
}
