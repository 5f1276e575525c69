package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tonetracker/internal/config"
)

func TestBuildRosterConfigExtendsAndOverrides(t *testing.T) {
	t.Parallel()

	reg := buildRoster([]config.MemberConfig{
		{
			Key:         "pill",
			DisplayName: "Huw Pill",
			Role:        "internal",
			Aliases:     []string{"huw pill", "pill", "the chief economist"},
		},
		{
			Key:         "newmember",
			DisplayName: "Jane Newmember",
			Role:        "external",
			Aliases:     []string{"jane newmember"},
		},
	})

	key, err := reg.Resolve("Remarks by the chief economist on the outlook")
	require.NoError(t, err)
	assert.Equal(t, "pill", key)

	key, err = reg.Resolve("Panel appearance by Jane Newmember")
	require.NoError(t, err)
	assert.Equal(t, "newmember", key)

	// Untouched defaults survive the merge.
	key, err = reg.Resolve("Speech by Swati Dhingra")
	require.NoError(t, err)
	assert.Equal(t, "dhingra", key)
}
