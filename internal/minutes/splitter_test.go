package minutes

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tonetracker/internal/domain"
)

func testSplitter(t *testing.T) *Splitter {
	t.Helper()
	return NewSplitter(domain.NewMemberRegistry(domain.DefaultMembers()), nil)
}

const breakdown = `The Committee voted by a majority of 5-4 to maintain Bank Rate.
Five members (Andrew Bailey, Sarah Breeden, Clare Lombardelli, Huw Pill and Megan Greene) voted in favour of the proposition.
Four members (Swati Dhingra, Dave Ramsden, Alan Taylor and Catherine L. Mann) voted against, preferring to reduce Bank Rate by 0.25 percentage points.`

func rationaleBlock(name, stance string) string {
	return fmt.Sprintf("\n%s: %s The balance of risks around inflation persistence warranted this vote at the current juncture.\n", name, stance)
}

func TestSplitNineMembersWithVotes(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	b.WriteString("Monetary Policy Summary, February 2026.\n")
	b.WriteString(breakdown)
	b.WriteString("\nIndividual policy explanations follow.\n")
	for _, n := range []string{
		"Andrew Bailey", "Sarah Breeden", "Clare Lombardelli", "Huw Pill", "Megan Greene",
		"Swati Dhingra", "Dave Ramsden", "Alan Taylor", "Catherine L. Mann",
	} {
		b.WriteString(rationaleBlock(n, "My policy decision reflected the data."))
	}

	got := testSplitter(t).Split(b.String())
	require.Len(t, got, 9)

	votes := map[domain.Vote]int{}
	for _, r := range got {
		votes[r.Vote]++
		assert.NotEmpty(t, r.MemberKey)
		assert.GreaterOrEqual(t, len(r.Text), 30)
	}
	assert.Equal(t, 5, votes[domain.VoteHold])
	assert.Equal(t, 4, votes[domain.VoteCut])
}

func TestSplitUnparsableBreakdownLeavesVotesEmpty(t *testing.T) {
	t.Parallel()

	text := "The Committee discussed the outlook.\n" +
		rationaleBlock("Huw Pill", "I do not see a need to adjust Bank Rate.") +
		rationaleBlock("Swati Dhingra", "Demand weakness argues for a lower rate.")

	got := testSplitter(t).Split(text)
	require.Len(t, got, 2)
	for _, r := range got {
		assert.Equal(t, domain.Vote(""), r.Vote)
	}
	assert.Equal(t, "pill", got[0].MemberKey)
	assert.Equal(t, "dhingra", got[1].MemberKey)
}

func TestSplitNoPassages(t *testing.T) {
	t.Parallel()

	got := testSplitter(t).Split("The Committee noted that CPI inflation had fallen to 3.4 percent.")
	assert.Empty(t, got)
}

func TestVoteBreakdownSurnamesOnly(t *testing.T) {
	t.Parallel()

	hold, cut, absent := VoteBreakdown(
		"Five members (Bailey, Breeden, Lombardelli, Pill and Greene) voted in favour. " +
			"Four members (Dhingra, Ramsden, Taylor and Mann) voted against.")
	assert.Len(t, hold, 5)
	assert.Len(t, cut, 4)
	assert.Empty(t, absent)

	assert.Equal(t, domain.VoteHold, voteFor("Huw Pill", hold, cut, absent))
	assert.Equal(t, domain.VoteCut, voteFor("Catherine L. Mann", hold, cut, absent))
}

func TestVoteBreakdownExplicitAbsence(t *testing.T) {
	t.Parallel()

	text := "Five members (Bailey, Breeden, Lombardelli, Pill and Greene) voted in favour. " +
		"Three members (Dhingra, Ramsden and Taylor) voted against. " +
		"One member (Catherine L. Mann) was absent from the meeting."
	hold, cut, absent := VoteBreakdown(text)
	assert.Len(t, hold, 5)
	assert.Len(t, cut, 3)
	require.Len(t, absent, 1)
	assert.Equal(t, domain.VoteAbsent, voteFor("Catherine L. Mann", hold, cut, absent))

	// A member missing from every group stays unset, never inferred absent.
	assert.Equal(t, domain.Vote(""), voteFor("Jonathan Haskel", hold, cut, absent))
}
