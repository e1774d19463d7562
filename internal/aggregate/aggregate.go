// Package aggregate derives read-only views from a session snapshot:
// the vote list, the numeric average, and the distribution. Everything
// here is a pure function of its input.
package aggregate

import (
	"sort"
	"strconv"

	"github.com/agilevibe/poker/internal/models"
	"github.com/agilevibe/poker/internal/session"
)

// NoAverage is the rendered average when no cast vote parses as a
// number.
const NoAverage = "0"

// eligible reports whether a participant's vote counts. Observers never
// vote; when a scope gate is active, only members of that team (and
// admins, who carry no team) are counted.
func eligible(p models.Participant, activeScope string) bool {
	if !p.Role.Can().Vote {
		return false
	}
	if activeScope != "" && p.Role != models.RoleAdmin && p.Team != activeScope {
		return false
	}
	return true
}

// VoteList returns all cast votes among eligible participants, in
// snapshot order.
func VoteList(snap session.Snapshot) []string {
	votes := make([]string, 0, len(snap.Participants))
	for _, p := range snap.Participants {
		if !eligible(p, snap.ActiveScope) {
			continue
		}
		if p.CurrentVote != nil {
			votes = append(votes, *p.CurrentVote)
		}
	}
	return votes
}

// Average formats the arithmetic mean of the numeric votes to one
// decimal place, or NoAverage when none parse.
func Average(snap session.Snapshot) string {
	var sum float64
	var count int
	for _, v := range VoteList(snap) {
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			continue
		}
		sum += n
		count++
	}
	if count == 0 {
		return NoAverage
	}
	return strconv.FormatFloat(sum/float64(count), 'f', 1, 64)
}

// Bucket is one histogram entry.
type Bucket struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Histogram maps each distinct vote value to its occurrence count,
// ordered by the deck comparator.
func Histogram(snap session.Snapshot) []Bucket {
	counts := make(map[string]int)
	for _, v := range VoteList(snap) {
		counts[v]++
	}
	buckets := make([]Bucket, 0, len(counts))
	for value, count := range counts {
		buckets = append(buckets, Bucket{Value: value, Count: count})
	}
	sort.SliceStable(buckets, func(i, j int) bool {
		return models.CompareCards(buckets[i].Value, buckets[j].Value) < 0
	})
	return buckets
}

// MyVote returns the local participant's pending vote, independent of
// the revealed flag: a participant always sees their own card.
func MyVote(snap session.Snapshot) *string {
	if snap.SelfID == "" {
		return nil
	}
	for _, p := range snap.Participants {
		if p.ID == snap.SelfID {
			return p.CurrentVote
		}
	}
	return nil
}
