// Package points implements the reputation ledger: cumulative point totals,
// the ranks they map to, and the one-time milestones crossed on the way.
package points

// Rank is a named tier unlocked at Threshold points.
type Rank struct {
	Threshold int    `json:"threshold"`
	Name      string `json:"name"`
	Title     string `json:"title"`
}

// Ranks is ordered ascending by threshold. The first entry has threshold 0.
var Ranks = []Rank{
	{Threshold: 0, Name: "Sahayak", Title: "Helper"},
	{Threshold: 50, Name: "Mavla", Title: "Soldier"},
	{Threshold: 200, Name: "Sardar", Title: "Commander"},
	{Threshold: 500, Name: "Sarsenapati", Title: "General"},
	{Threshold: 1000, Name: "Peshwa", Title: "Prime Minister"},
}

// Milestones is ordered ascending.
var Milestones = []int{50, 200, 500, 1000, 2000}

// Awards for user actions.
const (
	SubmissionAward = 50
	ReviewAward     = 10
)

// RankFor returns the highest rank whose threshold is at or below total.
func RankFor(total int) Rank {
	r := Ranks[0]
	for _, rank := range Ranks {
		if rank.Threshold <= total {
			r = rank
		}
	}
	return r
}

// Crossed returns the milestones m with previous < m <= total, ascending.
func Crossed(previous, total int) []int {
	var crossed []int
	for _, m := range Milestones {
		if previous < m && m <= total {
			crossed = append(crossed, m)
		}
	}
	return crossed
}

// Progress describes the distance from the last milestone to the next.
type Progress struct {
	NextMilestone int     `json:"next_milestone"`
	Percent       float64 `json:"percent"`
}

// ProgressFor computes progress toward the next milestone. At or above the
// highest milestone the next milestone is the highest one and percent is 100.
func ProgressFor(total int) Progress {
	top := Milestones[len(Milestones)-1]
	if total >= top {
		return Progress{NextMilestone: top, Percent: 100}
	}

	prev, next := 0, top
	for _, m := range Milestones {
		if m <= total {
			prev = m
			continue
		}
		next = m
		break
	}

	pct := float64(total-prev) / float64(next-prev) * 100
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return Progress{NextMilestone: next, Percent: pct}
}
