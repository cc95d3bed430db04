package reconcile

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
)

// Decision is the outcome of matching one done line.
type Decision string

const (
	AutoLink    Decision = "auto-link"
	NeedsReview Decision = "needs-review"
	NoMatch     Decision = "no-match"
)

// MatchType records which rule produced a match.
type MatchType string

const (
	MatchExactID         MatchType = "exact-id-or-link"
	MatchNormalizedTitle MatchType = "normalized-title"
	MatchFuzzy           MatchType = "fuzzy"
	MatchNone            MatchType = "none"
)

var ErrInvalidThresholds = errors.New("reconcile: invalid thresholds")

// Thresholds band fuzzy scores into decisions.
type Thresholds struct {
	Auto   float64 `json:"auto" yaml:"auto"`
	Review float64 `json:"review" yaml:"review"`
}

// DefaultThresholds are the EOD sync bands.
var DefaultThresholds = Thresholds{Auto: 0.80, Review: 0.60}

func (t Thresholds) Validate() error {
	if t.Auto < 0 || t.Auto > 1 || t.Review < 0 || t.Review > 1 {
		return fmt.Errorf("%w: thresholds must be within [0, 1]", ErrInvalidThresholds)
	}
	if t.Review > t.Auto {
		return fmt.Errorf("%w: review threshold %.2f exceeds auto threshold %.2f", ErrInvalidThresholds, t.Review, t.Auto)
	}
	return nil
}

func (t Thresholds) decide(score float64) Decision {
	switch {
	case score >= t.Auto:
		return AutoLink
	case score >= t.Review:
		return NeedsReview
	default:
		return NoMatch
	}
}

// Candidate is an open task that a done line may link to.
type Candidate struct {
	// ID is the canonical identifier; ties are broken by the smaller ID.
	ID    string
	Title string
	Body  string
	Line  int
}

// Result is the decision for one done line.
type Result struct {
	Line      string
	Decision  Decision
	MatchType MatchType
	Score     float64
	Match     *Candidate
}

var (
	idFieldRe = regexp.MustCompile(`(?i)(?:^|[\s\[])(?:task_)?id::\s*([^\s\]]+)`)
	urlRe     = regexp.MustCompile(`https?://[^\s)>\]]+`)
	issuePath = regexp.MustCompile(`/(?:issues|pull|pulls|merge_requests)/(\d+)`)
	issueRef  = regexp.MustCompile(`(?:^|[\s(])#(\d+)\b`)
)

// Identifiers extracts explicit ids, links and issue numbers from text.
func Identifiers(text string) []string {
	seen := map[string]bool{}
	var out []string
	add := func(s string) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, m := range idFieldRe.FindAllStringSubmatch(text, -1) {
		add("id:" + strings.ToLower(m[1]))
	}
	for _, u := range urlRe.FindAllString(text, -1) {
		u = strings.TrimRight(u, ".,;:!?")
		add("url:" + strings.ToLower(strings.TrimRight(u, "/")))
		if m := issuePath.FindStringSubmatch(u); m != nil {
			add("issue:" + m[1])
		}
	}
	for _, m := range issueRef.FindAllStringSubmatch(text, -1) {
		add("issue:" + m[1])
	}
	return out
}

func sharesIdentifier(a []string, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

type prepared struct {
	cand     *Candidate
	ids      []string
	normBody string
	normText string
}

// Reconcile matches each done line against the open candidates in order.
// A candidate consumed by an auto-link is unavailable to later lines, so the
// assignment is greedy and depends on the order of done.
func Reconcile(done []string, candidates []Candidate, th Thresholds) []Result {
	pool := make([]prepared, 0, len(candidates))
	for i := range candidates {
		c := &candidates[i]
		pool = append(pool, prepared{
			cand:     c,
			ids:      Identifiers(c.Body + " " + c.Title),
			normBody: Normalize(c.Body),
			normText: Normalize(c.Title),
		})
	}
	sort.SliceStable(pool, func(i, j int) bool { return pool[i].cand.ID < pool[j].cand.ID })

	consumed := map[*Candidate]bool{}
	results := make([]Result, 0, len(done))
	for _, line := range done {
		r := matchOne(line, pool, consumed, th)
		if r.Decision == AutoLink && r.Match != nil {
			consumed[r.Match] = true
		}
		results = append(results, r)
	}
	return results
}

func matchOne(line string, pool []prepared, consumed map[*Candidate]bool, th Thresholds) Result {
	res := Result{Line: line, Decision: NoMatch, MatchType: MatchNone}

	if ids := Identifiers(line); len(ids) > 0 {
		for _, p := range pool {
			if !consumed[p.cand] && sharesIdentifier(ids, p.ids) {
				res.Decision, res.MatchType, res.Score, res.Match = AutoLink, MatchExactID, 1, p.cand
				return res
			}
		}
	}

	norm := Normalize(line)
	if norm == "" {
		return res
	}
	for _, p := range pool {
		if !consumed[p.cand] && (norm == p.normText || norm == p.normBody) {
			res.Decision, res.MatchType, res.Score, res.Match = AutoLink, MatchNormalizedTitle, 1, p.cand
			return res
		}
	}

	var best *Candidate
	bestScore := 0.0
	for _, p := range pool {
		if consumed[p.cand] {
			continue
		}
		score := 0.0
		if p.normText != "" {
			score = ratio(norm, p.normText)
		}
		if p.normBody != "" {
			score = math.Max(score, ratio(norm, p.normBody))
		}
		// pool is sorted by ID, so strict > keeps the smaller ID on ties.
		if score > bestScore {
			best, bestScore = p.cand, score
		}
	}
	res.Score = bestScore
	res.Decision = th.decide(bestScore)
	if best != nil && res.Decision != NoMatch {
		res.Match = best
		res.MatchType = MatchFuzzy
	}
	return res
}

// Counts tallies decisions.
func Counts(results []Result) (auto, review, none int) {
	for _, r := range results {
		switch r.Decision {
		case AutoLink:
			auto++
		case NeedsReview:
			review++
		default:
			none++
		}
	}
	return auto, review, none
}

// RoundScore trims a score to four decimals for reports.
func RoundScore(s float64) float64 {
	return math.Round(s*10000) / 10000
}
