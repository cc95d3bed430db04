package reconcile

import (
	"testing"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"- KPMG audit package — prep + send":             "kpmg audit package — prep + send",
		"- [x] Demo follow-ups (Feb 18)":                 "demo follow-ups",
		"- 09:15 ✅ Ship alpha milestone":                 "ship alpha milestone",
		"- [ ] **Call Devin** 📅 2026-02-19 ⏫ #sales":     "call devin",
		"Review  deck   Mar 3 ()":                        "review deck",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Fatalf("normalize %q: expected %q, got %q", in, want, got)
		}
	}
}

func TestSimilarityBands(t *testing.T) {
	if s := Similarity("Call Devin (Life Time) 📅 2026-02-19 ⏫", "Call Devin (Life Time)"); s < 0.80 {
		t.Fatalf("expected >= 0.80, got %.3f", s)
	}
	if s := Similarity("Weekly Sales Meeting", "KPMG audit package"); s >= 0.60 {
		t.Fatalf("expected < 0.60, got %.3f", s)
	}
	if s := Similarity("", "anything"); s != 0 {
		t.Fatalf("expected empty input to score 0, got %.3f", s)
	}
}

func candidates() []Candidate {
	return []Candidate{
		{ID: "A-1", Title: "Ship alpha milestone", Body: "**Ship alpha milestone** id::A-1 area:: Delivery", Line: 3},
		{ID: "line-000004", Title: "Fix login timeout", Body: "**Fix login timeout** https://github.com/acme/proj/issues/42 area:: Platform", Line: 4},
		{ID: "line-000007", Title: "Write onboarding docs", Body: "**Write onboarding docs** area:: Docs", Line: 7},
	}
}

func TestReconcileExactRules(t *testing.T) {
	results := Reconcile([]string{
		"- Ship alpha milestone",
		"- Fixed login timeout https://github.com/acme/proj/issues/42",
	}, candidates(), DefaultThresholds)
	if results[0].Decision != AutoLink || results[0].MatchType != MatchNormalizedTitle || results[0].Match.ID != "A-1" {
		t.Fatalf("unexpected first result: %#v", results[0])
	}
	if results[1].Decision != AutoLink || results[1].MatchType != MatchExactID || results[1].Score != 1 {
		t.Fatalf("unexpected second result: %#v", results[1])
	}

	byID := Reconcile([]string{"- [x] wrapped up id::A-1"}, candidates(), DefaultThresholds)
	if byID[0].MatchType != MatchExactID || byID[0].Match.ID != "A-1" {
		t.Fatalf("expected explicit id to link, got %#v", byID[0])
	}
}

func TestReconcileThresholdBands(t *testing.T) {
	th := Thresholds{Auto: 0.98, Review: 0.70}
	results := Reconcile([]string{"- [x] Writ onboarding docs", "- [x] Completely unrelated objective"}, candidates(), th)
	first := results[0]
	if first.Decision != NeedsReview || first.Score < 0.70 || first.Score >= 0.98 {
		t.Fatalf("expected needs-review band, got %#v", first)
	}
	if results[1].Decision != NoMatch || results[1].Match != nil {
		t.Fatalf("expected no-match without candidate, got %#v", results[1])
	}
}

func TestReconcileGreedyConsumesAutoLinks(t *testing.T) {
	cands := []Candidate{{ID: "line-000001", Title: "Send weekly report", Body: "Send weekly report"}}
	results := Reconcile([]string{"- Send weekly report", "- Sent weekly report"}, cands, DefaultThresholds)
	auto, _, _ := Counts(results)
	if auto != 1 {
		t.Fatalf("expected exactly one auto-link, got %d", auto)
	}
	if results[1].Match != nil {
		t.Fatalf("expected consumed candidate to be unavailable, got %#v", results[1].Match)
	}
}

func TestReconcileTieBreaksOnSmallerID(t *testing.T) {
	cands := []Candidate{
		{ID: "line-000009", Title: "Prepare board deck"},
		{ID: "line-000002", Title: "Prepare board deck"},
	}
	results := Reconcile([]string{"- Prepare board deck"}, cands, DefaultThresholds)
	if results[0].Match == nil || results[0].Match.ID != "line-000002" {
		t.Fatalf("expected smaller id to win, got %#v", results[0].Match)
	}
	fuzzy := Reconcile([]string{"- Prepare board decks"}, cands, DefaultThresholds)
	if fuzzy[0].Match == nil || fuzzy[0].Match.ID != "line-000002" {
		t.Fatalf("expected smaller id to win fuzzy tie, got %#v", fuzzy[0].Match)
	}
}

func TestThresholdValidation(t *testing.T) {
	if err := (Thresholds{Auto: 0.6, Review: 0.8}).Validate(); err == nil {
		t.Fatalf("expected inverted thresholds to fail")
	}
	if err := DefaultThresholds.Validate(); err != nil {
		t.Fatalf("expected defaults to validate: %v", err)
	}
}

func TestHarvestDoneLines(t *testing.T) {
	note := "# 2026-02-12\n\n## ✅ Done\n- [x] Shipped alpha\n- Sent invoice\n- [ ] Not done\n- (update as day progresses)\n  {\"k\": 1}\n\n## Notes\n- not a done item\n- 17:02 ✅ Logged later\n"
	items := DoneSectionItems(note)
	want := []string{"- [x] Shipped alpha", "- Sent invoice", "- 17:02 ✅ Logged later"}
	if len(items) != len(want) {
		t.Fatalf("expected %v, got %v", want, items)
	}
	for i := range want {
		if items[i] != want[i] {
			t.Fatalf("expected %q at %d, got %q", want[i], i, items[i])
		}
	}
	if got := DoneLines("- [x] Writ onboarding docs\n- [x] Completely unrelated objective\n- [ ] Not done\n"); len(got) != 2 {
		t.Fatalf("expected 2 done lines, got %v", got)
	}
}
