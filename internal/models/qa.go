package models

import "strings"

// QAKey is the JSON key holding question-answer pairs in model output and
// result files.
const QAKey = "soru-cevaplar"

type QAPair struct {
	Question string `json:"soru"`
	Answer   string `json:"cevap"`
}

// QADocument is the on-disk shape of a question-answer result.
type QADocument struct {
	Pairs []QAPair `json:"soru-cevaplar"`
}

// QASet accumulates pairs, keeping the first pair seen for each question.
// Questions are compared exactly; blank questions are never stored.
type QASet struct {
	pairs []QAPair
	seen  map[string]struct{}
}

func NewQASet() *QASet {
	return &QASet{seen: make(map[string]struct{})}
}

// Add stores p unless its question is blank or already present.
func (s *QASet) Add(p QAPair) bool {
	if strings.TrimSpace(p.Question) == "" {
		return false
	}
	if _, ok := s.seen[p.Question]; ok {
		return false
	}
	s.seen[p.Question] = struct{}{}
	s.pairs = append(s.pairs, p)
	return true
}

// Merge adds every pair and returns how many were new.
func (s *QASet) Merge(pairs []QAPair) int {
	added := 0
	for _, p := range pairs {
		if s.Add(p) {
			added++
		}
	}
	return added
}

func (s *QASet) Len() int { return len(s.pairs) }

func (s *QASet) Pairs() []QAPair {
	out := make([]QAPair, len(s.pairs))
	copy(out, s.pairs)
	return out
}
