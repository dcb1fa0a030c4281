package cluster

import (
	"sort"
	"strings"

	"github.com/hyperjump/chizu/internal/models"
)

const (
	// minTermLength filters short function words out of keyword extraction.
	minTermLength = 4
	keywordCount  = 10
	shortLabelLen = 3
)

// Summarize assembles models.Cluster values from labels, probabilities, and
// member documents. Keyword extraction ranks terms (longer than 3 characters,
// lowercased) by member-document frequency; it is independent of the
// clustering algorithm. Noise points are excluded from keyword attribution.
func Summarize(labels []int, probs []float64, docs []*models.Document) []*models.Cluster {
	byLabel := map[int][]int{}
	for i, l := range labels {
		if l == models.NoiseLabel || i >= len(docs) {
			continue
		}
		byLabel[l] = append(byLabel[l], i)
	}

	labelOrder := make([]int, 0, len(byLabel))
	for l := range byLabel {
		labelOrder = append(labelOrder, l)
	}
	sort.Ints(labelOrder)

	clusters := make([]*models.Cluster, 0, len(labelOrder))
	for _, l := range labelOrder {
		members := byLabel[l]
		keywords := rankTerms(members, docs)
		short := make([]string, 0, shortLabelLen)
		for i := 0; i < len(keywords) && i < shortLabelLen; i++ {
			short = append(short, keywords[i].Term)
		}
		probByMember := make(map[string]float64, len(members))
		for _, idx := range members {
			p := 1.0
			if idx < len(probs) {
				p = probs[idx]
			}
			probByMember[docs[idx].ID] = p
		}
		clusters = append(clusters, &models.Cluster{
			Label:               l,
			MemberCount:         len(members),
			Keywords:            keywords,
			ShortLabel:          strings.Join(short, ", "),
			ProbabilityByMember: probByMember,
		})
	}
	return clusters
}

// rankTerms counts each qualifying term once per member document and returns
// the top terms with their document-frequency share as score.
func rankTerms(members []int, docs []*models.Document) []models.ClusterKeyword {
	counts := map[string]int{}
	for _, idx := range members {
		seen := map[string]bool{}
		for _, raw := range strings.Fields(docs[idx].Text) {
			term := strings.ToLower(strings.Trim(raw, ".,;:!?\"'()[]{}"))
			if len(term) < minTermLength || seen[term] {
				continue
			}
			seen[term] = true
			counts[term]++
		}
	}
	terms := make([]models.ClusterKeyword, 0, len(counts))
	for term, count := range counts {
		terms = append(terms, models.ClusterKeyword{
			Term:  term,
			Score: float64(count) / float64(len(members)),
		})
	}
	sort.Slice(terms, func(i, j int) bool {
		if terms[i].Score != terms[j].Score {
			return terms[i].Score > terms[j].Score
		}
		return terms[i].Term < terms[j].Term
	})
	if len(terms) > keywordCount {
		terms = terms[:keywordCount]
	}
	return terms
}
