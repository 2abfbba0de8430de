package ranker

import (
	"math"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/multiterm-search/internal/indexer/index"
)

const (
	k1 = 1.2
	b  = 0.75
)

type ScoredDoc struct {
	DocID string  `json:"doc_id"`
	Score float64 `json:"score"`
}

type RankParams struct {
	TotalDocs    int64
	AvgDocLength float64
}

type DocInfo struct {
	DocLength int
}

// TermScores gives the BM25 contribution of one term to every document in
// its postings, scaled by boost.
func TermScores(
	postings index.PostingList,
	params RankParams,
	getDocInfo func(docID string) DocInfo,
	boost float64,
) map[string]float64 {
	scores := make(map[string]float64, len(postings))
	idf := computeIDF(params.TotalDocs, int64(len(postings)))
	for _, posting := range postings {
		info := getDocInfo(posting.DocID)
		tfNorm := computeTFNorm(
			float64(posting.Frequency),
			float64(info.DocLength),
			params.AvgDocLength,
		)
		scores[posting.DocID] += boost * idf * tfNorm
	}
	return scores
}

// Rank orders docs by descending score, then by id, and keeps the first
// limit of them. A non-positive limit keeps everything.
func Rank(scores map[string]float64, limit int) []ScoredDoc {
	result := make([]ScoredDoc, 0, len(scores))
	for docID, score := range scores {
		result = append(result, ScoredDoc{
			DocID: docID,
			Score: math.Round(score*10000) / 10000,
		})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Score != result[j].Score {
			return result[i].Score > result[j].Score
		}
		return result[i].DocID < result[j].DocID
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}

func computeIDF(totalDocs int64, docFreq int64) float64 {
	numerator := float64(totalDocs) - float64(docFreq)
	denominator := float64(docFreq) + 0.5
	return math.Log(numerator/denominator + 1)
}

// computeTFNorm treats documents of unknown length as average length.
// Lengths are only tracked for documents indexed by this process.
func computeTFNorm(termFreq float64, docLength float64, avgDocLength float64) float64 {
	lengthRatio := 1.0
	if avgDocLength > 0 && docLength > 0 {
		lengthRatio = docLength / avgDocLength
	}
	denominator := termFreq + k1*(1-b+b*lengthRatio)
	return (termFreq * (k1 + 1)) / denominator
}
