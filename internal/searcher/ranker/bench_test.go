package ranker

import (
	"fmt"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/multiterm-search/internal/indexer/index"
)

func BenchmarkTermScoresAndRank(b *testing.B) {
	postings := make(index.PostingList, 10000)
	for i := range postings {
		postings[i] = index.Posting{DocID: fmt.Sprintf("doc-%05d", i), Frequency: i%5 + 1}
	}
	params := RankParams{TotalDocs: 100000, AvgDocLength: 120}
	info := func(string) DocInfo { return DocInfo{DocLength: 100} }

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Rank(TermScores(postings, params, info, 1), 10)
	}
}
