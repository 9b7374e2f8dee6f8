package compare

import (
	"sort"

	"github.com/radieske/racing-odds-monitor/internal/racing/odds"
)

// DefaultRowCap é o total de linhas exibidas após a ordenação.
const DefaultRowCap = 30

// Group são as linhas de um mesmo post_time, na ordem do ranking.
type Group struct {
	PostTime string            `json:"post_time"`
	Rows     []odds.Difference `json:"rows"`
}

// Rank ordena por (post_time, delta) ascendente de forma estável e corta em
// limit linhas no total (não por grupo). limit <= 0 usa DefaultRowCap.
func Rank(rows []odds.Difference, limit int) []odds.Difference {
	if limit <= 0 {
		limit = DefaultRowCap
	}
	sorted := make([]odds.Difference, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].PostTime != sorted[j].PostTime {
			return sorted[i].PostTime < sorted[j].PostTime
		}
		return sorted[i].Delta < sorted[j].Delta
	})
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

// GroupByPostTime agrupa linhas já ranqueadas preservando a ordem.
func GroupByPostTime(ranked []odds.Difference) []Group {
	var groups []Group
	for _, r := range ranked {
		if n := len(groups); n > 0 && groups[n-1].PostTime == r.PostTime {
			groups[n-1].Rows = append(groups[n-1].Rows, r)
			continue
		}
		groups = append(groups, Group{PostTime: r.PostTime, Rows: []odds.Difference{r}})
	}
	return groups
}

// DefaultAlertThreshold: quedas de preço a partir de 6 pontos viram alerta.
const DefaultAlertThreshold = -6.0

// Alertable devolve os cavalos distintos (na ordem do ranking) com
// delta <= threshold.
func Alertable(ranked []odds.Difference, threshold float64) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range ranked {
		if r.Delta > threshold {
			continue
		}
		if _, dup := seen[r.Horse]; dup {
			continue
		}
		seen[r.Horse] = struct{}{}
		out = append(out, r.Horse)
	}
	return out
}
