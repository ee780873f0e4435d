package insight

import (
	"math"
	"sort"

	"github.com/xela07ax/medipredict-console/internal/domain"
)

const DefaultTopContributors = 3

// TopContributors возвращает n признаков с наибольшим по модулю вкладом.
// Сортировка стабильная: при равенстве сохраняется порядок сервиса объяснений.
func TopContributors(items []domain.FeatureContribution, n int) []domain.FeatureContribution {
	if n <= 0 {
		n = DefaultTopContributors
	}

	out := make([]domain.FeatureContribution, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool {
		return math.Abs(out[i].Contribution) > math.Abs(out[j].Contribution)
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
