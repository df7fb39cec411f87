package classify

import (
	"context"
	"strings"
)

// keywordTable maps lowercase substrings to a category. First hit in
// Categories order wins, so a description matching both food and travel
// words lands on Food.
var keywordTable = map[string][]string{
	"Food":          {"pizza", "cena", "pranzo", "ristorante", "spesa", "bar", "caffe", "supermercato", "groceries", "lunch", "dinner", "restaurant"},
	"Travel":        {"treno", "aereo", "volo", "taxi", "benzina", "autostrada", "hotel", "albergo", "flight", "train", "fuel", "bus"},
	"Rent":          {"affitto", "rent", "condominio", "deposito"},
	"Entertainment": {"cinema", "concerto", "teatro", "museo", "netflix", "spotify", "gioco", "movie", "concert"},
	"Utilities":     {"bolletta", "luce", "gas", "acqua", "internet", "telefono", "electricity", "water bill"},
	"Shopping":      {"vestiti", "scarpe", "regalo", "amazon", "negozio", "clothes", "shoes", "gift"},
}

// KeywordClassifier is a deterministic offline fallback used when no model
// API key is configured.
type KeywordClassifier struct{}

func (KeywordClassifier) Classify(ctx context.Context, description string) (string, error) {
	lowered := strings.ToLower(description)
	for _, category := range Categories {
		for _, kw := range keywordTable[category] {
			if strings.Contains(lowered, kw) {
				return category, nil
			}
		}
	}
	return CategoryOther, nil
}
