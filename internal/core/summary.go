package core

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   Category
	Amount Money
}

// SummarizeByCategory totals classified expenses per category, keeping the
// order in which categories first appear.
func SummarizeByCategory(expenses []Expense) ([]CategoryAmount, error) {
	index := make(map[Category]int)
	var out []CategoryAmount
	for _, e := range expenses {
		cat := e.Category
		if cat == "" {
			cat = CategoryOther
		}
		i, ok := index[cat]
		if !ok {
			i = len(out)
			index[cat] = i
			out = append(out, CategoryAmount{Name: cat})
		}
		sum, err := out[i].Amount.Add(e.Amount)
		if err != nil {
			return nil, err
		}
		out[i].Amount = sum
	}
	return out, nil
}
