package domain

// Suggested transaction categories, keyed by type. The sets are suggestions
// for pickers, not constraints: a transaction may carry any category string.
var (
	expenseCategories = []string{"飲食", "交通", "購物", "娛樂", "醫療", "居住", "教育", "保險", "其他"}
	incomeCategories  = []string{"薪資", "獎金", "投資", "利息", "兼職", "其他"}
)

// SuggestedCategories returns the suggestion set for the given transaction
// type. The returned slice is a copy; callers may reorder it freely.
func SuggestedCategories(t TransactionType) []string {
	var src []string
	switch t {
	case Income:
		src = incomeCategories
	case Expense:
		src = expenseCategories
	default:
		return nil
	}
	out := make([]string, len(src))
	copy(out, src)
	return out
}
