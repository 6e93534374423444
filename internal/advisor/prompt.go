package advisor

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ycchuang/moneybook/internal/domain"
	"github.com/ycchuang/moneybook/internal/report"
)

// recentLimit is how many of the newest transactions go into the summary.
const recentLimit = 15

// BuildPrompt renders the user's balances and recent activity into the
// advisory prompt. Each transaction line has the form
// "date: sign amount (category) - description".
func BuildPrompt(accounts []domain.Account, txs []domain.Transaction) string {
	total := report.NetWorth(accounts)

	recent := make([]domain.Transaction, len(txs))
	copy(recent, txs)
	sort.SliceStable(recent, func(i, j int) bool {
		if recent[i].Date != recent[j].Date {
			return recent[i].Date.After(recent[j].Date)
		}
		return recent[i].CreatedAt.After(recent[j].CreatedAt)
	})
	if len(recent) > recentLimit {
		recent = recent[:recentLimit]
	}

	var lines []string
	for _, tx := range recent {
		lines = append(lines, fmt.Sprintf("%s: %s%s (%s) - %s",
			tx.Date, tx.Type.Sign(), tx.Amount, tx.Category, tx.Description))
	}

	var b strings.Builder
	b.WriteString("你是一位專業的個人理財顧問。請根據以下使用者的財務數據提供簡潔、專業且具體的建議。\n\n")
	fmt.Fprintf(&b, "當前帳戶總餘額: NT$ %s\n", total)
	fmt.Fprintf(&b, "最近 %d 筆交易紀錄:\n", len(lines))
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString("\n\n請從以下三個面向分析：\n")
	b.WriteString("1. 消費習慣分析 (是否有過多非必要支出？)\n")
	b.WriteString("2. 儲蓄與預算建議\n")
	b.WriteString("3. 未來一個月的財務行動指南\n\n")
	b.WriteString("請用親切、鼓勵的語氣回答，並使用繁體中文。\n")
	return b.String()
}
