package whatsapp

import (
	"fmt"
	"net/url"
	"strings"
)

// DefaultStoreNumber 商店的 WhatsApp 號碼（不含加號）
const DefaultStoreNumber = "201234567890"

// 下單詢問的訊息模板
const orderMessageTemplate = "مرحباً، أود طلب لوحة %s (المقاس: %s) — %s EGP. من فضلك أكد التوفر."

// Builder 組出導向 WhatsApp 對話的結帳連結
type Builder struct {
	number string
}

func NewBuilder(number string) *Builder {
	if number == "" {
		number = DefaultStoreNumber
	}
	return &Builder{number: strings.TrimPrefix(number, "+")}
}

// OrderMessage 回傳帶入畫作資訊的訊息文字
func (b *Builder) OrderMessage(title, size string, priceCents int64) string {
	return fmt.Sprintf(orderMessageTemplate, title, size, FormatEGP(priceCents))
}

// OrderURL 回傳 wa.me 結帳連結，訊息內容經過 URL 編碼
func (b *Builder) OrderURL(title, size string, priceCents int64) string {
	return fmt.Sprintf("https://wa.me/%s?text=%s",
		b.number, url.QueryEscape(b.OrderMessage(title, size, priceCents)))
}

// FormatEGP 把 cents 轉成帶千分位的金額字串，整數金額不顯示小數
func FormatEGP(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	whole := cents / 100
	fraction := cents % 100

	digits := fmt.Sprintf("%d", whole)
	var groups []string
	for len(digits) > 3 {
		groups = append([]string{digits[len(digits)-3:]}, groups...)
		digits = digits[:len(digits)-3]
	}
	groups = append([]string{digits}, groups...)
	formatted := strings.Join(groups, ",")

	if fraction == 0 {
		return sign + formatted
	}
	return fmt.Sprintf("%s%s.%02d", sign, formatted, fraction)
}
