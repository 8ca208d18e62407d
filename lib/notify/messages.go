package notify

import (
	"fmt"
	"html"
	"strings"

	"github.com/fiffu/seatwatch/lib/models"
)

type eventStyle struct {
	emoji string
	title string
	verb  string
	color string
}

func styleFor(event models.EventType) eventStyle {
	if event == models.EventOpen {
		return eventStyle{"🔔", "Slot Mở!", "mở", "#22c55e"}
	}
	return eventStyle{"📈", "Slot Tăng!", "tăng", "#3b82f6"}
}

type message struct {
	target    *models.WatchTarget
	event     models.EventType
	remaining int
}

func (m message) name() string {
	return m.target.DisplayName()
}

func (m message) code() string {
	if m.target.ClassCode.Valid {
		return m.target.ClassCode.String
	}
	return ""
}

func (m message) Telegram() string {
	style := styleFor(m.event)

	var b strings.Builder
	fmt.Fprintf(&b, "%s <b>%s</b>\n\n", style.emoji, strings.ToUpper(style.title))
	fmt.Fprintf(&b, "📚 %s\n", html.EscapeString(m.name()))
	if code := m.code(); code != "" {
		fmt.Fprintf(&b, "📋 Mã: %s\n", html.EscapeString(code))
	}
	fmt.Fprintf(&b, "\n✅ <b>Còn trống: %d chỗ</b>\n\n", m.remaining)
	fmt.Fprintf(&b, `🔗 <a href="%s">Xem chi tiết</a>`, html.EscapeString(m.target.ClassURL))
	return b.String()
}

func (m message) Subject() string {
	return fmt.Sprintf("[MyDTU] Slot %s: %s - Còn %d chỗ", styleFor(m.event).verb, m.name(), m.remaining)
}

func (m message) Body() string {
	style := styleFor(m.event)

	codeLine := ""
	if code := m.code(); code != "" {
		codeLine = fmt.Sprintf(`<p style="margin: 0; color: #6b7280;">Mã: %s</p>`, html.EscapeString(code))
	}

	return fmt.Sprintf(
		`
			<h2 style="color: %[1]s;">%[2]s %[3]s</h2>
			<p style="font-size: 18px; font-weight: 600;">%[4]s</p>
			%[5]s
			<p style="font-size: 36px; font-weight: bold; color: %[1]s;">%[6]d</p>
			<p>chỗ còn trống</p>
			<a href="%[7]s">Xem chi tiết &amp; Đăng ký ngay</a>
		`,
		style.color, style.emoji, style.title,
		html.EscapeString(m.name()), codeLine,
		m.remaining, html.EscapeString(m.target.ClassURL),
	)
}
