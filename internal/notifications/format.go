package notifications

import (
	"fmt"
	"html"
	"strings"
	"time"
)

// TicketLocation is the time zone used in messages to the support team.
var TicketLocation = loadLocation("Asia/Ho_Chi_Minh", 7*60*60)

func loadLocation(name string, offset int) *time.Location {
	if loc, err := time.LoadLocation(name); err == nil {
		return loc
	}
	return time.FixedZone("ICT", offset)
}

// ShortID returns the trailing eight characters shown to humans.
func ShortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[len(id)-8:]
}

// FormatNewTicket renders the Telegram HTML message for a new ticket.
func FormatNewTicket(t NewTicket, publicBaseURL string) string {
	phone := t.Phone
	if phone == "" {
		phone = "Không có"
	}
	at := t.CreatedAt
	if at.IsZero() {
		at = time.Now()
	}

	var b strings.Builder
	b.WriteString("🆕 <b>YÊU CẦU HỖ TRỢ MỚI</b>\n\n")
	fmt.Fprintf(&b, "👤 <b>Khách hàng:</b> %s\n", html.EscapeString(t.CustomerName))
	fmt.Fprintf(&b, "📞 <b>SĐT:</b> %s\n", html.EscapeString(phone))
	fmt.Fprintf(&b, "🛡️ <b>Bảo hành:</b> %s\n\n", t.Warranty.Label())
	fmt.Fprintf(&b, "📝 <b>Mô tả:</b>\n%s\n\n", html.EscapeString(t.Description))
	fmt.Fprintf(&b, "🆔 <b>Mã ticket:</b> #%s\n", ShortID(t.ID))
	fmt.Fprintf(&b, "⏰ <b>Thời gian:</b> %s\n\n", at.In(TicketLocation).Format("15:04:05 2/1/2006"))
	fmt.Fprintf(&b, `🔗 <a href="%s/admin/tickets/%s">Xem chi tiết</a>`, strings.TrimSuffix(publicBaseURL, "/"), t.ID)
	return b.String()
}
