package conversation

import (
	"fmt"

	"github.com/giho-tech/helpdesk/internal/attachment"
)

// FollowUpPrompt asks the model to judge the customer's reply to its
// previous suggestion. The wording steers the model toward phrases the
// classifier recognises.
func FollowUpPrompt(previous, reply string) string {
	return fmt.Sprintf(`TÔI VỪA ĐƯA RA GIẢI PHÁP:
%s

---

KHÁCH HÀNG TRẢ LỜI:
%s

---

NHIỆM VỤ: Hãy phân tích câu trả lời của khách hàng và quyết định:
1. NẾU khách đang trả lời câu hỏi của bạn hoặc bổ sung thông tin → Tiếp tục hỗ trợ, đưa giải pháp cụ thể hơn
2. NẾU khách nói "vẫn không được" / "vẫn lỗi" → Trả lời: "Tôi hiểu rồi. Hãy cho tôi thêm thông tin hoặc ảnh/video để phân tích kỹ hơn."
3. NẾU khách xác nhận đã giải quyết được (đã ok, đã xong, cảm ơn) → Trả lời: "Tuyệt vời! Rất vui vì đã giúp được bạn."

QUAN TRỌNG: Đọc kỹ câu trả lời của khách, ĐỪNG vội kết luận!`, previous, reply)
}

func evidenceDescription(kind attachment.Kind) string {
	if kind == attachment.KindVideo {
		return "video quay lỗi"
	}
	return "ảnh chụp màn hình báo lỗi"
}

// attachmentQuery builds the issue text for an attachment turn. note is
// text sent along with the attachment. When the customer has not
// described a problem yet, a summary is recorded on s.
func attachmentQuery(s *Session, kind attachment.Kind, fixTried bool, note string) string {
	if s.IssueSummary == "" && note == "" {
		s.IssueSummary = fmt.Sprintf("Khách hàng gửi %s báo lỗi", mediaNoun(kind))
		what := "ảnh chụp màn hình báo lỗi"
		if kind == attachment.KindVideo {
			what = "video quay tình trạng lỗi"
		}
		return fmt.Sprintf("Khách hàng gặp vấn đề với robot GIHO và đã gửi %s. Hãy phân tích và đưa ra giải pháp.", what)
	}
	if s.IssueSummary == "" {
		s.IssueSummary = note
	}

	query := s.IssueSummary
	if fixTried {
		query += "\n\nKhách hàng đã thử giải pháp đầu tiên nhưng vẫn không được."
	}
	if note != "" && note != s.IssueSummary {
		query += "\n\nKhách hàng bổ sung: " + note
	}
	return fmt.Sprintf("%s\n\nKhách hàng đã gửi %s.", query, evidenceDescription(kind))
}
