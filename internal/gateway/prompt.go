package gateway

import (
	"fmt"
	"strings"

	"github.com/giho-tech/helpdesk/internal/llm"
)

const (
	titleText  = "💡 Gợi ý từ AI (Phân tích tự động)"
	titleMedia = "🤖 Phân tích từ AI (Dựa trên ảnh/video)"
)

// DiagnosticPrompt wraps the customer's issue in the technical assistant
// instructions. kind is empty for text-only turns.
func DiagnosticPrompt(issue string, kind llm.MediaKind) string {
	var b strings.Builder
	b.WriteString("Bạn là trợ lý kỹ thuật chuyên nghiệp cho robot GIHO.\n")
	fmt.Fprintf(&b, "Người dùng báo cáo vấn đề: \"%s\".\n", issue)
	if kind != "" {
		fmt.Fprintf(&b, "\nKhách hàng đã gửi %s. Hãy phân tích kỹ nội dung %s để đưa ra chẩn đoán chính xác.\n",
			mediaEvidence(kind), mediaNoun(kind))
	}
	b.WriteString("\nHãy phân tích ngắn gọn nguyên nhân có thể và đề xuất giải pháp khắc phục.\n")
	b.WriteString("YÊU CẦU:\n")
	b.WriteString("- Trả lời bằng tiếng Việt.\n")
	b.WriteString("- Dùng giọng văn thân thiện, chuyên nghiệp.\n")
	b.WriteString("- BẮT BUỘC sử dụng gạch đầu dòng (-) cho các ý.\n")
	b.WriteString("- BẮT BUỘC xuống dòng rõ ràng giữa các đoạn để dễ đọc.\n")
	b.WriteString("- Không cần tiêu đề \"Kiến nghị từ AI\".\n")
	if kind != "" {
		fmt.Fprintf(&b, "- Mô tả chi tiết những gì bạn thấy trong %s (đèn báo, màn hình, trạng thái robot...).\n", mediaNoun(kind))
	}
	return b.String()
}

func mediaNoun(kind llm.MediaKind) string {
	if kind == llm.MediaVideo {
		return "video"
	}
	return "ảnh"
}

func mediaEvidence(kind llm.MediaKind) string {
	if kind == llm.MediaVideo {
		return "video quay tình trạng lỗi"
	}
	return "ảnh chụp màn hình báo lỗi"
}

func answerTitle(media *llm.Media) string {
	if media != nil {
		return titleMedia
	}
	return titleText
}
