package conversation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/giho-tech/helpdesk/internal/attachment"
	"github.com/giho-tech/helpdesk/internal/knowledge"
)

const contactFormat = "📝 Tên - Số điện thoại\n\nVí dụ: Nguyễn Văn A - 0901234567"

const (
	greeting = "Xin chào! Đây là bộ phận hỗ trợ kỹ thuật GIHO TECH. Bạn đang gặp sự cố gì với Robot? " +
		"Hãy mô tả lỗi hoặc gửi video/hình ảnh cho tôi."

	replyParseFailed = "Xin lỗi, tôi chưa hiểu rõ thông tin. Vui lòng nhập theo định dạng:\n\n" +
		"Tên - Số điện thoại\n\nVí dụ: Nguyễn Văn A - 0901234567"
	replyFollowUpFailed  = "Để bộ phận kỹ thuật hỗ trợ trực tiếp, vui lòng cung cấp:\n\n" + contactFormat
	replyTimedOut        = "Xin lỗi, tôi vẫn chưa rõ lỗi bạn gặp phải. Đội ngũ kỹ thuật viên sẽ hỗ trợ bạn, vui lòng cung cấp:\n\n" + contactFormat
	replyTechnician      = "Để bộ phận kỹ thuật liên hệ hỗ trợ bạn, vui lòng cung cấp:\n\n" + contactFormat
	replyEvidenceNeeded  = "Bạn có thể:\n\n📸 Gửi ảnh/video bằng nút đính kèm bên dưới\n🔧 Hoặc nhắn \"cần kỹ thuật\" để chuyển kỹ thuật viên"
	replyEvidenceSuffix  = "\n\n📸 Bạn có thể gửi ảnh/video bằng nút đính kèm bên dưới."
	replyNeedTechnician  = "Xin lỗi, tôi chưa tìm thấy giải pháp hỗ trợ. Kỹ thuật viên sẽ hỗ trợ trực tiếp bạn!\n\nVui lòng cung cấp:\n\n" + contactFormat
	replyNoResults       = "Hiện tại tôi chưa tìm thấy hướng dẫn phù hợp trong hệ thống.\n\nĐể bộ phận kỹ thuật hỗ trợ, vui lòng cung cấp:\n\n" + contactFormat
	replySystemError     = "Có lỗi xảy ra khi kết nối hệ thống. Vui lòng thử lại hoặc liên hệ kỹ thuật viên."
	replyTryThis         = "\n\n---\n\n💬 Bạn thử làm theo hướng dẫn trên nhé! Nếu vẫn không được, hãy cho tôi biết."
	replyAttachmentNoted = "Đã nhận tệp đính kèm. Vui lòng cung cấp:\n\n" + contactFormat
	replySolutionsHeader = "Tôi tìm thấy vài giải pháp có thể giúp bạn:"

	// Sent as the user's transcript line when media is attached without text.
	imageSentText = "📷 Đã gửi hình ảnh"
	videoSentText = "🎥 Đã gửi video"
	fileSentText  = "📎 Đã gửi tệp"
)

// supportPhrases are the explicit "need a technician" requests accepted
// while evidence is awaited.
var supportPhrases = []string{"cần kỹ thuật", "cần hỗ trợ", "liên hệ ngay", "chuyển kỹ thuật"}

func wantsTechnician(text string) bool {
	lower := strings.ToLower(text)
	for _, p := range supportPhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

func solutionsReply(sols []knowledge.Solution) string {
	var b strings.Builder
	b.WriteString(replySolutionsHeader)
	for _, s := range sols {
		link := s.VideoURL
		if link == "" {
			link = "#"
		}
		fmt.Fprintf(&b, "\n- [%s](%s)", s.Title, link)
	}
	return b.String()
}

func mediaNoun(kind attachment.Kind) string {
	if kind == attachment.KindVideo {
		return "video"
	}
	return "ảnh"
}

func analysisReply(kind attachment.Kind, text string) string {
	return fmt.Sprintf("Dựa trên %s bạn gửi:\n\n%s\n\n---\n\n💬 Bạn thử làm theo hướng dẫn này nhé! Nếu vẫn không được, hãy cho tôi biết.",
		mediaNoun(kind), text)
}

func analysisEscalation(kind attachment.Kind) string {
	return fmt.Sprintf("Tôi đã xem %s của bạn. Tình huống này cần kỹ thuật viên kiểm tra trực tiếp.\n\nVui lòng cung cấp:\n\n%s",
		mediaNoun(kind), contactFormat)
}

func confirmationReply(name, phone, ticketID string) string {
	short := ticketID
	if len(short) > 8 {
		short = short[len(short)-8:]
	}
	return "✅ Đã ghi nhận yêu cầu của bạn!\n\n" +
		"👤 Tên: " + name + "\n" +
		"📞 SĐT: " + phone + "\n\n" +
		"Bộ phận kỹ thuật sẽ liên hệ lại với bạn sớm nhất có thể.\n\n" +
		"Mã yêu cầu: #" + short + "\n\n" +
		"Cảm ơn bạn đã đồng hành cùng GIHO Smarthome ! ❤️"
}

func ticketFailedReply(hotline string) string {
	msg := "Có lỗi khi tạo yêu cầu. Vui lòng liên hệ hotline để được hỗ trợ."
	if hotline != "" {
		msg += "\n\n☎️ Hotline: " + hotline
	}
	return msg
}

func validationReply(err error) string {
	var verr *attachment.ValidationError
	errors.As(err, &verr)
	switch {
	case errors.Is(err, attachment.ErrUnsupportedType):
		return "Chỉ chấp nhận file ảnh hoặc video!"
	case errors.Is(err, attachment.ErrTooLarge) && verr != nil:
		return fmt.Sprintf("File %s không được vượt quá %.0fMB!", mediaNoun(verr.Kind), verr.Limit/(1<<20))
	case errors.Is(err, attachment.ErrDurationRejected) && verr != nil:
		return fmt.Sprintf("Video không được dài quá %.0f giây!", verr.Limit)
	}
	return "Không thể xử lý tệp đính kèm. Vui lòng thử lại."
}
