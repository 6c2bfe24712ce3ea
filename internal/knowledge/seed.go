package knowledge

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultSolutions is the starter knowledge base for GIHO robots.
func DefaultSolutions() []Solution {
	return []Solution{
		{
			Title:    "Robot không sạc được",
			Keywords: "sạc, pin, dock sạc, nguồn",
			VideoURL: "https://youtube.com/example1",
			Description: "1. Kiểm tra đèn LED trên dock sạc có sáng không\n" +
				"2. Đảm bảo tiếp điểm sạc trên robot sạch sẽ\n" +
				"3. Thử cắm lại adapter nguồn\n" +
				"4. Nếu vẫn không được, liên hệ bảo hành",
		},
		{
			Title:    "Robot kêu bíp liên tục",
			Keywords: "bíp, tiếng kêu, lỗi cảm biến",
			VideoURL: "https://youtube.com/example2",
			Description: "1. Tắt robot và khởi động lại\n" +
				"2. Kiểm tra cảm biến chống va chạm có bị kẹt không\n" +
				"3. Làm sạch các cảm biến\n" +
				"4. Reset robot về cài đặt gốc",
		},
		{
			Title:    "Robot không hút được rác",
			Keywords: "hút, lực hút, bụi, rác",
			Description: "1. Kiểm tra hộp chứa bụi đã đầy chưa\n" +
				"2. Làm sạch lưới lọc\n" +
				"3. Kiểm tra bàn chải có bị rối tóc không\n" +
				"4. Đảm bảo nắp hộp chứa đóng kín",
		},
		{
			Title:    "Robot không kết nối WiFi",
			Keywords: "wifi, mạng, kết nối, app",
			VideoURL: "https://youtube.com/example3",
			Description: "1. Kiểm tra mật khẩu WiFi\n" +
				"2. Đảm bảo sử dụng WiFi 2.4GHz (không hỗ trợ 5GHz)\n" +
				"3. Đặt robot gần router khi kết nối\n" +
				"4. Xóa robot khỏi app và thêm lại",
		},
		{
			Title:    "Robot chạy không theo lịch",
			Keywords: "lịch trình, timer, hẹn giờ",
			Description: "1. Kiểm tra lại cài đặt lịch trong app\n" +
				"2. Đảm bảo robot đã sạc đầy pin\n" +
				"3. Kiểm tra múi giờ trong app\n" +
				"4. Cập nhật firmware mới nhất",
		},
	}
}

// LoadSeedFile reads solutions from a YAML list.
func LoadSeedFile(path string) ([]Solution, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading seed file: %w", err)
	}
	var sols []Solution
	if err := yaml.Unmarshal(data, &sols); err != nil {
		return nil, fmt.Errorf("parsing seed file: %w", err)
	}
	for i, sol := range sols {
		if err := sol.Validate(); err != nil {
			return nil, fmt.Errorf("seed entry %d: %w", i, err)
		}
	}
	return sols, nil
}

// Seed replaces the knowledge base with sols. onEach is called after each
// insert so callers can report progress.
func (s *Store) Seed(ctx context.Context, sols []Solution, onEach func(Solution)) error {
	if err := s.DeleteAll(ctx); err != nil {
		return err
	}
	for _, sol := range sols {
		if _, err := s.Create(ctx, sol); err != nil {
			return fmt.Errorf("seeding %q: %w", sol.Title, err)
		}
		if onEach != nil {
			onEach(sol)
		}
	}
	return nil
}
