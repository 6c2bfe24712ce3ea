package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMarkdownLinks(t *testing.T) {
	out := Markdown("Tôi tìm thấy vài giải pháp có thể giúp bạn:\n- [Robot không sạc được](https://youtu.be/x)")
	assert.Contains(t, out, `<a href="https://youtu.be/x">Robot không sạc được</a>`)
	assert.Contains(t, out, "<li>")
}

func TestMarkdownHardWraps(t *testing.T) {
	out := Markdown("👤 Tên: A\n📞 SĐT: 0901111111")
	assert.Contains(t, out, "<br")
}

func TestMarkdownDropsRawHTML(t *testing.T) {
	out := Markdown("xin chào <script>alert(1)</script>")
	assert.NotContains(t, out, "<script>")
}

func TestMarkdownStrikethrough(t *testing.T) {
	assert.Contains(t, Markdown("~~cũ~~"), "<del>cũ</del>")
}
