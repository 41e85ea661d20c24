package knowledge

import (
	"bytes"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"

	applog "companionforge/internal/platform/log"
)

// Document 知识文件解析后的纯文本
type Document struct {
	Text   string `json:"text"`
	Format string `json:"format"`
	Title  string `json:"title,omitempty"`
	Pages  int    `json:"pages,omitempty"`
}

// Parser 按文件格式提取纯文本
type Parser interface {
	Parse(data []byte) (*Document, error)
	// Extensions 支持的扩展名（含点，小写）
	Extensions() []string
}

// MarkdownParser 去掉 Markdown 标记，保留正文
type MarkdownParser struct{}

var (
	reMDFence   = regexp.MustCompile("(?s)```[^\\n]*\\n(.*?)```")
	reMDImage   = regexp.MustCompile(`!\[([^\]]*)\]\([^)]*\)`)
	reMDLink    = regexp.MustCompile(`\[([^\]]+)\]\([^)]*\)`)
	reMDHeading = regexp.MustCompile(`(?m)^\s{0,3}#{1,6}\s+`)
	reMDQuote   = regexp.MustCompile(`(?m)^\s{0,3}>\s?`)
	reMDBold    = regexp.MustCompile(`(\*\*|__)(.+?)(\*\*|__)`)
	reMDItalic  = regexp.MustCompile(`\*([^*\n]+)\*`)
	reMDCode    = regexp.MustCompile("`([^`]+)`")
	reMDTag     = regexp.MustCompile(`<[^>]+>`)
)

func (MarkdownParser) Extensions() []string { return []string{".md", ".markdown"} }

func (MarkdownParser) Parse(data []byte) (*Document, error) {
	text := string(data)

	var title string
	for _, line := range strings.SplitN(text, "\n", 20) {
		if t, ok := strings.CutPrefix(strings.TrimSpace(line), "# "); ok {
			title = strings.TrimSpace(t)
			break
		}
	}

	text = reMDFence.ReplaceAllString(text, "$1")
	text = reMDImage.ReplaceAllString(text, "$1")
	text = reMDLink.ReplaceAllString(text, "$1")
	text = reMDHeading.ReplaceAllString(text, "")
	text = reMDQuote.ReplaceAllString(text, "")
	text = reMDBold.ReplaceAllString(text, "$2")
	text = reMDItalic.ReplaceAllString(text, "$1")
	text = reMDCode.ReplaceAllString(text, "$1")
	text = reMDTag.ReplaceAllString(text, "")

	return &Document{Text: squeeze(text), Format: "markdown", Title: title}, nil
}

// TextParser 纯文本类文件原样保留
type TextParser struct{}

func (TextParser) Extensions() []string {
	return []string{".txt", ".text", ".csv", ".json", ".yaml", ".yml"}
}

func (TextParser) Parse(data []byte) (*Document, error) {
	return &Document{Text: squeeze(string(data)), Format: "text"}, nil
}

// PDFParser 逐页提取 PDF 文本，失败的页跳过
type PDFParser struct{}

func (PDFParser) Extensions() []string { return []string{".pdf"} }

func (PDFParser) Parse(data []byte) (*Document, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	pages := r.NumPage()
	var sb strings.Builder
	for i := 1; i <= pages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			applog.Warn("[Knowledge] PDF page skipped", "page", i, "error", err)
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n\n")
	}
	return &Document{Text: squeeze(sb.String()), Format: "pdf", Pages: pages}, nil
}

// DOCXParser 读取 word/document.xml 中的文字段
type DOCXParser struct{}

func (DOCXParser) Extensions() []string { return []string{".docx"} }

func (DOCXParser) Parse(data []byte) (*Document, error) {
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open docx: %w", err)
	}
	defer r.Close()

	return &Document{Text: docxText(r.Editable().GetContent()), Format: "docx"}, nil
}

var (
	reDocxRun       = regexp.MustCompile(`(?s)<w:t(?:\s[^>]*)?>(.*?)</w:t>`)
	reDocxParagraph = regexp.MustCompile(`</w:p>`)
)

// docxText 每个 w:p 段落一行，段内拼接 w:t 文字
func docxText(xml string) string {
	var sb strings.Builder
	for _, para := range reDocxParagraph.Split(xml, -1) {
		var line strings.Builder
		for _, m := range reDocxRun.FindAllStringSubmatch(para, -1) {
			line.WriteString(html.UnescapeString(m[1]))
		}
		if s := strings.TrimSpace(line.String()); s != "" {
			sb.WriteString(s)
			sb.WriteString("\n")
		}
	}
	return squeeze(sb.String())
}

var reBlankRuns = regexp.MustCompile(`\n{3,}`)

// squeeze 统一换行并压缩连续空行
func squeeze(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.TrimSpace(reBlankRuns.ReplaceAllString(text, "\n\n"))
}
