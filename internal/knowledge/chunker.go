package knowledge

import (
	"strings"
	"unicode"
)

// Chunk 表示分块后的文本结构
type Chunk struct {
	Index int
	Text  string
}

// Chunker 文本分块器。优先在段落、句子、词边界切分，
// 找不到合适边界时按字符硬切。相邻chunk之间保留约chunkOverlap个字符的重叠。
type Chunker struct {
	chunkSize    int
	chunkOverlap int
}

// NewChunker 创建分块器
func NewChunker(chunkSize, overlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = 500
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &Chunker{
		chunkSize:    chunkSize,
		chunkOverlap: overlap,
	}
}

// Split 将文本切分为多个chunk。空输入返回nil，
// 不超过chunkSize的输入返回单个chunk。结果只依赖输入，可安全重复调用。
func (c *Chunker) Split(text string) []Chunk {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) == 0 {
		return nil
	}

	var chunks []Chunk
	start := 0
	for start < len(runes) {
		end := start + c.chunkSize
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = c.findBreak(runes, start, end)
		}

		chunkText := strings.TrimSpace(string(runes[start:end]))
		if chunkText != "" {
			chunks = append(chunks, Chunk{
				Index: len(chunks),
				Text:  chunkText,
			})
		}

		if end == len(runes) {
			break
		}

		next := end - c.chunkOverlap
		if next <= start {
			// 重叠不能把窗口推回去，否则死循环
			next = start + 1
		}
		start = next
	}

	return chunks
}

// findBreak 在(start, limit]内从右往左找最合适的切分点。
// 段落边界 > 句子边界 > 词边界 > 硬切。
func (c *Chunker) findBreak(runes []rune, start, limit int) int {
	// 边界搜索窗口限制在chunk后1/3，避免切出过短的chunk
	floor := start + (limit-start)*2/3

	for i := limit; i > floor; i-- {
		if isParagraphBreak(runes, i) {
			return i
		}
	}
	for i := limit; i > floor; i-- {
		if isSentenceEnd(runes[i-1]) {
			return i
		}
	}
	for i := limit; i > floor; i-- {
		if unicode.IsSpace(runes[i-1]) {
			return i
		}
	}
	return limit
}

func isParagraphBreak(runes []rune, pos int) bool {
	if pos < 2 {
		return false
	}
	return runes[pos-1] == '\n' && runes[pos-2] == '\n'
}

func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?', '。', '！', '？', '；', ';':
		return true
	}
	return false
}
