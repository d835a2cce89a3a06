package script

import (
	"fmt"
	"math"
	"strings"
	"unicode"
)

// SplitMode 文案切分方式
type SplitMode string

const (
	ModePeriod SplitMode = "period" // 按句末标点
	ModeComma  SplitMode = "comma"  // 按逗号分号
	ModeFour   SplitMode = "four"   // 每四行一段
	ModeCustom SplitMode = "custom" // 自定义切分字符
)

// 每个字的默认朗读时长（毫秒）
const DefaultMsPerChar = 300

var (
	periodChars = []rune{'。', '！', '？', '!', '?', '.'}
	commaChars  = []rune{'，', '；', ',', ';'}
)

// Piece 切分产物。Duration 单位微秒，未计算时为 nil。
type Piece struct {
	Text     string
	Duration *int64
}

// Options 切分选项
type Options struct {
	Mode              SplitMode
	CustomSplitChars  string
	CalculateDuration bool
	MsPerChar         int
}

// Split 将文案切分为有序段落。
// 切分字符保留在段尾；不以切分字符结尾的残余文本作为最后一段。
func Split(text string, opts Options) ([]Piece, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("文案内容不能为空")
	}
	if opts.MsPerChar <= 0 {
		opts.MsPerChar = DefaultMsPerChar
	}

	if opts.Mode == ModeFour {
		return splitByFourLines(text, opts), nil
	}

	var splitChars []rune
	switch opts.Mode {
	case ModePeriod, "":
		splitChars = periodChars
	case ModeComma:
		splitChars = commaChars
	case ModeCustom:
		if opts.CustomSplitChars == "" {
			return nil, fmt.Errorf("自定义切分字符不能为空")
		}
		splitChars = []rune(opts.CustomSplitChars)
	default:
		return nil, fmt.Errorf("不支持的切分方式: %s", opts.Mode)
	}

	isSplit := make(map[rune]bool, len(splitChars))
	for _, r := range splitChars {
		isSplit[r] = true
	}

	var pieces []Piece
	var current strings.Builder
	for _, r := range text {
		current.WriteRune(r)
		if isSplit[r] {
			appendPiece(&pieces, current.String(), opts)
			current.Reset()
		}
	}
	appendPiece(&pieces, current.String(), opts)

	return pieces, nil
}

// splitByFourLines 每四个非空行合并为一段
func splitByFourLines(text string, opts Options) []Piece {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}

	var pieces []Piece
	for i := 0; i < len(lines); i += 4 {
		end := i + 4
		if end > len(lines) {
			end = len(lines)
		}
		chunk := strings.Join(lines[i:end], "\n")
		pieces = append(pieces, makePiece(chunk, opts))
	}
	return pieces
}

func appendPiece(pieces *[]Piece, raw string, opts Options) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return
	}
	*pieces = append(*pieces, makePiece(text, opts))
}

func makePiece(text string, opts Options) Piece {
	piece := Piece{Text: text}
	if opts.CalculateDuration {
		d := EstimateDuration(text, opts.MsPerChar)
		piece.Duration = &d
	}
	return piece
}

// EstimateDuration 按非空白字符数估算时长，返回微秒
func EstimateDuration(text string, msPerChar int) int64 {
	var count int64
	for _, r := range text {
		if !unicode.IsSpace(r) {
			count++
		}
	}
	return count * int64(msPerChar) * 1000
}

// FormatDuration 将微秒时长格式化为保留一位小数的秒数显示
func FormatDuration(micros int64) string {
	return fmt.Sprintf("%.1f秒", float64(micros)/1e6)
}

// ParseDuration 将显示用的秒数解析回微秒。
// 与 FormatDuration 构成有损往返：round(d/1e6,1) 再乘回不保证等于原值，
// 这是与显示值保持一致的既定行为，不做静默修正。
func ParseDuration(display string) (int64, bool) {
	trimmed := strings.TrimSuffix(strings.TrimSpace(display), "秒")
	if trimmed == "" || trimmed == "--" {
		return 0, false
	}
	var seconds float64
	if _, err := fmt.Sscanf(trimmed, "%f", &seconds); err != nil {
		return 0, false
	}
	return int64(math.Round(seconds * 1e6)), true
}
