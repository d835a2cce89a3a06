package fontpreview

import (
	"bytes"
	"fmt"
	"os"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
)

// FamilyName 读取字体文件并解析字体族名
func FamilyName(fontPath string) (string, error) {
	data, err := os.ReadFile(fontPath)
	if err != nil {
		return "", fmt.Errorf("读取字体文件失败: %v", err)
	}

	f, err := truetype.Parse(data)
	if err != nil {
		return "", fmt.Errorf("解析字体文件失败: %v", err)
	}

	name := f.Name(truetype.NameIDFontFamily)
	if name == "" {
		return "", fmt.Errorf("字体文件缺少族名: %s", fontPath)
	}
	return name, nil
}

// RenderSample 用指定字体渲染示例文字，返回 PNG 数据
func RenderSample(fontPath, text string, fontSize float64, width, height int) ([]byte, error) {
	data, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("读取字体文件失败: %v", err)
	}

	f, err := truetype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("解析字体文件失败: %v", err)
	}

	var face font.Face = truetype.NewFace(f, &truetype.Options{
		Size:    fontSize,
		Hinting: font.HintingFull,
	})
	defer face.Close()

	dc := gg.NewContext(width, height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	dc.SetFontFace(face)
	dc.SetRGB(0.1, 0.1, 0.1)
	dc.DrawStringAnchored(text, float64(width)/2, float64(height)/2, 0.5, 0.5)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("编码预览图失败: %v", err)
	}
	return buf.Bytes(), nil
}
