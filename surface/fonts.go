package surface

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-fonts/latin-modern/lmroman10bold"
	"github.com/go-fonts/latin-modern/lmroman10bolditalic"
	"github.com/go-fonts/latin-modern/lmroman10italic"
	"github.com/go-fonts/latin-modern/lmroman10regular"
	"github.com/go-fonts/latin-modern/lmsans10bold"
	"github.com/go-fonts/latin-modern/lmsans10regular"
	"github.com/tdewolff/canvas"

	"github.com/ByLCY/imprint/geom"
	"github.com/ByLCY/imprint/scene"
)

// 字体管理：按 family+weight+style 缓存 canvas.FontFamily。
// 未注册的字体名回退到内置的 Latin Modern 字族，保证文本永远可渲染。

type fontCache struct {
	mu       sync.Mutex
	families map[string]*canvas.FontFamily
	// 外部注册的字体字节（按 family|style 键）
	blobs map[string][]byte
}

func newFontCache() *fontCache {
	return &fontCache{
		families: map[string]*canvas.FontFamily{},
		blobs:    map[string][]byte{},
	}
}

// register 注入外部字体数据，例如用户上传的 ttf。
func (fc *fontCache) register(family string, style canvas.FontStyle, data []byte) {
	if family == "" || len(data) == 0 {
		return
	}
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.blobs[fontKey(family, style)] = data
	// 使既有缓存失效，下次取用时重新加载
	delete(fc.families, fontKey(family, style))
}

// face 返回绘制用字体面。size 为场景单位，内部换算为 pt。
func (fc *fontCache) face(props *scene.TextProps, size float64, col scene.Color, opacity float64) (*canvas.FontFace, error) {
	style := fontStyleOf(props)
	family, err := fc.ensureFamily(props.FontFamily, style)
	if err != nil {
		return nil, err
	}
	rgba := canvas.RGBA(float64(col.R)/255, float64(col.G)/255, float64(col.B)/255, opacity)
	return family.Face(size*geom.UnitToPt, rgba, style, canvas.FontNormal), nil
}

func (fc *fontCache) ensureFamily(name string, style canvas.FontStyle) (*canvas.FontFamily, error) {
	key := fontKey(name, style)
	fc.mu.Lock()
	defer fc.mu.Unlock()

	if fam, ok := fc.families[key]; ok {
		return fam, nil
	}

	data, ok := fc.blobs[key]
	if !ok {
		data = builtinFont(name, style)
	}
	fam := canvas.NewFontFamily(familyLabel(name))
	if err := fam.LoadFont(data, 0, style); err != nil {
		return nil, fmt.Errorf("加载字体 %s 失败: %w", familyLabel(name), err)
	}
	fc.families[key] = fam
	return fam, nil
}

// builtinFont 按字族与样式选择内置 Latin Modern 数据。
func builtinFont(name string, style canvas.FontStyle) []byte {
	if strings.Contains(strings.ToLower(name), "sans") {
		if style&canvas.FontBold != 0 {
			return lmsans10bold.TTF
		}
		return lmsans10regular.TTF
	}
	bold := style&canvas.FontBold != 0
	italic := style&canvas.FontItalic != 0
	switch {
	case bold && italic:
		return lmroman10bolditalic.TTF
	case bold:
		return lmroman10bold.TTF
	case italic:
		return lmroman10italic.TTF
	default:
		return lmroman10regular.TTF
	}
}

func fontStyleOf(props *scene.TextProps) canvas.FontStyle {
	style := canvas.FontRegular
	if strings.EqualFold(props.Weight, "bold") {
		style = canvas.FontBold
	}
	if strings.EqualFold(props.Style, "italic") || strings.EqualFold(props.Style, "oblique") {
		style |= canvas.FontItalic
	}
	return style
}

func familyLabel(name string) string {
	if name == "" {
		return "imprint-default"
	}
	return name
}

func fontKey(family string, style canvas.FontStyle) string {
	return fmt.Sprintf("%s|%d", family, style)
}
