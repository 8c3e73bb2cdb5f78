// Package export 把可打印区域导出为文件字节流：
// PNG、PDF、SVG 与 TIFF 容器，分辨率由倍率或目标 DPI 决定。
package export

import (
	"bytes"
	"fmt"
	"image/png"
	"strings"
	"time"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"
	"github.com/tdewolff/canvas/renderers/svg"

	"github.com/ByLCY/imprint/geom"
	"github.com/ByLCY/imprint/surface"
)

// Format 是导出格式。
type Format string

const (
	PNG  Format = "png"
	PDF  Format = "pdf"
	SVG  Format = "svg"
	TIFF Format = "tiff"
)

// ParseFormat 解析格式名（大小写不敏感，接受 tif 别名）。
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "png":
		return PNG, nil
	case "pdf":
		return PDF, nil
	case "svg":
		return SVG, nil
	case "tiff", "tif":
		return TIFF, nil
	}
	return "", fmt.Errorf("未知的导出格式: %q", name)
}

// Request 描述一次导出。
// 分辨率按优先级取第一个给出的值：Multiplier、DPI（dpi/96）、
// Width/Height（目标像素尺寸除以区域尺寸），全部缺省时取 1。
type Request struct {
	Format     Format
	Multiplier float64
	DPI        float64
	// Width/Height 是目标输出的像素尺寸，二者给出其一即可；
	// 纵横比始终跟随区域，同时给出时以 Width 为准。
	Width  float64
	Height float64

	IncludeBackground bool
	Transparent       bool
	ProductName       string
}

// Result 是导出产物：字节流、媒体类型与约定文件名
// （{product}-design-{date}.{ext}）。
type Result struct {
	Data     []byte
	MIME     string
	Filename string
}

// Exporter 从渲染面读取状态并产出文件字节流。
type Exporter struct {
	surface *surface.Surface
	area    geom.EditableArea
}

// New 创建导出器。区域在每次导出前再次校验。
func New(s *surface.Surface, area geom.EditableArea) *Exporter {
	return &Exporter{surface: s, area: area}
}

// Export 执行一次导出。
// 步骤：取消选区 → 快照可见性状态 → 应用请求的可见性（标记永远隐藏）→
// 渲染 → 编码 → 无论成败恢复可见性状态。
func (e *Exporter) Export(req Request) (*Result, error) {
	// 区域非法时在触碰任何渲染状态之前拒绝
	if err := e.area.Validate(); err != nil {
		return nil, err
	}
	multiplier := req.Multiplier
	if multiplier <= 0 && req.DPI > 0 {
		multiplier = req.DPI / geom.BaseDPI
	}
	if multiplier <= 0 && req.Width > 0 {
		multiplier = req.Width / e.area.Width
	}
	if multiplier <= 0 && req.Height > 0 {
		multiplier = req.Height / e.area.Height
	}
	if multiplier <= 0 {
		multiplier = 1
	}

	// 选区装饰不允许出现在输出里
	e.surface.Deselect()

	saved := e.surface.VisibilityState()
	defer e.surface.ApplyVisibility(saved)

	e.surface.SetMarkerVisible(false)
	e.surface.SetBackgroundVisible(req.IncludeBackground)
	if !req.IncludeBackground || req.Transparent {
		e.surface.SetBackgroundFill(nil)
	}

	var (
		data []byte
		mime string
		err  error
	)
	switch req.Format {
	case PNG:
		data, err = e.encodeRaster(multiplier)
		mime = "image/png"
	case TIFF:
		// 与 PNG 相同的栅格字节，仅重新标记媒体类型；
		// 并非真正的 TIFF 编码，下游消费方需容忍 PNG-in-TIFF 容器
		data, err = e.encodeRaster(multiplier)
		mime = "image/tiff"
	case PDF:
		data, err = e.encodePDF(multiplier)
		mime = "application/pdf"
	case SVG:
		data, err = e.encodeSVG()
		mime = "image/svg+xml"
	default:
		return nil, fmt.Errorf("未知的导出格式: %q", req.Format)
	}
	if err != nil {
		return nil, fmt.Errorf("导出 %s 失败: %w", req.Format, err)
	}

	return &Result{
		Data:     data,
		MIME:     mime,
		Filename: Filename(req.ProductName, req.Format, time.Now()),
	}, nil
}

// Filename 生成约定文件名 {product}-design-{date}.{ext}。
func Filename(product string, format Format, at time.Time) string {
	if product == "" {
		product = "product"
	}
	return fmt.Sprintf("%s-design-%s.%s", product, at.Format("2006-01-02"), format)
}

// encodeRaster 栅格化区域并编码为无损 PNG。
func (e *Exporter) encodeRaster(multiplier float64) ([]byte, error) {
	img, err := e.surface.Rasterize(e.area, multiplier)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("编码 PNG 失败: %w", err)
	}
	return buf.Bytes(), nil
}

// encodePDF 把栅格结果嵌入单页 PDF，页面逻辑尺寸等于区域尺寸
// （宽大于高时自然成为横向页面）。
func (e *Exporter) encodePDF(multiplier float64) ([]byte, error) {
	img, err := e.surface.Rasterize(e.area, multiplier)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	writer := pdf.New(&buf, e.area.Width, e.area.Height, nil)

	page := canvas.New(e.area.Width, e.area.Height)
	ctx := canvas.NewContext(page)
	ctx.SetCoordSystem(canvas.CartesianIV)
	ctx.DrawImage(0, 0, img, canvas.DPMM(multiplier))
	page.RenderTo(writer)

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("写入 PDF 失败: %w", err)
	}
	return buf.Bytes(), nil
}

// encodeSVG 矢量序列化区域。底图栅格无法作为真正的 SVG 背景嵌入，
// 含底图的请求退化为同一裁剪的无底图输出（已在上层隐藏底图）。
func (e *Exporter) encodeSVG() ([]byte, error) {
	e.surface.SetBackgroundVisible(false)
	c, err := e.surface.VectorCanvas(e.area)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	writer := svg.New(&buf, e.area.Width, e.area.Height, nil)
	c.RenderTo(writer)
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("写入 SVG 失败: %w", err)
	}
	return buf.Bytes(), nil
}
