package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/ByLCY/imprint/export"
	"github.com/ByLCY/imprint/geom"
	"github.com/ByLCY/imprint/printarea"
	"github.com/ByLCY/imprint/scene"
	"github.com/ByLCY/imprint/surface"
)

// Product 是外部输入的产品配置。
type Product struct {
	Name            string            `json:"name"`
	Width           float64           `json:"width"`
	Height          float64           `json:"height"`
	BackgroundImage string            `json:"backgroundImage,omitempty"`
	BackgroundColor string            `json:"backgroundColor,omitempty"`
	EditableArea    geom.EditableArea `json:"editableArea"`
}

func main() {
	productPath := flag.String("product", "examples/product.json", "产品配置 JSON 路径")
	designPath := flag.String("design", "", "设计快照 JSON 路径")
	dataJSON := flag.String("data", "", "绑定到模板文本的 JSON 数据")
	format := flag.String("format", "png", "导出格式：png/pdf/svg/tiff")
	dpi := flag.Float64("dpi", 0, "目标 DPI（与 -scale 二选一，scale 优先）")
	scale := flag.Float64("scale", 0, "分辨率倍率")
	noBackground := flag.Bool("no-background", false, "不包含产品底图")
	transparent := flag.Bool("transparent", false, "输出透明背景")
	free := flag.Bool("free", false, "自由摆放模式（默认把对象夹入可打印区域）")
	outDir := flag.String("out", "output", "输出目录")
	flag.Parse()

	var bindData any
	if *dataJSON != "" {
		if err := json.Unmarshal([]byte(*dataJSON), &bindData); err != nil {
			log.Fatalf("解析 data JSON 失败: %v", err)
		}
	}

	result, err := run(*productPath, *designPath, bindData, options{
		format:       *format,
		dpi:          *dpi,
		scale:        *scale,
		noBackground: *noBackground,
		transparent:  *transparent,
		free:         *free,
	})
	if err != nil {
		log.Fatalf("导出失败: %v", err)
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatalf("创建输出目录失败: %v", err)
	}
	outPath := filepath.Join(*outDir, result.Filename)
	if err := os.WriteFile(outPath, result.Data, 0o644); err != nil {
		log.Fatalf("写入输出文件失败: %v", err)
	}
	fmt.Printf("已导出：%s（%s，%d 字节）\n", outPath, result.MIME, len(result.Data))
}

type options struct {
	format       string
	dpi          float64
	scale        float64
	noBackground bool
	transparent  bool
	free         bool
}

// run 串联产品装配、设计载入与导出。
func run(productPath, designPath string, bindData any, opts options) (*export.Result, error) {
	product, err := loadProduct(productPath)
	if err != nil {
		return nil, err
	}

	s := surface.New(product.Width, product.Height)
	if product.BackgroundColor != "" {
		c, err := scene.ParseColor(product.BackgroundColor)
		if err != nil {
			return nil, fmt.Errorf("产品底色无效: %w", err)
		}
		s.SetBackgroundFill(&c)
	}
	if product.BackgroundImage != "" {
		blob, err := os.ReadFile(resolvePath(productPath, product.BackgroundImage))
		if err != nil {
			return nil, fmt.Errorf("读取产品底图失败: %w", err)
		}
		img, err := surface.DecodeImage(blob)
		if err != nil {
			return nil, err
		}
		s.SetBackgroundImage(img)
	}

	policy := printarea.PolicyClamp
	if opts.free {
		policy = printarea.PolicyFree
	}
	overlay, err := printarea.Install(s, product.EditableArea, policy)
	if err != nil {
		return nil, err
	}

	if designPath != "" {
		if err := loadDesign(s, designPath, bindData); err != nil {
			return nil, err
		}
	}

	format, err := export.ParseFormat(opts.format)
	if err != nil {
		return nil, err
	}
	exporter := export.New(s, overlay.Area())
	return exporter.Export(export.Request{
		Format:            format,
		Multiplier:        opts.scale,
		DPI:               opts.dpi,
		IncludeBackground: !opts.noBackground,
		Transparent:       opts.transparent,
		ProductName:       product.Name,
	})
}

func loadProduct(path string) (*Product, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取产品配置 %s 失败: %w", path, err)
	}
	var product Product
	if err := json.Unmarshal(data, &product); err != nil {
		return nil, fmt.Errorf("解析产品配置失败: %w", err)
	}
	if product.Width <= 0 || product.Height <= 0 {
		return nil, fmt.Errorf("产品画布尺寸无效: %gx%g", product.Width, product.Height)
	}
	return &product, nil
}

// loadDesign 载入设计快照并为图片对象挂接像素。
func loadDesign(s *surface.Surface, path string, bindData any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("读取设计快照 %s 失败: %w", path, err)
	}
	skipped, err := s.LoadTemplate(data, bindData)
	if err != nil {
		return err
	}
	if skipped > 0 {
		fmt.Printf("警告：跳过 %d 个无法识别的对象条目\n", skipped)
	}

	var failed []string
	for _, obj := range s.Objects() {
		if obj.Kind != scene.KindImage || obj.Image == nil || obj.Image.Src == "" {
			continue
		}
		blob, err := os.ReadFile(resolvePath(path, obj.Image.Src))
		if err != nil {
			failed = append(failed, fmt.Sprintf("%s: %v", obj.Image.Src, err))
			continue
		}
		img, err := surface.DecodeImage(blob)
		if err != nil {
			failed = append(failed, fmt.Sprintf("%s: %v", obj.Image.Src, err))
			continue
		}
		if err := s.SetPixels(obj.ID, img); err != nil {
			failed = append(failed, fmt.Sprintf("%s: %v", obj.Image.Src, err))
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("部分图片资源加载失败: %v", failed)
	}
	return nil
}

func resolvePath(baseFile, ref string) string {
	if filepath.IsAbs(ref) {
		return ref
	}
	return filepath.Join(filepath.Dir(baseFile), ref)
}
