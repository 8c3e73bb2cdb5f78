// Package filter 解析并应用图片对象的滤镜表达式。
// 表达式形如 "brightness(0.2) contrast(-0.1) saturate(0.3) chroma-key(#ffffff, 0.12)"，
// 解析后的滤镜栈按出现顺序逐像素应用。
package filter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var (
	filterLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
		{Name: "Color", Pattern: `#(?:[0-9A-Fa-f]{6}|[0-9A-Fa-f]{3})`},
		{Name: "Number", Pattern: `[-+]?(?:\d+\.\d+|\.\d+|\d+)`},
		{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_-]*`},
		{Name: "Symbol", Pattern: `[(),]`},
	})

	stackParser = participle.MustBuild[stackAST](
		participle.Lexer(filterLexer),
		participle.Elide("Whitespace"),
	)
)

type stackAST struct {
	Calls []*callAST `parser:"( @@ )*"`
}

type callAST struct {
	Name string    `parser:"@Ident"`
	Args []*argAST `parser:"'(' ( @@ ( ',' @@ )* )? ')'"`
}

type argAST struct {
	Number *string `parser:"  @Number"`
	Color  *string `parser:"| @Color"`
}

// OpKind 标识滤镜种类。
type OpKind int

const (
	OpBrightness OpKind = iota
	OpContrast
	OpSaturate
	OpChromaKey
)

// Op 是语义化之后的单个滤镜操作。
// Amount 取值约定为 [-1,1]；ChromaKey 使用 KeyR/G/B 与 Tolerance。
type Op struct {
	Kind      OpKind
	Amount    float64
	KeyR      int
	KeyG      int
	KeyB      int
	Tolerance float64
}

// Parse 将滤镜表达式解析为滤镜栈。空表达式返回空栈。
func Parse(expr string) ([]Op, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, nil
	}
	ast, err := stackParser.ParseString("", expr)
	if err != nil {
		return nil, fmt.Errorf("解析滤镜表达式失败: %w", err)
	}
	ops := make([]Op, 0, len(ast.Calls))
	for _, call := range ast.Calls {
		op, err := lowerCall(call)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, nil
}

func lowerCall(call *callAST) (Op, error) {
	name := strings.ToLower(call.Name)
	switch name {
	case "brightness", "contrast", "saturate", "saturation":
		amount, err := singleNumber(call)
		if err != nil {
			return Op{}, err
		}
		kind := OpBrightness
		switch name {
		case "contrast":
			kind = OpContrast
		case "saturate", "saturation":
			kind = OpSaturate
		}
		return Op{Kind: kind, Amount: amount}, nil
	case "chroma-key", "chromakey", "remove-color":
		if len(call.Args) == 0 || call.Args[0].Color == nil {
			return Op{}, fmt.Errorf("滤镜 %s 需要一个颜色参数", call.Name)
		}
		r, g, b := parseHexColor(*call.Args[0].Color)
		tol := 0.1
		if len(call.Args) > 1 && call.Args[1].Number != nil {
			if v, err := strconv.ParseFloat(*call.Args[1].Number, 64); err == nil {
				tol = v
			}
		}
		return Op{Kind: OpChromaKey, KeyR: r, KeyG: g, KeyB: b, Tolerance: tol}, nil
	default:
		return Op{}, fmt.Errorf("未知的滤镜: %q", call.Name)
	}
}

func singleNumber(call *callAST) (float64, error) {
	if len(call.Args) != 1 || call.Args[0].Number == nil {
		return 0, fmt.Errorf("滤镜 %s 需要一个数值参数", call.Name)
	}
	v, err := strconv.ParseFloat(*call.Args[0].Number, 64)
	if err != nil {
		return 0, fmt.Errorf("滤镜 %s 的参数无效: %w", call.Name, err)
	}
	return v, nil
}

func parseHexColor(value string) (int, int, int) {
	value = strings.TrimPrefix(value, "#")
	if len(value) == 3 {
		value = strings.Repeat(string(value[0]), 2) +
			strings.Repeat(string(value[1]), 2) +
			strings.Repeat(string(value[2]), 2)
	}
	hex := func(s string) int {
		v, _ := strconv.ParseInt(s, 16, 64)
		return int(v)
	}
	return hex(value[0:2]), hex(value[2:4]), hex(value[4:6])
}
