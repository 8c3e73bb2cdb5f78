package surface

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

// 异步像素加载：加载请求按槽位（对象 id 或底图）发放令牌，
// 后到的请求使先前的令牌作废。迟到的结果与当前令牌比对后丢弃，
// 而不是依赖时序来消解竞争。

// LoadToken 标识一次进行中的像素加载请求。
type LoadToken struct {
	slot string
	seq  uint64
}

// BackgroundSlot 是底图加载使用的固定槽位。
const BackgroundSlot = "background"

// BeginLoad 为槽位发起一次新的加载，作废该槽位上所有未完成的请求。
func (s *Surface) BeginLoad(slot string) LoadToken {
	s.loadSeq++
	if s.pendingLoads == nil {
		s.pendingLoads = map[string]uint64{}
	}
	s.pendingLoads[slot] = s.loadSeq
	return LoadToken{slot: slot, seq: s.loadSeq}
}

// FinishLoad 提交一次加载结果。
// 返回值 applied 表示像素是否真正生效；被更晚的请求取代、
// 或目标对象已被删除时结果被丢弃（applied=false，无错误）。
// loadErr 非空时引擎保持失败前的状态不变，仅把错误转述给调用方。
func (s *Surface) FinishLoad(token LoadToken, img image.Image, loadErr error) (applied bool, err error) {
	latest, ok := s.pendingLoads[token.slot]
	if !ok || latest != token.seq {
		return false, nil
	}
	delete(s.pendingLoads, token.slot)

	if loadErr != nil {
		return false, fmt.Errorf("加载图片资源失败（%s）: %w", token.slot, loadErr)
	}
	if img == nil {
		return false, fmt.Errorf("加载图片资源失败（%s）: 结果为空", token.slot)
	}

	if token.slot == BackgroundSlot {
		s.bgImage = img
		return true, nil
	}

	obj, ok := s.byID(token.slot)
	if !ok {
		// 对象在加载期间被删除，丢弃结果
		return false, nil
	}
	s.pixels[token.slot] = img
	if obj.Image != nil && obj.Image.NaturalWidth == 0 {
		obj.Image.NaturalWidth = float64(img.Bounds().Dx())
		obj.Image.NaturalHeight = float64(img.Bounds().Dy())
	}
	s.notify()
	return true, nil
}

// DecodeImage 解码 PNG/JPEG/GIF 字节流。
func DecodeImage(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("解码图片失败: %w", err)
	}
	return img, nil
}
