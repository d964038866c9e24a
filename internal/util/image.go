package util

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// ResizeImage 使用 ffmpeg 将图片等比缩放到不超过 maxWidth，输出到 dst
func ResizeImage(src, dst string, maxWidth int) error {
	if maxWidth <= 0 {
		return fmt.Errorf("invalid max width %d", maxWidth)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("创建输出目录失败: %v", err)
	}

	// min(iw, maxWidth)，高度按比例，-2 保证偶数
	width := "min(iw," + strconv.Itoa(maxWidth) + ")"
	return ffmpeg.Input(src).
		Filter("scale", ffmpeg.Args{width, "-2"}).
		Output(dst, ffmpeg.KwArgs{"q:v": "3"}).
		OverWriteOutput().
		Run()
}

// ImageWidth 读取图片宽度
func ImageWidth(path string) (int, error) {
	out, err := ffmpeg.Probe(path)
	if err != nil {
		return 0, err
	}
	var info struct {
		Streams []struct {
			Width int `json:"width"`
		} `json:"streams"`
	}
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		return 0, err
	}
	for _, s := range info.Streams {
		if s.Width > 0 {
			return s.Width, nil
		}
	}
	return 0, fmt.Errorf("no image stream in %s", path)
}
