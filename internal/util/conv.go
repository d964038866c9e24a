package util

import (
	"strconv"
	"strings"
)

// ParseID 解析路径参数、房间名和缓存成员中的自增 ID；0 与非数字都视为无效
func ParseID(s string) (uint, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
