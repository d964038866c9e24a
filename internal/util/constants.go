package util

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

// 文件上传相关常量
const (
	MimeJPEG = "image/jpeg"
	MimePNG  = "image/png"
	MimeWebP = "image/webp"
)

// 分页
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

const (
	MaxMessageLength = 2000
	MinPasswordLen   = 8
)

var (
	AllowedImageExtensions = []string{".jpg", ".jpeg", ".png", ".webp"}
	AllowedImageTypes      = []string{MimeJPEG, MimePNG, MimeWebP}
)

// NormalizePage 规范化分页参数
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return page, limit
}
