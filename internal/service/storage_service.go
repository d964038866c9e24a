package service

import (
	"bytes"
	"context"
	"fmt"
	"helpmarket_backend/internal/config"
	"helpmarket_backend/internal/model"
	"helpmarket_backend/internal/util"
	"helpmarket_backend/pkg/logger"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// StorageProvider 保存处理好的本地图片文件，返回对外访问地址
type StorageProvider interface {
	Store(ctx context.Context, key, localPath, contentType string) (string, error)
	URL(key string) string
}

const imageCacheControl = "public, max-age=31536000, immutable"

// LocalStorageProvider 写入 local_path，由 /uploads 静态路由对外提供
type LocalStorageProvider struct {
	Config *config.StorageConfig
}

func (p *LocalStorageProvider) Store(ctx context.Context, key, localPath, contentType string) (string, error) {
	dst := filepath.Join(p.Config.LocalPath, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return "", err
	}

	src, err := os.Open(localPath)
	if err != nil {
		return "", err
	}
	defer src.Close()

	// 先写临时文件再改名
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return p.URL(key), nil
}

func (p *LocalStorageProvider) URL(key string) string {
	return "/uploads/" + key
}

// MinioStorageProvider 图片存入 MinIO 桶，地址相对于反向代理上的桶路径
type MinioStorageProvider struct {
	Bucket string
	Client *minio.Client
}

func NewMinioStorageProvider(cfg *config.StorageConfig) (*MinioStorageProvider, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds: credentials.NewStaticV4(cfg.MinioAccessID, cfg.MinioSecret, ""),
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, fmt.Errorf("check minio bucket %s: %w", cfg.MinioBucket, err)
	}
	if !exists {
		return nil, fmt.Errorf("minio bucket %s does not exist", cfg.MinioBucket)
	}
	return &MinioStorageProvider{Bucket: cfg.MinioBucket, Client: client}, nil
}

func (p *MinioStorageProvider) Store(ctx context.Context, key, localPath, contentType string) (string, error) {
	_, err := p.Client.FPutObject(ctx, p.Bucket, key, localPath, minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: imageCacheControl,
	})
	if err != nil {
		return "", fmt.Errorf("minio put %s: %w", key, err)
	}
	return p.URL(key), nil
}

func (p *MinioStorageProvider) URL(key string) string {
	return "/" + p.Bucket + "/" + key
}

// OSSStorageProvider 图片存入阿里云 OSS，桶在创建时解析一次
type OSSStorageProvider struct {
	Endpoint string
	Bucket   *oss.Bucket
}

func NewOSSStorageProvider(cfg *config.StorageConfig) (*OSSStorageProvider, error) {
	client, err := oss.New(cfg.OSSEndpoint, cfg.OSSAccessKey, cfg.OSSSecretKey)
	if err != nil {
		return nil, fmt.Errorf("oss client: %w", err)
	}
	bucket, err := client.Bucket(cfg.OSSBucket)
	if err != nil {
		return nil, fmt.Errorf("oss bucket %s: %w", cfg.OSSBucket, err)
	}
	return &OSSStorageProvider{Endpoint: cfg.OSSEndpoint, Bucket: bucket}, nil
}

func (p *OSSStorageProvider) Store(ctx context.Context, key, localPath, contentType string) (string, error) {
	if err := p.Bucket.PutObjectFromFile(key, localPath,
		oss.ContentType(contentType),
		oss.CacheControl(imageCacheControl),
	); err != nil {
		return "", fmt.Errorf("oss put %s: %w", key, err)
	}
	return p.URL(key), nil
}

func (p *OSSStorageProvider) URL(key string) string {
	return fmt.Sprintf("https://%s.%s/%s", p.Bucket.BucketName, p.Endpoint, key)
}

// StorageService 存储服务
type StorageService struct {
	Provider StorageProvider
	Upload   config.UploadConfig
	// 缩放与探测宽度，默认走 ffmpeg
	resize  func(src, dst string, maxWidth int) error
	widthOf func(path string) (int, error)
}

func NewStorageService(cfg *config.Config) *StorageService {
	var provider StorageProvider
	switch cfg.Storage.Type {
	case util.StorageMinio:
		p, err := NewMinioStorageProvider(&cfg.Storage)
		if err != nil {
			logger.Log.Error("Init minio storage failed, falling back to local", zap.Error(err))
		} else {
			provider = p
		}
	case util.StorageOSS:
		p, err := NewOSSStorageProvider(&cfg.Storage)
		if err != nil {
			logger.Log.Error("Init OSS storage failed, falling back to local", zap.Error(err))
		} else {
			provider = p
		}
	}

	if provider == nil {
		provider = &LocalStorageProvider{Config: &cfg.Storage}
	}

	return &StorageService{Provider: provider, Upload: cfg.Upload, resize: util.ResizeImage, widthOf: util.ImageWidth}
}

// UploadImage 校验大小与类型，缩放到最大宽度后交给存储；缩放失败时保存原图
func (s *StorageService) UploadImage(ctx context.Context, ownerID uint, originalName string, reader io.Reader, size int64) (string, error) {
	if s.Upload.MaxImageBytes > 0 && size > s.Upload.MaxImageBytes {
		return "", util.Rejected("a imagem excede o tamanho máximo de %d bytes", s.Upload.MaxImageBytes)
	}
	if !util.AllowedImageExt(originalName) {
		return "", util.Rejected("formato de imagem não suportado")
	}

	data, err := io.ReadAll(io.LimitReader(reader, size+1))
	if err != nil {
		return "", err
	}
	mimeType, err := util.ValidateMimeType(bytes.NewReader(data), util.AllowedImageTypes)
	if err != nil {
		return "", util.Rejected("tipo de ficheiro inválido: %s", mimeType)
	}

	ext := strings.ToLower(filepath.Ext(originalName))
	filename := fmt.Sprintf("images/%d/%d_%s%s", ownerID, time.Now().Unix(), model.GenerateUUID()[:8], ext)

	tmpDir, err := os.MkdirTemp("", "helpmarket-upload-")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(tmpDir)

	src := filepath.Join(tmpDir, "original"+ext)
	if err := os.WriteFile(src, data, 0644); err != nil {
		return "", err
	}

	path := src
	if s.needsResize(src) {
		dst := filepath.Join(tmpDir, "resized"+ext)
		if err := s.resize(src, dst, s.Upload.MaxImageWidth); err != nil {
			logger.Log.Warn("Image resize failed, storing original", zap.String("file", originalName), zap.Error(err))
		} else {
			path = dst
		}
	}

	return s.Provider.Store(ctx, filename, path, mimeType)
}

// needsResize 宽度未知时也尝试缩放，缩放本身不会放大图片
func (s *StorageService) needsResize(path string) bool {
	if s.Upload.MaxImageWidth <= 0 || s.resize == nil {
		return false
	}
	if s.widthOf == nil {
		return true
	}
	width, err := s.widthOf(path)
	if err != nil {
		return true
	}
	return width > s.Upload.MaxImageWidth
}
