// Package storage 提供了与对象存储服务（如 MinIO）交互的功能。
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"postcraft-go/internal/config"
	"postcraft-go/pkg/log"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioClient 是一个全局的 MinIO 客户端实例。
var MinioClient *minio.Client

// InitMinIO 初始化 MinIO 客户端并确保指定的存储桶存在。
func InitMinIO(cfg config.MinIOConfig) {
	var err error

	MinioClient, err = minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		log.Fatal("初始化 MinIO 客户端失败", err)
	}

	log.Info("MinIO 客户端初始化成功")

	ctx := context.Background()
	bucketName := cfg.BucketName
	exists, err := MinioClient.BucketExists(ctx, bucketName)
	if err != nil {
		log.Fatal("检查 MinIO 存储桶失败", err)
	}

	if !exists {
		log.Infof("存储桶 '%s' 不存在，正在创建...", bucketName)
		err = MinioClient.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{})
		if err != nil {
			log.Fatal("创建 MinIO 存储桶失败", err)
		}
		log.Infof("存储桶 '%s' 创建成功", bucketName)
	} else {
		log.Infof("存储桶 '%s' 已存在", bucketName)
	}
}

// Archive 把跨平台改写结果以 JSON 形式归档到存储桶。
type Archive struct {
	client     *minio.Client
	bucketName string
}

// NewArchive 创建一个 Archive，client 通常是 MinioClient。
func NewArchive(client *minio.Client, bucketName string) *Archive {
	return &Archive{client: client, bucketName: bucketName}
}

// ObjectName 返回归档对象的路径：adaptations/{userID}/{id}.json
func ObjectName(userID uint, id string) string {
	return fmt.Sprintf("adaptations/%d/%s.json", userID, id)
}

// ArchiveAdaptation 序列化 v 并上传，返回对象名。
func (a *Archive) ArchiveAdaptation(ctx context.Context, userID uint, id string, v interface{}) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal archive: %w", err)
	}
	objectName := ObjectName(userID, id)
	_, err = a.client.PutObject(ctx, a.bucketName, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload archive: %w", err)
	}
	return objectName, nil
}

// GetPresignedURL 生成对象的临时下载链接。
func (a *Archive) GetPresignedURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	presignedURL, err := a.client.PresignedGetObject(ctx, a.bucketName, objectName, expiry, nil)
	if err != nil {
		log.Errorf("Error generating presigned URL: %s", err)
		return "", err
	}
	return presignedURL.String(), nil
}
