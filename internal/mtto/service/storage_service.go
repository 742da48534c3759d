package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// localURLPrefix ruta pública con la que se sirven los archivos locales
const localURLPrefix = "/uploads/"

// StoredFile archivo subido
type StoredFile struct {
	URL         string `json:"url"`
	Filename    string `json:"filename"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

// StorageService guarda evidencias y avatares. Con cliente MinIO sube al
// bucket configurado; sin cliente escribe en el directorio local.
type StorageService struct {
	client    *minio.Client
	bucket    string
	publicURL string
	localDir  string
	logger    *zap.Logger
}

func NewStorageService(client *minio.Client, bucket, publicURL, localDir string, logger *zap.Logger) *StorageService {
	if localDir == "" {
		localDir = "./uploads"
	}
	return &StorageService{
		client:    client,
		bucket:    bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
		localDir:  localDir,
		logger:    logger,
	}
}

// objectName {folder}/{yyyy}/{mm}/{uuid}{ext}
func objectName(folder, filename string) string {
	now := time.Now()
	ext := strings.ToLower(filepath.Ext(filename))
	return path.Join(folder, now.Format("2006"), now.Format("01"), uuid.New().String()+ext)
}

// Upload sube el contenido y devuelve la URL pública
func (s *StorageService) Upload(ctx context.Context, folder string, reader io.Reader, size int64, filename, contentType string) (*StoredFile, error) {
	name := objectName(folder, filename)

	if s.client != nil {
		_, err := s.client.PutObject(ctx, s.bucket, name, reader, size, minio.PutObjectOptions{
			ContentType: contentType,
		})
		if err != nil {
			return nil, fmt.Errorf("upload file: %w", err)
		}
		return &StoredFile{
			URL:         s.objectURL(name),
			Filename:    filename,
			Size:        size,
			ContentType: contentType,
		}, nil
	}

	dst := filepath.Join(s.localDir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	f, err := os.Create(dst)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}
	written, err := io.Copy(f, reader)
	f.Close()
	if err != nil {
		os.Remove(dst)
		return nil, fmt.Errorf("write file: %w", err)
	}
	return &StoredFile{
		URL:         localURLPrefix + name,
		Filename:    filename,
		Size:        written,
		ContentType: contentType,
	}, nil
}

// Delete borra el objeto referido por la URL; URLs ajenas se ignoran
func (s *StorageService) Delete(ctx context.Context, url string) error {
	if strings.HasPrefix(url, localURLPrefix) {
		rel := strings.TrimPrefix(url, localURLPrefix)
		if strings.Contains(rel, "..") {
			return fmt.Errorf("invalid path %q", url)
		}
		err := os.Remove(filepath.Join(s.localDir, filepath.FromSlash(rel)))
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("delete file: %w", err)
		}
		return nil
	}
	if s.client == nil {
		return nil
	}
	prefix := s.objectURL("")
	if !strings.HasPrefix(url, prefix) {
		return nil
	}
	name := strings.TrimPrefix(url, prefix)
	if err := s.client.RemoveObject(ctx, s.bucket, name, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

// deleteQuietly limpieza de archivos huérfanos; sólo registra fallos
func (s *StorageService) deleteQuietly(ctx context.Context, urls []string) {
	for _, u := range urls {
		if err := s.Delete(ctx, u); err != nil {
			s.logger.Warn("Failed to delete stored file", zap.String("url", u), zap.Error(err))
		}
	}
}

func (s *StorageService) objectURL(name string) string {
	base := s.publicURL
	if base == "" && s.client != nil {
		base = s.client.EndpointURL().String()
	}
	return base + "/" + s.bucket + "/" + name
}

// IsImage tipos de contenido aceptados como evidencia
func IsImage(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "image/")
}
