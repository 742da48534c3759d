package service

import (
	"github.com/OscarR093/reportesMtto/internal/config"
	"github.com/OscarR093/reportesMtto/internal/mtto/equipment"
	"github.com/OscarR093/reportesMtto/internal/mtto/repository"
	"github.com/OscarR093/reportesMtto/internal/mtto/sse"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Services colección de servicios
type Services struct {
	Auth      *AuthService
	User      *UserService
	Report    *ReportService
	Pending   *PendingService
	Export    *ExportService
	Storage   *StorageService
	Equipment *equipment.Resolver
	Hub       *sse.Hub
}

// NewServices arma los servicios. rdb nil usa el StateStore en memoria.
func NewServices(repos *repository.Repositories, rdb *redis.Client, cfg *config.Config, hub *sse.Hub, logger *zap.Logger) *Services {
	if logger == nil {
		logger = zap.NewNop()
	}
	if hub == nil {
		hub = sse.NewHub(logger)
	}

	// MinIO opcional; sin endpoint se guarda en disco local
	var minioClient *minio.Client
	if cfg.MinIO.Endpoint != "" {
		var err error
		minioClient, err = minio.New(cfg.MinIO.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.MinIO.AccessKey, cfg.MinIO.SecretKey, ""),
			Secure: cfg.MinIO.UseSSL,
		})
		if err != nil {
			logger.Warn("MinIO unavailable, falling back to local uploads", zap.Error(err))
			minioClient = nil
		}
	}

	var store StateStore
	if rdb != nil {
		store = NewRedisStateStore(rdb)
	} else {
		store = NewMemoryStateStore()
	}

	equipment.SetDataPath(cfg.Equipment.DataPath)
	resolver := equipment.Default()

	loc := cfg.App.Location()
	storage := NewStorageService(minioClient, cfg.MinIO.Bucket, cfg.MinIO.PublicURL, cfg.App.UploadDir, logger)
	export := NewExportService(loc, logger)

	return &Services{
		Auth:      NewAuthService(repos.User, store, cfg, logger),
		User:      NewUserService(repos.User, logger),
		Report:    NewReportService(repos.Report, repos.User, resolver, storage, export, hub, loc, logger),
		Pending:   NewPendingService(repos.Pending, repos.User, resolver, export, hub, loc, logger),
		Export:    export,
		Storage:   storage,
		Equipment: resolver,
		Hub:       hub,
	}
}
