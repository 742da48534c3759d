package service

import (
	"testing"
	"time"

	"github.com/OscarR093/reportesMtto/internal/config"
	"github.com/OscarR093/reportesMtto/internal/mtto/entity"
	"github.com/OscarR093/reportesMtto/internal/mtto/equipment"
	"github.com/OscarR093/reportesMtto/internal/mtto/repository"
	"github.com/OscarR093/reportesMtto/internal/mtto/sse"
	"github.com/OscarR093/reportesMtto/internal/mtto/testutil"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// plantZone UTC-6 fija para que los turnos no dependan del host
var plantZone = time.FixedZone("CST", -6*3600)

type testEnv struct {
	db      *gorm.DB
	repos   *repository.Repositories
	cfg     *config.Config
	hub     *sse.Hub
	store   *MemoryStateStore
	storage *StorageService
	export  *ExportService
	report  *ReportService
	pending *PendingService
	auth    *AuthService
	users   *UserService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	logger := zap.NewNop()

	cfg := config.Default()
	cfg.JWT.Secret = testutil.JWTSecret
	cfg.App.SuperAdminEmail = "jefe@planta.test"

	resolver := equipment.NewResolverFromBytes([]byte(testutil.EquipmentJSON))
	hub := sse.NewHub(logger)
	store := NewMemoryStateStore()
	storage := NewStorageService(nil, "", "", t.TempDir(), logger)
	export := NewExportService(plantZone, logger)

	return &testEnv{
		db:      db,
		repos:   repos,
		cfg:     cfg,
		hub:     hub,
		store:   store,
		storage: storage,
		export:  export,
		report:  NewReportService(repos.Report, repos.User, resolver, storage, export, hub, plantZone, logger),
		pending: NewPendingService(repos.Pending, repos.User, resolver, export, hub, plantZone, logger),
		auth:    NewAuthService(repos.User, store, cfg, logger),
		users:   NewUserService(repos.User, logger),
	}
}

func (e *testEnv) user(t *testing.T, name string) *entity.User {
	return testutil.SeedUser(t, e.db, name, entity.RoleUser, entity.UserStatusActive)
}

func (e *testEnv) admin(t *testing.T, name string) *entity.User {
	return testutil.SeedUser(t, e.db, name, entity.RoleAdmin, entity.UserStatusActive)
}

func strPtr(s string) *string { return &s }
