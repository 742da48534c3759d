package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/OscarR093/reportesMtto/internal/middleware"
	"github.com/OscarR093/reportesMtto/internal/mtto/entity"
	"github.com/OscarR093/reportesMtto/internal/mtto/repository"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const JWTSecret = "reportes-mtto-test-secret"

// TestEnv recursos de una prueba de handlers
type TestEnv struct {
	DB     *gorm.DB
	Router *gin.Engine
	T      *testing.T
}

// EquipmentJSON árbol reducido con ambas formas: hojas como lista y como mapa
const EquipmentJSON = `{
  "fusion": {
    "horno 1": {
      "quemador": ["valvula", "piloto"],
      "puerta": {"bisagra": {}, "sello": {}}
    },
    "horno 2": ["tapa", 7]
  },
  "moldeo": {
    "linea a": {
      "prensa": ["cilindro", "bomba"]
    }
  },
  "mantenimiento": {}
}`

// SetupTestDB base sqlite en memoria, aislada por prueba
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// nombre único para que cada prueba tenga su propia base compartida entre conexiones
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	if err := repository.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate test tables: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, _ := db.DB(); sqlDB != nil {
			sqlDB.Close()
		}
	})
	return db
}

// SetupRouter router de gin en modo test
func SetupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(gin.Recovery())
	return r
}

// AuthGroup grupo con JWTAuth para pruebas
func AuthGroup(r *gin.Engine, path string) *gin.RouterGroup {
	return r.Group(path, middleware.JWTAuth(JWTSecret))
}

// GenerateTestToken access token válido por 24h
func GenerateTestToken(userID, name, email, role string) string {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":    userID,
		"uid":    userID,
		"name":   name,
		"email":  email,
		"role":   role,
		"status": entity.UserStatusActive,
		"type":   "access",
		"iss":    "reportes-mtto",
		"iat":    now.Unix(),
		"exp":    now.Add(24 * time.Hour).Unix(),
		"jti":    fmt.Sprintf("test-jti-%d", now.UnixNano()),
	}
	token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(JWTSecret))
	return token
}

// TokenFor token para un usuario sembrado
func TokenFor(u *entity.User) string {
	return GenerateTestToken(u.ID, u.Name, u.Email, u.Role)
}

// DoRequest ejecuta un request JSON contra el router
func DoRequest(r *gin.Engine, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	reqBody := bytes.NewBuffer(nil)
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ParseResponse decodifica el sobre {code, message, data}
func ParseResponse(w *httptest.ResponseRecorder) map[string]interface{} {
	var result map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &result)
	return result
}

// Data campo data del sobre como mapa
func Data(w *httptest.ResponseRecorder) map[string]interface{} {
	data, _ := ParseResponse(w)["data"].(map[string]interface{})
	return data
}

// SeedUser crea un usuario con rol y estado dados
func SeedUser(t *testing.T, db *gorm.DB, name, role, status string) *entity.User {
	t.Helper()
	id := uuid.New().String()
	user := &entity.User{
		ID:        id,
		Email:     fmt.Sprintf("%s@planta.test", id[:8]),
		Name:      name,
		Role:      role,
		Status:    status,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to seed test user: %v", err)
	}
	return user
}
