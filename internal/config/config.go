package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	MinIO     MinIOConfig     `mapstructure:"minio"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Google    GoogleConfig    `mapstructure:"google"`
	Equipment EquipmentConfig `mapstructure:"equipment"`
	App       AppConfig       `mapstructure:"app"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	FrontendURL     string        `mapstructure:"frontend_url"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	TimeZone        string        `mapstructure:"timezone"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// DSN cadena de conexión para el driver de postgres
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode, c.TimeZone,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// Enabled sin host no se crea cliente y se usa el almacén en memoria
func (c RedisConfig) Enabled() bool {
	return c.Host != ""
}

type MinIOConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	PublicURL string `mapstructure:"public_url"`
}

type JWTConfig struct {
	Secret             string        `mapstructure:"secret"`
	AccessTokenExpire  time.Duration `mapstructure:"access_token_expire"`
	RefreshTokenExpire time.Duration `mapstructure:"refresh_token_expire"`
	Issuer             string        `mapstructure:"issuer"`
}

type GoogleConfig struct {
	ClientID      string        `mapstructure:"client_id"`
	ClientSecret  string        `mapstructure:"client_secret"`
	RedirectURL   string        `mapstructure:"redirect_url"`
	AllowedDomain string        `mapstructure:"allowed_domain"`
	StateTTL      time.Duration `mapstructure:"state_ttl"`
}

// Enabled login con Google configurado
func (c GoogleConfig) Enabled() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

type EquipmentConfig struct {
	DataPath string `mapstructure:"data_path"`
}

type AppConfig struct {
	Timezone        string `mapstructure:"timezone"`
	SuperAdminEmail string `mapstructure:"super_admin_email"`
	UploadDir       string `mapstructure:"upload_dir"`
}

// Location zona horaria de la planta; UTC si no se puede cargar
func (c AppConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Default valores por defecto para desarrollo y pruebas
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			Mode:            "debug",
			ReadTimeout:     30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			FrontendURL:     "http://localhost:5173",
		},
		Database: DatabaseConfig{
			Host:            "127.0.0.1",
			Port:            5432,
			User:            "mtto",
			DBName:          "reportes_mtto",
			SSLMode:         "disable",
			TimeZone:        "UTC",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: time.Hour,
			ConnMaxIdleTime: 10 * time.Minute,
		},
		Redis: RedisConfig{
			Port:     6379,
			PoolSize: 10,
		},
		MinIO: MinIOConfig{
			Bucket: "reportes-mtto",
		},
		JWT: JWTConfig{
			Secret:             "change-me",
			AccessTokenExpire:  8 * time.Hour,
			RefreshTokenExpire: 7 * 24 * time.Hour,
			Issuer:             "reportes-mtto",
		},
		Google: GoogleConfig{
			StateTTL: 10 * time.Minute,
		},
		Equipment: EquipmentConfig{
			DataPath: "data/equipment.json",
		},
		App: AppConfig{
			Timezone:  "America/Mexico_City",
			UploadDir: "./uploads",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v, Default())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// sin archivo: defaults + variables de entorno
	}

	bindEnvVariables(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate revisa lo mínimo para arrancar
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret is required")
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		return fmt.Errorf("invalid app.timezone %q: %w", c.App.Timezone, err)
	}
	return nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.mode", d.Server.Mode)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("server.frontend_url", d.Server.FrontendURL)

	v.SetDefault("database.host", d.Database.Host)
	v.SetDefault("database.port", d.Database.Port)
	v.SetDefault("database.user", d.Database.User)
	v.SetDefault("database.dbname", d.Database.DBName)
	v.SetDefault("database.sslmode", d.Database.SSLMode)
	v.SetDefault("database.timezone", d.Database.TimeZone)
	v.SetDefault("database.max_open_conns", d.Database.MaxOpenConns)
	v.SetDefault("database.max_idle_conns", d.Database.MaxIdleConns)
	v.SetDefault("database.conn_max_lifetime", d.Database.ConnMaxLifetime)
	v.SetDefault("database.conn_max_idle_time", d.Database.ConnMaxIdleTime)

	v.SetDefault("redis.port", d.Redis.Port)
	v.SetDefault("redis.pool_size", d.Redis.PoolSize)

	v.SetDefault("minio.bucket", d.MinIO.Bucket)

	v.SetDefault("jwt.secret", d.JWT.Secret)
	v.SetDefault("jwt.access_token_expire", d.JWT.AccessTokenExpire)
	v.SetDefault("jwt.refresh_token_expire", d.JWT.RefreshTokenExpire)
	v.SetDefault("jwt.issuer", d.JWT.Issuer)

	v.SetDefault("google.state_ttl", d.Google.StateTTL)
	v.SetDefault("equipment.data_path", d.Equipment.DataPath)

	v.SetDefault("app.timezone", d.App.Timezone)
	v.SetDefault("app.upload_dir", d.App.UploadDir)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

func bindEnvVariables(v *viper.Viper) {
	// Server
	v.BindEnv("server.port", "SERVER_PORT")
	v.BindEnv("server.mode", "SERVER_MODE")
	v.BindEnv("server.frontend_url", "FRONTEND_URL")

	// Database
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.port", "DB_PORT")
	v.BindEnv("database.user", "DB_USER")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("database.dbname", "DB_NAME")
	v.BindEnv("database.sslmode", "DB_SSLMODE")

	// Redis
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// MinIO
	v.BindEnv("minio.endpoint", "MINIO_ENDPOINT")
	v.BindEnv("minio.access_key", "MINIO_ACCESS_KEY")
	v.BindEnv("minio.secret_key", "MINIO_SECRET_KEY")
	v.BindEnv("minio.bucket", "MINIO_BUCKET")
	v.BindEnv("minio.use_ssl", "MINIO_USE_SSL")
	v.BindEnv("minio.public_url", "MINIO_PUBLIC_URL")

	// JWT
	v.BindEnv("jwt.secret", "JWT_SECRET")

	// Google
	v.BindEnv("google.client_id", "GOOGLE_CLIENT_ID")
	v.BindEnv("google.client_secret", "GOOGLE_CLIENT_SECRET")
	v.BindEnv("google.redirect_url", "GOOGLE_CALLBACK_URL")
	v.BindEnv("google.allowed_domain", "GOOGLE_ALLOWED_DOMAIN")

	// Aplicación
	v.BindEnv("equipment.data_path", "EQUIPMENT_DATA_PATH")
	v.BindEnv("app.timezone", "APP_TIMEZONE")
	v.BindEnv("app.super_admin_email", "SUPER_ADMIN_EMAIL")
	v.BindEnv("app.upload_dir", "UPLOAD_DIR")
}

// GetEnvOrDefault variable de entorno o valor por defecto
func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
