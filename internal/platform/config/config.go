package config

import (
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

type Config struct {
	APIPort      string
	JWTKey       []byte
	JWTExp       time.Duration
	CookieSecure bool

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string
	DBConnStr  string

	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	RevokedTokenPrefix string

	LogLevel  string
	LogFormat string

	// AdminEmail and AdminPassword seed the first admin account when set.
	AdminEmail    string
	AdminPassword string
}

// fileConfig mirrors the optional TOML file. Empty values leave the
// defaults in place; environment variables win over both.
type fileConfig struct {
	API struct {
		Port         string `toml:"port"`
		JWTSecret    string `toml:"jwt_secret"`
		JWTExpHours  int    `toml:"jwt_expiration_hours"`
		CookieSecure bool   `toml:"cookie_secure"`
	} `toml:"api"`
	Database struct {
		Host     string `toml:"host"`
		Port     string `toml:"port"`
		User     string `toml:"user"`
		Password string `toml:"password"`
		Name     string `toml:"name"`
		SslMode  string `toml:"sslmode"`
	} `toml:"database"`
	Redis struct {
		Addr               string `toml:"addr"`
		Password           string `toml:"password"`
		DB                 int    `toml:"db"`
		RevokedTokenPrefix string `toml:"revoked_token_prefix"`
	} `toml:"redis"`
	Log struct {
		Level  string `toml:"level"`
		Format string `toml:"format"`
	} `toml:"log"`
	Admin struct {
		Email    string `toml:"email"`
		Password string `toml:"password"`
	} `toml:"admin"`
}

var AppConfig *Config

func Load() {
	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found, relying on environment variables")
	}

	cfg := defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := applyFile(cfg, path); err != nil {
			log.Fatal("could not read config file", "path", path, "err", err)
		}
	}
	applyEnv(cfg)
	AppConfig = cfg
}

func defaults() *Config {
	return &Config{
		APIPort:            "8080",
		JWTKey:             []byte("defaultsecret"),
		JWTExp:             72 * time.Hour,
		DBHost:             "localhost",
		DBPort:             "5432",
		DBUser:             "user",
		DBPassword:         "password",
		DBName:             "todo_collab_db",
		DBSslMode:          "disable",
		RedisAddr:          "localhost:6379",
		RevokedTokenPrefix: "revoked_token:",
		LogLevel:           "info",
		LogFormat:          "text",
	}
}

func applyFile(cfg *Config, path string) error {
	var fc fileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return err
	}

	setString(&cfg.APIPort, fc.API.Port)
	if fc.API.JWTSecret != "" {
		cfg.JWTKey = []byte(fc.API.JWTSecret)
	}
	if fc.API.JWTExpHours > 0 {
		cfg.JWTExp = time.Duration(fc.API.JWTExpHours) * time.Hour
	}
	cfg.CookieSecure = cfg.CookieSecure || fc.API.CookieSecure

	setString(&cfg.DBHost, fc.Database.Host)
	setString(&cfg.DBPort, fc.Database.Port)
	setString(&cfg.DBUser, fc.Database.User)
	setString(&cfg.DBPassword, fc.Database.Password)
	setString(&cfg.DBName, fc.Database.Name)
	setString(&cfg.DBSslMode, fc.Database.SslMode)

	setString(&cfg.RedisAddr, fc.Redis.Addr)
	setString(&cfg.RedisPassword, fc.Redis.Password)
	if fc.Redis.DB > 0 {
		cfg.RedisDB = fc.Redis.DB
	}
	setString(&cfg.RevokedTokenPrefix, fc.Redis.RevokedTokenPrefix)

	setString(&cfg.LogLevel, fc.Log.Level)
	setString(&cfg.LogFormat, fc.Log.Format)

	setString(&cfg.AdminEmail, fc.Admin.Email)
	setString(&cfg.AdminPassword, fc.Admin.Password)
	return nil
}

func applyEnv(cfg *Config) {
	cfg.APIPort = getEnv("API_PORT", cfg.APIPort)
	cfg.JWTKey = []byte(getEnv("JWT_SECRET", string(cfg.JWTKey)))
	cfg.JWTExp = time.Duration(getEnvAsInt("JWT_EXPIRATION_HOURS", int(cfg.JWTExp/time.Hour))) * time.Hour
	cfg.CookieSecure = getEnvAsBool("COOKIE_SECURE", cfg.CookieSecure)

	cfg.DBHost = getEnv("DB_HOST", cfg.DBHost)
	cfg.DBPort = getEnv("DB_PORT", cfg.DBPort)
	cfg.DBUser = getEnv("DB_USER", cfg.DBUser)
	cfg.DBPassword = getEnv("DB_PASSWORD", cfg.DBPassword)
	cfg.DBName = getEnv("DB_NAME", cfg.DBName)
	cfg.DBSslMode = getEnv("DB_SSLMODE", cfg.DBSslMode)

	cfg.RedisAddr = getEnv("REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisDB = getEnvAsInt("REDIS_DB", cfg.RedisDB)
	cfg.RevokedTokenPrefix = getEnv("REVOKED_TOKEN_PREFIX", cfg.RevokedTokenPrefix)

	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("LOG_FORMAT", cfg.LogFormat)

	cfg.AdminEmail = getEnv("ADMIN_EMAIL", cfg.AdminEmail)
	cfg.AdminPassword = getEnv("ADMIN_PASSWORD", cfg.AdminPassword)

	cfg.DBConnStr = "host=" + cfg.DBHost +
		" port=" + cfg.DBPort +
		" user=" + cfg.DBUser +
		" password=" + cfg.DBPassword +
		" dbname=" + cfg.DBName +
		" sslmode=" + cfg.DBSslMode
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return fallback
}
