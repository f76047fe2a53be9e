package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App        AppConfig
	MetaDB     MetaDBConfig
	JobFactory JobFactoryConfig
	SMTP       SMTPConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
}

type MetaDBConfig struct {
	Path string
}

type JobFactoryConfig struct {
	RootDir         string
	DbFilename      string
	ScriptFilename  string
	LauncherURL     string
	LauncherTimeout int // seconds
	InitScript      string
	Tarball         string
}

type SMTPConfig struct {
	Host       string
	Port       int
	Email      string
	Password   string
	SenderName string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
		},
		MetaDB: MetaDBConfig{
			Path: getEnv("META_DB_PATH", "jobmeta.db"),
		},
		JobFactory: JobFactoryConfig{
			RootDir:         getEnv("JOB_ROOT_DIR", "jobs"),
			DbFilename:      getEnv("JOB_DB_FILENAME", "results.db"),
			ScriptFilename:  getEnv("JOB_SCRIPT_FILENAME", "script.sh"),
			LauncherURL:     getEnv("LAUNCHER_URL", "http://localhost:9998"),
			LauncherTimeout: getEnvAsInt("LAUNCHER_TIMEOUT_SECONDS", 30),
			InitScript:      getEnv("JOB_INIT_SCRIPT", ""),
			Tarball:         getEnv("JOB_TARBALL", ""),
		},
		SMTP: SMTPConfig{
			Host:       getEnv("SMTP_HOST", ""),
			Port:       getEnvAsInt("SMTP_PORT", 587),
			Email:      getEnv("SMTP_EMAIL", ""),
			Password:   getEnv("SMTP_PASSWORD", ""),
			SenderName: getEnv("SMTP_SENDER_NAME", "MsAnnotation"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}
