package config

import (
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort string
	Storage    string // "postgres" or "memory"
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	JWTSecret  string
	NatsURL    string
	CORSOrigin string
	Cloudinary CloudinaryConfig
}

type CloudinaryConfig struct {
	CloudName    string
	APIKey       string
	APISecret    string
	UploadFolder string
}

// Enabled reports whether attachment signing can be offered.
func (c CloudinaryConfig) Enabled() bool {
	return c.CloudName != "" && c.APIKey != "" && c.APISecret != ""
}

// Load reads configuration from the environment. Values in a .env file in
// the working directory are applied first and never override real env vars.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: reading .env: %v", err)
	}

	return &Config{
		ServerPort: getEnv("SERVER_PORT", "8080"),
		Storage:    getEnv("STORAGE", "postgres"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "dealerchat"),
		DBPassword: getEnv("DB_PASSWORD", "dealerchat_dev_password"),
		DBName:     getEnv("DB_NAME", "dealerchat"),
		JWTSecret:  getEnv("JWT_SECRET", "dev-secret-change-me"),
		NatsURL:    getEnv("NATS_URL", ""),
		CORSOrigin: getEnv("CORS_ORIGIN", "*"),
		Cloudinary: CloudinaryConfig{
			CloudName:    getEnv("CLOUDINARY_CLOUD_NAME", ""),
			APIKey:       getEnv("CLOUDINARY_API_KEY", ""),
			APISecret:    getEnv("CLOUDINARY_API_SECRET", ""),
			UploadFolder: getEnv("CLOUDINARY_UPLOAD_FOLDER", "dealerchat/attachments"),
		},
	}
}

// ClientConfig is what the terminal client needs to reach a server.
type ClientConfig struct {
	APIURL string
	WSURL  string
}

func LoadClient() *ClientConfig {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: reading .env: %v", err)
	}

	apiURL := strings.TrimSuffix(getEnv("DEALERCHAT_API_URL", "http://localhost:8080/api/v1"), "/")
	return &ClientConfig{
		APIURL: apiURL,
		WSURL:  getEnv("DEALERCHAT_WS_URL", "ws://localhost:8080/web-socket/chat"),
	}
}

func getEnv(key, fallback string) string {
	val, exists := os.LookupEnv(key)

	if exists {
		return val
	}

	return fallback
}
