package config

import (
	"os"
	"time"
)

type Config struct {
	Env                     string
	ServerAddress           string
	MongoURI                string
	MongoDB                 string
	JWTSecret               string
	JWTExpiration           time.Duration
	FirebaseProjectID       string
	FirebaseCredentialsJSON string
}

func Load() *Config {
	return &Config{
		Env:                     getEnv("ENV", "development"),
		ServerAddress:           getEnv("SERVER_ADDRESS", ":8080"),
		MongoURI:                getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:                 getEnv("MONGO_DB", "growme"),
		JWTSecret:               getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		JWTExpiration:           24 * time.Hour,
		FirebaseProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
		FirebaseCredentialsJSON: getEnv("FIREBASE_CREDENTIALS_JSON", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
