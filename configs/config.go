package configs

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	DBHost              string
	DBPort              string
	DBUser              string
	DBPassword          string
	DBName              string
	RedisAddr           string
	ServerPort          string
	JWTSecret           string
	NumberOfWorkers     int
	SnapshotIntervalSec int
}

func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading environment variables directly")
	}

	numWorkers, _ := strconv.Atoi(os.Getenv("NUM_OF_WORKERS"))
	if numWorkers <= 0 {
		numWorkers = 2
	}

	snapshotInterval, _ := strconv.Atoi(os.Getenv("SNAPSHOT_INTERVAL_SEC"))
	if snapshotInterval <= 0 {
		snapshotInterval = 30
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	return &Config{
		DBHost:              os.Getenv("DB_HOST"),
		DBPort:              os.Getenv("DB_PORT"),
		DBUser:              os.Getenv("DB_USER"),
		DBPassword:          os.Getenv("DB_PASSWORD"),
		DBName:              os.Getenv("DB_NAME"),
		RedisAddr:           redisAddr,
		ServerPort:          os.Getenv("SERVER_PORT"),
		JWTSecret:           os.Getenv("JWT_SECRET"),
		NumberOfWorkers:     numWorkers,
		SnapshotIntervalSec: snapshotInterval,
	}
}
