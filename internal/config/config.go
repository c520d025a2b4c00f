package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

const (
	PersistModeSync  = "sync"
	PersistModeQueue = "queue"

	RecognizerRekognition = "rekognition"
	RecognizerTesseract   = "tesseract"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	ServerPort  string
	MaxUploadMB int64
	TempDir     string
	LogLevel    string

	DBDriver   string
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string

	AWSRegion string

	DetectorURL     string
	DetectorTimeout time.Duration

	Recognizer         string
	TesseractLanguages []string

	Timezone        string
	CanonicalWidth  int
	CanonicalHeight int

	PersistMode          string
	PersistStrict        bool
	SQSDetectionQueueURL string
	IoTEndpoint          string
	IoTTopic             string
}

func Load() *Config {
	err := godotenv.Load()
	if err != nil && !os.IsNotExist(err) {
		log.Printf("config: could not load .env file: %v", err)
	}

	dbPort, _ := strconv.Atoi(getEnv("DB_PORT", "5432"))
	maxUpload, _ := strconv.ParseInt(getEnv("MAX_UPLOAD_MB", "20"), 10, 64)
	detectorTimeout, _ := strconv.Atoi(getEnv("DETECTOR_TIMEOUT_SECONDS", "30"))
	width, _ := strconv.Atoi(getEnv("CANONICAL_WIDTH", "640"))
	height, _ := strconv.Atoi(getEnv("CANONICAL_HEIGHT", "640"))
	strict, _ := strconv.ParseBool(getEnv("PERSIST_STRICT", "false"))

	return &Config{
		ServerPort:  getEnv("SERVER_PORT", "7860"),
		MaxUploadMB: maxUpload,
		TempDir:     getEnv("TEMP_DIR", os.TempDir()),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		DBDriver:   getEnv("DB_DRIVER", "pgx"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     dbPort,
		DBUser:     getEnv("DB_USER", "plates"),
		DBPassword: getEnv("DB_PASSWORD", "plates"),
		DBName:     getEnv("DB_NAME", "plates_db"),
		DBSslMode:  getEnv("DB_SSLMODE", "disable"),

		AWSRegion: getEnv("AWS_REGION", "ap-southeast-3"),

		DetectorURL:     getEnv("DETECTOR_URL", "http://localhost:5000"),
		DetectorTimeout: time.Duration(detectorTimeout) * time.Second,

		Recognizer:         strings.ToLower(getEnv("RECOGNIZER", RecognizerRekognition)),
		TesseractLanguages: splitList(getEnv("TESSERACT_LANGUAGES", "eng")),

		Timezone:        getEnv("TIMEZONE", "Asia/Jakarta"),
		CanonicalWidth:  width,
		CanonicalHeight: height,

		PersistMode:          strings.ToLower(getEnv("PERSIST_MODE", PersistModeSync)),
		PersistStrict:        strict,
		SQSDetectionQueueURL: getEnv("SQS_DETECTION_QUEUE_URL", ""),
		IoTEndpoint:          getEnv("IOT_ENDPOINT", ""),
		IoTTopic:             getEnv("IOT_TOPIC", "plate_reader/detections"),
	}
}

// Validate fills in safe values for out-of-range settings and rejects
// combinations the service cannot run with.
func (c *Config) Validate() error {
	if c.CanonicalWidth <= 0 {
		c.CanonicalWidth = 640
	}
	if c.CanonicalHeight <= 0 {
		c.CanonicalHeight = 640
	}
	if c.MaxUploadMB <= 0 {
		c.MaxUploadMB = 20
	}
	if c.DetectorTimeout <= 0 {
		c.DetectorTimeout = 30 * time.Second
	}
	if len(c.TesseractLanguages) == 0 {
		c.TesseractLanguages = []string{"eng"}
	}

	switch c.DBDriver {
	case "pgx", "postgres":
	default:
		return fmt.Errorf("%w: unknown DB_DRIVER %q", ErrInvalidConfig, c.DBDriver)
	}

	switch c.Recognizer {
	case RecognizerRekognition, RecognizerTesseract:
	default:
		return fmt.Errorf("%w: unknown RECOGNIZER %q", ErrInvalidConfig, c.Recognizer)
	}

	switch c.PersistMode {
	case PersistModeSync:
	case PersistModeQueue:
		if c.SQSDetectionQueueURL == "" {
			return fmt.Errorf("%w: PERSIST_MODE=queue requires SQS_DETECTION_QUEUE_URL", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown PERSIST_MODE %q", ErrInvalidConfig, c.PersistMode)
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("%w: TIMEZONE %q: %v", ErrInvalidConfig, c.Timezone, err)
	}
	return nil
}

func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSslMode)
}

func getEnv(key string, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("config: %s not set, using default %q", key, fallback)
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
