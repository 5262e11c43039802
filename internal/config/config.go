package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	CameraIndex  int
	CascadePath  string
	ScaleFactor  float64
	MinNeighbors int
	ShowPreview  bool
	ExitKey      string

	SerialPort        string
	SerialBaud        int
	SerialSettleDelay time.Duration
	SignalCooldown    time.Duration // Minimalny odstęp między sygnałami

	CaptureEnabled    bool
	CaptureInterval   time.Duration
	ScratchDirectory  string
	UploadQueueSize   int
	UploadTimeout     time.Duration
	KeepFailedUploads bool

	DriveFolderID    string
	DriveCredentials string
	DriveToken       string

	DatabasePath string
	StatusPort   int // 0 wyłącza serwer statusu
	StatusToken  string
	LogDirectory string
}

// LoadEnv reads dotenv files into the process environment. Missing default
// files are ignored, explicitly named ones are not.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		if _, err := os.Stat(".env"); err == nil {
			return godotenv.Load(".env")
		}
		return nil
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

func Load() *Config {
	return &Config{
		CameraIndex:  getEnvAsInt("CAMERA_INDEX", 4),
		CascadePath:  getEnv("CASCADE_PATH", "haarcascade_frontalface_default.xml"),
		ScaleFactor:  getEnvAsFloat("SCALE_FACTOR", 1.3),
		MinNeighbors: getEnvAsInt("MIN_NEIGHBORS", 5),
		ShowPreview:  getEnvAsBool("SHOW_PREVIEW", true),
		ExitKey:      getEnv("EXIT_KEY", "q"),

		SerialPort:        getEnv("SERIAL_PORT", "/dev/ttyACM0"),
		SerialBaud:        getEnvAsInt("SERIAL_BAUD", 115200),
		SerialSettleDelay: getEnvAsDuration("SERIAL_SETTLE_DELAY", 2*time.Second),
		SignalCooldown:    getEnvAsDuration("SIGNAL_COOLDOWN", 500*time.Millisecond),

		CaptureEnabled:    getEnvAsBool("CAPTURE_ENABLED", false),
		CaptureInterval:   getEnvAsDuration("CAPTURE_INTERVAL", 5*time.Second),
		ScratchDirectory:  getEnv("SCRATCH_DIR", filepath.Join(".", "captures")),
		UploadQueueSize:   getEnvAsInt("UPLOAD_QUEUE_SIZE", 64),
		UploadTimeout:     getEnvAsDuration("UPLOAD_TIMEOUT", 30*time.Second),
		KeepFailedUploads: getEnvAsBool("KEEP_FAILED_UPLOADS", true),

		DriveFolderID:    getEnv("DRIVE_FOLDER_ID", ""),
		DriveCredentials: getEnv("DRIVE_CREDENTIALS", "credentials.json"),
		DriveToken:       getEnv("DRIVE_TOKEN", "token.json"),

		DatabasePath: getEnvAllowEmpty("DB_PATH", filepath.Join(".", "data", "facewatch.db")),
		StatusPort:   getEnvAsInt("STATUS_PORT", 0),
		StatusToken:  getEnv("STATUS_TOKEN", ""),
		LogDirectory: getEnv("LOG_DIR", filepath.Join(".", "logs")),
	}
}

// Validate rejects settings the detection loop cannot run with.
func (c *Config) Validate() error {
	var problems []string

	if c.CameraIndex < 0 {
		problems = append(problems, "CAMERA_INDEX must not be negative")
	}
	if c.ScaleFactor <= 1.0 {
		problems = append(problems, "SCALE_FACTOR must be greater than 1")
	}
	if c.MinNeighbors < 0 {
		problems = append(problems, "MIN_NEIGHBORS must not be negative")
	}
	if len(c.ExitKey) != 1 {
		problems = append(problems, "EXIT_KEY must be a single character")
	}
	if c.SerialBaud <= 0 {
		problems = append(problems, "SERIAL_BAUD must be positive")
	}
	if c.SignalCooldown < 0 {
		problems = append(problems, "SIGNAL_COOLDOWN must not be negative")
	}
	if c.CaptureEnabled {
		if c.CaptureInterval <= 0 {
			problems = append(problems, "CAPTURE_INTERVAL must be positive")
		}
		if c.ScratchDirectory == "" {
			problems = append(problems, "SCRATCH_DIR is required when capture is enabled")
		}
		if c.UploadQueueSize <= 0 {
			problems = append(problems, "UPLOAD_QUEUE_SIZE must be positive")
		}
		if c.UploadTimeout <= 0 {
			problems = append(problems, "UPLOAD_TIMEOUT must be positive")
		}
	}
	if c.StatusPort < 0 || c.StatusPort > 65535 {
		problems = append(problems, "STATUS_PORT must be between 0 and 65535")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAllowEmpty keeps an explicitly empty value, which switches the
// setting off.
func getEnvAllowEmpty(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(value)
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations ("500ms") or bare seconds ("0.5").
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if seconds, err := strconv.ParseFloat(value, 64); err == nil {
		return time.Duration(seconds * float64(time.Second))
	}
	return defaultValue
}
