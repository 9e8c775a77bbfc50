package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"signal-controller-go/internal/models"
)

type Config struct {
	// Application
	Version      string
	Environment  string
	ControllerID string
	Port         int
	LogLevel     string

	// Logdy (lightweight web log viewer)
	LogdyEnabled bool
	LogdyHost    string
	LogdyPort    int

	// NATS (snapshot fan-out and remote emergency commands)
	// Default: nats://localhost:4222 (works with Docker Compose setup)
	// Docker: Use nats://nats:4222 if running the controller in Docker
	NatsEnabled        bool
	NatsURL            string
	NatsConnectTimeout time.Duration
	NatsReconnectWait  time.Duration
	NatsMaxReconnects  int
	NatsDrainTimeout   time.Duration // For graceful shutdown

	SnapshotSubject  string
	EmergencySubject string
	CommandSubject   string

	// Simulation clock
	TickInterval time.Duration
	TotalTicks   int

	// Frame sampling
	SampleEvery   int // Classify every Nth decoded frame
	FrameWidth    int
	FrameHeight   int
	SamplingFPS   int
	HistorySize   int
	AutoEmergency bool
	PreviewFPS    int // MJPEG preview rate per lane, 0 disables previews

	// Signal timing
	YellowSeconds         int
	RedSeconds            int
	EmergencyGreenSeconds int
	EmergencyHold         time.Duration

	// Lane video sources (file path or stream URL), empty when unset
	Videos map[models.LaneID]string

	// Reporting and archive
	DBPath    string
	ReportDir string

	// Swagger Configuration
	SwaggerHost string

	// Graceful Shutdown
	ShutdownTimeout time.Duration

	// Delay before restarting a crashed goroutine
	PanicRestartDelay time.Duration
}

func Load() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("No .env file found or error loading .env file, using environment variables and defaults")
	} else {
		log.Info().Msg("Loaded configuration from .env file")
	}

	return &Config{
		// Application
		Version:      getEnv("VERSION", "1.0.0"),
		Environment:  getEnv("ENVIRONMENT", "development"),
		ControllerID: getEnv("CONTROLLER_ID", "controller-1"),
		Port:         getEnvInt("PORT", 8000),
		LogLevel:     getEnv("LOG_LEVEL", "info"),

		// Logdy
		LogdyEnabled: getEnvBool("LOGDY_ENABLED", false),
		LogdyHost:    getEnv("LOGDY_HOST", "localhost"),
		LogdyPort:    getEnvInt("LOGDY_PORT", 8080),

		// NATS (configured for Docker Compose setup)
		NatsEnabled:        getEnvBool("NATS_ENABLED", false),
		NatsURL:            getNatsURL(),
		NatsConnectTimeout: getEnvDuration("NATS_CONNECT_TIMEOUT", 10*time.Second),
		NatsReconnectWait:  getEnvDuration("NATS_RECONNECT_WAIT", 2*time.Second),
		NatsMaxReconnects:  getEnvInt("NATS_MAX_RECONNECTS", -1), // -1 = unlimited
		NatsDrainTimeout:   getEnvDuration("NATS_DRAIN_TIMEOUT", 5*time.Second),

		SnapshotSubject:  getEnv("SNAPSHOT_SUBJECT", "traffic.snapshot"),
		EmergencySubject: getEnv("EMERGENCY_SUBJECT", "traffic.emergency"),
		CommandSubject:   getEnv("COMMAND_SUBJECT", "traffic.command.emergency"),

		// Simulation clock
		TickInterval: getEnvDuration("TICK_INTERVAL", time.Second),
		TotalTicks:   getEnvInt("TOTAL_TICKS", 50),

		// Frame sampling
		SampleEvery:   getEnvInt("SAMPLE_EVERY", 10),
		FrameWidth:    getEnvInt("FRAME_WIDTH", 200),
		FrameHeight:   getEnvInt("FRAME_HEIGHT", 150),
		SamplingFPS:   getEnvInt("SAMPLING_FPS", 30),
		HistorySize:   getEnvInt("HISTORY_SIZE", 50),
		AutoEmergency: getEnvBool("AUTO_EMERGENCY", false),
		PreviewFPS:    getEnvInt("PREVIEW_FPS", 5),

		// Signal timing
		YellowSeconds:         getEnvInt("YELLOW_SECONDS", 3),
		RedSeconds:            getEnvInt("RED_SECONDS", 12),
		EmergencyGreenSeconds: getEnvInt("EMERGENCY_GREEN_SECONDS", 30),
		EmergencyHold:         getEnvDuration("EMERGENCY_HOLD", 10*time.Second),

		Videos: map[models.LaneID]string{
			models.LaneNorth: getEnv("VIDEO_NORTH", ""),
			models.LaneSouth: getEnv("VIDEO_SOUTH", ""),
			models.LaneEast:  getEnv("VIDEO_EAST", ""),
			models.LaneWest:  getEnv("VIDEO_WEST", ""),
		},

		// Reporting and archive
		DBPath:    getEnv("DB_PATH", "traffic.db"),
		ReportDir: getEnv("REPORT_DIR", "reports"),

		// Swagger Configuration
		SwaggerHost: getEnv("SWAGGER_HOST", "localhost:8000"),

		// Graceful Shutdown
		ShutdownTimeout:   getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		PanicRestartDelay: getEnvDuration("PANIC_RESTART_DELAY", 2*time.Second),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// Helper functions for Docker environment detection
func isRunningInDocker() bool {
	if os.Getenv("DOCKER_CONTAINER") == "true" {
		return true
	}
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}
	return false
}

// getNatsURL returns the appropriate NATS URL based on environment
func getNatsURL() string {
	if envURL := os.Getenv("NATS_URL"); envURL != "" {
		return envURL
	}
	if isRunningInDocker() {
		return "nats://nats:4222"
	}
	return "nats://localhost:4222"
}
