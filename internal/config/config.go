package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// GPS source kinds accepted by GPS_SOURCE.
const (
	GPSSourceSerial = "serial"
	GPSSourceMQTT   = "mqtt"
	GPSSourceFake   = "fake"
)

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker            string
	MQTTClientIDNavigator string
	MQTTClientIDProducer  string
	MQTTClientIDGPS       string
	MQTTClientIDConsole   string

	// Topics
	TopicIMU       string // IMURaw samples in
	TopicGPS       string // gps.Fix in
	TopicNavPrefix string // events out, one subtopic per event type
	TopicNavReset  string // any message resets calibration

	// IMU
	// Accelerometer: 0=±2g, 1=±4g, 2=±8g, 3=±16g
	IMUAccelRange     byte
	IMUMagLSBPerUT    float64
	IMUUpright        bool
	IMUGravityAlpha   float64 // low-pass weight of each sample in the gravity estimate
	IMUSampleInterval int     // milliseconds, producer only

	// GPS
	GPSSource     string
	GPSSerialPort string
	GPSBaudRate   int

	// Navigation tuning
	HeadingAlpha            float64
	HistoryCount            int
	CalibrationThresholdDeg float64
	StepLengthM             float64
	StepThresholdG          float64
	StepRefractoryMS        int
	GravityMS2              float64
	EarthRadiusKm           float64

	// Simulation
	SimHeadingDeg float64 // compass heading reported by the simulated device

	// Outputs
	WebServerPort      int
	CSVPath            string // empty disables recording
	ConsoleLogInterval int    // milliseconds
}

// Default returns the configuration used when no file is given. Load
// starts from these values, so a file only lists what it changes.
func Default() *Config {
	return &Config{
		MQTTBroker:            "tcp://localhost:1883",
		MQTTClientIDNavigator: "step-navigator",
		MQTTClientIDProducer:  "step-producer",
		MQTTClientIDGPS:       "step-gps-producer",
		MQTTClientIDConsole:   "step-console",

		TopicIMU:       "inertial/imu/left",
		TopicGPS:       "inertial/gps",
		TopicNavPrefix: "navigation",
		TopicNavReset:  "navigation/control/reset",

		IMUAccelRange:     0,
		IMUMagLSBPerUT:    10,
		IMUGravityAlpha:   0.2,
		IMUSampleInterval: 20,

		GPSSource:     GPSSourceMQTT,
		GPSSerialPort: "/dev/serial0",
		GPSBaudRate:   9600,

		HeadingAlpha:            0.1,
		HistoryCount:            10,
		CalibrationThresholdDeg: 10,
		StepLengthM:             0.8,
		StepThresholdG:          1.3,
		StepRefractoryMS:        100,
		GravityMS2:              9.80665,
		EarthRadiusKm:           6371,

		SimHeadingDeg: 305,

		WebServerPort:      8080,
		ConsoleLogInterval: 1000,
	}
}

// Package-level unexported variables for singleton pattern:
//   - globalConfig: set once by InitGlobal, read through Get.
//   - configOnce: ensures InitGlobal() only runs once.
//   - configMu: write lock for initialization, read lock for Get().
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Load reads the configuration file over the defaults and returns it.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := Default()
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	var err error
	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_NAVIGATOR":
		c.MQTTClientIDNavigator = value
	case "MQTT_CLIENT_ID_PRODUCER":
		c.MQTTClientIDProducer = value
	case "MQTT_CLIENT_ID_GPS":
		c.MQTTClientIDGPS = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value

	// Topics
	case "TOPIC_IMU":
		c.TopicIMU = value
	case "TOPIC_GPS":
		c.TopicGPS = value
	case "TOPIC_NAV_PREFIX":
		c.TopicNavPrefix = strings.TrimSuffix(value, "/")
	case "TOPIC_NAV_RESET":
		c.TopicNavReset = value

	// IMU
	case "IMU_ACCEL_RANGE":
		var rangeVal int
		rangeVal, err = parseInt(key, value, 0, 3)
		c.IMUAccelRange = byte(rangeVal)
	case "IMU_MAG_LSB_PER_UT":
		c.IMUMagLSBPerUT, err = parsePositive(key, value)
	case "IMU_UPRIGHT":
		c.IMUUpright, err = strconv.ParseBool(value)
		if err != nil {
			err = fmt.Errorf("invalid IMU_UPRIGHT %q: %w", value, err)
		}
	case "IMU_GRAVITY_ALPHA":
		c.IMUGravityAlpha, err = parseFloat(key, value)
		if err == nil && !(c.IMUGravityAlpha > 0 && c.IMUGravityAlpha <= 1) {
			err = fmt.Errorf("IMU_GRAVITY_ALPHA must be in (0, 1], got %v", c.IMUGravityAlpha)
		}
	case "IMU_SAMPLE_INTERVAL":
		c.IMUSampleInterval, err = parseInt(key, value, 1, 60000)

	// GPS
	case "GPS_SOURCE":
		switch value {
		case GPSSourceSerial, GPSSourceMQTT, GPSSourceFake:
			c.GPSSource = value
		default:
			return fmt.Errorf("GPS_SOURCE must be %s, %s or %s, got %q", GPSSourceSerial, GPSSourceMQTT, GPSSourceFake, value)
		}
	case "GPS_SERIAL_PORT":
		c.GPSSerialPort = value
	case "GPS_BAUD_RATE":
		c.GPSBaudRate, err = parseInt(key, value, 1, 921600)

	// Navigation tuning
	case "HEADING_ALPHA":
		c.HeadingAlpha, err = parseFloat(key, value)
		if err == nil && !(c.HeadingAlpha > 0 && c.HeadingAlpha <= 1) {
			err = fmt.Errorf("HEADING_ALPHA must be in (0, 1], got %v", c.HeadingAlpha)
		}
	case "HISTORY_COUNT":
		c.HistoryCount, err = parseInt(key, value, 2, 1000)
	case "CALIBRATION_THRESHOLD_DEG":
		c.CalibrationThresholdDeg, err = parseFloat(key, value)
		if err == nil && (c.CalibrationThresholdDeg < 0 || c.CalibrationThresholdDeg > 180) {
			err = fmt.Errorf("CALIBRATION_THRESHOLD_DEG must be 0-180, got %v", c.CalibrationThresholdDeg)
		}
	case "STEP_LENGTH_M":
		c.StepLengthM, err = parsePositive(key, value)
	case "STEP_THRESHOLD_G":
		c.StepThresholdG, err = parsePositive(key, value)
	case "STEP_REFRACTORY_MS":
		c.StepRefractoryMS, err = parseInt(key, value, 0, 10000)
	case "GRAVITY_MS2":
		c.GravityMS2, err = parsePositive(key, value)
	case "EARTH_RADIUS_KM":
		c.EarthRadiusKm, err = parsePositive(key, value)

	// Simulation
	case "SIM_HEADING_DEG":
		c.SimHeadingDeg, err = parseFloat(key, value)

	// Outputs
	case "WEB_SERVER_PORT":
		c.WebServerPort, err = parseInt(key, value, 1, 65535)
	case "CSV_PATH":
		c.CSVPath = value
	case "CONSOLE_LOG_INTERVAL":
		c.ConsoleLogInterval, err = parseInt(key, value, 1, 3600000)

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return err
}

func parseInt(key, value string, lo, hi int) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if v < lo || v > hi {
		return 0, fmt.Errorf("%s must be %d-%d, got %d", key, lo, hi, v)
	}
	return v, nil
}

func parseFloat(key, value string) (float64, error) {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return v, nil
}

func parsePositive(key, value string) (float64, error) {
	v, err := parseFloat(key, value)
	if err != nil {
		return 0, err
	}
	if !(v > 0) {
		return 0, fmt.Errorf("%s must be positive, got %v", key, v)
	}
	return v, nil
}

// Validate checks the fields that must be set together.
func (c *Config) Validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.TopicIMU == "" || c.TopicGPS == "" || c.TopicNavPrefix == "" {
		return fmt.Errorf("TOPIC_IMU, TOPIC_GPS and TOPIC_NAV_PREFIX are required")
	}
	if c.GPSSource == GPSSourceSerial && (c.GPSSerialPort == "" || c.GPSBaudRate == 0) {
		return fmt.Errorf("GPS_SERIAL_PORT and GPS_BAUD_RATE are required for GPS_SOURCE=serial")
	}
	return nil
}

// AccelLSBPerG returns the accelerometer counts per g for IMUAccelRange.
func (c *Config) AccelLSBPerG() float64 {
	return 16384 / float64(int(1)<<c.IMUAccelRange)
}

// InitGlobal initializes the global configuration from file, or from
// Default when configPath is empty. Only the first call has any effect.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		if configPath == "" {
			globalConfig = Default()
			return
		}
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
