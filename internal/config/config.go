package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"

	"gopkg.in/yaml.v3"

	"strategy-lab/internal/timerange"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

type LogConfig struct {
	Level    string
	Format   string
	Output   string
	FilePath string
}

// LabServiceConfig locates the external execution service.
type LabServiceConfig struct {
	BaseURL string
	WSURL   string
	Timeout time.Duration
}

// WindowConfig drives generated backtest windows.
type WindowConfig struct {
	Count        int
	DurationDays int
	Cutoff       time.Time
}

type DashboardConfig struct {
	Lab              LabServiceConfig
	Windows          WindowConfig
	ListenAddr       string
	MetricsAddr      string
	InstrumentColumn string
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	ShutdownTimeout  time.Duration
	Storage          string
	PostgresDSN      string
	ClickHouseDSN    string
	Log              LogConfig
}

type CLIConfig struct {
	Lab     LabServiceConfig
	Windows WindowConfig
	Log     LogConfig
}

func LoadDashboardConfig() (DashboardConfig, error) {
	if err := ensureRuntimeConfigLoaded(); err != nil {
		return DashboardConfig{}, err
	}

	lab, err := loadLabServiceConfig()
	if err != nil {
		return DashboardConfig{}, err
	}
	windows, err := loadWindowConfig()
	if err != nil {
		return DashboardConfig{}, err
	}

	readTimeout, err := envDuration("DASHBOARD_READ_TIMEOUT", 15*time.Second)
	if err != nil {
		return DashboardConfig{}, err
	}
	// Batch submissions are sequential and may run for minutes.
	writeTimeout, err := envDuration("DASHBOARD_WRITE_TIMEOUT", 10*time.Minute)
	if err != nil {
		return DashboardConfig{}, err
	}
	shutdownTimeout, err := envDuration("DASHBOARD_SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return DashboardConfig{}, err
	}

	storage := strings.ToLower(envOrDefault("DASHBOARD_STORAGE", StorageMemory))
	postgresDSN := envOrDefault("POSTGRES_DSN", "")
	switch storage {
	case StorageMemory:
	case StoragePostgres:
		if postgresDSN == "" {
			return DashboardConfig{}, errors.New("invalid POSTGRES_DSN: required when DASHBOARD_STORAGE=postgres")
		}
	default:
		return DashboardConfig{}, fmt.Errorf("invalid DASHBOARD_STORAGE %q (expected memory|postgres)", storage)
	}

	return DashboardConfig{
		Lab:              lab,
		Windows:          windows,
		ListenAddr:       envOrDefault("DASHBOARD_LISTEN_ADDR", ":8080"),
		MetricsAddr:      envOrDefault("DASHBOARD_METRICS_ADDR", ":9090"),
		InstrumentColumn: envOrDefault("DASHBOARD_INSTRUMENT_COLUMN", "股票代码"),
		ReadTimeout:      readTimeout,
		WriteTimeout:     writeTimeout,
		ShutdownTimeout:  shutdownTimeout,
		Storage:          storage,
		PostgresDSN:      postgresDSN,
		ClickHouseDSN:    envOrDefault("CLICKHOUSE_DSN", ""),
		Log:              buildLogConfig("DASHBOARD", "dashboard"),
	}, nil
}

func LoadCLIConfig() (CLIConfig, error) {
	if err := ensureRuntimeConfigLoaded(); err != nil {
		return CLIConfig{}, err
	}

	lab, err := loadLabServiceConfig()
	if err != nil {
		return CLIConfig{}, err
	}
	windows, err := loadWindowConfig()
	if err != nil {
		return CLIConfig{}, err
	}

	log := buildLogConfig("CAMPAIGN", "campaign")
	if valueForKey("CAMPAIGN_LOG_LEVEL") == "" && valueForKey("LOG_LEVEL") == "" {
		log.Level = "warn"
	}

	return CLIConfig{
		Lab:     lab,
		Windows: windows,
		Log:     log,
	}, nil
}

type ConfigSource struct {
	Phase  string
	Path   string
	Loaded bool
}

func CurrentConfigSource() (ConfigSource, error) {
	if err := ensureRuntimeConfigLoaded(); err != nil {
		return ConfigSource{}, err
	}
	return ConfigSource{
		Phase:  runtimeConfigPhase,
		Path:   runtimeConfigPath,
		Loaded: runtimeConfigLoaded,
	}, nil
}

func loadLabServiceConfig() (LabServiceConfig, error) {
	timeout, err := envDuration("LAB_SERVICE_TIMEOUT", 30*time.Second)
	if err != nil {
		return LabServiceConfig{}, err
	}
	return LabServiceConfig{
		BaseURL: strings.TrimRight(envOrDefault("LAB_SERVICE_URL", "http://127.0.0.1:5000"), "/"),
		WSURL:   envOrDefault("LAB_SERVICE_WS_URL", "ws://127.0.0.1:5000/ws"),
		Timeout: timeout,
	}, nil
}

func loadWindowConfig() (WindowConfig, error) {
	count, err := envInt("DASHBOARD_AUTO_RANGES", 20)
	if err != nil {
		return WindowConfig{}, err
	}
	days, err := envInt("DASHBOARD_AUTO_DURATION_DAYS", 15)
	if err != nil {
		return WindowConfig{}, err
	}
	cutoff, err := envDate("DASHBOARD_WINDOW_CUTOFF", timerange.DefaultCutoff)
	if err != nil {
		return WindowConfig{}, err
	}
	return WindowConfig{Count: count, DurationDays: days, Cutoff: cutoff}, nil
}

func buildLogConfig(prefix string, serviceName string) LogConfig {
	level := envOrDefault(prefix+"_LOG_LEVEL", envOrDefault("LOG_LEVEL", "info"))
	format := envOrDefault(prefix+"_LOG_FORMAT", envOrDefault("LOG_FORMAT", "text"))
	output := envOrDefault(prefix+"_LOG_OUTPUT", envOrDefault("LOG_OUTPUT", "console"))
	filePath := envOrDefault(prefix+"_LOG_FILE", envOrDefault("LOG_FILE", filepath.Join(".docker", serviceName, serviceName+".log")))

	return LogConfig{
		Level:    level,
		Format:   format,
		Output:   output,
		FilePath: filePath,
	}
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(valueForKey(key))
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be > 0", key)
	}
	return d, nil
}

func envInt(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(valueForKey(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("invalid %s: must be > 0", key)
	}
	return v, nil
}

func envDate(key string, fallback time.Time) (time.Time, error) {
	raw := strings.TrimSpace(valueForKey(key))
	if raw == "" {
		return fallback, nil
	}
	t, err := timerange.ParseDate(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s: %w", key, err)
	}
	return t, nil
}

func envOrDefault(key, fallback string) string {
	if value := strings.TrimSpace(valueForKey(key)); value != "" {
		return value
	}
	return fallback
}

var (
	runtimeConfigOnce   sync.Once
	runtimeConfigErr    error
	runtimeConfigValues map[string]string
	runtimeConfigLoaded bool
	runtimeConfigPath   string
	runtimeConfigPhase  string
)

func ensureRuntimeConfigLoaded() error {
	runtimeConfigOnce.Do(func() {
		runtimeConfigValues = make(map[string]string)

		phase := strings.TrimSpace(os.Getenv("CONFIG_PHASE"))
		if phase == "" {
			phase = "local"
		}
		runtimeConfigPhase = phase

		configPath := strings.TrimSpace(os.Getenv("CONFIG_FILE"))
		explicitPath := configPath != ""
		if configPath == "" {
			configPath = filepath.Join("config", "config-"+phase+".yaml")
		}

		values, err := readConfigFile(configPath)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) && !explicitPath {
				return
			}
			runtimeConfigErr = err
			return
		}

		runtimeConfigValues = values
		runtimeConfigLoaded = true
		if absPath, err := filepath.Abs(configPath); err == nil {
			runtimeConfigPath = absPath
		} else {
			runtimeConfigPath = configPath
		}
	})
	return runtimeConfigErr
}

func readConfigFile(path string) (map[string]string, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}

	raw := make(map[string]any)
	if err := yaml.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parse config file %q: %w", path, err)
	}

	flattened, err := flattenConfig(raw)
	if err != nil {
		return nil, fmt.Errorf("flatten config file %q: %w", path, err)
	}
	return flattened, nil
}

func flattenConfig(raw map[string]any) (map[string]string, error) {
	out := make(map[string]string)
	for key, value := range raw {
		segment := normalizeKeySegment(key)
		if segment == "" {
			continue
		}
		if err := flattenConfigValue(segment, value, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func flattenConfigValue(prefix string, value any, out map[string]string) error {
	switch typed := value.(type) {
	case map[string]any:
		for key, child := range typed {
			segment := normalizeKeySegment(key)
			if segment == "" {
				continue
			}
			if err := flattenConfigValue(prefix+"_"+segment, child, out); err != nil {
				return err
			}
		}
		return nil
	case []any:
		parts := make([]string, 0, len(typed))
		for _, item := range typed {
			switch scalar := item.(type) {
			case string:
				if strings.TrimSpace(scalar) == "" {
					continue
				}
				parts = append(parts, strings.TrimSpace(scalar))
			case bool, int, int64, uint64, float64:
				parts = append(parts, fmt.Sprint(scalar))
			default:
				return fmt.Errorf("unsupported list item type %T under %q", item, prefix)
			}
		}
		out[prefix] = strings.Join(parts, ",")
		return nil
	case nil:
		return nil
	case time.Time:
		out[prefix] = typed.Format("2006-01-02")
		return nil
	default:
		out[prefix] = fmt.Sprint(typed)
		return nil
	}
}

func normalizeKeySegment(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(raw))
	lastUnderscore := false

	for _, r := range raw {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToUpper(r))
			lastUnderscore = false
			continue
		}
		if !lastUnderscore && b.Len() > 0 {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}

	return strings.Trim(b.String(), "_")
}

func valueForKey(key string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}

	if err := ensureRuntimeConfigLoaded(); err != nil {
		return ""
	}

	if value := strings.TrimSpace(runtimeConfigValues[key]); value != "" {
		return value
	}
	return ""
}
