package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/matchpulse/trophy-tracker/internal/platform/logging"
)

// Config stores runtime configuration for the service.
type Config struct {
	AppEnv                         string
	ServiceName                    string
	ServiceVersion                 string
	HTTPAddr                       string
	ReadTimeout                    time.Duration
	WriteTimeout                   time.Duration
	CORSAllowedOrigins             []string
	SwaggerEnabled                 bool
	InternalJobToken               string
	StoreBackend                   string
	CacheFilePath                  string
	DBURL                          string
	DBDisablePreparedBinary        bool
	APISportsBaseURL               string
	APISportsKey                   string
	APISportsTimeout               time.Duration
	APISportsMaxRetries            int
	APISportsCacheTTL              time.Duration
	APISportsCircuitEnabled        bool
	APISportsCircuitFailureCount   int
	APISportsCircuitOpenTimeout    time.Duration
	APISportsCircuitHalfOpenMaxReq int
	RevalidationMaxConcurrent      int
	RevalidationChunkDelay         time.Duration
	PprofEnabled                   bool
	PprofAddr                      string
	UptraceEnabled                 bool
	UptraceDSN                     string
	UptraceLogsEnabled             bool
	PyroscopeEnabled               bool
	PyroscopeServerAddress         string
	PyroscopeAppName               string
	PyroscopeAuthToken             string
	PyroscopeBasicAuthUser         string
	PyroscopeBasicAuthPassword     string
	PyroscopeUploadRate            time.Duration
	LogLevel                       logging.Level
}

func Load() (Config, error) {
	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	swaggerDefault := "true"
	if appEnv == EnvProd {
		swaggerDefault = "false"
	}

	swaggerEnabled, err := strconv.ParseBool(getEnv("SWAGGER_ENABLED", swaggerDefault))
	if err != nil {
		return Config{}, fmt.Errorf("parse SWAGGER_ENABLED: %w", err)
	}

	uptraceEnabled, err := strconv.ParseBool(getEnv("UPTRACE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_ENABLED: %w", err)
	}

	uptraceDSN := strings.TrimSpace(getEnv("UPTRACE_DSN", ""))
	if uptraceDSN == "" {
		uptraceDSN = parseUptraceDSNFromOTLPHeaders(getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""))
	}
	if uptraceEnabled && uptraceDSN == "" {
		return Config{}, fmt.Errorf("UPTRACE_DSN is required when UPTRACE_ENABLED=true")
	}
	uptraceLogsEnabled, err := strconv.ParseBool(getEnv("UPTRACE_LOGS_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_LOGS_ENABLED: %w", err)
	}

	pprofEnabled, err := strconv.ParseBool(getEnv("PPROF_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PPROF_ENABLED: %w", err)
	}
	pprofAddr := strings.TrimSpace(getEnv("PPROF_ADDR", ":6060"))
	if pprofAddr == "" {
		pprofAddr = ":6060"
	}

	pyroscopeEnabled, err := strconv.ParseBool(getEnv("PYROSCOPE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_ENABLED: %w", err)
	}
	pyroscopeServerAddress := strings.TrimSpace(getEnv("PYROSCOPE_SERVER_ADDRESS", ""))
	if pyroscopeEnabled && pyroscopeServerAddress == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_SERVER_ADDRESS is required when PYROSCOPE_ENABLED=true")
	}
	pyroscopeUploadRate, err := time.ParseDuration(getEnv("PYROSCOPE_UPLOAD_RATE", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_UPLOAD_RATE: %w", err)
	}
	if pyroscopeUploadRate <= 0 {
		return Config{}, fmt.Errorf("PYROSCOPE_UPLOAD_RATE must be > 0")
	}

	storeBackend, err := parseStoreBackend(getEnv("CACHE_BACKEND", StoreFile))
	if err != nil {
		return Config{}, err
	}
	dbURL := strings.TrimSpace(getEnv("DB_URL", ""))
	if storeBackend == StorePostgres && dbURL == "" {
		return Config{}, fmt.Errorf("DB_URL is required when CACHE_BACKEND=%s", StorePostgres)
	}
	dbDisablePreparedBinary, err := strconv.ParseBool(getEnv("DB_DISABLE_PREPARED_BINARY_RESULT", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse DB_DISABLE_PREPARED_BINARY_RESULT: %w", err)
	}

	apiSportsKey := strings.TrimSpace(getEnv("APISPORTS_KEY", ""))
	if apiSportsKey == "" {
		return Config{}, fmt.Errorf("APISPORTS_KEY is required")
	}
	apiSportsTimeout, err := time.ParseDuration(getEnv("APISPORTS_TIMEOUT", "20s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse APISPORTS_TIMEOUT: %w", err)
	}
	if apiSportsTimeout <= 0 {
		return Config{}, fmt.Errorf("APISPORTS_TIMEOUT must be > 0")
	}
	apiSportsMaxRetries, err := getEnvAsInt("APISPORTS_MAX_RETRIES", 1)
	if err != nil {
		return Config{}, fmt.Errorf("parse APISPORTS_MAX_RETRIES: %w", err)
	}
	if apiSportsMaxRetries < 0 {
		return Config{}, fmt.Errorf("APISPORTS_MAX_RETRIES must be >= 0")
	}
	apiSportsCacheTTL, err := time.ParseDuration(getEnv("APISPORTS_CACHE_TTL", "6h"))
	if err != nil {
		return Config{}, fmt.Errorf("parse APISPORTS_CACHE_TTL: %w", err)
	}
	if apiSportsCacheTTL <= 0 {
		return Config{}, fmt.Errorf("APISPORTS_CACHE_TTL must be > 0")
	}
	apiSportsCircuitEnabled, err := strconv.ParseBool(getEnv("APISPORTS_CIRCUIT_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse APISPORTS_CIRCUIT_ENABLED: %w", err)
	}
	apiSportsCircuitFailureCount, err := getEnvAsInt("APISPORTS_CIRCUIT_FAILURE_COUNT", 5)
	if err != nil {
		return Config{}, fmt.Errorf("parse APISPORTS_CIRCUIT_FAILURE_COUNT: %w", err)
	}
	if apiSportsCircuitFailureCount < 1 {
		return Config{}, fmt.Errorf("APISPORTS_CIRCUIT_FAILURE_COUNT must be >= 1")
	}
	apiSportsCircuitOpenTimeout, err := time.ParseDuration(getEnv("APISPORTS_CIRCUIT_OPEN_TIMEOUT", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse APISPORTS_CIRCUIT_OPEN_TIMEOUT: %w", err)
	}
	if apiSportsCircuitOpenTimeout <= 0 {
		return Config{}, fmt.Errorf("APISPORTS_CIRCUIT_OPEN_TIMEOUT must be > 0")
	}
	apiSportsCircuitHalfOpenMaxReq, err := getEnvAsInt("APISPORTS_CIRCUIT_HALF_OPEN_MAX_REQ", 2)
	if err != nil {
		return Config{}, fmt.Errorf("parse APISPORTS_CIRCUIT_HALF_OPEN_MAX_REQ: %w", err)
	}
	if apiSportsCircuitHalfOpenMaxReq < 1 {
		return Config{}, fmt.Errorf("APISPORTS_CIRCUIT_HALF_OPEN_MAX_REQ must be >= 1")
	}

	revalidationMaxConcurrent, err := getEnvAsInt("REVALIDATION_MAX_CONCURRENT", 5)
	if err != nil {
		return Config{}, fmt.Errorf("parse REVALIDATION_MAX_CONCURRENT: %w", err)
	}
	if revalidationMaxConcurrent < 1 || revalidationMaxConcurrent > 20 {
		return Config{}, fmt.Errorf("REVALIDATION_MAX_CONCURRENT must be between 1 and 20")
	}
	revalidationChunkDelay, err := time.ParseDuration(getEnv("REVALIDATION_CHUNK_DELAY", "500ms"))
	if err != nil {
		return Config{}, fmt.Errorf("parse REVALIDATION_CHUNK_DELAY: %w", err)
	}
	if revalidationChunkDelay < 0 {
		return Config{}, fmt.Errorf("REVALIDATION_CHUNK_DELAY must be >= 0")
	}

	readTimeout, err := time.ParseDuration(getEnv("APP_READ_TIMEOUT", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse APP_READ_TIMEOUT: %w", err)
	}

	writeTimeout, err := time.ParseDuration(getEnv("APP_WRITE_TIMEOUT", "30s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse APP_WRITE_TIMEOUT: %w", err)
	}

	cfg := Config{
		AppEnv:                         appEnv,
		ServiceName:                    getEnv("APP_SERVICE_NAME", "trophy-tracker-api"),
		ServiceVersion:                 getEnv("APP_SERVICE_VERSION", "dev"),
		HTTPAddr:                       getEnv("APP_HTTP_ADDR", ":8080"),
		ReadTimeout:                    readTimeout,
		WriteTimeout:                   writeTimeout,
		CORSAllowedOrigins:             splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		SwaggerEnabled:                 swaggerEnabled,
		InternalJobToken:               strings.TrimSpace(getEnv("INTERNAL_JOB_TOKEN", "")),
		StoreBackend:                   storeBackend,
		CacheFilePath:                  strings.TrimSpace(getEnv("CACHE_FILE_PATH", "data/finished_tournaments.json")),
		DBURL:                          dbURL,
		DBDisablePreparedBinary:        dbDisablePreparedBinary,
		APISportsBaseURL:               strings.TrimSpace(getEnv("APISPORTS_BASE_URL", "https://v3.football.api-sports.io")),
		APISportsKey:                   apiSportsKey,
		APISportsTimeout:               apiSportsTimeout,
		APISportsMaxRetries:            apiSportsMaxRetries,
		APISportsCacheTTL:              apiSportsCacheTTL,
		APISportsCircuitEnabled:        apiSportsCircuitEnabled,
		APISportsCircuitFailureCount:   apiSportsCircuitFailureCount,
		APISportsCircuitOpenTimeout:    apiSportsCircuitOpenTimeout,
		APISportsCircuitHalfOpenMaxReq: apiSportsCircuitHalfOpenMaxReq,
		RevalidationMaxConcurrent:      revalidationMaxConcurrent,
		RevalidationChunkDelay:         revalidationChunkDelay,
		PprofEnabled:                   pprofEnabled,
		PprofAddr:                      pprofAddr,
		UptraceEnabled:                 uptraceEnabled,
		UptraceDSN:                     uptraceDSN,
		UptraceLogsEnabled:             uptraceLogsEnabled,
		PyroscopeEnabled:               pyroscopeEnabled,
		PyroscopeServerAddress:         pyroscopeServerAddress,
		PyroscopeAuthToken:             strings.TrimSpace(getEnv("PYROSCOPE_AUTH_TOKEN", "")),
		PyroscopeBasicAuthUser:         strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_USER", "")),
		PyroscopeBasicAuthPassword:     strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_PASSWORD", "")),
		PyroscopeUploadRate:            pyroscopeUploadRate,
		LogLevel:                       parseLogLevel(getEnv("APP_LOG_LEVEL", "info")),
	}
	cfg.PyroscopeAppName = strings.TrimSpace(getEnv("PYROSCOPE_APP_NAME", cfg.ServiceName))
	if cfg.PyroscopeEnabled && cfg.PyroscopeAppName == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_APP_NAME cannot be empty when PYROSCOPE_ENABLED=true")
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		return Config{}, fmt.Errorf("CORS_ALLOWED_ORIGINS cannot be empty")
	}
	if cfg.StoreBackend == StoreFile && cfg.CacheFilePath == "" {
		return Config{}, fmt.Errorf("CACHE_FILE_PATH cannot be empty when CACHE_BACKEND=%s", StoreFile)
	}

	return cfg, nil
}

func parseLogLevel(v string) logging.Level {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "debug":
		return logging.LevelDebug
	case "warn", "warning":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}

func getEnvAsInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}

	return out, nil
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		out = append(out, item)
	}

	return out
}

func parseUptraceDSNFromOTLPHeaders(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	items := strings.Split(raw, ",")
	for _, item := range items {
		parts := strings.SplitN(strings.TrimSpace(item), "=", 2)
		if len(parts) != 2 {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(parts[0]), "uptrace-dsn") {
			value := strings.TrimSpace(parts[1])
			return strings.Trim(value, "\"'")
		}
	}

	return ""
}

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

// Storage backends for the finished-tournament cache.
const (
	StoreFile     = "file"
	StorePostgres = "postgres"
)

func parseAppEnv(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case EnvDev, EnvStage, EnvProd:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}

func parseStoreBackend(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case StoreFile, StorePostgres:
		return value, nil
	default:
		return "", fmt.Errorf("invalid CACHE_BACKEND %q: valid values are %s, %s", v, StoreFile, StorePostgres)
	}
}
