package config

import (
	"os"
	"path"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

const (
	StorageLocal = "local"
	StorageRest  = "rest"

	SessionKV    = "kv"
	SessionRedis = "redis"
	SessionPoll  = "poll" // kv storage read on an interval instead of change events
)

// SysConfig system configuration
type SysConfig struct {
	Appid    string `yaml:"appid"`
	Location string `yaml:"location"`
	Workdir  string `yaml:"workdir"`
	Debug    bool   `yaml:"debug"`
}

// WebConfig storefront web server configuration
type WebConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	Secret         string        `yaml:"secret"`
	Storage        string        `yaml:"storage"`         // local | rest
	RestURL        string        `yaml:"rest_url"`        // mock resource server base url
	RestTimeout    time.Duration `yaml:"rest_timeout"`
	SessionBackend string        `yaml:"session_backend"` // kv | redis | poll
	PollInterval   time.Duration `yaml:"poll_interval"`
	SubmitDelay    time.Duration `yaml:"submit_delay"` // simulated latency after a product write
	ImageWorkers   int           `yaml:"image_workers"`
	MaxUpload      int64         `yaml:"max_upload"`
}

// MockapiConfig resource server configuration
type MockapiConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	Seed bool   `yaml:"seed"` // insert demo products into an empty database
}

// DBConfig resource server database config
type DBConfig struct {
	Type     string `yaml:"type"` // postgres | sqlite
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Passwd   string `yaml:"passwd"`
	MaxConn  int    `yaml:"max_conn"`
	IdleConn int    `yaml:"idle_conn"`
	Debug    bool   `yaml:"debug"`
}

type RedisConfig struct {
	URL string `yaml:"url"`
}

// LogConfig logging configuration
type LogConfig struct {
	Mode       string `yaml:"mode"`
	FileEnable bool   `yaml:"file_enable"`
	Filename   string `yaml:"filename"`
}

type AppConfig struct {
	System   SysConfig     `yaml:"system"`
	Web      WebConfig     `yaml:"web"`
	Mockapi  MockapiConfig `yaml:"mockapi"`
	Database DBConfig      `yaml:"database"`
	Redis    RedisConfig   `yaml:"redis"`
	Logger   LogConfig     `yaml:"logger"`
}

func (c *AppConfig) GetLogDir() string {
	return path.Join(c.System.Workdir, "logs")
}

func (c *AppConfig) GetDataDir() string {
	return path.Join(c.System.Workdir, "data")
}

// GetStoragePath location of the client storage database
func (c *AppConfig) GetStoragePath() string {
	return path.Join(c.GetDataDir(), "storefront.db")
}

// GetLogFile resolves the log file. A bare file name lives in the log dir.
func (c *AppConfig) GetLogFile() string {
	name := c.Logger.Filename
	if name == "" {
		name = "storefront.log"
	}
	if path.IsAbs(name) || strings.ContainsRune(name, '/') {
		return name
	}
	return path.Join(c.GetLogDir(), name)
}

// InitDirs creates the log and data dirs under the workdir
func (c *AppConfig) InitDirs() error {
	for _, dir := range []string{c.GetLogDir(), c.GetDataDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create dir %s", dir)
		}
	}
	return nil
}

// Validate checks enum-like settings
func (c *AppConfig) Validate() error {
	switch c.Web.Storage {
	case StorageLocal, StorageRest:
	default:
		return errors.Errorf("web.storage must be %q or %q, got %q", StorageLocal, StorageRest, c.Web.Storage)
	}
	switch c.Web.SessionBackend {
	case SessionKV, SessionRedis, SessionPoll:
	default:
		return errors.Errorf("web.session_backend must be one of %q, %q, %q, got %q",
			SessionKV, SessionRedis, SessionPoll, c.Web.SessionBackend)
	}
	if c.Web.Storage == StorageRest && strings.TrimSpace(c.Web.RestURL) == "" {
		return errors.New("web.rest_url is required for rest storage")
	}
	if c.Web.SessionBackend == SessionRedis && strings.TrimSpace(c.Redis.URL) == "" {
		return errors.New("redis.url is required for redis sessions")
	}
	return nil
}

var DefaultAppConfig = &AppConfig{
	System: SysConfig{
		Appid:    "Storefront",
		Location: "Asia/Shanghai",
		Workdir:  "/var/storefront",
		Debug:    true,
	},
	Web: WebConfig{
		Host:           "0.0.0.0",
		Port:           3000,
		Secret:         "9b6de5cc-0731-4bf1-a3c5-5c3f3a6b8e11",
		Storage:        StorageLocal,
		RestURL:        "http://localhost:3001",
		RestTimeout:    10 * time.Second,
		SessionBackend: SessionKV,
		PollInterval:   time.Second,
		SubmitDelay:    time.Second,
		ImageWorkers:   4,
		MaxUpload:      8 << 20,
	},
	Mockapi: MockapiConfig{
		Host: "0.0.0.0",
		Port: 3001,
	},
	Database: DBConfig{
		Type:     "sqlite",
		Host:     "127.0.0.1",
		Port:     5432,
		Name:     "storefront",
		User:     "postgres",
		Passwd:   "myroot",
		MaxConn:  100,
		IdleConn: 10,
		Debug:    false,
	},
	Redis: RedisConfig{
		URL: "redis://127.0.0.1:6379/0",
	},
	Logger: LogConfig{
		Mode:       "development",
		FileEnable: true,
		Filename:   "storefront.log",
	},
}

func setEnvValue(name string, val *string) {
	if v := os.Getenv(name); v != "" {
		*val = v
	}
}

func setEnvBoolValue(name string, val *bool) {
	if v := os.Getenv(name); v != "" {
		*val = cast.ToBool(v)
	}
}

func setEnvIntValue(name string, val *int) {
	if v := os.Getenv(name); v != "" {
		*val = cast.ToInt(v)
	}
}

func setEnvDurationValue(name string, val *time.Duration) {
	if v := os.Getenv(name); v != "" {
		*val = cast.ToDuration(v)
	}
}

// applyEnv overrides file values with STOREFRONT_* variables
func applyEnv(cfg *AppConfig) {
	setEnvValue("STOREFRONT_SYSTEM_WORKER_DIR", &cfg.System.Workdir)
	setEnvBoolValue("STOREFRONT_SYSTEM_DEBUG", &cfg.System.Debug)

	setEnvValue("STOREFRONT_WEB_HOST", &cfg.Web.Host)
	setEnvIntValue("STOREFRONT_WEB_PORT", &cfg.Web.Port)
	setEnvValue("STOREFRONT_WEB_SECRET", &cfg.Web.Secret)
	setEnvValue("STOREFRONT_WEB_STORAGE", &cfg.Web.Storage)
	setEnvValue("STOREFRONT_WEB_REST_URL", &cfg.Web.RestURL)
	setEnvDurationValue("STOREFRONT_WEB_REST_TIMEOUT", &cfg.Web.RestTimeout)
	setEnvValue("STOREFRONT_WEB_SESSION_BACKEND", &cfg.Web.SessionBackend)
	setEnvDurationValue("STOREFRONT_WEB_POLL_INTERVAL", &cfg.Web.PollInterval)
	setEnvDurationValue("STOREFRONT_WEB_SUBMIT_DELAY", &cfg.Web.SubmitDelay)
	setEnvIntValue("STOREFRONT_WEB_IMAGE_WORKERS", &cfg.Web.ImageWorkers)

	setEnvValue("STOREFRONT_MOCKAPI_HOST", &cfg.Mockapi.Host)
	setEnvIntValue("STOREFRONT_MOCKAPI_PORT", &cfg.Mockapi.Port)
	setEnvBoolValue("STOREFRONT_MOCKAPI_SEED", &cfg.Mockapi.Seed)

	setEnvValue("STOREFRONT_DB_TYPE", &cfg.Database.Type)
	setEnvValue("STOREFRONT_DB_HOST", &cfg.Database.Host)
	setEnvIntValue("STOREFRONT_DB_PORT", &cfg.Database.Port)
	setEnvValue("STOREFRONT_DB_NAME", &cfg.Database.Name)
	setEnvValue("STOREFRONT_DB_USER", &cfg.Database.User)
	setEnvValue("STOREFRONT_DB_PWD", &cfg.Database.Passwd)
	setEnvBoolValue("STOREFRONT_DB_DEBUG", &cfg.Database.Debug)

	setEnvValue("STOREFRONT_REDIS_URL", &cfg.Redis.URL)

	setEnvValue("STOREFRONT_LOGGER_MODE", &cfg.Logger.Mode)
	setEnvBoolValue("STOREFRONT_LOGGER_FILE_ENABLE", &cfg.Logger.FileEnable)
}

// LoadConfig reads the yaml file at cfile (when present), applies
// environment overrides and creates the work directories.
func LoadConfig(cfile string) (*AppConfig, error) {
	cfg := *DefaultAppConfig
	if cfile == "" {
		cfile = "storefront.yml"
	}
	if data, err := os.ReadFile(cfile); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, errors.Wrapf(err, "parse config %s", cfile)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "read config %s", cfile)
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.InitDirs(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
