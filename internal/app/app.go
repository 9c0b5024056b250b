package app

import (
	"os"
	"path"
	"runtime/debug"
	"time"
	_ "time/tzdata"

	"github.com/pkg/errors"
	"github.com/talkincode/storefront/config"
	"github.com/talkincode/storefront/internal/domain"
	"github.com/talkincode/storefront/internal/localstore"
	"github.com/talkincode/storefront/internal/media"
	"github.com/talkincode/storefront/internal/persistence"
	"github.com/talkincode/storefront/internal/session"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/gorm"
)

type Application struct {
	appConfig *config.AppConfig
	gormDB    *gorm.DB
	storage   *localstore.Storage
	sessions  session.Provider
	adapters  persistence.Provider
	encoder   *media.Encoder
}

// Ensure Application implements all interfaces
var (
	_ DBProvider         = (*Application)(nil)
	_ ConfigProvider     = (*Application)(nil)
	_ StorefrontProvider = (*Application)(nil)
	_ AppContext         = (*Application)(nil)
)

func NewApplication(appConfig *config.AppConfig) *Application {
	return &Application{appConfig: appConfig}
}

func (a *Application) Config() *config.AppConfig {
	return a.appConfig
}

func (a *Application) DB() *gorm.DB {
	return a.gormDB
}

// OverrideDB replaces the application's database handle (used in tests).
func (a *Application) OverrideDB(db *gorm.DB) {
	a.gormDB = db
}

func (a *Application) Storage() *localstore.Storage {
	return a.storage
}

func (a *Application) Sessions() session.Provider {
	return a.sessions
}

func (a *Application) Adapters() persistence.Provider {
	return a.adapters
}

func (a *Application) Encoder() *media.Encoder {
	return a.encoder
}

// Init sets the timezone and the global zap logger
func (a *Application) Init(cfg *config.AppConfig) {
	loc, err := time.LoadLocation(cfg.System.Location)
	if err != nil {
		zap.S().Error("timezone config error")
	} else {
		time.Local = loc
	}

	// Initialize zap logger
	var zapConfig zap.Config
	if cfg.Logger.Mode == "production" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}

	// Configure output paths
	logFile := cfg.GetLogFile()
	zapConfig.OutputPaths = []string{"stdout"}
	if cfg.Logger.FileEnable {
		if err := os.MkdirAll(path.Dir(logFile), 0o755); err != nil {
			zap.S().Errorf("create log dir: %v", err)
		}
		zapConfig.OutputPaths = append(zapConfig.OutputPaths, logFile)
	}

	// Build logger with file rotation if enabled
	var logger *zap.Logger
	if cfg.Logger.FileEnable {
		lumberJackLogger := &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    64,
			MaxBackups: 7,
			MaxAge:     7,
			Compress:   false,
		}

		core := zapcore.NewTee(
			zapcore.NewCore(
				zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
				zapcore.AddSync(lumberJackLogger),
				zapConfig.Level,
			),
			zapcore.NewCore(
				zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
				zapcore.AddSync(os.Stdout),
				zapConfig.Level,
			),
		)
		logger = zap.New(core, zap.AddCaller())
	} else {
		logger, err = zapConfig.Build(zap.AddCaller())
		if err != nil {
			panic(err)
		}
	}

	zap.ReplaceGlobals(logger)
}

// InitStorefront opens the client storage and builds the session and
// persistence backends selected in the web config
func (a *Application) InitStorefront() error {
	cfg := a.appConfig.Web
	if err := a.appConfig.InitDirs(); err != nil {
		return err
	}

	storage, err := localstore.Open(a.appConfig.GetStoragePath())
	if err != nil {
		return err
	}
	a.storage = storage

	switch cfg.SessionBackend {
	case config.SessionRedis:
		p, err := session.NewRedisProvider(a.appConfig.Redis.URL)
		if err != nil {
			return err
		}
		a.sessions = p
	case config.SessionPoll:
		a.sessions = session.NewPollingProvider(session.NewKVProvider(storage), cfg.PollInterval)
	default:
		a.sessions = session.NewKVProvider(storage)
	}

	switch cfg.Storage {
	case config.StorageRest:
		a.adapters = persistence.NewRESTAdapter(cfg.RestURL, cfg.RestTimeout)
	default:
		a.adapters = persistence.NewLocalProvider(storage)
	}

	a.encoder, err = media.NewEncoder(cfg.ImageWorkers, cfg.MaxUpload)
	if err != nil {
		return err
	}

	zap.L().Info("storefront initialized",
		zap.String("storage", cfg.Storage),
		zap.String("session_backend", cfg.SessionBackend),
		zap.String("storage_path", a.appConfig.GetStoragePath()))
	return nil
}

// InitMockapi connects the resource server database and migrates it
func (a *Application) InitMockapi() error {
	if a.gormDB == nil {
		if err := a.appConfig.InitDirs(); err != nil {
			return err
		}
		db, err := getDatabase(a.appConfig.Database, a.appConfig.GetDataDir())
		if err != nil {
			return err
		}
		a.gormDB = db
	}
	zap.S().Infof("Database connection successful, type: %s", a.appConfig.Database.Type)

	if err := a.MigrateDB(a.appConfig.Database.Debug); err != nil {
		return errors.Wrap(err, "database migration failed")
	}
	if a.appConfig.Mockapi.Seed {
		a.checkProducts()
	}
	return nil
}

func (a *Application) MigrateDB(track bool) (err error) {
	defer func() {
		if err1 := recover(); err1 != nil {
			if os.Getenv("GO_DEGUB_TRACE") != "" {
				debug.PrintStack()
			}
			if err2, ok := err1.(error); ok {
				err = err2
				zap.S().Error(err2.Error())
			}
		}
	}()
	db := a.gormDB
	if track {
		db = db.Debug()
	}
	return db.Migrator().AutoMigrate(domain.Tables...)
}

func (a *Application) DropAll() {
	_ = a.gormDB.Migrator().DropTable(domain.Tables...)
}

// InitDb drops and recreates every resource table
func (a *Application) InitDb() {
	_ = a.gormDB.Migrator().DropTable(domain.Tables...)
	err := a.gormDB.Migrator().AutoMigrate(domain.Tables...)
	if err != nil {
		zap.S().Error(err)
	}
}

// Release releases application resources
func (a *Application) Release() {
	if a.encoder != nil {
		a.encoder.Release()
	}
	if a.sessions != nil {
		_ = a.sessions.Close()
	}
	if a.storage != nil {
		_ = a.storage.Close()
	}
	if a.gormDB != nil {
		if sqlDB, err := a.gormDB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	_ = zap.L().Sync()
}
