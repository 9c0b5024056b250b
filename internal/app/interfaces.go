package app

import (
	"github.com/talkincode/storefront/config"
	"github.com/talkincode/storefront/internal/localstore"
	"github.com/talkincode/storefront/internal/media"
	"github.com/talkincode/storefront/internal/persistence"
	"github.com/talkincode/storefront/internal/session"
	"gorm.io/gorm"
)

// DBProvider provides the resource server database
type DBProvider interface {
	DB() *gorm.DB
}

// ConfigProvider provides application configuration
type ConfigProvider interface {
	Config() *config.AppConfig
}

// StorefrontProvider provides the backends the storefront pages run on
type StorefrontProvider interface {
	Storage() *localstore.Storage
	Sessions() session.Provider
	Adapters() persistence.Provider
	Encoder() *media.Encoder
}

// AppContext combines all provider interfaces for full application context
type AppContext interface {
	DBProvider
	ConfigProvider
	StorefrontProvider

	// Application lifecycle methods
	InitStorefront() error
	InitMockapi() error
	MigrateDB(track bool) error
	InitDb()
	DropAll()
	Release()
}
