package app

import (
	"time"

	"github.com/talkincode/storefront/internal/domain"
	"github.com/talkincode/storefront/pkg/common"
	"go.uber.org/zap"
)

// demoImage is a 1x1 transparent png
const demoImage = "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNkYAAAAAYAAjCB0C8AAAAASUVORK5CYII="

// checkProducts inserts the demo catalog into an empty products table
func (a *Application) checkProducts() {
	defaultProducts := []domain.Product{
		{ProductName: "Wireless Headphones", Description: "Over-ear, noise cancelling", Price: "89.99", Category: "Electronics"},
		{ProductName: "Denim Jacket", Description: "Classic blue, unisex", Price: "49.5", Category: "Fashion"},
		{ProductName: "Oak Chair", Description: "Solid oak dining chair", Price: "120", Category: "Home"},
		{ProductName: "Gift Card", Description: "Redeemable for any item", Price: "25", Category: "Other"},
	}

	var count int64
	if err := a.gormDB.Model(&domain.Product{}).Count(&count).Error; err != nil {
		zap.L().Error("failed to count products", zap.Error(err))
		return
	}
	if count > 0 {
		return
	}

	for _, p := range defaultProducts {
		p.ID = common.UUIDint64()
		p.ImageURL = demoImage
		p.CreatedAt = time.Now()
		if err := a.gormDB.Create(&p).Error; err != nil {
			zap.L().Error("failed to create default product", zap.String("name", p.ProductName), zap.Error(err))
		} else {
			zap.L().Info("initialized default product", zap.String("name", p.ProductName))
		}
	}
}
