package domain

import "time"

// ProductCategories offered by the product form
var ProductCategories = []string{"Electronics", "Fashion", "Home", "Other"}

// Product is a submitted catalog item. Price is kept as entered.
type Product struct {
	ID          int64     `gorm:"primaryKey" json:"id" csv:"id"`
	ProductName string    `gorm:"index" json:"productName" csv:"product_name"`
	Description string    `json:"description" csv:"description"`
	Price       string    `gorm:"size:64" json:"price" csv:"price"`
	Category    string    `gorm:"size:64" json:"category" csv:"category"`
	ImageURL    string    `json:"imageUrl" csv:"-"` // base64 data URI
	CreatedAt   time.Time `json:"created_at,omitempty" csv:"-"`
}

// TableName Specify table name
func (Product) TableName() string {
	return "sf_product"
}
