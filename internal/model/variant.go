package model

import "time"

// Variant is a purchasable SKU of a product together with its current stock.
type Variant struct {
	ID          string    `json:"id" db:"id"`
	ProductName string    `json:"productName" db:"product_name"`
	Name        string    `json:"name" db:"variant_name"`
	Image       string    `json:"image,omitempty" db:"image"`
	Stock       int       `json:"stock" db:"stock"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}
