package models

import "time"

type ProductCategory string

const (
	CategoryGafas         ProductCategory = "gafas"
	CategoryLentesContact ProductCategory = "lentes_contacto"
	CategoryAccesorios    ProductCategory = "accesorios"
)

type ProductSpecs struct {
	Brand        string `json:"brand,omitempty"`
	Model        string `json:"model,omitempty"`
	Material     string `json:"material,omitempty"`
	Color        string `json:"color,omitempty"`
	Prescription bool   `json:"prescription"`
}

type Product struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	Price          float64         `json:"price"`
	Category       ProductCategory `json:"category"`
	Stock          int             `json:"stock"`
	Images         []string        `json:"images"`
	Specifications ProductSpecs    `json:"specifications"`
	Active         bool            `json:"active"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}
