package entity

import "time"

// CurrentStock contador agregado de stock disponible por (empresa, SKU).
// Es la suma con signo de los movimientos del SKU (best-effort bajo fallas parciales).
// Version 0 significa que la fila aún no existe (creación perezosa).
type CurrentStock struct {
	CompanyID         string
	SKUID             string
	QuantityAvailable int64
	Version           int64
	UpdatedAt         time.Time
}
