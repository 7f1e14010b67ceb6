package model

import "time"

type TradeItemKind string

const (
	TradeItemCar   TradeItemKind = "car"
	TradeItemMoney TradeItemKind = "money"
)

type TradeItem struct {
	Kind       TradeItemKind `json:"type"`
	InstanceID string        `json:"id,omitempty"`
	Amount     int64         `json:"amount,omitempty"`
}

type TradeOffer struct {
	ID        string      `json:"id"`
	FromID    string      `json:"fromId"`
	FromName  string      `json:"fromName"`
	ToID      string      `json:"toId"`
	Offer     []TradeItem `json:"offer"`
	Request   []TradeItem `json:"request"`
	CreatedAt time.Time   `json:"createdAt"`
}
