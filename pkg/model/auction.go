package model

import "time"

type AuctionStatus string

const (
	AuctionActive    AuctionStatus = "active"
	AuctionEnded     AuctionStatus = "ended"
	AuctionCancelled AuctionStatus = "cancelled"
)

type Bid struct {
	BidderID   string    `json:"bidderId"`
	BidderName string    `json:"bidderName"`
	Amount     int64     `json:"amount"`
	At         time.Time `json:"at"`
}

type Auction struct {
	ID              string        `json:"id"`
	SellerID        string        `json:"sellerId"`
	SellerName      string        `json:"sellerName"`
	Car             *CarInstance  `json:"car"`
	StartingPrice   int64         `json:"startingPrice"`
	CurrentBid      int64         `json:"currentBid"`
	CurrentBidderID string        `json:"currentBidderId,omitempty"`
	BidHistory      []Bid         `json:"bidHistory"`
	EndTime         time.Time     `json:"endTime"`
	Status          AuctionStatus `json:"status"`
	SettledAt       *time.Time    `json:"settledAt,omitempty"`
}

func (a *Auction) HasBidder() bool {
	return a.CurrentBidderID != ""
}
