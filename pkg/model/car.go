package model

import (
	"fmt"
	"time"
)

type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
	RarityMythic    Rarity = "mythic"
)

func (r Rarity) Valid() bool {
	switch r {
	case RarityCommon, RarityRare, RarityEpic, RarityLegendary, RarityMythic:
		return true
	}
	return false
}

// CarDefinition is an immutable catalog entry
type CarDefinition struct {
	ID             string  `json:"id"                       yaml:"id"`
	Name           string  `json:"name"                     yaml:"name"`
	Brand          string  `json:"brand"                    yaml:"brand"`
	Model          string  `json:"model,omitempty"          yaml:"model,omitempty"`
	Price          int64   `json:"price"                    yaml:"price"`
	TopSpeed       int     `json:"topSpeed"                 yaml:"topSpeed"`
	Acceleration   float64 `json:"acceleration"             yaml:"acceleration"`
	Handling       int     `json:"handling"                 yaml:"handling"`
	Rarity         Rarity  `json:"rarity"                   yaml:"rarity"`
	Category       string  `json:"category"                 yaml:"category"`
	SpecialAbility string  `json:"specialAbility,omitempty" yaml:"specialAbility,omitempty"`
	CityExclusive  string  `json:"cityExclusive,omitempty"  yaml:"cityExclusive,omitempty"`
}

func (d *CarDefinition) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("car definition without id")
	}
	if d.Price < 0 {
		return fmt.Errorf("car %s: negative price", d.ID)
	}
	if !d.Rarity.Valid() {
		return fmt.Errorf("car %s: unknown rarity %q", d.ID, d.Rarity)
	}
	return nil
}

type Customization struct {
	Color       string   `json:"color,omitempty"`
	Skin        string   `json:"skin,omitempty"`
	Element     string   `json:"element,omitempty"`
	Attachments []string `json:"attachments,omitempty"`
}

// CustomizationPatch carries the fields a client wants to change.
// nil fields are left untouched.
type CustomizationPatch struct {
	Color       *string  `json:"color,omitempty"`
	Skin        *string  `json:"skin,omitempty"`
	Element     *string  `json:"element,omitempty"`
	Attachments []string `json:"attachments,omitempty"`
}

func (c *Customization) Apply(p CustomizationPatch) {
	if p.Color != nil {
		c.Color = *p.Color
	}
	if p.Skin != nil {
		c.Skin = *p.Skin
	}
	if p.Element != nil {
		c.Element = *p.Element
	}
	if p.Attachments != nil {
		c.Attachments = append([]string{}, p.Attachments...)
	}
}

// CarInstance is a player owned copy of a CarDefinition
type CarInstance struct {
	CarDefinition
	InstanceID    string        `json:"instanceId"`
	DefinitionID  string        `json:"definitionId"`
	AcquiredAt    time.Time     `json:"acquiredAt"`
	Fuel          float64       `json:"fuel"`
	Charge        float64       `json:"charge"`
	Customization Customization `json:"customization"`
}
