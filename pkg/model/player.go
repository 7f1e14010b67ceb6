package model

import "time"

type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type Player struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	AccountName    string         `json:"accountName,omitempty"`
	Money          int64          `json:"money"`
	Cars           []*CarInstance `json:"cars"`
	Levels         map[string]int `json:"levels"`
	Achievements   []string       `json:"achievements"`
	Titles         []string       `json:"titles"`
	UnlockedCities []string       `json:"unlockedCities"`
	LastTrade      time.Time      `json:"lastTrade"`
	Position       Vec3           `json:"position"`
	Rotation       Vec3           `json:"rotation"`
}

func NewPlayer(id, name string, money int64) *Player {
	return &Player{
		ID:             id,
		Name:           name,
		Money:          money,
		Cars:           []*CarInstance{},
		Levels:         map[string]int{"auction": 1, "betting": 1, "racing": 1, "trading": 1},
		Achievements:   []string{},
		Titles:         []string{},
		UnlockedCities: []string{},
	}
}

// FindCar returns the index of the instance in the inventory or -1
func (p *Player) FindCar(instanceID string) int {
	for i, c := range p.Cars {
		if c.InstanceID == instanceID {
			return i
		}
	}
	return -1
}

func (p *Player) RemoveCar(instanceID string) *CarInstance {
	idx := p.FindCar(instanceID)
	if idx < 0 {
		return nil
	}
	c := p.Cars[idx]
	p.Cars = append(p.Cars[:idx], p.Cars[idx+1:]...)
	return c
}

func (p *Player) FirstCar() *CarInstance {
	if len(p.Cars) == 0 {
		return nil
	}
	return p.Cars[0]
}
