package model

import "fmt"

type Quantity string

const (
	QuantityTemperature Quantity = "temperature"
	QuantityHumidity    Quantity = "humidity"
)

// Channel binds one physical sensor to one destination topic. Channels are
// built once at startup and never mutated.
type Channel struct {
	Name     string
	Address  uint64
	Quantity Quantity
	Topic    string
}

func (c Channel) String() string {
	if c.Address != 0 {
		return fmt.Sprintf("%s(%016x)", c.Name, c.Address)
	}
	return c.Name
}
