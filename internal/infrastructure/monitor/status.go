package monitor

import "time"

type Status struct {
	PostgreSQL      bool      `json:"postgresql"`
	Redis           bool      `json:"redis"`
	PushConnections int       `json:"push_connections"`
	LastCheck       time.Time `json:"last_check"`
}
