package config

import "os"

type APICfg struct {
	Addr     string
	AdminKey string
}

func NewAPICfg() *APICfg {
	addr := os.Getenv("API_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	return &APICfg{
		Addr:     addr,
		AdminKey: os.Getenv("API_ADMIN_KEY"),
	}
}
