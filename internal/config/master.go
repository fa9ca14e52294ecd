package config

import "os"

type AppConfig struct {
	DebugMode      bool
	ControllerCfg  *ControllerCfg
	WorkerCfg      *WorkerCfg
	DatafeedCfg    *DatafeedCfg
	APICfg         *APICfg
	RedisConfig    *RedisConfig
	PostgresConfig *PostgresConfig
	JwtConfig      *JwtConfig
}

func NewSystemConfig() *AppConfig {
	return &AppConfig{
		DebugMode:      os.Getenv("DEBUG_MODE") == "true",
		ControllerCfg:  NewControllerCfg(),
		WorkerCfg:      NewWorkerCfg(),
		DatafeedCfg:    NewDatafeedCfg(),
		APICfg:         NewAPICfg(),
		RedisConfig:    NewRedisConfig(),
		PostgresConfig: NewPostgresConfig(),
		JwtConfig:      NewJwtConfig(),
	}
}
