// Package config loads service configuration with Viper.
//
// Sources are applied in order: a YAML file (explicit or found under
// ./cmd/<service>/config.yml, ./config/config.yml, ./config.yml), a .env file
// loaded with godotenv, then prefixed environment variables:
//
//	var cfg AppConfig
//	err := config.LoadConfig("jobflow", &cfg, config.WithConfigFile(path))
package config
