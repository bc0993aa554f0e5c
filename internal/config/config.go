package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	VNPay    VNPayConfig
	Orders   OrdersConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Database        string
	Schema          string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	AcquireTimeout  time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret        string
	AccessExpiry  int // in minutes
	RefreshExpiry int // in days
}

// VNPayConfig tunes the simulated payment gateway.
type VNPayConfig struct {
	SuccessRate     float64
	ProcessingDelay time.Duration
	OTPValidity     time.Duration
}

type OrdersConfig struct {
	// PendingExpiry is how long a gateway order may stay pending before
	// the expiry worker cancels it and restores stock.
	PendingExpiry  time.Duration
	ExpiryInterval time.Duration
}

func Load() *Config {
	// .env is optional; real environment variables win either way.
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: no .env file loaded: %v", err)
	}

	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_ENV", "development")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SCHEMA", "public")
	viper.SetDefault("DB_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 5)
	viper.SetDefault("DB_CONN_MAX_LIFETIME", "30m")
	viper.SetDefault("DB_ACQUIRE_TIMEOUT", "5s")
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("JWT_ACCESS_EXPIRY", 15)
	viper.SetDefault("JWT_REFRESH_EXPIRY", 7)
	viper.SetDefault("VNPAY_SUCCESS_RATE", 0.98)
	viper.SetDefault("VNPAY_PROCESSING_DELAY", "3s")
	viper.SetDefault("VNPAY_OTP_VALIDITY", "120s")
	viper.SetDefault("ORDER_PENDING_EXPIRY", "30m")
	viper.SetDefault("ORDER_EXPIRY_INTERVAL", "5m")

	return &Config{
		Server: ServerConfig{
			Port: viper.GetString("SERVER_PORT"),
			Env:  viper.GetString("SERVER_ENV"),
		},
		Database: DatabaseConfig{
			Host:            viper.GetString("DB_HOST"),
			Port:            viper.GetString("DB_PORT"),
			User:            viper.GetString("DB_USER"),
			Password:        viper.GetString("DB_PASSWORD"),
			Database:        viper.GetString("DB_DATABASE"),
			Schema:          viper.GetString("DB_SCHEMA"),
			MaxOpenConns:    viper.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    viper.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: viper.GetDuration("DB_CONN_MAX_LIFETIME"),
			AcquireTimeout:  viper.GetDuration("DB_ACQUIRE_TIMEOUT"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret:        viper.GetString("JWT_SECRET"),
			AccessExpiry:  viper.GetInt("JWT_ACCESS_EXPIRY"),
			RefreshExpiry: viper.GetInt("JWT_REFRESH_EXPIRY"),
		},
		VNPay: VNPayConfig{
			SuccessRate:     viper.GetFloat64("VNPAY_SUCCESS_RATE"),
			ProcessingDelay: viper.GetDuration("VNPAY_PROCESSING_DELAY"),
			OTPValidity:     viper.GetDuration("VNPAY_OTP_VALIDITY"),
		},
		Orders: OrdersConfig{
			PendingExpiry:  viper.GetDuration("ORDER_PENDING_EXPIRY"),
			ExpiryInterval: viper.GetDuration("ORDER_EXPIRY_INTERVAL"),
		},
	}
}
