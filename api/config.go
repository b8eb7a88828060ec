package api

import "time"

type ServerConfig struct {
	S3    S3Config
	DB    DBConfig
	Redis RedisConfig
	Auth  AuthConfig
	Store StoreConfig
}

type S3Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
	Bucket          string
	PublicBaseURL   string
}

type DBConfig struct {
	User     string
	Password string
	Host     string
	Port     int
	Database string
	Schema   string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	StreamKeys RedisStreamKeys
}

type RedisStreamKeys struct {
	// Events 是商店事件（下單、出價）發布的 stream
	Events string
}

type AuthConfig struct {
	// AdminSecret 後台權杖的簽章金鑰
	AdminSecret string
}

type StoreConfig struct {
	// Timezone 商店營運時區，週額度與產能日界都以此計算
	Timezone string
	// WhatsappNumber 接單用的 WhatsApp 號碼
	WhatsappNumber string
	// HoldTTL pending 訂單的庫存保留時間
	HoldTTL time.Duration
	// SweepInterval 背景回收器掃描到期保留的間隔
	SweepInterval time.Duration
}
