package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port            string
	AppEnv          string
	DatabaseURL     string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	JWTSecret       string
	SessionTTL      string
	GoogleAudience  string
	AllowOrigins    []string
	LogstashTCPAddr string

	OTPHashSecret     string
	OTPCodeLength     int
	OTPCodeTTL        time.Duration
	OTPResendCooldown time.Duration
	OTPMaxAttempts    int

	OTPSendLimit   int
	OTPSendWindow  time.Duration
	OTPCheckLimit  int
	OTPCheckWindow time.Duration

	TwilioAccountSID       string
	TwilioAuthToken        string
	TwilioVerifyServiceSID string

	MinIOEndpoint      string
	MinIOAccessKey     string
	MinIOSecretKey     string
	MinIOUseSSL        bool
	MinIOBucketPhotos  string
	MinIOBucketImports string
	MinIOPublicURL     string

	StudentPhotoMaxBytes int64
	PhotoMaxDimension    int
	FFMPEGPath           string
	ImportMaxRows        int
	ImportMaxFileBytes   int64
}

// DevMode reports whether plaintext one-time codes may be returned in API
// responses. Never true in production.
func (c Config) DevMode() bool {
	return c.AppEnv != "production"
}

func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	return Config{
		Port:            getenv("PORT", "8080"),
		AppEnv:          getenv("APP_ENV", "development"),
		DatabaseURL:     must("DATABASE_URL"),
		RedisAddr:       getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   getenv("REDIS_PASSWORD", ""),
		RedisDB:         intEnv("REDIS_DB", 0),
		JWTSecret:       must("JWT_SECRET"),
		SessionTTL:      getenv("SESSION_TTL", "24h"),
		GoogleAudience:  getenv("GOOGLE_AUDIENCE", ""),
		AllowOrigins:    splitAndTrim(getenv("ALLOW_ORIGINS", "*")),
		LogstashTCPAddr: getenv("LOGSTASH_TCP_ADDR", ""),

		OTPHashSecret:     must("OTP_HASH_SECRET"),
		OTPCodeLength:     intEnv("OTP_CODE_LENGTH", 6),
		OTPCodeTTL:        durationEnv("OTP_CODE_TTL", 5*time.Minute),
		OTPResendCooldown: durationEnv("OTP_RESEND_COOLDOWN", 45*time.Second),
		OTPMaxAttempts:    intEnv("OTP_MAX_ATTEMPTS", 5),

		OTPSendLimit:   intEnv("OTP_SEND_LIMIT", 5),
		OTPSendWindow:  durationEnv("OTP_SEND_WINDOW", time.Hour),
		OTPCheckLimit:  intEnv("OTP_CHECK_LIMIT", 10),
		OTPCheckWindow: durationEnv("OTP_CHECK_WINDOW", 10*time.Minute),

		TwilioAccountSID:       getenv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:        getenv("TWILIO_AUTH_TOKEN", ""),
		TwilioVerifyServiceSID: getenv("TWILIO_VERIFY_SERVICE_SID", ""),

		MinIOEndpoint:      must("MINIO_ENDPOINT"),
		MinIOAccessKey:     must("MINIO_ACCESS_KEY"),
		MinIOSecretKey:     must("MINIO_SECRET_KEY"),
		MinIOUseSSL:        getenv("MINIO_USE_SSL", "false") == "true",
		MinIOBucketPhotos:  getenv("MINIO_BUCKET_PHOTOS", "schooldesk-photos"),
		MinIOBucketImports: getenv("MINIO_BUCKET_IMPORTS", "schooldesk-imports"),
		MinIOPublicURL:     getenv("MINIO_PUBLIC_URL", ""),

		StudentPhotoMaxBytes: int64Env("STUDENT_PHOTO_MAX_BYTES", 2*1024*1024),
		PhotoMaxDimension:    intEnv("STUDENT_PHOTO_MAX_DIMENSION", 1024),
		FFMPEGPath:           getenv("FFMPEG_PATH", "ffmpeg"),
		ImportMaxRows:        intEnv("IMPORT_MAX_ROWS", 500),
		ImportMaxFileBytes:   int64Env("IMPORT_MAX_FILE_BYTES", 1024*1024),
	}
}

func splitAndTrim(input string) []string {
	parts := strings.Split(input, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func intEnv(k string, d int) int {
	if v, err := strconv.Atoi(getenv(k, "")); err == nil && v > 0 {
		return v
	}
	return d
}

func int64Env(k string, d int64) int64 {
	if v, err := strconv.ParseInt(getenv(k, ""), 10, 64); err == nil && v > 0 {
		return v
	}
	return d
}

func durationEnv(k string, d time.Duration) time.Duration {
	if v, err := time.ParseDuration(getenv(k, "")); err == nil && v > 0 {
		return v
	}
	return d
}

func must(k string) string {
	v := os.Getenv(k)
	if v == "" {
		panic("missing env: " + k)
	}
	return v
}
