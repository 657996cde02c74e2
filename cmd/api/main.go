package main

import (
	"io"
	"log"
	"os"
	"time"

	"github.com/sajidhasan/schooldesk-backend/internal/config"
	"github.com/sajidhasan/schooldesk-backend/internal/logging"
	"github.com/sajidhasan/schooldesk-backend/internal/media"
	minioRepo "github.com/sajidhasan/schooldesk-backend/internal/repository/minio"
	"github.com/sajidhasan/schooldesk-backend/internal/repository/postgres"
	redisRepo "github.com/sajidhasan/schooldesk-backend/internal/repository/redis"
	"github.com/sajidhasan/schooldesk-backend/internal/service"
	httptransport "github.com/sajidhasan/schooldesk-backend/internal/transport/http"
	"github.com/sajidhasan/schooldesk-backend/internal/transport/sms"
	"github.com/sajidhasan/schooldesk-backend/internal/util"
)

func main() {
	cfg := config.Load()

	if cfg.LogstashTCPAddr != "" {
		writer, err := logging.NewLogstashWriter(cfg.LogstashTCPAddr, "schooldesk-backend")
		if err != nil {
			log.Printf("Warning: logstash disabled: %v", err)
		} else {
			defer writer.Close()
			log.SetOutput(io.MultiWriter(os.Stdout, writer))
		}
	}

	db, err := postgres.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer db.Close()

	redisClient := redisRepo.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer redisClient.Close()
	limiter := redisRepo.NewRateLimiter(redisClient)

	minioClient, err := minioRepo.NewClient(cfg.MinIOEndpoint, cfg.MinIOAccessKey, cfg.MinIOSecretKey, cfg.MinIOUseSSL)
	if err != nil {
		log.Fatalf("connect minio: %v", err)
	}
	storage := minioRepo.NewStorage(minioClient, cfg.MinIOPublicURL, cfg.MinIOUseSSL)

	institutionRepo := postgres.NewInstitutionRepo(db)
	userRepo := postgres.NewUserRepo(db)
	teacherRepo := postgres.NewTeacherRepo(db)
	studentRepo := postgres.NewStudentRepo(db)
	challengeRepo := postgres.NewOtpChallengeRepo(db)

	var (
		sender  sms.CodeSender
		checker sms.CodeChecker
	)
	twilio := sms.NewTwilioVerify(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioVerifyServiceSID)
	if twilio.Configured() {
		sender = twilio
		checker = twilio
	} else {
		log.Println("Warning: Twilio not configured, codes are logged to the console")
		sender = sms.NewConsole()
	}

	otpService := service.NewOtpService(challengeRepo, sender, checker, service.OtpServiceConfig{
		CodeTTL:        cfg.OTPCodeTTL,
		ResendCooldown: cfg.OTPResendCooldown,
		MaxAttempts:    cfg.OTPMaxAttempts,
		CodeLength:     cfg.OTPCodeLength,
		HashSecret:     []byte(cfg.OTPHashSecret),
		DevMode:        cfg.DevMode(),
	})

	sessionTTL, err := time.ParseDuration(cfg.SessionTTL)
	if err != nil || sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	jwtManager := util.NewJWTManager(cfg.JWTSecret, sessionTTL)

	authService := service.NewAuthService(institutionRepo, userRepo, otpService, jwtManager, cfg.GoogleAudience)
	visibilityService := service.NewVisibilityService(teacherRepo, studentRepo)
	photoProcessor := media.NewFFMPEGProcessor(cfg.FFMPEGPath, cfg.PhotoMaxDimension)
	studentService := service.NewStudentService(studentRepo, visibilityService, storage, photoProcessor, service.StudentServiceConfig{
		PhotoBucket:   cfg.MinIOBucketPhotos,
		PhotoMaxBytes: cfg.StudentPhotoMaxBytes,
	})
	importService := service.NewStudentImportService(studentRepo, storage, service.StudentImportServiceConfig{
		Bucket:       cfg.MinIOBucketImports,
		MaxRows:      cfg.ImportMaxRows,
		MaxFileBytes: cfg.ImportMaxFileBytes,
	})

	e := httptransport.NewRouter(cfg.AllowOrigins)
	httptransport.RegisterSwagger(e)
	httptransport.RegisterAuth(e, authService, limiter, httptransport.AuthHandlerConfig{
		SendRate:  httptransport.RateLimitConfig{Limit: cfg.OTPSendLimit, Window: cfg.OTPSendWindow},
		CheckRate: httptransport.RateLimitConfig{Limit: cfg.OTPCheckLimit, Window: cfg.OTPCheckWindow},
	})
	httptransport.RegisterStudents(e, authService, studentService, importService)

	e.Logger.Fatal(e.Start(":" + cfg.Port))
}
