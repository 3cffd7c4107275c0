package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"adjacent-api/internal/config"
	"adjacent-api/internal/infrastructure/persistence/postgres"
	"adjacent-api/internal/wire"
	"adjacent-api/pkg/logger"
	"adjacent-api/pkg/utils"
)

// 演示用户固定 ID，便于重复执行
const defaultDemoUserID = "00000000-0000-4000-8000-000000000001"

func main() {
	_ = godotenv.Load()

	fmt.Println("Starting system bootstrap...")

	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)

	ctx := context.Background()

	// 2. 初始化数据层（仅 PostgreSQL）
	dataLayer, cleanup, err := wire.InitializePostgresOnly(cfg)
	if err != nil {
		logger.Fatal(ctx, "failed to initialize data layer", err)
	}
	defer cleanup()

	// 3. 建表
	fmt.Println("Running migrations...")
	if err := dataLayer.PgClient.AutoMigrate(ctx); err != nil {
		logger.Fatal(ctx, "failed to migrate", err)
	}

	// 4. 演示数据
	userID := os.Getenv("BOOTSTRAP_USER_ID")
	if userID == "" {
		userID = defaultDemoUserID
	}
	if _, err := uuid.Parse(userID); err != nil {
		logger.Fatal(ctx, "BOOTSTRAP_USER_ID must be a uuid", err, "value", userID)
	}
	email := os.Getenv("BOOTSTRAP_USER_EMAIL")
	if email == "" {
		email = "demo@adjacent.local"
	}

	existing, err := dataLayer.ProfileRepo.GetByID(ctx, userID)
	if err != nil {
		logger.Fatal(ctx, "failed to check demo profile", err)
	}
	if existing == nil {
		fmt.Printf("Seeding demo profile %s...\n", email)
		res, err := postgres.SeedDemo(ctx, dataLayer.PgClient, userID, email)
		if err != nil {
			logger.Fatal(ctx, "failed to seed demo data", err)
		}
		fmt.Printf("Demo project created with ID: %s (%d data sources)\n", res.Project.ID, len(res.Sources))
	} else {
		fmt.Printf("Demo profile %s already exists.\n", existing.Email)
	}

	// 5. 演示令牌
	if cfg.Security.JWT.Secret != "" {
		token, err := utils.NewJWTManager(cfg.Security.JWT.Secret, cfg.Security.JWT.Issuer).
			GenerateToken(userID, email, cfg.Security.JWT.Expiration)
		if err != nil {
			logger.Fatal(ctx, "failed to issue demo token", err)
		}
		fmt.Printf("Demo bearer token:\n%s\n", token)
	}

	fmt.Println("Bootstrap completed successfully.")
}
