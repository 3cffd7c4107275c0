// Package wire 提供依赖注入配置
package wire

import (
	"context"
	"fmt"
	"os"

	"github.com/google/wire"

	"adjacent-api/internal/application/agent"
	"adjacent-api/internal/config"
	"adjacent-api/internal/domain/repository"
	"adjacent-api/internal/infrastructure/llm"
	"adjacent-api/internal/infrastructure/messaging"
	"adjacent-api/internal/infrastructure/persistence/postgres"
	"adjacent-api/internal/infrastructure/persistence/redis"
	"adjacent-api/internal/interfaces/http/handler"
	"adjacent-api/internal/interfaces/http/middleware"
	"adjacent-api/internal/interfaces/http/router"
	"adjacent-api/internal/workflow/chain"
	workflowport "adjacent-api/internal/workflow/port"
	workflowprompt "adjacent-api/internal/workflow/prompt"
	"adjacent-api/pkg/logger"
)

// PostgresOnlyDataLayer 仅包含 PostgreSQL 的数据层（用于 bootstrap）
type PostgresOnlyDataLayer struct {
	PgClient    *postgres.Client
	ProfileRepo *postgres.ProfileRepository
}

// Worker 异步流水线执行器依赖
type Worker struct {
	Service  *agent.Service
	Consumer *messaging.Consumer
}

// PostgresSet PostgreSQL 提供者集合
var PostgresSet = wire.NewSet(
	ProvidePostgresClient,
	postgres.NewTxManager,
	postgres.NewProjectRepository,
	postgres.NewProfileRepository,
	postgres.NewDataSourceRepository,
	postgres.NewTaskRepository,
	postgres.NewActivityRepository,
	postgres.NewJobRepository,
)

// RepoSet 整合了具体实现与接口绑定的集合
var RepoSet = wire.NewSet(
	PostgresSet,
	// 接口绑定
	wire.Bind(new(repository.Transactor), new(*postgres.TxManager)),
	wire.Bind(new(repository.ProjectRepository), new(*postgres.ProjectRepository)),
	wire.Bind(new(repository.DataSourceRepository), new(*postgres.DataSourceRepository)),
	wire.Bind(new(repository.TaskRepository), new(*postgres.TaskRepository)),
	wire.Bind(new(repository.ActivityRepository), new(*postgres.ActivityRepository)),
	wire.Bind(new(repository.JobRepository), new(*postgres.JobRepository)),
	ProvideProfileRepository,
)

// RedisSet Redis 提供者集合
var RedisSet = wire.NewSet(
	ProvideRedisClient,
	redis.NewCache,
	redis.NewRateLimiter,
	wire.Bind(new(middleware.RateLimiter), new(*redis.RateLimiter)),
)

// MessagingSet 消息队列提供者集合
var MessagingSet = wire.NewSet(
	ProvideMessagingProducer,
	wire.Bind(new(agent.JobPublisher), new(*messaging.Producer)),
)

// WorkflowSet 模型网关与三个阶段工作流
var WorkflowSet = wire.NewSet(
	llm.NewGateway,
	wire.Bind(new(workflowport.ModelGateway), new(*llm.Gateway)),
	workflowprompt.NewRegistry,
	chain.NewSettings,
	chain.NewOrchestratorChain,
	chain.NewExtractionChain,
	chain.NewPlanningChain,
	wire.Struct(new(agent.Chains), "*"),
)

// AgentSet 智能体应用服务
var AgentSet = wire.NewSet(
	RepoSet,
	WorkflowSet,
	wire.Struct(new(agent.Repositories), "*"),
	agent.NewService,
)

// RouterSet 路由器提供者集合
var RouterSet = wire.NewSet(
	wire.Bind(new(handler.AgentService), new(*agent.Service)),
	ProvideHealthHandler,
	handler.NewAgentHandler,
	handler.NewJobHandler,
	handler.NewStreamHandler,
	wire.Struct(new(router.Handlers), "*"),
	router.New,
)

// ProvidePostgresClient 提供 PostgreSQL 客户端
func ProvidePostgresClient(cfg *config.Config) (*postgres.Client, func(), error) {
	client, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideRedisClient 提供 Redis 客户端
func ProvideRedisClient(cfg *config.Config) (*redis.Client, func(), error) {
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideProfileRepository 资料读取走 Redis 缓存
func ProvideProfileRepository(pg *postgres.ProfileRepository, cache *redis.Cache, cfg *config.Config) repository.ProfileRepository {
	return redis.NewCachedProfileRepository(pg, cache, cfg.Cache.Redis.ProfileTTL)
}

// ProvideMessagingProducer 提供消息生产者
func ProvideMessagingProducer(redisClient *redis.Client, cfg *config.Config) *messaging.Producer {
	maxLen := cfg.Messaging.RedisStream.MaxLen
	if maxLen <= 0 {
		maxLen = 100000
	}
	return messaging.NewProducer(redisClient.Redis(), int64(maxLen))
}

// ProvideJobConsumer 提供流水线任务消费者，进入死信流的任务标记为失败
func ProvideJobConsumer(redisClient *redis.Client, cfg *config.Config, svc *agent.Service) *messaging.Consumer {
	rs := cfg.Messaging.RedisStream
	return messaging.NewConsumer(redisClient.Redis(), messaging.ConsumerConfig{
		Stream:        messaging.StreamPipelineRun,
		Group:         messaging.ConsumerGroupPipelineWorker,
		ConsumerName:  consumerName(),
		BlockTimeout:  rs.BlockTimeout,
		ClaimInterval: rs.ClaimInterval,
		RetryLimit:    rs.RetryLimit,
		Backoff: messaging.BackoffConfig{
			Initial:    rs.RetryBackoff.Initial,
			Max:        rs.RetryBackoff.Max,
			Multiplier: rs.RetryBackoff.Multiplier,
		},
		HandlerTimeout: rs.HandlerTimeout,
		DeadLetter: func(ctx context.Context, msg *messaging.Message, cause error) {
			if err := svc.AbandonJob(ctx, msg.ID, cause); err != nil {
				logger.Error(ctx, "failed to mark dead-lettered job", err, "job_id", msg.ID)
			}
		},
	})
}

// ProvideHealthHandler 就绪检查依赖 postgres 与 redis
func ProvideHealthHandler(cfg *config.Config, pg *postgres.Client, rc *redis.Client) *handler.HealthHandler {
	return handler.NewHealthHandler(cfg.App.Version, pg, rc)
}

func consumerName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}
