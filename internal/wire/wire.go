//go:build wireinject
// +build wireinject

package wire

import (
	"github.com/google/wire"

	"adjacent-api/internal/config"
	"adjacent-api/internal/interfaces/http/router"
)

// InitializeApp 初始化整个应用（带路由器）
func InitializeApp(cfg *config.Config) (*router.Router, func(), error) {
	wire.Build(
		AgentSet,
		RedisSet,
		MessagingSet,
		RouterSet,
	)
	return nil, nil, nil
}

// InitializeWorker 初始化异步流水线执行器
func InitializeWorker(cfg *config.Config) (*Worker, func(), error) {
	wire.Build(
		AgentSet,
		RedisSet,
		MessagingSet,
		ProvideJobConsumer,
		wire.Struct(new(Worker), "*"),
	)
	return nil, nil, nil
}

// InitializePostgresOnly 仅初始化 PostgreSQL 数据层（用于 bootstrap）
func InitializePostgresOnly(cfg *config.Config) (*PostgresOnlyDataLayer, func(), error) {
	wire.Build(
		PostgresSet,
		wire.Struct(new(PostgresOnlyDataLayer), "*"),
	)
	return nil, nil, nil
}
