package app

import (
	"go.uber.org/fx"

	"github.com/comanda-labs/comanda/internal/cache"
	"github.com/comanda-labs/comanda/internal/config"
	"github.com/comanda-labs/comanda/internal/database"
	"github.com/comanda-labs/comanda/internal/logger"
	"github.com/comanda-labs/comanda/internal/messaging"
	"github.com/comanda-labs/comanda/internal/observability"
	repositoryorder "github.com/comanda-labs/comanda/internal/repository/order"
	grpcserver "github.com/comanda-labs/comanda/internal/server/grpc"
	httpserver "github.com/comanda-labs/comanda/internal/server/http"
	serviceorder "github.com/comanda-labs/comanda/internal/service/order"
	transporthttp "github.com/comanda-labs/comanda/internal/transport/http"
	"github.com/comanda-labs/comanda/internal/worker"
	workerorder "github.com/comanda-labs/comanda/internal/worker/order"
)

// Core provides the foundational modules shared across executables.
var Core = fx.Options(
	config.Module,
	cache.Module,
	database.Module,
	logger.Module,
	messaging.Module,
	observability.Module,
	repositoryorder.Module,
	serviceorder.Module,
)

// HTTP wires the HTTP and gRPC transports on top of the core modules.
var HTTP = fx.Options(
	Core,
	httpserver.Module,
	grpcserver.Module,
	transporthttp.Module,
)

// Worker exposes background worker processing.
var Worker = fx.Options(
	Core,
	worker.Module,
	workerorder.Module,
)

// Module is the default application wiring (HTTP only).
var Module = HTTP
