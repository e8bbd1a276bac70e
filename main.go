package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"

	orchestrator "github.com/tanpawarit/hotel-whatsapp-concierge/agent/agents/orchestrator"
	"github.com/tanpawarit/hotel-whatsapp-concierge/agent/llm"
	"github.com/tanpawarit/hotel-whatsapp-concierge/agent/monitor"
	"github.com/tanpawarit/hotel-whatsapp-concierge/agent/prompt"
	statex "github.com/tanpawarit/hotel-whatsapp-concierge/agent/state"
	storex "github.com/tanpawarit/hotel-whatsapp-concierge/agent/store"
	toolx "github.com/tanpawarit/hotel-whatsapp-concierge/agent/tool"
	"github.com/tanpawarit/hotel-whatsapp-concierge/api"
	configx "github.com/tanpawarit/hotel-whatsapp-concierge/pkg/config"
	_ "github.com/tanpawarit/hotel-whatsapp-concierge/pkg/logger/autoload"
	openrouterx "github.com/tanpawarit/hotel-whatsapp-concierge/pkg/openrouter"
	qstashx "github.com/tanpawarit/hotel-whatsapp-concierge/pkg/qstash"
)

func main() {
	ctx := context.Background()

	llmCfg := configx.MustNew[llm.Config]("LLM")
	openRouterCfg := configx.MustNew[openrouterx.Config]("OPENROUTER")
	turnCfg := configx.MustNew[orchestrator.TurnConfig]("TURN")
	toolCfg := configx.MustNew[toolx.Config]("TOOLS")
	storeCfg := configx.MustNew[storex.Config]("STORE")
	sessionCfg := configx.MustNew[statex.PersistenceConfig]("SESSION")
	failureCfg := configx.MustNew[monitor.QStashConfig]("FAILURE_EVENTS")
	httpCfg := configx.MustNew[api.Config]("HTTP")

	stores, err := storex.Open(ctx, *storeCfg, storex.Backends{
		Sheets:   func() storex.SheetsConfig { return *configx.MustNew[storex.SheetsConfig]("SHEETS") },
		Postgres: func() storex.PostgresConfig { return *configx.MustNew[storex.PostgresConfig]("POSTGRES") },
	})
	if err != nil {
		log.Fatal().Err(err).Str("backend", string(storeCfg.Backend)).Msg("failed to open stores")
	}
	defer closeQuietly("stores", stores.Close)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := monitor.NewMetrics(registry)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to register metrics")
	}

	reporters := monitor.Multi{monitor.NewLogReporter(), metrics}
	if strings.TrimSpace(failureCfg.Destination) != "" {
		qstashClient := qstashx.MustNew(*configx.MustNew[qstashx.Config]("QSTASH"))
		reporters = append(reporters, monitor.NewQStashReporter(qstashClient, *failureCfg))
	}

	catalog, err := toolx.NewCatalog(stores.Menu, stores.Orders, reporters, *toolCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build tool catalog")
	}

	chatModel, err := llm.NewChatModel(ctx, *llmCfg, *openRouterCfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", string(llmCfg.Backend)).Msg("failed to initialize chat model")
	}

	prompts := prompt.LoadPromptSet()
	turns, err := orchestrator.NewTurnRunner(ctx, chatModel, catalog, prompts.Assistant, *turnCfg,
		orchestrator.WithToolCallObserver(metrics),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build turn runner")
	}

	sessionStore, err := statex.OpenStore(*sessionCfg, statex.Drivers{
		Upstash: func() statex.UpstashRedisConfig { return *configx.MustNew[statex.UpstashRedisConfig]("UPSTASH_REDIS") },
		Redis:   func() statex.RedisConfig { return *configx.MustNew[statex.RedisConfig]("REDIS") },
	})
	if err != nil {
		log.Fatal().Err(err).Str("driver", string(sessionCfg.Driver)).Msg("failed to open session store")
	}
	sessions := statex.NewRegistry(
		statex.WithStore(sessionStore),
		statex.WithSeed(seedWhatsAppSession),
	)
	defer closeQuietly("sessions", sessions.Close)

	assistant, err := orchestrator.New(sessions, turns, orchestrator.WithTurnObserver(metrics))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build orchestrator")
	}

	e := api.NewServer(api.NewHandler(assistant, registry, *httpCfg))

	go func() {
		log.Info().Str("addr", httpCfg.Addr).Str("store", string(storeCfg.Backend)).Msg("starting server")
		if err := e.Start(httpCfg.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	timeout := httpCfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
}

// seedWhatsAppSession records the sender's number on a new session.
func seedWhatsAppSession(s *statex.Session) {
	s.UserInfo["phone_number"] = strings.TrimPrefix(s.UserID, "whatsapp:")
	s.UserInfo["channel"] = "whatsapp"
}

func closeQuietly(name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		log.Warn().Err(err).Str("resource", name).Msg("close failed")
	}
}
