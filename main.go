package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tanpawarit/Ivabot/agent/agents/orchestrator"
	"github.com/tanpawarit/Ivabot/agent/agents/purchase"
	"github.com/tanpawarit/Ivabot/agent/catalog"
	embedx "github.com/tanpawarit/Ivabot/agent/embed"
	"github.com/tanpawarit/Ivabot/agent/intent"
	"github.com/tanpawarit/Ivabot/agent/llm"
	"github.com/tanpawarit/Ivabot/agent/prompt"
	"github.com/tanpawarit/Ivabot/agent/sandbox"
	statex "github.com/tanpawarit/Ivabot/agent/state"
	"github.com/tanpawarit/Ivabot/agent/synth"
	"github.com/tanpawarit/Ivabot/agent/tool"
	"github.com/tanpawarit/Ivabot/api"
	configx "github.com/tanpawarit/Ivabot/pkg/config"
	logx "github.com/tanpawarit/Ivabot/pkg/logger"
	"github.com/tanpawarit/Ivabot/pkg/telemetry"
)

type AppConfig struct {
	Port             int     `envconfig:"PORT" default:"8000"`
	RoutesFile       string  `envconfig:"ROUTES_FILE"`
	IntentThreshold  float64 `envconfig:"INTENT_THRESHOLD" default:"0.45"`
	SynthMaxAttempts int     `envconfig:"SYNTH_MAX_ATTEMPTS" default:"10"`
	SessionBackend   string  `envconfig:"SESSION_BACKEND" default:"memory"`
	HistoryCapacity  int     `envconfig:"HISTORY_CAPACITY" default:"5"`
}

func main() {
	appCfg := configx.MustNew[AppConfig]("")
	logx.Init(*configx.MustNew[logx.Config]("LOG"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, appCfg); err != nil {
		log.Fatal().Err(err).Msg("ivabot stopped")
	}
}

func run(ctx context.Context, appCfg *AppConfig) error {
	shutdownTracing, err := telemetry.Init(ctx, *configx.MustNew[telemetry.Config]("OTEL"))
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn().Err(err).Msg("tracer shutdown")
		}
	}()

	prompts := prompt.LoadPromptSet()
	if err := prompts.Validate(); err != nil {
		return err
	}

	llmCfg := configx.MustNew[llm.Config]("OPENROUTER")
	gateways, err := llm.NewGateways(ctx, *llmCfg, prompts.Chat, nil)
	if err != nil {
		return err
	}

	embedder, err := embedx.New(*configx.MustNew[embedx.Config]("EMBED"))
	if err != nil {
		return err
	}

	routes := intent.DefaultRoutes()
	if path := strings.TrimSpace(appCfg.RoutesFile); path != "" {
		if routes, err = intent.LoadRoutes(path); err != nil {
			return err
		}
	}
	classifier, err := intent.New(ctx, embedder, routes)
	if err != nil {
		return err
	}

	searcher, closeCatalog, err := catalog.OpenSearcher(ctx, *configx.MustNew[catalog.Config]("CATALOG"), embedder)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeCatalog(); err != nil {
			log.Warn().Err(err).Msg("close catalog")
		}
	}()

	tools, err := tool.NewRegistry(
		tool.NewWeather(*configx.MustNew[tool.WeatherConfig]("OPENWEATHER")).Handler(),
		tool.Calendar(),
	)
	if err != nil {
		return err
	}

	builder, err := synth.NewPromptBuilder(prompts.Synth)
	if err != nil {
		return err
	}
	synthesizer, err := synth.New(gateways.Synth, builder,
		synth.WithMaxAttempts(appCfg.SynthMaxAttempts),
		synth.WithStopSequences(prompt.RoleMarkers),
	)
	if err != nil {
		return err
	}

	purchaseSvc, err := purchase.New(gateways.Sales, synthesizer, sandbox.NewExecutor(), prompts.Sales)
	if err != nil {
		return err
	}

	store, err := newSessionStore(appCfg.SessionBackend)
	if err != nil {
		return err
	}
	sessions, err := statex.NewManager(store, statex.WithCapacity(appCfg.HistoryCapacity))
	if err != nil {
		return err
	}

	orch, err := orchestrator.New(orchestrator.Dependencies{
		Classifier: classifier,
		Tools:      tools,
		Products:   searcher,
		Purchase:   purchaseSvc,
		Gateway:    gateways.Chat,
		Sessions:   sessions,
	}, orchestrator.Config{Threshold: &appCfg.IntentThreshold})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         ":" + strconv.Itoa(appCfg.Port),
		Handler:      api.NewRouter(api.NewHandlers(orch, searcher)),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", appCfg.Port).Msg("ivabot listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(sctx)
}

func newSessionStore(backend string) (statex.Store, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", "memory":
		return statex.NewMemoryStore(), nil
	case "upstash":
		return statex.NewUpstashRedisStore(*configx.MustNew[statex.UpstashRedisConfig]("UPSTASH_REDIS"))
	default:
		return nil, fmt.Errorf("unknown session backend %q", backend)
	}
}
