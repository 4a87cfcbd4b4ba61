package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"golang.org/x/oauth2/clientcredentials"

	"autorespond/internal/classify"
	"autorespond/internal/config"
	"autorespond/internal/domain"
	"autorespond/internal/gmail"
	"autorespond/internal/ledger"
	"autorespond/internal/outlook"
	"autorespond/internal/poller"
	"autorespond/internal/queue"
	"autorespond/internal/worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := ledger.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to open ledger: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("ledger close failed", "error", err)
		}
	}()

	classifier, err := classify.NewClient(cfg.OpenAIAPIKey, cfg.ModelName, logger)
	if err != nil {
		log.Fatalf("Failed to create classifier: %v", err)
	}

	publisher, err := queue.NewPublisher(ctx, cfg.GoogleCloudProject, cfg.TopicID, logger)
	if err != nil {
		log.Fatalf("Failed to create queue publisher: %v", err)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Error("publisher close failed", "error", err)
		}
	}()

	consumer, err := queue.NewConsumer(ctx, cfg.GoogleCloudProject, cfg.SubscriptionID, cfg.MaxOutstanding, logger)
	if err != nil {
		log.Fatalf("Failed to create queue consumer: %v", err)
	}
	defer func() {
		if err := consumer.Close(); err != nil {
			logger.Error("consumer close failed", "error", err)
		}
	}()

	// The exclusion query is derived from the static taxonomy once and
	// shared read-only from here on.
	exclusion := domain.BuildExclusionQuery(domain.Taxonomy)

	senders := make(map[domain.Provider]worker.Sender)
	var pollers []*poller.Poller

	// A provider that fails its startup check is skipped; the other one
	// keeps running.
	if gmailClient := startGmail(ctx, cfg, exclusion, logger); gmailClient != nil {
		senders[domain.ProviderGmail] = gmailClient
		pollers = append(pollers, poller.New(
			gmailClient, classifier, publisher, db, cfg.PollInterval, cfg.ProviderRPS, logger))
	}
	if outlookClient := startOutlook(ctx, cfg, logger); outlookClient != nil {
		senders[domain.ProviderOutlook] = outlookClient
		pollers = append(pollers, poller.New(
			outlookClient, classifier, publisher, db, cfg.PollInterval, cfg.ProviderRPS, logger))
	}

	if len(pollers) == 0 {
		log.Fatal("No mail provider could be started")
	}

	w := worker.New(senders, logger)

	var wg sync.WaitGroup
	for _, p := range pollers {
		wg.Add(1)
		go func(p *poller.Poller) {
			defer wg.Done()
			p.Run(ctx)
		}(p)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := consumer.Receive(ctx, w.Handle); err != nil && ctx.Err() == nil {
			logger.Error("consumer stopped", "error", err)
			stop()
		}
	}()

	logger.Info("autoresponder running", "providers", len(pollers))

	<-ctx.Done()
	logger.Info("shutting down, letting in-flight work finish")
	wg.Wait()
}

func startGmail(ctx context.Context, cfg *config.Config, exclusion string, logger *slog.Logger) *gmail.Client {
	srv, err := gmail.NewService(ctx, cfg.GmailCredentialsPath, cfg.GmailTokenPath)
	if err != nil {
		logger.Error("gmail service unavailable, poller disabled", "error", err)
		return nil
	}

	client := gmail.NewClient(srv, exclusion, cfg.RecencyWindow, logger)

	user, err := client.Profile(ctx)
	if err != nil {
		logger.Error("gmail identity could not be resolved, poller disabled", "error", err)
		return nil
	}
	logger.Info("gmail ready", "user", user)
	return client
}

func startOutlook(ctx context.Context, cfg *config.Config, logger *slog.Logger) *outlook.Client {
	if !cfg.OutlookConfigured() {
		logger.Warn("outlook credentials not configured, poller disabled")
		return nil
	}

	cc := &clientcredentials.Config{
		ClientID:     cfg.OutlookClientID,
		ClientSecret: cfg.OutlookClientSecret,
		TokenURL:     "https://login.microsoftonline.com/" + cfg.OutlookTenantID + "/oauth2/v2.0/token",
		Scopes:       []string{"https://graph.microsoft.com/.default"},
	}

	client := outlook.NewClient(cc.Client(ctx), cfg.RecencyWindow, logger)

	user, err := client.Profile(ctx)
	if err != nil {
		logger.Error("outlook identity could not be resolved, poller disabled", "error", err)
		return nil
	}
	logger.Info("outlook ready", "user", user)
	return client
}
