package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"frame-weaver/internal/chain"
	"frame-weaver/internal/config"
	apphttp "frame-weaver/internal/http"
	"frame-weaver/internal/metrics"
	"frame-weaver/internal/neynar"
	"frame-weaver/internal/repository"
	"frame-weaver/internal/repository/postgres"
	"frame-weaver/internal/repository/sqlite"
	"frame-weaver/internal/service"
	"frame-weaver/internal/storage"
)

type repositories struct {
	users  repository.UserRepository
	claims repository.ClaimRepository
	nfts   repository.NFTRepository
	close  func()
}

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	configureLogger(logger, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repos, err := openRepositories(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer repos.close()

	// claims and nfts reference users
	if err := repos.users.Init(ctx); err != nil {
		logger.Fatalf("init user repository: %v", err)
	}
	if err := repos.claims.Init(ctx); err != nil {
		logger.Fatalf("init claim repository: %v", err)
	}
	if err := repos.nfts.Init(ctx); err != nil {
		logger.Fatalf("init nft repository: %v", err)
	}

	m := metrics.New()

	provider, err := buildProvider(cfg)
	if err != nil {
		logger.Fatalf("setup neynar: %v", err)
	}
	if provider == nil {
		logger.Warn("neynar api key not configured, score lookups will fail")
	}

	wallet, err := buildChain(ctx, cfg)
	if err != nil {
		logger.Fatalf("setup chain: %v", err)
	}
	if wallet.disburser == nil {
		logger.Warn("admin wallet not configured, claims and mints are unavailable")
	}

	storageSvc, err := buildStorage(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("setup storage: %v", err)
	}

	userService := service.NewUserService(repos.users, logger)
	scoreService := service.NewScoreService(provider, logger, m)
	claimService := service.NewClaimService(repos.claims, repos.users, wallet.disburser, service.ClaimConfig{
		Amount:   cfg.Claim.Amount,
		Cooldown: cfg.Claim.Cooldown,
		Timeout:  cfg.Claim.Timeout,
		LeaseTTL: cfg.Claim.LeaseTTL,
	}, logger, m)
	nftService := service.NewNFTService(repos.nfts, repos.users, wallet.minter, storageSvc, service.NFTConfig{
		Timeout: cfg.Mint.Timeout,
	}, logger, m)
	walletService := service.NewWalletService(wallet.treasury, logger)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	if err := router.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		logger.Fatalf("trusted proxies: %v", err)
	}
	router.Use(gin.Recovery())
	handler := apphttp.NewHandler(apphttp.Services{
		Users:  userService,
		Scores: scoreService,
		Claims: claimService,
		NFTs:   nftService,
		Wallet: walletService,
	}, apphttp.Options{
		Logger:          logger,
		Metrics:         m,
		CORSOrigins:     cfg.CORS.Origins,
		JWTSecret:       cfg.Auth.JWTSecret,
		ScoresPerMinute: cfg.RateLimit.ScoresPerMinute,
		ScoresBurst:     cfg.RateLimit.Burst,
		Manifest: apphttp.Manifest{
			BaseURL:   cfg.Manifest.BaseURL,
			Name:      cfg.Manifest.Name,
			IconURL:   cfg.Manifest.IconURL,
			ImageURL:  cfg.Manifest.ImageURL,
			Header:    cfg.Manifest.Header,
			Payload:   cfg.Manifest.Payload,
			Signature: cfg.Manifest.Signature,
		},
	})
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	// in-flight claims may still be waiting on confirmations
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Claim.Timeout+10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}

	logger.Info("bye")
}

func configureLogger(logger *logrus.Logger, cfg config.Config) {
	if strings.EqualFold(cfg.Log.Format, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		logger.Warnf("unknown log level %q, using info", cfg.Log.Level)
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
}

func openRepositories(ctx context.Context, cfg config.Config, logger *logrus.Logger) (repositories, error) {
	if url := strings.TrimSpace(cfg.Database.URL); url != "" {
		pool, err := postgres.Open(ctx, url)
		if err != nil {
			return repositories{}, err
		}
		logger.Info("using postgres database")
		return repositories{
			users:  postgres.NewUserRepository(pool),
			claims: postgres.NewClaimRepository(pool),
			nfts:   postgres.NewNFTRepository(pool),
			close:  pool.Close,
		}, nil
	}

	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		return repositories{}, err
	}
	logger.Infof("using sqlite database %s", cfg.Database.Path)
	return repositories{
		users:  sqlite.NewUserRepository(db),
		claims: sqlite.NewClaimRepository(db),
		nfts:   sqlite.NewNFTRepository(db),
		close:  func() { _ = db.Close() },
	}, nil
}

// buildProvider returns nil when no api key is configured.
func buildProvider(cfg config.Config) (service.IdentityProvider, error) {
	client, err := neynar.New(neynar.Config{
		APIKey:  cfg.Neynar.APIKey,
		BaseURL: cfg.Neynar.BaseURL,
		Timeout: cfg.Neynar.Timeout,
	})
	if errors.Is(err, neynar.ErrNotConfigured) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return client, nil
}

type chainServices struct {
	disburser service.Disburser
	minter    service.Minter
	treasury  service.Treasury
}

// buildChain returns nil collaborators when no signing key is configured.
func buildChain(ctx context.Context, cfg config.Config) (chainServices, error) {
	signer, err := chain.NewSigner(ctx, chain.Config{
		RPCURL:         cfg.Chain.RPCURL,
		ChainID:        cfg.Chain.ChainID,
		PrivateKey:     cfg.Chain.PrivateKey,
		ConfirmTimeout: cfg.Chain.ConfirmTimeout,
	})
	if errors.Is(err, chain.ErrNotConfigured) {
		return chainServices{}, nil
	}
	if err != nil {
		return chainServices{}, err
	}

	token, err := chain.NewTokenTransfer(signer, cfg.Chain.TokenAddress, cfg.Chain.TokenDecimals)
	if err != nil {
		return chainServices{}, err
	}
	drop, err := chain.NewDropMinter(signer, cfg.Chain.NFTAddress)
	if err != nil {
		return chainServices{}, err
	}
	return chainServices{disburser: token, minter: drop, treasury: token}, nil
}

// buildStorage returns nil when no bucket is configured; metadata publishing is then skipped.
func buildStorage(ctx context.Context, cfg config.Config, logger *logrus.Logger) (storage.Service, error) {
	if cfg.Storage.Bucket == "" {
		logger.Info("storage bucket not configured, nft metadata will not be published")
		return nil, nil
	}

	loadOpts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.Storage.Region),
	}
	if cfg.AWS.Profile != "" {
		loadOpts = append(loadOpts, awscfg.WithSharedConfigProfile(cfg.AWS.Profile))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Storage.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.Endpoint)
			o.UsePathStyle = true
		}
	})
	logger.Infof("using s3 bucket %s (region %s)", cfg.Storage.Bucket, cfg.Storage.Region)
	return storage.NewS3Service(client, storage.Options{
		Bucket:    cfg.Storage.Bucket,
		KeyPrefix: cfg.Storage.KeyPrefix,
	})
}
