package http

import (
	"html/template"
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"frame-weaver/internal/metrics"
	"frame-weaver/internal/service"
)

// Services groups the domain services the handlers delegate to.
type Services struct {
	Users  service.UserService
	Scores service.ScoreService
	Claims service.ClaimService
	NFTs   service.NFTService
	Wallet service.WalletService
}

// Options configures the optional parts of the HTTP surface.
type Options struct {
	Logger      logrus.FieldLogger
	Metrics     *metrics.Metrics
	CORSOrigins []string
	// JWTSecret enables bearer auth on mutating routes when set.
	JWTSecret       string
	ScoresPerMinute int
	ScoresBurst     int
	Manifest        Manifest
}

// Handler wires HTTP routes to domain services.
type Handler struct {
	users    service.UserService
	scores   service.ScoreService
	claims   service.ClaimService
	nfts     service.NFTService
	wallet   service.WalletService
	logger   logrus.FieldLogger
	metrics  *metrics.Metrics
	origins  []string
	secret   []byte
	limiter  *ipRateLimiter
	manifest Manifest
}

func NewHandler(svcs Services, opts Options) *Handler {
	h := &Handler{
		users:    svcs.Users,
		scores:   svcs.Scores,
		claims:   svcs.Claims,
		nfts:     svcs.NFTs,
		wallet:   svcs.Wallet,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		origins:  opts.CORSOrigins,
		manifest: opts.Manifest,
	}
	if h.logger == nil {
		h.logger = logrus.StandardLogger()
	}
	if secret := strings.TrimSpace(opts.JWTSecret); secret != "" {
		h.secret = []byte(secret)
	}
	if opts.ScoresPerMinute > 0 {
		h.limiter = newIPRateLimiter(opts.ScoresPerMinute, opts.ScoresBurst)
	}
	return h
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(requestID(), h.accessLog(), h.corsMiddleware())
	router.SetHTMLTemplate(template.Must(template.New("frame").Parse(frameTemplate)))

	router.GET("/.well-known/farcaster.json", h.farcasterManifest)
	if h.metrics != nil {
		router.GET("/metrics", gin.WrapH(h.metrics.Handler()))
	}

	auth := h.requireAuth()

	api := router.Group("/api")
	{
		api.POST("/users", auth, h.getOrCreateUser)
		api.PATCH("/users/:identityId/wallet", auth, h.updateWallet)

		api.GET("/scores/:identityId", h.rateLimit(), h.getScores)

		api.POST("/nfts", auth, h.recordNFT)
		api.POST("/nfts/mint", auth, h.mintNFT)
		api.GET("/nfts/user/:userId", h.listNFTs)
		api.GET("/nfts/metadata/:tokenId", h.nftMetadata)
		api.GET("/nfts/info", h.walletInfo)

		api.GET("/claims/can-claim/:userId", h.canClaim)
		api.POST("/claims/claim", auth, h.claim)
		api.GET("/claims/user/:userId", h.claimHistory)

		api.POST("/webhook", h.webhook)
		api.POST("/frame", h.frameAction)

		api.GET("/health", func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
		})
	}
}

func (h *Handler) corsMiddleware() gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", requestIDHeader},
		ExposeHeaders: []string{requestIDHeader},
	}
	origins := h.origins
	if len(origins) == 0 || contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

func contains(list []string, want string) bool {
	for _, item := range list {
		if item == want {
			return true
		}
	}
	return false
}
