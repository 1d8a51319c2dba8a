package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/annel0/voxelmem/internal/auth"
	"github.com/annel0/voxelmem/internal/logging"
	"github.com/annel0/voxelmem/internal/memory"
	"github.com/annel0/voxelmem/internal/middleware"
	"github.com/annel0/voxelmem/internal/session"
	"github.com/annel0/voxelmem/internal/vec"
	"github.com/annel0/voxelmem/internal/world/block"
)

// DefaultPort: порт шлюза по умолчанию
const DefaultPort = ":8394"

// DefaultWaitTimeout ограничивает ожидание записи с wait=1
const DefaultWaitTimeout = 5 * time.Second

// Backend: то, что шлюз требует от сессии.
// Реализуется *session.Session.
type Backend interface {
	Capacity(ctx context.Context, region vec.Vec2) (int, error)
	ReadRegion(ctx context.Context, region vec.Vec2, offset, length int) ([]byte, error)
	WriteRegion(ctx context.Context, region vec.Vec2, offset int, payload []byte) error
	WriteRegionAndWait(ctx context.Context, region vec.Vec2, offset int, payload []byte) (memory.WriteStats, error)
	GetVoxel(ctx context.Context, pos vec.Vec3) (block.State, error)
	SetVoxel(ctx context.Context, pos vec.Vec3, state block.State) error
	Stats(ctx context.Context) (session.Stats, error)
}

// RestServer представляет HTTP-шлюз к памяти
type RestServer struct {
	router      *gin.Engine
	backend     Backend
	port        string
	signer      *auth.Signer
	limiter     *ipLimiter
	waitTimeout time.Duration
	metrics     *ServerMetrics
	logger      *logging.Logger
	httpServer  *http.Server
}

// Config содержит конфигурацию для REST сервера
type Config struct {
	Port        string                // адрес для запуска сервера, например ":8394"
	Backend     Backend               // сессия, к которой обращается шлюз
	Signer      *auth.Signer          // nil: без авторизации
	RPS         float64               // 0: без ограничения частоты
	Burst       int                   // размер всплеска для ограничителя
	WaitTimeout time.Duration         // предел ожидания для wait=1
	Registerer  prometheus.Registerer // nil: prometheus.DefaultRegisterer
	Gatherer    prometheus.Gatherer   // nil: prometheus.DefaultGatherer
}

// GenericResponse представляет общий ответ API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// NewRestServer создает новый HTTP-шлюз
func NewRestServer(config Config) (*RestServer, error) {
	if config.Backend == nil {
		return nil, errors.New("api: не задан backend")
	}
	if config.Port == "" {
		config.Port = DefaultPort
	}
	if config.WaitTimeout <= 0 {
		config.WaitTimeout = DefaultWaitTimeout
	}
	if config.Registerer == nil {
		config.Registerer = prometheus.DefaultRegisterer
	}
	if config.Gatherer == nil {
		config.Gatherer = prometheus.DefaultGatherer
	}

	gin.SetMode(gin.ReleaseMode)

	router := gin.New()        // без стандартного logger/recovery
	router.Use(gin.Recovery()) // добавим только recovery
	router.HandleMethodNotAllowed = true

	// === Observability middleware ===
	router.Use(otelgin.Middleware("voxelmem_api"))
	router.Use(middleware.NewRequestLogger().Handler())

	promMw := middleware.NewPrometheusMiddleware("voxelmem_api", config.Registerer)
	router.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(router, config.Gatherer)

	rs := &RestServer{
		router:      router,
		backend:     config.Backend,
		port:        config.Port,
		signer:      config.Signer,
		waitTimeout: config.WaitTimeout,
		metrics:     NewServerMetrics(),
		logger:      logging.GetAPILogger(),
	}
	if config.RPS > 0 {
		rs.limiter = newIPLimiter(config.RPS, config.Burst)
	}

	rs.httpServer = &http.Server{
		Addr:              config.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	rs.setupRoutes()
	return rs, nil
}

// setupRoutes настраивает маршруты шлюза
func (rs *RestServer) setupRoutes() {
	rs.router.NoMethod(func(c *gin.Context) {
		c.Status(http.StatusMethodNotAllowed)
	})

	rs.router.GET("/health", rs.handleHealth)

	limited := rs.router.Group("/")
	limited.Use(rs.rateLimitMiddleware())

	read := limited.Group("/")
	read.Use(rs.jwtMiddleware(false))
	{
		read.GET("/get_block", rs.handleGetBlock)
		read.GET("/read_chunk", rs.handleReadChunk)
		read.GET("/capacity", rs.handleCapacity)
		read.GET("/stats", rs.handleStats)
	}

	write := limited.Group("/")
	write.Use(rs.jwtMiddleware(true))
	{
		write.PUT("/set_block", rs.handleSetBlock)
		write.PUT("/write_chunk", rs.handleWriteChunk)
	}
}

// Handler возвращает http.Handler шлюза (удобно для httptest)
func (rs *RestServer) Handler() http.Handler {
	return rs.router
}

// Start запускает HTTP сервер и блокируется до его остановки
func (rs *RestServer) Start() error {
	rs.logger.Info("HTTP-шлюз слушает %s", rs.port)
	if err := rs.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("ошибка HTTP сервера: %w", err)
	}
	return nil
}

// Stop корректно останавливает HTTP сервер
func (rs *RestServer) Stop(ctx context.Context) error {
	return rs.httpServer.Shutdown(ctx)
}
