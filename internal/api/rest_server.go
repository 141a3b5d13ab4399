package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/annel0/blockverse/internal/auth"
	"github.com/annel0/blockverse/internal/cache"
	"github.com/annel0/blockverse/internal/logging"
	"github.com/annel0/blockverse/internal/middleware"
	"github.com/annel0/blockverse/internal/protocol"
	"github.com/annel0/blockverse/internal/storage"
	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world"
	"github.com/annel0/blockverse/internal/world/chunk"
)

// GameStatus состояние игрового сервера для /api/server
type GameStatus interface {
	Stats() protocol.Stats
	PlayerNames() []string
}

// WorldReader доступ к колонкам чанков для отладки освещения
type WorldReader interface {
	LoadChunk(ctx context.Context, coords vec.Vec2) error
	Column(coords vec.Vec2, lx, lz, fromY, toY int) ([]world.ColumnCell, error)
}

// OperatorList список операторов сервера
type OperatorList interface {
	Add(name string) (storage.Operator, error)
	Remove(name string) error
	List() ([]storage.Operator, error)
}

// RestServer административный REST API
type RestServer struct {
	router  *gin.Engine
	http    *http.Server
	game    GameStatus
	world   WorldReader
	ops     OperatorList
	auth    *auth.Authenticator
	cache   cache.CacheRepo
	process *processSampler
	logger  *logging.Logger
	version string
}

// Config содержит конфигурацию для REST сервера
type Config struct {
	Addr      string               // адрес для запуска сервера
	Version   string               // версия сборки для /api/server
	Game      GameStatus           // игровой сервер
	World     WorldReader          // мир
	Operators OperatorList         // список операторов
	Auth      *auth.Authenticator  // вход администраторов
	Cache     cache.CacheRepo      // кеш снимков чанков, nil - не показывать
	Registry  *prometheus.Registry // nil - регистр по умолчанию
	Logger    *logging.Logger
}

// NewRestServer создает новый REST API сервер
func NewRestServer(config Config) *RestServer {
	if config.Addr == "" {
		config.Addr = ":8088"
	}
	if config.Logger == nil {
		config.Logger = logging.GetAPILogger()
	}

	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())

	router.Use(otelgin.Middleware("rest_api"))
	router.Use(middleware.NewRequestLogger(config.Logger).Handler())

	var (
		reg      prometheus.Registerer
		gatherer prometheus.Gatherer
	)
	if config.Registry != nil {
		reg, gatherer = config.Registry, config.Registry
	}
	promMw := middleware.NewPrometheusMiddleware("rest_api", reg)
	router.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(router, gatherer)

	rs := &RestServer{
		router:  router,
		game:    config.Game,
		world:   config.World,
		ops:     config.Operators,
		auth:    config.Auth,
		cache:   config.Cache,
		process: newProcessSampler(),
		logger:  config.Logger,
		version: config.Version,
	}
	rs.http = &http.Server{
		Addr:              config.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	rs.setupRoutes()
	return rs
}

// Handler возвращает корневой обработчик (для тестов и встраивания)
func (rs *RestServer) Handler() http.Handler { return rs.router }

// setupRoutes настраивает маршруты REST API
func (rs *RestServer) setupRoutes() {
	rs.router.GET("/health", rs.handleHealth)

	api := rs.router.Group("/api")
	api.GET("/server", rs.handleServerInfo)
	api.GET("/chunks/:x/:z/column/:lx/:lz", rs.handleColumn)

	// Вход без JWT
	api.POST("/auth/login", rs.handleLogin)

	ops := api.Group("/ops")
	ops.Use(rs.jwtMiddleware())
	{
		ops.GET("", rs.handleListOps)

		admin := ops.Group("")
		admin.Use(rs.adminMiddleware())
		admin.POST("", rs.handleAddOp)
		admin.DELETE("/:name", rs.handleRemoveOp)
	}
}

// Start слушает адрес из конфигурации до вызова Stop
func (rs *RestServer) Start() error {
	ln, err := net.Listen("tcp", rs.http.Addr)
	if err != nil {
		return err
	}
	return rs.Serve(ln)
}

// Serve обслуживает запросы на готовом слушателе
func (rs *RestServer) Serve(ln net.Listener) error {
	rs.logger.Info("REST API слушает %s", ln.Addr())
	if err := rs.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop останавливает сервер, дожидаясь активных запросов
func (rs *RestServer) Stop(ctx context.Context) error {
	return rs.http.Shutdown(ctx)
}

// GenericResponse представляет общий ответ API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// handleHealth проверка состояния сервера
func (rs *RestServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().Unix(),
	})
}

// ServerInfo ответ /api/server
type ServerInfo struct {
	Version string              `json:"version"`
	Uptime  string              `json:"uptime"`
	Game    protocol.Stats      `json:"game"`
	Players []string            `json:"players"`
	Process ProcessStats        `json:"process"`
	Cache   *cache.CacheMetrics `json:"chunk_cache,omitempty"`
}

func (rs *RestServer) handleServerInfo(c *gin.Context) {
	info := ServerInfo{
		Version: rs.version,
		Players: []string{},
		Process: rs.process.Sample(),
	}
	if rs.cache != nil {
		m := rs.cache.GetMetrics()
		info.Cache = &m
	}
	if rs.game != nil {
		info.Game = rs.game.Stats()
		info.Uptime = formatUptime(time.Duration(info.Game.UptimeSeconds) * time.Second)
		if names := rs.game.PlayerNames(); names != nil {
			info.Players = names
		}
	}

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Информация о сервере",
		Data:    info,
	})
}

// handleColumn возвращает блоки и свет колонки чанка; ?from=&to= ограничивают высоты
func (rs *RestServer) handleColumn(c *gin.Context) {
	var ints [4]int
	for i, name := range []string{"x", "z", "lx", "lz"} {
		v, err := strconv.Atoi(c.Param(name))
		if err != nil {
			abort(c, http.StatusBadRequest, "Неверный параметр "+name)
			return
		}
		ints[i] = v
	}
	fromY, err := queryInt(c, "from", chunk.MinY)
	if err != nil {
		abort(c, http.StatusBadRequest, "Неверный параметр from")
		return
	}
	toY, err := queryInt(c, "to", chunk.MaxY)
	if err != nil {
		abort(c, http.StatusBadRequest, "Неверный параметр to")
		return
	}

	coords := vec.Vec2{X: ints[0], Z: ints[1]}
	if err := rs.world.LoadChunk(c.Request.Context(), coords); err != nil {
		rs.logger.Error("Не удалось загрузить чанк %v: %v", coords, err)
		abort(c, http.StatusInternalServerError, "Не удалось загрузить чанк")
		return
	}
	cells, err := rs.world.Column(coords, ints[2], ints[3], fromY, toY)
	if err != nil {
		if errors.Is(err, world.ErrOutOfWorld) {
			abort(c, http.StatusBadRequest, err.Error())
			return
		}
		abort(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Колонка чанка",
		Data:    cells,
	})
}

func queryInt(c *gin.Context, name string, def int) (int, error) {
	s := c.Query(name)
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}

// LoginRequest представляет запрос на вход
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse представляет ответ на вход
type LoginResponse struct {
	Success   bool      `json:"success"`
	Token     string    `json:"token,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
	Message   string    `json:"message"`
	UserID    uint64    `json:"user_id,omitempty"`
	IsAdmin   bool      `json:"is_admin,omitempty"`
}

func (rs *RestServer) handleLogin(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, LoginResponse{Message: "Неверный формат запроса"})
		return
	}

	res, err := rs.auth.Login(c.Request.Context(), req.Username, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, LoginResponse{Message: "Неверное имя пользователя или пароль"})
		return
	}
	if err != nil {
		rs.logger.Error("Ошибка входа %s: %v", req.Username, err)
		c.JSON(http.StatusInternalServerError, LoginResponse{Message: "Внутренняя ошибка сервера"})
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Success:   true,
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt,
		Message:   "Успешная авторизация",
		UserID:    res.User.ID,
		IsAdmin:   res.User.IsAdmin,
	})
}

func (rs *RestServer) handleListOps(c *gin.Context) {
	ops, err := rs.ops.List()
	if err != nil {
		abort(c, http.StatusInternalServerError, err.Error())
		return
	}
	if ops == nil {
		ops = []storage.Operator{}
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Список операторов", Data: ops})
}

// OpRequest тело POST /api/ops
type OpRequest struct {
	Name string `json:"name" binding:"required"`
}

func (rs *RestServer) handleAddOp(c *gin.Context) {
	var req OpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "Неверный формат запроса")
		return
	}
	if !storage.ValidPlayerName(req.Name) {
		abort(c, http.StatusBadRequest, "Недопустимое имя игрока")
		return
	}

	op, err := rs.ops.Add(req.Name)
	if err != nil {
		abort(c, http.StatusInternalServerError, err.Error())
		return
	}
	rs.logger.Info("%s выдал права оператора %s через API", claimsFrom(c).Username, op.Name)
	c.JSON(http.StatusCreated, GenericResponse{Success: true, Message: "Оператор добавлен", Data: op})
}

func (rs *RestServer) handleRemoveOp(c *gin.Context) {
	name := c.Param("name")
	if err := rs.ops.Remove(name); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			abort(c, http.StatusNotFound, "Оператор не найден")
			return
		}
		abort(c, http.StatusInternalServerError, err.Error())
		return
	}
	rs.logger.Info("%s снял права оператора с %s через API", claimsFrom(c).Username, name)
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Оператор удален"})
}
