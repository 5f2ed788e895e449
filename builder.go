package storegate

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/MrEthical07/storegate/internal/api"
	"github.com/MrEthical07/storegate/internal/logger"
	"github.com/MrEthical07/storegate/permission"
	"github.com/MrEthical07/storegate/session"
)

// Builder assembles a Manager. Configure it during initialization, call Build
// once, and discard it.
type Builder struct {
	config Config

	store      session.Store
	redis      redis.UniversalClient
	matrix     *permission.Matrix
	navigator  Navigator
	auditSink  AuditSink
	httpClient *http.Client
	log        *zap.Logger
	metrics    *Metrics

	built bool
}

// New returns a builder holding DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithStore overrides the store selected by Config.Store.
func (b *Builder) WithStore(s session.Store) *Builder {
	b.store = s
	return b
}

// WithRedis supplies the client for a "redis" store instead of dialing
// Config.Store.RedisAddr.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithMatrix overrides the built-in matrix and Config.MatrixFile.
func (b *Builder) WithMatrix(m *permission.Matrix) *Builder {
	b.matrix = m
	return b
}

func (b *Builder) WithNavigator(n Navigator) *Builder {
	b.navigator = n
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithHTTPClient sets the client used for backend calls.
func (b *Builder) WithHTTPClient(c *http.Client) *Builder {
	b.httpClient = c
	return b
}

func (b *Builder) WithLogger(l *zap.Logger) *Builder {
	b.log = l
	return b
}

// WithMetrics shares an existing metrics set, e.g. with an edge gate.
func (b *Builder) WithMetrics(m *Metrics) *Builder {
	b.metrics = m
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration and returns a Manager in the Loading
// state; call Rehydrate next.
func (b *Builder) Build() (*Manager, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// -------- BACKEND CLIENT --------
	client, err := api.New(api.Config{
		BaseURL:    cfg.BackendURL,
		Timeout:    cfg.RequestTimeout,
		HTTPClient: b.httpClient,
	})
	if err != nil {
		return nil, err
	}

	// -------- PERMISSION MATRIX --------
	matrix := b.matrix
	if matrix == nil {
		matrix, err = LoadMatrix(cfg.MatrixFile)
		if err != nil {
			return nil, err
		}
	}

	// -------- SESSION STORE --------
	store := b.store
	if store == nil {
		store, err = b.openStore(cfg.Store)
		if err != nil {
			return nil, err
		}
	}

	log := b.log
	if log == nil {
		log = logger.Named("session")
	}
	nav := b.navigator
	if nav == nil {
		nav = noopNavigator{}
	}
	metrics := b.metrics
	if metrics == nil {
		metrics = NewMetrics(cfg.Metrics)
	}

	m := &Manager{
		config:  cfg,
		api:     client,
		store:   store,
		matrix:  matrix,
		nav:     nav,
		log:     log,
		metrics: metrics,
	}
	if b.auditSink != nil {
		m.audit = NewAuditDispatcher(cfg.Audit, b.auditSink)
	}

	b.built = true

	return m, nil
}

// LoadMatrix returns the built-in matrix, or the one described by the YAML
// file at path when path is set.
func LoadMatrix(path string) (*permission.Matrix, error) {
	if path == "" {
		return permission.DefaultMatrix(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open permission matrix: %w", err)
	}
	defer f.Close()
	return permission.LoadMatrixYAML(f)
}

func (b *Builder) openStore(sc StoreConfig) (session.Store, error) {
	switch sc.Kind {
	case "memory":
		return session.NewMemoryStore(), nil
	case "redis":
		client := b.redis
		if client == nil {
			client = redis.NewClient(&redis.Options{
				Addr:     sc.RedisAddr,
				Password: sc.RedisPassword,
				DB:       sc.RedisDB,
			})
		}
		return session.NewRedisStore(client, sc.RedisPrefix, sc.RedisNamespace, sc.RedisTTL), nil
	default:
		path := sc.Path
		if path == "" {
			p, err := DefaultStorePath()
			if err != nil {
				return nil, err
			}
			path = p
		}
		return session.NewFileStore(path), nil
	}
}

// DefaultStorePath is the file store location under the user config dir.
func DefaultStorePath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(dir, "storegate", "session"), nil
}
