// Package bootstrap arma el grafo de dependencias compartido por la API y la CLI.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/facturador-sunat/internal/application/billing"
	"github.com/jhoicas/facturador-sunat/internal/domain/entity"
	domsunat "github.com/jhoicas/facturador-sunat/internal/domain/sunat"
	"github.com/jhoicas/facturador-sunat/internal/infrastructure/messaging"
	"github.com/jhoicas/facturador-sunat/internal/infrastructure/postgres"
	"github.com/jhoicas/facturador-sunat/internal/infrastructure/storage"
	infrasunat "github.com/jhoicas/facturador-sunat/internal/infrastructure/sunat"
	"github.com/jhoicas/facturador-sunat/internal/infrastructure/sunat/signer"
	"github.com/jhoicas/facturador-sunat/pkg/config"
	pkgsunat "github.com/jhoicas/facturador-sunat/pkg/sunat"
)

// Container dependencias listas para usar. Close libera en orden inverso.
type Container struct {
	Pool     *pgxpool.Pool
	Service  *billing.TransmissionService
	Batch    *billing.BatchSender
	Archives storage.ArchiveStore

	closers []func() error
}

// Close cierra pool, publisher, storage y caché.
func (c *Container) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// New conecta PostgreSQL y arma el servicio de transmisión con la infraestructura
// elegida en cfg (Redis o memoria, fs o GCS, Kafka o sin eventos).
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Container, error) {
	c := &Container{}
	ok := false
	defer func() {
		if !ok {
			_ = c.Close()
		}
	}()

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
	}
	c.Pool = pool
	c.closers = append(c.closers, func() error { pool.Close(); return nil })

	transmissionRepo := postgres.NewTransmissionRepository(pool)
	credentialsRepo := postgres.NewCredentialsRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	taxRate, err := decimal.NewFromString(strings.TrimSpace(cfg.SUNAT.IGVRate))
	if err != nil {
		return nil, fmt.Errorf("SUNAT_IGV_RATE inválido %q: %w", cfg.SUNAT.IGVRate, err)
	}

	tokenCache, closeCache := newTokenCache(ctx, cfg.Redis, log)
	c.closers = append(c.closers, closeCache)

	guard := infrasunat.NewDestinationGuard(cfg.SUNAT.AllowPrivateEndpoints)
	httpClient := infrasunat.NewHTTPClient(time.Duration(cfg.SUNAT.HTTPTimeoutSeconds)*time.Second, guard)
	transmitter := infrasunat.NewTransmitter(
		infrasunat.NewSOAPClient(httpClient, guard),
		infrasunat.NewRESTClient(httpClient, guard, tokenCache, log.With().Str("component", "sunat-rest").Logger()),
	)

	archives, closeArchives, err := newArchiveStore(ctx, cfg.Storage, log)
	if err != nil {
		return nil, err
	}
	c.Archives = archives
	c.closers = append(c.closers, closeArchives)

	events, err := newEventPublisher(cfg.Kafka, log)
	if err != nil {
		return nil, err
	}
	c.closers = append(c.closers, events.Close)

	env, _ := entity.ParseEnvironment(cfg.SUNAT.DefaultEnvironment)
	c.Service = billing.NewTransmissionService(billing.Deps{
		Repo:        transmissionRepo,
		Sequences:   txRunner,
		Profiles:    credentialsRepo,
		Credentials: billing.NewRepositoryCredentialResolver(credentialsRepo),
		Material:    billing.FileMaterialLoader{},
		Normalizer:  domsunat.NewNormalizer(taxRate),
		Builder:     infrasunat.NewXMLBuilderService(),
		Signer:      signer.NewDigitalSignatureService(),
		Endpoints:   EndpointsFromConfig(cfg.SUNAT),
		Transmitter: transmitter,
		Archives:    archives,
		Events:      events,
	}, billing.Options{
		DefaultEnvironment: env,
		StrictRUC:          cfg.SUNAT.StrictRUC,
	}, log.With().Str("component", "sunat").Logger())

	batch, err := billing.NewBatchSender(c.Service, cfg.SUNAT.WorkerPoolSize, log)
	if err != nil {
		return nil, err
	}
	c.Batch = batch
	c.closers = append(c.closers, func() error { batch.Release(); return nil })

	ok = true
	return c, nil
}

// EndpointsFromConfig aplica las URLs configuradas sobre las públicas de SUNAT.
// SUNAT_DISPATCH_PROTOCOL decide el protocolo de la guía de remisión.
func EndpointsFromConfig(cfg config.SUNATConfig) infrasunat.EndpointDirectory {
	dir := infrasunat.DefaultEndpointDirectory()
	overrideEndpoints(&dir.Beta, cfg.Beta)
	overrideEndpoints(&dir.Prod, cfg.Prod)
	if strings.EqualFold(cfg.DispatchProtocol, string(entity.ProtocolSOAP)) {
		dir.Protocols[pkgsunat.DocTypeDispatchAdvice] = entity.ProtocolSOAP
	} else {
		dir.Protocols[pkgsunat.DocTypeDispatchAdvice] = entity.ProtocolREST
	}
	return dir
}

func overrideEndpoints(dst *infrasunat.EnvironmentEndpoints, src config.EndpointConfig) {
	if src.BillServiceURL != "" {
		dst.BillServiceURL = src.BillServiceURL
	}
	if src.TokenURL != "" {
		dst.TokenURL = src.TokenURL
	}
	if src.CPEURL != "" {
		dst.CPEURL = src.CPEURL
	}
	if src.Scope != "" {
		dst.Scope = src.Scope
	}
}

// newTokenCache usa Redis si está configurado y responde; si no, caché en memoria.
func newTokenCache(ctx context.Context, cfg config.RedisConfig, log zerolog.Logger) (infrasunat.TokenCache, func() error) {
	if cfg.Addr == "" {
		return infrasunat.NewMemoryTokenCache(), func() error { return nil }
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", cfg.Addr).Msg("Redis no disponible, tokens OAuth2 en memoria")
		_ = client.Close()
		return infrasunat.NewMemoryTokenCache(), func() error { return nil }
	}
	return infrasunat.NewRedisTokenCache(client, ""), client.Close
}

func newArchiveStore(ctx context.Context, cfg config.StorageConfig, log zerolog.Logger) (storage.ArchiveStore, func() error, error) {
	switch cfg.Driver {
	case "gcs":
		s, err := storage.NewGCSStore(ctx, cfg.GCSBucket, cfg.GCSPrefix, log)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		s, err := storage.NewFSStore(cfg.LocalDir)
		if err != nil {
			return nil, nil, err
		}
		return s, func() error { return nil }, nil
	}
}

type eventPublisher interface {
	billing.EventPublisher
	Close() error
}

func newEventPublisher(cfg config.KafkaConfig, log zerolog.Logger) (eventPublisher, error) {
	if strings.TrimSpace(cfg.Brokers) == "" {
		return messaging.NoopPublisher{}, nil
	}
	return messaging.NewKafkaPublisher(cfg.Brokers, cfg.Topic, time.Duration(cfg.WriteTimeoutSeconds)*time.Second, log)
}
