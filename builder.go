package authcore

import (
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/silvermint/authcore/internal/audit"
	"github.com/silvermint/authcore/mailer"
	"github.com/silvermint/authcore/password"
	"github.com/silvermint/authcore/qrcode"
	"github.com/silvermint/authcore/session"
	"github.com/silvermint/authcore/token"
)

// Builder assembles an [Engine]. Redis and a mail sender are required;
// everything else has defaults.
type Builder struct {
	config    Config
	redis     redis.UniversalClient
	mail      mailer.Sender
	renderer  qrcode.Renderer
	hasher    password.Hasher
	auditSink AuditSink

	built bool
}

// New returns a Builder seeded with the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration. Call it before the other
// With methods if both are used.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the Redis client backing every store.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithMailer sets the outbound mail sender.
func (b *Builder) WithMailer(sender mailer.Sender) *Builder {
	b.mail = sender
	return b
}

// WithRenderer overrides the QR renderer used for MFA setup. Defaults to a
// PNG data-URI renderer.
func (b *Builder) WithRenderer(r qrcode.Renderer) *Builder {
	b.renderer = r
	return b
}

// WithHasher overrides the password digest service. Defaults to argon2id
// with the configured parameters.
func (b *Builder) WithHasher(h password.Hasher) *Builder {
	b.hasher = h
	return b
}

// WithAuditSink sets where audit events go when auditing is enabled.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// Build validates the configuration and constructs the Engine. A Builder is
// single-use.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.mail == nil {
		return nil, errors.New("mail sender required")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	issuer, err := token.NewIssuer(token.Config{
		AccessSecret:    cfg.JWT.AccessSecret,
		RefreshSecret:   cfg.JWT.RefreshSecret,
		AccessTTL:       cfg.JWT.AccessTTL,
		RefreshTTL:      cfg.JWT.RefreshTTL,
		Issuer:          cfg.JWT.Issuer,
		AccessAudience:  cfg.JWT.AccessAudience,
		RefreshAudience: cfg.JWT.RefreshAudience,
	})
	if err != nil {
		return nil, err
	}

	hasher := b.hasher
	if hasher == nil {
		hasher, err = password.NewArgon2(password.Config{
			Memory:      cfg.Password.Memory,
			Time:        cfg.Password.Time,
			Parallelism: cfg.Password.Parallelism,
			SaltLength:  cfg.Password.SaltLength,
			KeyLength:   cfg.Password.KeyLength,
		})
		if err != nil {
			return nil, err
		}
	}

	renderer := b.renderer
	if renderer == nil {
		renderer = qrcode.PNGDataURI{}
	}

	engine := &Engine{
		config:   cfg,
		users:    newCredentialStore(b.redis),
		sessions: session.NewStore(b.redis, cfg.Session.RedisPrefix),
		codes:    newVerificationRegistry(b.redis, cfg.Verification),
		tokens:   issuer,
		hasher:   hasher,
		totp:     newTOTPManager(cfg.MFA),
		renderer: renderer,
		mail:     b.mail,
		metrics:  NewMetrics(cfg.Metrics),
		audit: audit.NewDispatcher(audit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink),
	}

	b.built = true

	return engine, nil
}
