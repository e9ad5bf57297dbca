package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is passed to envconfig; every variable below already spells the
// full name, so the prefix stays empty.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	Paystack     PaystackConfig
	Orders       OrdersConfig
	Dispatch     DispatchConfig
	Settlement   SettlementConfig
	Passcode     PasscodeConfig
	Notify       NotifyConfig
	FeatureFlags FeatureFlagsConfig
	Frontend     FrontendConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"TRAYFOODS_APP_ENV" required:"true"`
	Port         string `envconfig:"TRAYFOODS_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"TRAYFOODS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"TRAYFOODS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"TRAYFOODS_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"TRAYFOODS_DB_DSN"`
	Driver string `envconfig:"TRAYFOODS_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"TRAYFOODS_DB_HOST"`
	Port     int    `envconfig:"TRAYFOODS_DB_PORT" default:"5432"`
	User     string `envconfig:"TRAYFOODS_DB_USER"`
	Password string `envconfig:"TRAYFOODS_DB_PASSWORD"`
	Name     string `envconfig:"TRAYFOODS_DB_NAME"`
	SSLMode  string `envconfig:"TRAYFOODS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TRAYFOODS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TRAYFOODS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TRAYFOODS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TRAYFOODS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TRAYFOODS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"TRAYFOODS_REDIS_ADDR"`
	Password     string        `envconfig:"TRAYFOODS_REDIS_PASSWORD"`
	DB           int           `envconfig:"TRAYFOODS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TRAYFOODS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TRAYFOODS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TRAYFOODS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TRAYFOODS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TRAYFOODS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type PaystackConfig struct {
	SecretKey     string        `envconfig:"TRAYFOODS_PAYSTACK_SECRET_KEY" required:"true"`
	WebhookSecret string        `envconfig:"TRAYFOODS_PAYSTACK_WEBHOOK_SECRET"`
	BaseURL       string        `envconfig:"TRAYFOODS_PAYSTACK_BASE_URL" default:"https://api.paystack.co"`
	Timeout       time.Duration `envconfig:"TRAYFOODS_PAYSTACK_TIMEOUT" default:"15s"`
	BankCacheTTL  time.Duration `envconfig:"TRAYFOODS_PAYSTACK_BANK_CACHE_TTL" default:"120s"`
}

// SigningSecret returns the secret used to verify webhook signatures; Paystack
// signs with the account secret key unless a dedicated secret is configured.
func (p PaystackConfig) SigningSecret() string {
	if s := strings.TrimSpace(p.WebhookSecret); s != "" {
		return s
	}
	return strings.TrimSpace(p.SecretKey)
}

type OrdersConfig struct {
	ServiceFeeRate    string `envconfig:"TRAYFOODS_ORDERS_SERVICE_FEE_RATE" default:"0.15"`
	DeliveryBonusRate string `envconfig:"TRAYFOODS_ORDERS_DELIVERY_BONUS_RATE" default:"0.25"`
	MinDeliveryFee    string `envconfig:"TRAYFOODS_ORDERS_MIN_DELIVERY_FEE" default:"100"`
	Currency          string `envconfig:"TRAYFOODS_ORDERS_CURRENCY" default:"NGN"`
}

type DispatchConfig struct {
	MaxRadiusKM            float64       `envconfig:"TRAYFOODS_DISPATCH_MAX_RADIUS_KM" default:"10"`
	MaxConcurrentDelivery  int           `envconfig:"TRAYFOODS_DISPATCH_MAX_CONCURRENT" default:"1"`
	AcceptWindow           time.Duration `envconfig:"TRAYFOODS_DISPATCH_ACCEPT_WINDOW" default:"15m"`
	StalledOrderWindow     time.Duration `envconfig:"TRAYFOODS_DISPATCH_STALLED_WINDOW" default:"30m"`
	StalledSweepInterval   time.Duration `envconfig:"TRAYFOODS_DISPATCH_STALLED_SWEEP_INTERVAL" default:"5m"`
	NotificationExpirySkew time.Duration `envconfig:"TRAYFOODS_DISPATCH_EXPIRY_SKEW" default:"30s"`
}

type SettlementConfig struct {
	Window        time.Duration `envconfig:"TRAYFOODS_SETTLEMENT_WINDOW" default:"24h"`
	SweepInterval time.Duration `envconfig:"TRAYFOODS_SETTLEMENT_SWEEP_INTERVAL" default:"1h"`
}

type PasscodeConfig struct {
	ArgonMemoryKB    int `envconfig:"TRAYFOODS_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"TRAYFOODS_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"TRAYFOODS_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"TRAYFOODS_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"TRAYFOODS_ARGON_KEY_LEN" default:"32"`
}

type NotifyConfig struct {
	FCMCredentialsFile string `envconfig:"TRAYFOODS_FCM_CREDENTIALS_FILE"`

	SMSBaseURL string `envconfig:"TRAYFOODS_SMS_BASE_URL"`
	SMSAPIKey  string `envconfig:"TRAYFOODS_SMS_API_KEY"`
	SMSSender  string `envconfig:"TRAYFOODS_SMS_SENDER" default:"TrayFoods"`

	SMTPHost     string `envconfig:"TRAYFOODS_SMTP_HOST"`
	SMTPPort     int    `envconfig:"TRAYFOODS_SMTP_PORT" default:"587"`
	SMTPUser     string `envconfig:"TRAYFOODS_SMTP_USER"`
	SMTPPassword string `envconfig:"TRAYFOODS_SMTP_PASSWORD"`
	EmailFrom    string `envconfig:"TRAYFOODS_EMAIL_FROM" default:"orders@trayfoods.com"`

	SupportEmail string `envconfig:"TRAYFOODS_SUPPORT_EMAIL" default:"support@trayfoods.com"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"TRAYFOODS_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"TRAYFOODS_AUTO_MIGRATE" default:"false"`
}

type FrontendConfig struct {
	BaseURL string `envconfig:"TRAYFOODS_FRONTEND_URL" default:""`
}

// CheckoutCallbackURL returns the frontend checkout page for a track id, or ""
// when no frontend URL is configured.
func (f FrontendConfig) CheckoutCallbackURL(trackID string) string {
	base := strings.TrimSpace(f.BaseURL)
	if !strings.Contains(base, "://") {
		return ""
	}
	return fmt.Sprintf("%s/checkout/%s", strings.TrimRight(base, "/"), trackID)
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	required := map[string]string{
		"TRAYFOODS_DB_HOST": db.Host,
		"TRAYFOODS_DB_USER": db.User,
		"TRAYFOODS_DB_NAME": db.Name,
	}
	for name, value := range required {
		if value == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("either TRAYFOODS_DB_DSN or %s are required", strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}
	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
