package configs

import (
	"errors"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

const (
	DriverMongo  = "mongo"
	DriverMemory = "memory"

	BlobPinata = "pinata"
	BlobMinIO  = "minio"
)

// Config is read once at startup and passed to every component that needs it.
type Config struct {
	Port           string        `envconfig:"PORT" default:"3000"`
	LogLevel       string        `envconfig:"LOG_LEVEL" default:"info"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"10s"`

	DatabaseDriver string `envconfig:"DB_DRIVER" default:"mongo"`
	MongoURI       string `envconfig:"DB_URI" default:"mongodb://localhost:27017"`
	DatabaseName   string `envconfig:"DB_NAME" default:"project"`
	Transactions   bool   `envconfig:"DB_TRANSACTIONS" default:"false"`

	JWTSecret     string        `envconfig:"JWT_SECRET" required:"true"`
	TokenTTL      time.Duration `envconfig:"JWT_TTL" default:"24h"`
	BcryptCost    int           `envconfig:"BCRYPT_COST" default:"10"`
	ResetTokenTTL time.Duration `envconfig:"RESET_TOKEN_TTL" default:"1h"`

	BlobDriver string `envconfig:"BLOB_DRIVER" default:"pinata"`
	PinataConfig
	MinIOConfig
}

type PinataConfig struct {
	APIKey    string `envconfig:"PINATA_API_KEY"`
	SecretKey string `envconfig:"SECRET_API_KEY"`
	URL       string `envconfig:"PINATA_URL" default:"https://api.pinata.cloud/pinning/pinFileToIPFS"`
	Gateway   string `envconfig:"PINATA_GATEWAY"`
}

type MinIOConfig struct {
	Endpoint  string `envconfig:"MINIO_ENDPOINT" default:"localhost:9000"`
	AccessKey string `envconfig:"MINIO_ACCESS_KEY"`
	SecretKey string `envconfig:"MINIO_SECRET_KEY"`
	Bucket    string `envconfig:"MINIO_BUCKET" default:"profile-pictures"`
	UseSSL    bool   `envconfig:"MINIO_USE_SSL" default:"false"`
	PublicURL string `envconfig:"MINIO_PUBLIC_URL" default:"http://localhost:9000"`
}

// LoadConfig reads an optional .env file and then the process environment.
func LoadConfig(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		log.Info().Msg("No .env file found, reading configuration from environment")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.DatabaseDriver {
	case DriverMongo, DriverMemory:
	default:
		return errors.New("DB_DRIVER must be mongo or memory")
	}
	switch c.BlobDriver {
	case BlobPinata, BlobMinIO:
	default:
		return errors.New("BLOB_DRIVER must be pinata or minio")
	}
	if len(c.JWTSecret) < 16 {
		return errors.New("JWT_SECRET must be at least 16 characters")
	}
	return nil
}
