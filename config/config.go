package config

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/zijiegan/library-catalog/pkg/kafka"
	"github.com/zijiegan/library-catalog/pkg/logger"
	"github.com/zijiegan/library-catalog/pkg/postgres"
)

type HTTPServer struct {
	Host         string        `yaml:"host" envconfig:"CATALOG_HTTP_HOST"`
	Port         string        `yaml:"port" envconfig:"CATALOG_HTTP_PORT" default:"8080"`
	ReadTimeout  time.Duration `yaml:"readTimeout" envconfig:"HTTP_READ"`
	WriteTimeout time.Duration
}

// Catalog holds the business toggles of the borrowing service.
type Catalog struct {
	FallbackEnabled bool          `envconfig:"CATALOG_FALLBACK" default:"true"`
	FeeRoundRobin   bool          `envconfig:"FEE_NO_RECORD_ROTATION" default:"false"`
	RefundCeiling   float64       `envconfig:"REFUND_CEILING" default:"15"`
	GatewayAPIKey   string        `envconfig:"GATEWAY_API_KEY" default:"test_key_12345"`
	GatewayLatency  time.Duration `envconfig:"GATEWAY_LATENCY" default:"100ms"`
}

type Config struct {
	Server   HTTPServer      `yaml:"server"`
	Catalog  Catalog         `yaml:"catalog"`
	Kafka    kafka.Config    `yaml:"kafka"`
	Database postgres.Config `yaml:"db"`
	Log      logger.Log      `yaml:"log"`
}

var (
	once sync.Once
	cfg  *Config
)

// NewConfig reads config from environment.
func NewConfig(ops ...Option) *Config {
	once.Do(func() {
		var config Config
		for _, op := range ops {
			op(&config)
		}
		err := envconfig.Process("", &config)
		if err != nil {
			log.Fatal("NewConfig ", err)
		}
		cfg = &config
		printConfig(cfg)
	})

	return cfg
}

func printConfig(cfg *Config) {
	jscfg, _ := json.MarshalIndent(cfg, "", "	") //nolint:errcheck
	fmt.Println(string(jscfg))
}
