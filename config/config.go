// server/config/config.go
package config

import (
	"time"

	"github.com/spf13/viper"
)

// --- Sub-structs, mirroring the YAML layout ---

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

type MongoConfig struct {
	URI    string `mapstructure:"uri"`
	DBName string `mapstructure:"dbName"`
}

// StoreConfig selects the persistence backend. "mongo" in production,
// "memory" for local runs and tests.
type StoreConfig struct {
	Driver  string        `mapstructure:"driver"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type JWTConfig struct {
	Secret     string `mapstructure:"secret"`
	Expiration string `mapstructure:"expiration"`
}

// AdminConfig is the bootstrap admin account seeded at start-up.
type AdminConfig struct {
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
}

type S3Config struct {
	Bucket           string `mapstructure:"bucket"`
	Region           string `mapstructure:"region"`
	AccessKeyID      string `mapstructure:"accessKeyID"`
	SecretAccessKey  string `mapstructure:"secretAccessKey"`
	CloudFrontDomain string `mapstructure:"cloudFrontDomain"`
}

type RedisConfig struct {
	URL string        `mapstructure:"url"`
	TTL time.Duration `mapstructure:"ttl"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type FabricConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	ChannelName       string `mapstructure:"channelName"`
	ChaincodeName     string `mapstructure:"chaincodeName"`
	OrgName           string `mapstructure:"orgName"`
	UserName          string `mapstructure:"userName"`
	ConnectionProfile string `mapstructure:"connectionProfile"`
	UserCertPath      string `mapstructure:"userCertPath"`
	UserKeyDir        string `mapstructure:"userKeyDir"`
	WalletPath        string `mapstructure:"walletPath"`
}

type LifecycleConfig struct {
	// AutoComplete runs the system-triggered completion right after an
	// agent marks a pickup as collected.
	AutoComplete bool `mapstructure:"autoComplete"`
}

// ValuationConfig holds the per-material rate tables, keyed by material type.
type ValuationConfig struct {
	Rates      map[string]float64 `mapstructure:"rates"`
	CO2Factors map[string]float64 `mapstructure:"co2Factors"`
}

type ScoreWeights struct {
	Pickup   float64 `mapstructure:"pickup"`
	Weight   float64 `mapstructure:"weight"`
	Donation float64 `mapstructure:"donation"`
	CO2      float64 `mapstructure:"co2"`
}

type ScoreConfig struct {
	Weights ScoreWeights `mapstructure:"weights"`
}

type BadgeConfig struct {
	ID          string  `mapstructure:"id"`
	Name        string  `mapstructure:"name"`
	Description string  `mapstructure:"description"`
	Criterion   string  `mapstructure:"criterion"`
	Threshold   float64 `mapstructure:"threshold"`
	Tier        int     `mapstructure:"tier"`
}

type LeaderboardConfig struct {
	Timezone     string `mapstructure:"timezone"`
	DefaultLimit int    `mapstructure:"defaultLimit"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// --- Root config ---

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Mongo       MongoConfig       `mapstructure:"mongo"`
	Store       StoreConfig       `mapstructure:"store"`
	JWT         JWTConfig         `mapstructure:"jwt"`
	Admin       AdminConfig       `mapstructure:"admin"`
	S3          S3Config          `mapstructure:"s3"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Kafka       KafkaConfig       `mapstructure:"kafka"`
	Fabric      FabricConfig      `mapstructure:"fabric"`
	Lifecycle   LifecycleConfig   `mapstructure:"lifecycle"`
	Valuation   ValuationConfig   `mapstructure:"valuation"`
	Score       ScoreConfig       `mapstructure:"score"`
	Badges      []BadgeConfig     `mapstructure:"badges"`
	Leaderboard LeaderboardConfig `mapstructure:"leaderboard"`
	Log         LogConfig         `mapstructure:"log"`
}

// LoadConfig reads config.yaml from path and overlays environment variables.
// A missing file is not an error; defaults and env are used instead.
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	setDefaults(v)

	v.AutomaticEnv()

	v.BindEnv("server.port", "SERVER_PORT")
	v.BindEnv("mongo.uri", "MONGO_URI")
	v.BindEnv("mongo.dbName", "MONGO_DBNAME")
	v.BindEnv("store.driver", "STORE_DRIVER")
	v.BindEnv("store.timeout", "STORE_TIMEOUT")
	v.BindEnv("jwt.secret", "JWT_SECRET")
	v.BindEnv("jwt.expiration", "JWT_EXPIRATION")
	v.BindEnv("admin.email", "ADMIN_EMAIL")
	v.BindEnv("admin.password", "ADMIN_PASSWORD")
	v.BindEnv("s3.bucket", "S3_BUCKET")
	v.BindEnv("s3.region", "S3_REGION")
	v.BindEnv("s3.accessKeyID", "S3_ACCESS_KEY_ID")
	v.BindEnv("s3.secretAccessKey", "S3_SECRET_ACCESS_KEY")
	v.BindEnv("s3.cloudFrontDomain", "S3_CLOUDFRONT_DOMAIN")
	v.BindEnv("redis.url", "REDIS_URL")
	v.BindEnv("kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("kafka.topic", "KAFKA_TOPIC")
	v.BindEnv("fabric.enabled", "FABRIC_ENABLED")
	v.BindEnv("lifecycle.autoComplete", "LIFECYCLE_AUTO_COMPLETE")
	v.BindEnv("leaderboard.timezone", "LEADERBOARD_TIMEZONE")
	v.BindEnv("log.level", "LOG_LEVEL")

	err = v.ReadInConfig()
	if err != nil {
		// Only a missing file is tolerated.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return
		}
	}

	err = v.Unmarshal(&config)
	return
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("mongo.dbName", "recycle_pickup")
	v.SetDefault("store.driver", "mongo")
	v.SetDefault("store.timeout", "5s")
	v.SetDefault("jwt.expiration", "24h")
	v.SetDefault("admin.email", "admin@example.com")
	v.SetDefault("admin.name", "Platform Admin")
	v.SetDefault("redis.ttl", "10m")
	v.SetDefault("kafka.topic", "pickup-events")
	v.SetDefault("fabric.walletPath", "wallet")
	v.SetDefault("lifecycle.autoComplete", true)
	v.SetDefault("leaderboard.timezone", "Local")
	v.SetDefault("leaderboard.defaultLimit", 50)
	v.SetDefault("log.level", "info")

	// Reference rate tables: currency units and kg CO2 per kg of material.
	v.SetDefault("valuation.rates", map[string]float64{
		"paper":       2,
		"plastic":     8,
		"metal":       25,
		"glass":       3,
		"electronics": 40,
		"mixed":       4,
	})
	v.SetDefault("valuation.co2Factors", map[string]float64{
		"paper":       1.1,
		"plastic":     1.5,
		"metal":       2.0,
		"glass":       0.3,
		"electronics": 3.5,
		"mixed":       0.8,
	})

	v.SetDefault("score.weights.pickup", 10)
	v.SetDefault("score.weights.weight", 2)
	v.SetDefault("score.weights.donation", 0.5)
	v.SetDefault("score.weights.co2", 5)

	v.SetDefault("badges", []map[string]interface{}{
		{"id": "first-steps", "name": "First Steps", "description": "Completed a first pickup", "criterion": "pickups", "threshold": 1, "tier": 1},
		{"id": "regular-recycler", "name": "Regular Recycler", "description": "Completed 10 pickups", "criterion": "pickups", "threshold": 10, "tier": 2},
		{"id": "recycling-champion", "name": "Recycling Champion", "description": "Completed 50 pickups", "criterion": "pickups", "threshold": 50, "tier": 3},
		{"id": "heavy-lifter", "name": "Heavy Lifter", "description": "Recycled 100 kg of material", "criterion": "weight", "threshold": 100, "tier": 1},
		{"id": "ton-club", "name": "Ton Club", "description": "Recycled 1000 kg of material", "criterion": "weight", "threshold": 1000, "tier": 3},
		{"id": "generous-giver", "name": "Generous Giver", "description": "Generated 500 in donations", "criterion": "donations", "threshold": 500, "tier": 2},
		{"id": "climate-guardian", "name": "Climate Guardian", "description": "Saved 100 kg of CO2", "criterion": "co2", "threshold": 100, "tier": 2},
	})
}
