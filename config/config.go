package config

const (
	TaskStorePostgres = "postgres"
	TaskStoreMemory   = "memory"
)

type Config struct {
	Sites  Sites  `yaml:"sites" validate:"required"`
	Worker Worker `yaml:"worker" validate:"required"`
	Meta   Meta   `yaml:"meta" validate:"required"`
}

type Sites struct {
	Frontend string `yaml:"frontend" default:"http://localhost:3000" comment:"Frontend URL" validate:"required"`
	API      string `yaml:"api" default:"http://localhost:8198" comment:"Public URL of this API. Used to build the callback URL handed to the worker" validate:"required,http_url"`
}

type Worker struct {
	URL             string `yaml:"url" default:"https://n8n.example.com/webhook/image" comment:"External worker webhook endpoint" validate:"required,http_url"`
	DispatchTimeout int    `yaml:"dispatch_timeout" default:"30" comment:"Dispatch handshake timeout in seconds. Bounds only the handoff, not the generation itself" validate:"required,min=1"`
}

type Meta struct {
	PostgresURL      string `yaml:"postgres_url" default:"postgresql:///imagen" comment:"Postgres URL" validate:"required"`
	RedisURL         string `yaml:"redis_url" default:"redis://localhost:6379" comment:"Redis URL" validate:"required"`
	Port             string `yaml:"port" default:":8198" comment:"Port to run the server on" validate:"required"`
	TaskStore        string `yaml:"task_store" default:"postgres" comment:"Task store backend: postgres (durable) or memory (ephemeral, for development)" validate:"required,oneof=postgres memory"`
	TaskRetentionHrs int    `yaml:"task_retention_hrs" default:"24" comment:"Hours a terminal task is kept after completion before it is evicted" validate:"required,min=1"`
	TaskMaxAgeHrs    int    `yaml:"task_max_age_hrs" default:"48" comment:"Absolute age ceiling in hours after which even a non-terminal task is evicted" validate:"required,min=1"`
	SentryDSN        string `yaml:"sentry_dsn" default:"" comment:"Optional Sentry DSN for error capture"`
	GenerateRL       int    `yaml:"generate_rl" default:"10" comment:"Generations allowed per user per window" validate:"required,min=1"`
	GenerateRLWindow int    `yaml:"generate_rl_window" default:"60" comment:"Generate ratelimit window in seconds" validate:"required,min=1"`
}
