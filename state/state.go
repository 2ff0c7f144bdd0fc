package state

import (
	"context"
	"os"
	"time"

	"imagen/config"
	"imagen/dispatch"
	"imagen/history"
	"imagen/tasks"

	"github.com/getsentry/sentry-go"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/infinitybotlist/eureka/genconfig"
	"github.com/infinitybotlist/eureka/snippets"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var (
	Pool      *pgxpool.Pool
	Redis     *redis.Client
	Logger    *zap.SugaredLogger
	Context   = context.Background()
	Validator = validator.New()

	Config *config.Config

	Tasks      tasks.Store
	History    history.Store
	Dispatcher *dispatch.Dispatcher
)

func Setup() {
	Validator.RegisterValidation("notblank", validators.NotBlank)

	genconfig.GenConfig(config.Config{})

	cfg, err := os.ReadFile("config.yaml")

	if err != nil {
		panic(err)
	}

	err = yaml.Unmarshal(cfg, &Config)

	if err != nil {
		panic(err)
	}

	err = Validator.Struct(Config)

	if err != nil {
		panic("configError: " + err.Error())
	}

	Logger = snippets.CreateZap().Sugar()

	Pool, err = pgxpool.New(Context, Config.Meta.PostgresURL)

	if err != nil {
		panic(err)
	}

	rOptions, err := redis.ParseURL(Config.Meta.RedisURL)

	if err != nil {
		panic(err)
	}

	Redis = redis.NewClient(rOptions)

	if Config.Meta.SentryDSN != "" {
		err = sentry.Init(sentry.ClientOptions{
			Dsn: Config.Meta.SentryDSN,
		})

		if err != nil {
			panic(err)
		}
	}

	retention := time.Duration(Config.Meta.TaskRetentionHrs) * time.Hour
	maxAge := time.Duration(Config.Meta.TaskMaxAgeHrs) * time.Hour

	switch Config.Meta.TaskStore {
	case config.TaskStoreMemory:
		Tasks = tasks.NewMemoryStore(retention, maxAge)
		History = history.NewMemoryStore()
	default:
		Tasks = tasks.NewPostgresStore(Pool, retention, maxAge)
		History = history.NewPostgresStore(Pool)
	}

	Dispatcher = dispatch.New(
		Config.Worker.URL,
		Config.Sites.API+"/webhook/result",
		time.Duration(Config.Worker.DispatchTimeout)*time.Second,
		Tasks,
		Logger,
	)
}
