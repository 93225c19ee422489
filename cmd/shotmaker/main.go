package main

import (
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/shotmakerhq/shotmaker/app/controllers"
	"github.com/shotmakerhq/shotmaker/app/repository"
	"github.com/shotmakerhq/shotmaker/internal/pkg/cache"
	"github.com/shotmakerhq/shotmaker/internal/pkg/database"
	"github.com/shotmakerhq/shotmaker/internal/pkg/env"
	"github.com/shotmakerhq/shotmaker/internal/pkg/media"
	"github.com/shotmakerhq/shotmaker/internal/pkg/router"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	repository.InitializeFactory(database.GetDB())

	storageCfg := media.LoadStorageConfigFromEnv()
	storage, err := media.NewObjectStorage(storageCfg)
	if err != nil {
		log.Fatalf("object storage unavailable: %v", err)
	}
	controllers.SetMediaService(media.NewService(storage, repository.GetGlobalRepositories(), storageCfg.PublicURL))

	app := fiber.New(fiber.Config{
		BodyLimit: 33554432, // 32 MiB: generation payloads carry inline reference images
	})

	app.Use(recover.New(), logger.New())

	app.Get("/metrics", basicauth.New(basicauth.Config{
		Users: map[string]string{
			env.GetEnv("METRICS_USER", "admin"): env.GetEnv("METRICS_PASSWORD", "admin"),
		},
	}), monitor.New())

	router.InstallRouter(app)

	return app
}
