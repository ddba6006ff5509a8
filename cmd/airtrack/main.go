package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/ondasul/airtrack/internal/clock"
	"github.com/ondasul/airtrack/internal/config"
	"github.com/ondasul/airtrack/internal/locker"
	"github.com/ondasul/airtrack/internal/migration"
	"github.com/ondasul/airtrack/internal/observability"
	"github.com/ondasul/airtrack/internal/scheduler"
	"github.com/ondasul/airtrack/internal/server"
	"github.com/ondasul/airtrack/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		locker.Module,
		migration.Module,

		server.Module,
		scheduler.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
