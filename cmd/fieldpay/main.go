package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/helprs/fieldpay/internal/clock"
	"github.com/helprs/fieldpay/internal/config"
	"github.com/helprs/fieldpay/internal/migration"
	"github.com/helprs/fieldpay/internal/observability"
	"github.com/helprs/fieldpay/internal/scheduler"
	"github.com/helprs/fieldpay/internal/server"
	"github.com/helprs/fieldpay/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
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
