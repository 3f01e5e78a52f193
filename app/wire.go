//go:build wireinject
// +build wireinject

package app

import (
	"context"

	"calendar-time-tracking/api/calendarapi"
	"calendar-time-tracking/api/notionapi"

	"github.com/google/wire"
	"go.uber.org/zap"
)

func InitApp(ctx context.Context, logger *zap.Logger, config *Config) (*App, func(), error) {
	panic(
		wire.Build(
			wire.Struct(new(App), "*"),
			InitSecretManagerClient,
			InitOAuthConfig,
			InitTokenStore,
			InitGoogleCalendar,
			InitNotion,
			InitCaches,
			wire.Struct(new(calendarapi.Client), "*"), wire.FieldsOf(new(*Config), "CalendarSettings"),
			wire.Struct(new(notionapi.Client), "*"), wire.FieldsOf(new(*Config), "NotionSettings"),
			wire.Bind(new(EventSource), new(*calendarapi.Client)),
			wire.Bind(new(SummaryExporter), new(*notionapi.Client)),
		),
	)
}
