package app

import (
	"context"
	"fmt"
	"os"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"github.com/blendle/zapdriver"
	notion "github.com/jomei/notionapi"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
	secretmanagerpb "google.golang.org/genproto/googleapis/cloud/secretmanager/v1"
)

func usesSecretManager(config *Config) bool {
	return config.GoogleCalendar.CredentialsSecret != "" ||
		config.GoogleCalendar.TokenSecret != "" ||
		config.Notion.APISecret != ""
}

func readSecret(ctx context.Context, client *secretmanager.Client, name string) ([]byte, error) {
	if client == nil {
		return nil, fmt.Errorf("read secret %s: no Secret Manager client", name)
	}
	secret, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: name,
	})
	if err != nil {
		return nil, fmt.Errorf("read secret %s: %w", name, err)
	}
	return secret.Payload.Data, nil
}

// InitSecretManagerClient returns a nil client when no secret is configured so
// local runs need no Google Cloud credentials.
func InitSecretManagerClient(
	ctx context.Context,
	config *Config,
	logger *zap.Logger,
) (*secretmanager.Client, func(), error) {
	if !usesSecretManager(config) {
		return nil, func() {}, nil
	}
	logger.Info("init Secret Manager client")
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("init Secret Manager client: %w", err)
	}
	cleanup := func() {
		logger.Info("closing Secret Manager client")
		if err := client.Close(); err != nil {
			logger.Error("close Secret Manager client", zap.Error(err))
		}
	}
	return client, cleanup, nil
}

func InitOAuthConfig(
	ctx context.Context,
	config *Config,
	secrets *secretmanager.Client,
	logger *zap.Logger,
) (_ *oauth2.Config, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("init oauth2 config: %w", err)
		}
	}()
	var data []byte
	if name := config.GoogleCalendar.CredentialsSecret; name != "" {
		logger.Info("reading oauth2 credentials", zap.String("secret", name))
		data, err = readSecret(ctx, secrets, name)
	} else {
		path := config.GoogleCalendar.CredentialsPath
		logger.Info("reading oauth2 credentials", zap.String("path", path))
		data, err = os.ReadFile(path)
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("credentials file not found at %s: download the OAuth client JSON from the Google Cloud Console", path)
		}
	}
	if err != nil {
		return nil, err
	}
	return google.ConfigFromJSON(data, calendar.CalendarReadonlyScope)
}

func InitTokenStore(
	config *Config,
	secrets *secretmanager.Client,
	logger *zap.Logger,
) TokenStore {
	if name := config.GoogleCalendar.TokenSecret; name != "" && secrets != nil {
		return &SecretTokenStore{Client: secrets, Name: name, Logger: logger}
	}
	return &FileTokenStore{Path: config.GoogleCalendar.TokenPath}
}

func InitGoogleCalendar(
	ctx context.Context,
	config *Config,
	oauthConfig *oauth2.Config,
	tokens TokenStore,
	logger *zap.Logger,
) (*calendar.Service, error) {
	logger.Info("init Google Calendar client")
	httpClient, err := authenticatedClient(ctx, oauthConfig, tokens, config.GoogleCalendar.RedirectPort, logger)
	if err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	srv, err := calendar.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("create new calendar service: %w", err)
	}
	return srv, nil
}

// InitNotion returns a nil client when no Notion token is configured, which
// disables the export.
func InitNotion(
	ctx context.Context,
	config *Config,
	secrets *secretmanager.Client,
	logger *zap.Logger,
) (*notion.Client, error) {
	token := config.Notion.Token
	if token == "" && config.Notion.APISecret != "" {
		data, err := readSecret(ctx, secrets, config.Notion.APISecret)
		if err != nil {
			return nil, fmt.Errorf("fetch api key: %w", err)
		}
		token = string(data)
	}
	if token == "" {
		logger.Debug("Notion export disabled")
		return nil, nil
	}
	logger.Info("init Notion client")
	return notion.NewClient(notion.Token(token)), nil
}

// loggerConfig returns colored console logging while developing and Cloud
// Logging JSON through zapdriver otherwise.
func loggerConfig(config *Config) (zap.Config, []zap.Option, error) {
	var zapConfig zap.Config
	var zapOptions []zap.Option
	if config.Logger.Development {
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.EncoderConfig.EncodeLevel = zapcore.LowercaseColorLevelEncoder
		zapConfig.DisableStacktrace = true
	} else {
		zapConfig = zap.NewProductionConfig()
		zapConfig.EncoderConfig = zapdriver.NewProductionEncoderConfig()
		zapOptions = append(zapOptions, zapdriver.WrapCore(
			zapdriver.ServiceName(config.Logger.ServiceName),
			zapdriver.ReportAllErrors(true),
		))
	}
	if err := zapConfig.Level.UnmarshalText([]byte(config.Logger.Level)); err != nil {
		return zap.Config{}, nil, err
	}
	output := config.Logger.Output
	if len(output) == 0 {
		output = []string{"stderr"}
	}
	zapConfig.OutputPaths = output
	zapConfig.ErrorOutputPaths = output
	zapOptions = append(zapOptions, zap.AddStacktrace(zap.ErrorLevel))
	return zapConfig, zapOptions, nil
}

func InitLogger(
	config *Config,
) (_ *zap.Logger, _ func(), err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("init logger: %w", err)
		}
	}()
	zapConfig, zapOptions, err := loggerConfig(config)
	if err != nil {
		return nil, nil, err
	}
	logger, err := zapConfig.Build(zapOptions...)
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("logger initialized",
		zap.String("level", zapConfig.Level.String()),
		zap.Strings("output", zapConfig.OutputPaths),
	)
	cleanup := func() {
		_ = logger.Sync()
	}
	return logger, cleanup, nil
}
