package app

import (
	"bytes"
	"context"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"go.einride.tech/aip/resourcename"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	secretmanagerpb "google.golang.org/genproto/googleapis/cloud/secretmanager/v1"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// TokenStore persists the OAuth token between runs. LoadToken returns nil, nil
// when no token has been stored yet.
type TokenStore interface {
	SaveToken(ctx context.Context, tok *oauth2.Token) error
	LoadToken(ctx context.Context) (*oauth2.Token, error)
}

// FileTokenStore keeps the token as JSON on disk.
type FileTokenStore struct {
	Path string
}

func (s *FileTokenStore) SaveToken(_ context.Context, tok *oauth2.Token) error {
	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("marshal token: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	if err := os.WriteFile(s.Path, data, 0o600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	return nil
}

func (s *FileTokenStore) LoadToken(context.Context) (*oauth2.Token, error) {
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read token file: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("unmarshal token: %w", err)
	}
	return &tok, nil
}

// SecretTokenStore keeps the gob-encoded token in Secret Manager. Name is a
// secret version such as projects/p/secrets/calendar-token/versions/latest.
type SecretTokenStore struct {
	Client *secretmanager.Client
	Name   string
	Logger *zap.Logger
}

func (s *SecretTokenStore) LoadToken(ctx context.Context) (*oauth2.Token, error) {
	secret, err := s.Client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: s.Name,
	})
	switch status.Code(err) {
	case codes.OK:
	case codes.NotFound:
		return nil, nil
	default:
		return nil, fmt.Errorf("fetch access token: %w", err)
	}
	tok := &oauth2.Token{}
	if err := gob.NewDecoder(bytes.NewReader(secret.Payload.Data)).Decode(tok); err != nil {
		return nil, fmt.Errorf("convert secret to token: %w", err)
	}
	return tok, nil
}

func (s *SecretTokenStore) SaveToken(ctx context.Context, tok *oauth2.Token) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("save token to %s: %w", s.Name, err)
		}
	}()
	s.Logger.Info("saving token", zap.String("secret", s.Name))
	var project, secretID, version string
	if err := resourcename.Sscan(s.Name, "projects/{project}/secrets/{secretID}/versions/{version}", &project, &secretID, &version); err != nil {
		return fmt.Errorf("scanning secret name: %w", err)
	}
	parent := fmt.Sprintf("projects/%s/secrets/%s", project, secretID)
	_, err = s.Client.CreateSecret(ctx, &secretmanagerpb.CreateSecretRequest{
		Parent:   fmt.Sprintf("projects/%s", project),
		SecretId: secretID,
		Secret: &secretmanagerpb.Secret{
			Replication: &secretmanagerpb.Replication{
				Replication: &secretmanagerpb.Replication_Automatic_{
					Automatic: &secretmanagerpb.Replication_Automatic{},
				},
			},
		},
	})
	if err != nil && status.Code(err) != codes.AlreadyExists {
		return fmt.Errorf("creating secret: %w", err)
	}
	var payload bytes.Buffer
	if err := gob.NewEncoder(&payload).Encode(tok); err != nil {
		return fmt.Errorf("convert access token to bytes: %w", err)
	}
	if _, err := s.Client.AddSecretVersion(ctx, &secretmanagerpb.AddSecretVersionRequest{
		Parent:  parent,
		Payload: &secretmanagerpb.SecretPayload{Data: payload.Bytes()},
	}); err != nil {
		return fmt.Errorf("store secret version: %w", err)
	}
	return nil
}
