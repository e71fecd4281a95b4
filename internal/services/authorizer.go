package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/localnerve/authorizer-go"
	"github.com/localnerve/layersync/internal/config"
	"github.com/localnerve/layersync/internal/logging"
	"github.com/localnerve/layersync/internal/utils"
)

// Authorizer validates admin sessions against the authorizer service. The
// client is created on first use, since the redirect URL comes from the
// first request.
type Authorizer struct {
	url      string
	clientID string

	once   sync.Once
	client *authorizer.AuthorizerClient
	err    error
}

// NewAuthorizer returns nil when no authorizer is configured.
func NewAuthorizer(cfg *config.Config) *Authorizer {
	if cfg.AuthzURL == "" {
		return nil
	}
	return &Authorizer{url: cfg.AuthzURL, clientID: cfg.AuthzClientID}
}

// Init creates the client once, pinging the service first.
func (a *Authorizer) Init(ctx context.Context, requestProtocol, requestHost string) error {
	a.once.Do(func() {
		if err := utils.PingAuthorizer(ctx, a.url); err != nil {
			a.err = fmt.Errorf("authorizer ping failed: %w", err)
			return
		}

		redirectURL := fmt.Sprintf("%s://%s", requestProtocol, requestHost)
		logging.Component("authorizer").Infof("Initializing Authorizer: authorizerURL=%s, clientID=%s, redirectURL=%s",
			a.url, a.clientID, redirectURL)

		client, err := authorizer.NewAuthorizerClient(a.clientID, a.url, redirectURL, nil)
		if err != nil {
			a.err = fmt.Errorf("failed to create authorizer client: %w", err)
			return
		}
		a.client = client
	})
	return a.err
}

// ValidateSession validates a session cookie for the given roles
func (a *Authorizer) ValidateSession(cookie string, roles []string) (map[string]interface{}, error) {
	if a.client == nil {
		return nil, fmt.Errorf("authorizer client not initialized")
	}

	rolesPtrs := make([]*string, len(roles))
	for i := range roles {
		rolesPtrs[i] = &roles[i]
	}

	res, err := a.client.ValidateSession(&authorizer.ValidateSessionInput{
		Cookie: cookie,
		Roles:  rolesPtrs,
	})
	if err != nil {
		return nil, fmt.Errorf("session validation failed: %w", err)
	}
	if res == nil || !res.IsValid {
		return nil, fmt.Errorf("session is not valid")
	}

	return map[string]interface{}{
		"is_valid": res.IsValid,
		"user":     res.User,
	}, nil
}
