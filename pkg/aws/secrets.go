package aws

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// DefaultSecretsNamespace prefixes every storefront secret name.
const DefaultSecretsNamespace = "storefront"

// SecretsAPI is the subset of the Secrets Manager client the storefront reads with.
type SecretsAPI interface {
	GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// SecretsClient resolves storefront secrets stored as "<namespace>/<key>". Values are cached
// for the process lifetime.
type SecretsClient struct {
	client    SecretsAPI
	namespace string

	mu    sync.RWMutex
	cache map[string]string
}

func NewSecretsClient(cfg sdkaws.Config, namespace string) *SecretsClient {
	return NewSecretsClientWithAPI(secretsmanager.NewFromConfig(cfg), namespace)
}

func NewSecretsClientWithAPI(api SecretsAPI, namespace string) *SecretsClient {
	namespace = strings.Trim(namespace, "/")
	if namespace == "" {
		namespace = DefaultSecretsNamespace
	}
	return &SecretsClient{client: api, namespace: namespace, cache: make(map[string]string)}
}

// Name returns the full secret id for key.
func (s *SecretsClient) Name(key string) string {
	return s.namespace + "/" + key
}

// Secret returns the string value of the namespaced secret key.
func (s *SecretsClient) Secret(ctx context.Context, key string) (string, error) {
	name := s.Name(key)

	s.mu.RLock()
	v, ok := s.cache[name]
	s.mu.RUnlock()
	if ok {
		return v, nil
	}

	out, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: &name})
	if err != nil {
		return "", fmt.Errorf("failed to get secret %s: %w", name, err)
	}
	if out.SecretString == nil {
		return "", fmt.Errorf("secret %s has no string value", name)
	}

	s.mu.Lock()
	s.cache[name] = *out.SecretString
	s.mu.Unlock()
	return *out.SecretString, nil
}

// SecretFields decodes a secret holding a flat JSON object, such as a credentials bundle.
func (s *SecretsClient) SecretFields(ctx context.Context, key string) (map[string]string, error) {
	raw, err := s.Secret(ctx, key)
	if err != nil {
		return nil, err
	}
	var fields map[string]string
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, fmt.Errorf("secret %s is not a JSON object: %w", s.Name(key), err)
	}
	return fields, nil
}
