package devops

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

var (
	mu         sync.Mutex
	parameters = map[string]string{}
)

// LoadParameter fetches a SecureString parameter from SSM. Values are
// cached for the life of the process.
func LoadParameter(ctx context.Context, name string, region string) (string, error) {
	mu.Lock()
	defer mu.Unlock()
	if v, ok := parameters[name]; ok {
		return v, nil
	}

	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return "", fmt.Errorf("load aws config: %w", err)
	}

	client := ssm.NewFromConfig(cfg)
	out, err := client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("get parameter %s: %w", name, err)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return "", fmt.Errorf("parameter %s has no value", name)
	}

	parameters[name] = *out.Parameter.Value
	return parameters[name], nil
}
