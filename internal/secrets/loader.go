package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// ErrNoValue is returned when a parameter exists but carries no value.
var ErrNoValue = errors.New("secret has no value")

// ParameterGetter is the subset of the SSM client used to read parameters.
type ParameterGetter interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// Source describes where a secret comes from. The first non-empty field wins:
// a literal value, then a file path (for local development), then an SSM
// parameter name (for production).
type Source struct {
	Value        string
	File         string
	SSMParameter string
}

// Empty reports whether no source is configured.
func (s Source) Empty() bool {
	return s.Value == "" && s.File == "" && s.SSMParameter == ""
}

// Loader resolves secrets. The SSM client is created on first use when none is supplied.
type Loader struct {
	client ParameterGetter
}

// NewLoader creates a loader. client may be nil.
func NewLoader(client ParameterGetter) *Loader {
	return &Loader{client: client}
}

// Load resolves src. An empty source yields an empty string and no error.
func (l *Loader) Load(ctx context.Context, src Source) (string, error) {
	switch {
	case src.Value != "":
		return strings.TrimSpace(src.Value), nil
	case src.File != "":
		return loadFromFile(src.File)
	case src.SSMParameter != "":
		return l.loadFromSSM(ctx, src.SSMParameter)
	}
	return "", nil
}

// loadFromFile reads a secret from a file path
func loadFromFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read secret file: %w", err)
	}
	value := strings.TrimSpace(string(data))
	if value == "" {
		return "", fmt.Errorf("%s: %w", path, ErrNoValue)
	}
	return value, nil
}

// loadFromSSM fetches a decrypted parameter from AWS SSM Parameter Store
func (l *Loader) loadFromSSM(ctx context.Context, name string) (string, error) {
	if l.client == nil {
		awsConfig, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to load AWS config: %w", err)
		}
		l.client = ssm.NewFromConfig(awsConfig)
	}

	output, err := l.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("failed to load %s from SSM: %w", name, err)
	}
	if output.Parameter == nil || output.Parameter.Value == nil {
		return "", fmt.Errorf("parameter %s: %w", name, ErrNoValue)
	}
	return strings.TrimSpace(*output.Parameter.Value), nil
}
