package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/blade-go/blade"
	"github.com/blade-go/blade/internal/config"
	"github.com/blade-go/blade/internal/errors"
	"github.com/blade-go/blade/pkg/aop"
	"github.com/blade-go/blade/pkg/discovery"
)

// loadConfig reads the configuration named by --config, else the one in
// the project root. Without any configuration file the defaults apply,
// relative to the working directory.
func loadConfig(flags *globalFlags) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if flags.config != "" {
		cfg, err = config.LoadFile(flags.config)
	} else {
		cfg, err = config.LoadFromWorkingDir()
		if errors.HasCode(err, errors.CodeConfigNotFound) {
			cfg, err = config.New(), nil
		}
	}
	if err != nil {
		return nil, err
	}
	if flags.debug {
		cfg.Debug = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// manifestLocation returns --manifest, else the configured manifest path.
func manifestLocation(cfg *config.Config, flags *globalFlags) string {
	if flags.manifest != "" {
		return flags.manifest
	}
	return cfg.ManifestPath()
}

// loadManifest reads a manifest from a file or an s3:// URL.
func loadManifest(ctx context.Context, location string, flags *globalFlags) (*discovery.Manifest, error) {
	var m *discovery.Manifest
	var err error
	if strings.HasPrefix(location, "s3://") {
		bucket, key, ok := discovery.ParseS3URL(location)
		if !ok {
			return nil, errors.New(errors.CodeManifestParse).
				WithDetailf("invalid S3 URL %q", location).
				WithSuggestion("Use s3://bucket/key")
		}
		m, err = discovery.LoadManifestS3(ctx, newS3Client(flags.region), bucket, key)
	} else {
		m, err = discovery.LoadManifest(location)
	}
	if err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// saveManifest writes a manifest to a file or uploads it to an s3:// URL.
func saveManifest(ctx context.Context, m *discovery.Manifest, location string, flags *globalFlags) error {
	if !strings.HasPrefix(location, "s3://") {
		return m.WriteFile(location)
	}
	bucket, key, ok := discovery.ParseS3URL(location)
	if !ok {
		return errors.New(errors.CodeManifestParse).
			WithDetailf("invalid S3 URL %q", location)
	}
	var buf bytes.Buffer
	if err := m.Encode(&buf, discovery.FormatFor(key)); err != nil {
		return err
	}
	_, err := newS3Client(flags.region).PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(buf.Bytes()),
	})
	if err != nil {
		return errors.New(errors.CodeManifestParse).
			WithDetailf("upload to %s", location).
			Wrap(err)
	}
	return nil
}

// newS3Client builds a client from the standard AWS environment variables.
func newS3Client(region string) *s3.Client {
	if region == "" {
		region = os.Getenv("AWS_REGION")
	}
	opts := s3.Options{
		Region:      region,
		Credentials: aws.NewCredentialsCache(aws.CredentialsProviderFunc(envCredentials)),
	}
	if endpoint := os.Getenv("AWS_ENDPOINT_URL_S3"); endpoint != "" {
		opts.BaseEndpoint = aws.String(endpoint)
		opts.UsePathStyle = true
	}
	return s3.New(opts)
}

func envCredentials(context.Context) (aws.Credentials, error) {
	id, secret := os.Getenv("AWS_ACCESS_KEY_ID"), os.Getenv("AWS_SECRET_ACCESS_KEY")
	if id == "" || secret == "" {
		return aws.Credentials{}, fmt.Errorf("AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must be set")
	}
	return aws.Credentials{
		AccessKeyID:     id,
		SecretAccessKey: secret,
		SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
		Source:          "environment",
	}, nil
}

// newLogger logs warnings and errors to w, everything with --debug.
func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// buildApp initializes an application from manifest records. Packages come
// from the configuration; without any, every package of the module is
// scanned. Aspects named in the manifest are registered as pass-through
// interceptors since their implementations live in the application.
func buildApp(ctx context.Context, cfg *config.Config, m *discovery.Manifest, logger *slog.Logger) (*blade.Blade, error) {
	app := blade.New(
		blade.WithConfig(cfg),
		blade.WithDiscoverer(m.Catalog()),
		blade.WithLogger(logger),
	)

	pkgs := app.Packages()
	if pkgs.Base == "" && len(pkgs.Routes) == 0 && len(pkgs.Interceptors) == 0 && m.Module != "" {
		all := discovery.JoinPattern(m.Module, true)
		app.Routes(all).Interceptor(all)
		if len(cfg.Ioc) == 0 {
			app.Ioc(all)
		}
	}

	passThrough := aop.InterceptorFunc(func(_ *aop.Invocation, next func() error) error {
		return next()
	})
	for _, name := range aspectNames(m) {
		app.Aspect(name, passThrough)
	}

	if err := app.Init(ctx); err != nil {
		return nil, err
	}
	return app, nil
}

func aspectNames(m *discovery.Manifest) []string {
	seen := make(map[string]bool)
	var names []string
	for _, t := range m.Types {
		for _, a := range t.Aspects {
			if !seen[a] {
				seen[a] = true
				names = append(names, a)
			}
		}
	}
	return names
}

// loadApp is loadConfig, loadManifest and buildApp in one step.
func loadApp(ctx context.Context, flags *globalFlags, logOut io.Writer) (*blade.Blade, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}
	m, err := loadManifest(ctx, manifestLocation(cfg, flags), flags)
	if err != nil {
		return nil, err
	}
	return buildApp(ctx, cfg, m, newLogger(logOut, cfg.Debug))
}
