package main

import (
	"context"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/redis/go-redis/v9"

	"github.com/vango-dev/stackkit/internal/config"
	"github.com/vango-dev/stackkit/internal/errors"
	"github.com/vango-dev/stackkit/pkg/persist"
)

// openStore builds the store selected by cfg. It returns a nil store for
// kind none. closeFn releases the client.
func openStore(ctx context.Context, cfg *config.Config) (store persist.Store, closeFn func() error, err error) {
	noop := func() error { return nil }
	p := cfg.Persist

	switch p.Kind {
	case config.PersistMemory:
		return persist.NewMemoryStore(), noop, nil

	case config.PersistS3:
		region := p.Region
		if region == "" {
			region = os.Getenv("AWS_REGION")
		}
		if region == "" {
			region = "us-east-1"
		}
		opts := s3.Options{
			Region:      region,
			Credentials: aws.NewCredentialsCache(envCredentials()),
		}
		if p.Endpoint != "" {
			opts.BaseEndpoint = aws.String(p.Endpoint)
			opts.UsePathStyle = true
		}
		return persist.NewS3Store(s3.New(opts), p.Bucket, p.Prefix), noop, nil

	case config.PersistRedis:
		ttl, err := cfg.TTL()
		if err != nil {
			return nil, nil, err
		}
		client := redis.NewClient(&redis.Options{
			Addr:     p.RedisAddr,
			Password: os.Getenv("STACKKIT_REDIS_PASSWORD"),
			DB:       p.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, errors.New("P001").WithDetailf("redis at %s", p.RedisAddr).Wrap(err)
		}
		return persist.NewRedisStore(client, p.Prefix, ttl), client.Close, nil
	}
	return nil, noop, nil
}

// envCredentials reads the standard AWS environment variables.
func envCredentials() aws.CredentialsProvider {
	return aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
		id, secret := os.Getenv("AWS_ACCESS_KEY_ID"), os.Getenv("AWS_SECRET_ACCESS_KEY")
		if id == "" || secret == "" {
			return aws.Credentials{}, errors.New("P001").WithDetail("AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must be set")
		}
		return aws.Credentials{
			AccessKeyID:     id,
			SecretAccessKey: secret,
			SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
			Source:          "environment",
		}, nil
	})
}
