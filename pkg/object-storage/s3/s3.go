package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type S3 struct {
	Endpoint     string
	Region       string
	Bucket       string
	StaticDomain string
	ak           string
	sk           string
	pathStyle    bool
	cli          *s3.Client
}

type Option func(*S3)

// WithPathStyle 强制使用路径样式 URL（endpoint/bucket 而不是 bucket.endpoint），MinIO 需要
func WithPathStyle(enable bool) Option {
	return func(s *S3) {
		s.pathStyle = enable
	}
}

// WithStaticDomain makes PublicURL build urls on a CDN or public bucket domain.
func WithStaticDomain(domain string) Option {
	return func(s *S3) {
		s.StaticDomain = strings.TrimSuffix(domain, "/")
	}
}

func NewS3Client(endpoint, region, bucket, ak, sk string, opts ...Option) *S3 {
	cli := &S3{
		Endpoint: endpoint,
		Region:   region,
		Bucket:   bucket,
		ak:       ak,
		sk:       sk,
	}
	for _, opt := range opts {
		opt(cli)
	}

	if _, err := cli.DefaultConfig(context.Background()); err != nil {
		panic(err)
	}

	return cli
}

func (s *S3) DefaultConfig(ctx context.Context) (aws.Config, error) {
	cfg, err := config.LoadDefaultConfig(
		ctx,
		config.WithCredentialsProvider(credentials.StaticCredentialsProvider{
			Value: aws.Credentials{
				AccessKeyID: s.ak, SecretAccessKey: s.sk,
			},
		}),
		config.WithRegion(s.Region),
		config.WithEndpointResolverWithOptions(aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{
				URL:           s.Endpoint,
				SigningRegion: s.Region,
			}, nil
		})))
	if err != nil {
		return aws.Config{}, err
	}

	s.cli = s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = s.pathStyle
	})
	return cfg, nil
}

func (s *S3) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.cli.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(strings.TrimPrefix(key, "/")),
	})
	if err == nil {
		return true, nil
	}

	var notFound *s3types.NotFound
	if errors.As(err, &notFound) {
		return false, nil
	}
	return false, err
}

// Put uploads body under key. Multipart is handled by the s3 manager for large recordings.
func (s *S3) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	s3Manager := manager.NewUploader(s.cli)
	_, err := s3Manager.Upload(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.Bucket),
		Key:           aws.String(strings.TrimPrefix(key, "/")),
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: size,
	})
	if err != nil {
		return err
	}
	return nil
}

// PublicURL derives the stable retrieval url of key.
func (s *S3) PublicURL(key string) string {
	key = strings.TrimPrefix(key, "/")
	if s.StaticDomain != "" {
		return s.StaticDomain + "/" + key
	}
	return PathStyleURL(s.Endpoint, s.Bucket, key)
}

func PathStyleURL(endpoint, bucket, key string) string {
	return fmt.Sprintf("%s/%s/%s", strings.TrimSuffix(endpoint, "/"), bucket, strings.TrimPrefix(key, "/"))
}
