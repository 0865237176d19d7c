// Package publish uploads a rendered deck directory to S3 and invalidates
// the CloudFront paths that changed, so the deck URL can be handed out
// before the talk.
package publish

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	cftypes "github.com/aws/aws-sdk-go-v2/service/cloudfront/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// s3Uploader and invalidator narrow the AWS clients to what the publisher
// calls, so tests can stub them.
type s3Uploader interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type invalidator interface {
	CreateInvalidation(ctx context.Context, in *cloudfront.CreateInvalidationInput, opts ...func(*cloudfront.Options)) (*cloudfront.CreateInvalidationOutput, error)
}

// Options configures a deck publish.
type Options struct {
	Bucket         string
	Region         string
	Prefix         string // key prefix inside the bucket, e.g. "talks/bayes"
	CDNDomain      string // used only to log the public URL
	DistributionID string // empty skips invalidation
}

// Publisher uploads rendered decks.
type Publisher struct {
	s3Client s3Uploader
	cfClient invalidator
	opts     Options
}

// New wires a publisher onto existing clients.
func New(s3Client s3Uploader, cfClient invalidator, opts Options) (*Publisher, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("publish bucket is required")
	}
	return &Publisher{s3Client: s3Client, cfClient: cfClient, opts: opts}, nil
}

// NewWithAWS builds clients from the default credential chain.
func NewWithAWS(ctx context.Context, opts Options) (*Publisher, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(opts.Region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	var cf invalidator
	if opts.DistributionID != "" {
		// CloudFront is a global service pinned to us-east-1.
		cfCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion("us-east-1"))
		if err != nil {
			return nil, fmt.Errorf("loading CloudFront AWS config: %w", err)
		}
		cf = cloudfront.NewFromConfig(cfCfg)
	}

	return New(s3.NewFromConfig(awsCfg), cf, opts)
}

// Result reports what a publish touched.
type Result struct {
	Uploaded  []string `json:"uploaded"` // bucket keys
	PublicURL string   `json:"public_url"`
}

// UploadDir walks the rendered output directory and uploads every file with
// its content type, then invalidates the uploaded paths when a CloudFront
// distribution is configured.
func (p *Publisher) UploadDir(ctx context.Context, dir string) (*Result, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("output directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	result := &Result{}
	err = filepath.WalkDir(dir, func(file string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, file)
		if err != nil {
			return err
		}
		key := path.Join(p.opts.Prefix, filepath.ToSlash(rel))

		data, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("reading %s: %w", file, err)
		}

		_, err = p.s3Client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:       aws.String(p.opts.Bucket),
			Key:          aws.String(key),
			Body:         bytes.NewReader(data),
			ContentType:  aws.String(contentTypeFor(file)),
			CacheControl: aws.String("public, max-age=300"),
		})
		if err != nil {
			return fmt.Errorf("uploading %s: %w", key, err)
		}
		log.Printf("[publish] uploaded s3://%s/%s (%d bytes)", p.opts.Bucket, key, len(data))
		result.Uploaded = append(result.Uploaded, key)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(result.Uploaded) == 0 {
		return nil, fmt.Errorf("nothing to upload in %s", dir)
	}

	if p.opts.DistributionID != "" && p.cfClient != nil {
		if err := p.invalidate(ctx, result.Uploaded); err != nil {
			return nil, err
		}
	}

	result.PublicURL = p.publicURL()
	log.Printf("[publish] deck available at %s", result.PublicURL)
	return result, nil
}

func (p *Publisher) invalidate(ctx context.Context, keys []string) error {
	items := make([]string, len(keys))
	for i, k := range keys {
		items[i] = "/" + k
	}
	_, err := p.cfClient.CreateInvalidation(ctx, &cloudfront.CreateInvalidationInput{
		DistributionId: aws.String(p.opts.DistributionID),
		InvalidationBatch: &cftypes.InvalidationBatch{
			CallerReference: aws.String(uuid.NewString()),
			Paths: &cftypes.Paths{
				Quantity: aws.Int32(int32(len(items))),
				Items:    items,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("invalidating CloudFront paths: %w", err)
	}
	log.Printf("[publish] invalidated %d paths on distribution %s", len(items), p.opts.DistributionID)
	return nil
}

func (p *Publisher) publicURL() string {
	key := path.Join(p.opts.Prefix, "index.html")
	if p.opts.CDNDomain != "" {
		return fmt.Sprintf("https://%s/%s", p.opts.CDNDomain, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", p.opts.Bucket, p.opts.Region, key)
}

func contentTypeFor(file string) string {
	switch strings.ToLower(filepath.Ext(file)) {
	case ".html":
		return "text/html; charset=utf-8"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".svg":
		return "image/svg+xml"
	case ".css":
		return "text/css"
	case ".js":
		return "application/javascript"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}
