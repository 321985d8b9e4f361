package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/ruteri/identity-gateway/interfaces"
)

// s3MarkerName is the object written under each user prefix on registration.
const s3MarkerName = ".gateway"

// S3Backend implements a storage driver using Amazon S3 or compatible services.
// Each user gets a key prefix inside the configured bucket.
type S3Backend struct {
	client     s3iface.S3API
	bucketName string
	prefix     string
	region     string
	log        *slog.Logger
}

// S3Userdata is the connection config produced by S3Backend.
type S3Userdata struct {
	Bucket string `json:"bucket"`
	Prefix string `json:"prefix"`
	Region string `json:"region,omitempty"`
}

// NewS3Backend creates a new S3 storage driver.
// Static credentials are used when accessKey and secretKey are provided,
// otherwise the default AWS credential chain applies.
func NewS3Backend(bucketName, prefix, region, endpoint, accessKey, secretKey string, log *slog.Logger) (*S3Backend, error) {
	cfg := aws.Config{
		Region: aws.String(region),
	}

	if endpoint != "" {
		cfg.Endpoint = aws.String(endpoint)
		cfg.S3ForcePathStyle = aws.Bool(true)
	}

	if accessKey != "" && secretKey != "" {
		cfg.Credentials = credentials.NewStaticCredentials(accessKey, secretKey, "")
	}

	sess, err := session.NewSession(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return NewS3BackendWithClient(s3.New(sess), bucketName, prefix, region, log), nil
}

// NewS3BackendWithClient creates an S3 driver around an existing client.
func NewS3BackendWithClient(client s3iface.S3API, bucketName, prefix, region string, log *slog.Logger) *S3Backend {
	return &S3Backend{
		client:     client,
		bucketName: bucketName,
		prefix:     strings.Trim(prefix, "/"),
		region:     region,
		log:        log,
	}
}

// Register writes the marker object under the user's prefix.
func (b *S3Backend) Register(ctx context.Context, user interfaces.DriverUserView) (*interfaces.RegisterResult, error) {
	userPrefix, err := b.userPrefix(user.Address)
	if err != nil {
		return nil, err
	}

	_, err = b.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucketName),
		Key:         aws.String(path.Join(userPrefix, s3MarkerName)),
		Body:        bytes.NewReader([]byte(user.Address)),
		ContentType: aws.String("text/plain"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to write S3 marker: %w", err)
	}

	b.log.Debug("Created S3 user prefix",
		slog.String("bucket", b.bucketName),
		slog.String("prefix", userPrefix))

	return &interfaces.RegisterResult{Userdata: mustUserdata(S3Userdata{
		Bucket: b.bucketName,
		Prefix: userPrefix + "/",
		Region: b.region,
	})}, nil
}

// PostRegisterCheck confirms the marker object is readable.
func (b *S3Backend) PostRegisterCheck(ctx context.Context, user interfaces.DriverUserView, userdata json.RawMessage) error {
	userPrefix, err := b.userPrefix(user.Address)
	if err != nil {
		return err
	}

	_, err = b.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucketName),
		Key:    aws.String(path.Join(userPrefix, s3MarkerName)),
	})
	if err != nil {
		return fmt.Errorf("S3 marker not readable: %w", err)
	}
	return nil
}

// Unregister deletes every object under the user's prefix.
func (b *S3Backend) Unregister(ctx context.Context, conn interfaces.ConnectionView) error {
	userPrefix, err := b.userPrefix(conn.UserAddress)
	if err != nil {
		return err
	}

	var objects []*s3.ObjectIdentifier
	err = b.client.ListObjectsV2PagesWithContext(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucketName),
		Prefix: aws.String(userPrefix + "/"),
	}, func(page *s3.ListObjectsV2Output, lastPage bool) bool {
		for _, obj := range page.Contents {
			objects = append(objects, &s3.ObjectIdentifier{Key: obj.Key})
		}
		return true
	})
	if err != nil {
		return fmt.Errorf("failed to list S3 objects: %w", err)
	}

	// DeleteObjects accepts at most 1000 keys per call
	for start := 0; start < len(objects); start += 1000 {
		end := start + 1000
		if end > len(objects) {
			end = len(objects)
		}

		out, err := b.client.DeleteObjectsWithContext(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(b.bucketName),
			Delete: &s3.Delete{Objects: objects[start:end], Quiet: aws.Bool(true)},
		})
		if err != nil {
			return fmt.Errorf("failed to delete S3 objects: %w", err)
		}
		if len(out.Errors) > 0 {
			return fmt.Errorf("failed to delete %d S3 objects, first: %s", len(out.Errors), aws.StringValue(out.Errors[0].Message))
		}
	}

	b.log.Debug("Removed S3 user prefix",
		slog.String("bucket", b.bucketName),
		slog.String("prefix", userPrefix),
		slog.Int("objects", len(objects)))
	return nil
}

// Available checks if the bucket is reachable.
func (b *S3Backend) Available(ctx context.Context) bool {
	_, err := b.client.HeadBucketWithContext(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(b.bucketName),
	})
	if err != nil {
		b.log.Debug("S3 backend unavailable", slog.String("bucket", b.bucketName), "err", err)
		return false
	}
	return true
}

func (b *S3Backend) userPrefix(address string) (string, error) {
	ns, err := userNamespace(address)
	if err != nil {
		return "", err
	}
	if b.prefix == "" {
		return ns, nil
	}
	return b.prefix + "/" + ns, nil
}
