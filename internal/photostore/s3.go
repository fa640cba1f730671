package photostore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/erazemk/sledljivost/internal/store"
)

const uploadedByKey = "uploaded-by"

// S3Config selects the bucket. Credentials come from the default AWS chain.
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string // optional, for MinIO and other S3-compatible servers
	PathStyle bool
}

// S3 stores photos as objects under items/<upc>/photo.
type S3 struct {
	client *s3.Client
	bucket string
}

// NewS3 builds an S3 photo store. Extra options are applied to the client.
func NewS3(ctx context.Context, cfg S3Config, optFns ...func(*s3.Options)) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	opts := append([]func(*s3.Options){func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}}, optFns...)

	return &S3{client: s3.NewFromConfig(awsCfg, opts...), bucket: cfg.Bucket}, nil
}

func objectKey(upc uint64) string {
	return "items/" + strconv.FormatUint(upc, 10) + "/photo"
}

func (s *S3) Put(ctx context.Context, upc uint64, data []byte, mime, uploadedBy string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(objectKey(upc)),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(mime),
		Metadata:      map[string]string{uploadedByKey: uploadedBy},
	})
	if err != nil {
		return fmt.Errorf("storing photo: %w", err)
	}
	return nil
}

func (s *S3) Get(ctx context.Context, upc uint64) (*store.Photo, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(upc)),
	})
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting photo: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("reading photo: %w", err)
	}

	p := &store.Photo{
		UPC:        upc,
		Data:       data,
		MIME:       aws.ToString(out.ContentType),
		UploadedBy: out.Metadata[uploadedByKey],
		UpdatedAt:  time.Now().UTC(),
	}
	if out.LastModified != nil {
		p.UpdatedAt = *out.LastModified
	}
	return p, nil
}

func (s *S3) Driver() string { return "s3" }

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var re *awshttp.ResponseError
	return errors.As(err, &re) && re.HTTPStatusCode() == http.StatusNotFound
}
