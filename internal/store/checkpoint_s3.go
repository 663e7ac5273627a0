package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"chunkscope/internal/model"
	"chunkscope/internal/ports"
)

// Grounded on the teacher's internal/objectstore/s3.go S3Store: same
// awsconfig.LoadDefaultConfig construction and fullKey prefix scheme, pared
// down to the Get/Put pair a checkpoint store needs.

type s3CheckpointStore struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3CheckpointStore builds an S3-backed ports.CheckpointStore. region
// may be empty to use the SDK's default resolution chain (env, shared
// config, IMDS).
func NewS3CheckpointStore(ctx context.Context, bucket, prefix, region string) (ports.CheckpointStore, error) {
	if bucket == "" {
		return nil, errors.New("s3 checkpoint bucket is required")
	}
	var awsOpts []func(*awsconfig.LoadOptions) error
	if region != "" {
		awsOpts = append(awsOpts, awsconfig.WithRegion(region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &s3CheckpointStore{
		client: s3.NewFromConfig(awsCfg),
		bucket: bucket,
		prefix: strings.TrimSuffix(prefix, "/"),
	}, nil
}

func (s *s3CheckpointStore) fullKey(runID model.RunID) string {
	key := string(runID) + ".json"
	if s.prefix == "" {
		return key
	}
	return s.prefix + "/" + key
}

func (s *s3CheckpointStore) Save(ctx context.Context, cp model.Checkpoint) error {
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.fullKey(cp.RunID)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("s3 put checkpoint: %w", err)
	}
	return nil
}

func (s *s3CheckpointStore) Load(ctx context.Context, runID model.RunID) (model.Checkpoint, bool, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.fullKey(runID)),
	})
	if err != nil {
		if isNotFound(err) {
			return model.Checkpoint{}, false, nil
		}
		return model.Checkpoint{}, false, fmt.Errorf("s3 get checkpoint: %w", err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return model.Checkpoint{}, false, err
	}
	var cp model.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return model.Checkpoint{}, false, nil
	}
	return cp, true, nil
}

func isNotFound(err error) bool {
	var nsk *s3types.NoSuchKey
	var nf *s3types.NotFound
	return errors.As(err, &nsk) || errors.As(err, &nf)
}
