package main

import (
	"context"
	"fmt"
	"path"

	"dagger/aisearch/internal/dagger"
)

// bucketCreds holds the S3-compatible bucket the release artifacts go to.
type bucketCreds struct {
	endpoint        *dagger.Secret
	bucket          *dagger.Secret
	accessKeyID     *dagger.Secret
	secretAccessKey *dagger.Secret
}

// upload syncs artifacts into the bucket under prefix.
func (a *Aisearch) upload(ctx context.Context, creds bucketCreds, artifacts *dagger.Directory, prefix string) error {
	bucketName, err := creds.bucket.Plaintext(ctx)
	if err != nil {
		return fmt.Errorf("failed to get bucket name: %w", err)
	}

	endpointURL, err := creds.endpoint.Plaintext(ctx)
	if err != nil {
		return fmt.Errorf("failed to get endpoint: %w", err)
	}

	destination := fmt.Sprintf("s3://%s", path.Join(bucketName, prefix))

	_, err = dag.Container().
		From("amazon/aws-cli:latest").
		WithSecretVariable("AWS_ACCESS_KEY_ID", creds.accessKeyID).
		WithSecretVariable("AWS_SECRET_ACCESS_KEY", creds.secretAccessKey).
		WithEnvVariable("AWS_DEFAULT_REGION", "auto").
		WithDirectory("/artifacts", artifacts).
		WithWorkdir("/artifacts").
		WithExec([]string{
			"aws", "s3", "sync", ".",
			destination,
			"--endpoint-url", endpointURL,
		}).
		Sync(ctx)
	if err != nil {
		return fmt.Errorf("failed to upload artifacts to %s: %w", prefix, err)
	}

	return nil
}

// ReleaseLatest builds versioned aisearch binaries and uploads them under
// both the version prefix and "latest".
func (a *Aisearch) ReleaseLatest(
	ctx context.Context,

	// Version string (e.g., "v1.0.0")
	version string,

	// Git commit SHA
	commit string,

	// Bucket endpoint URL
	endpoint *dagger.Secret,

	// Bucket name
	bucket *dagger.Secret,

	// Bucket access key ID
	accessKeyID *dagger.Secret,

	// Bucket secret access key
	secretAccessKey *dagger.Secret,
) (*dagger.Directory, error) {
	creds := bucketCreds{endpoint, bucket, accessKeyID, secretAccessKey}
	artifacts := a.BuildRelease(ctx, version, commit)

	for _, prefix := range []string{version, "latest"} {
		if err := a.upload(ctx, creds, artifacts, prefix); err != nil {
			return artifacts, err
		}
	}

	return artifacts, nil
}

// Nightly builds and uploads nightly artifacts
func (a *Aisearch) Nightly(
	ctx context.Context,

	// Git commit SHA
	commit string,

	// Bucket endpoint URL
	endpoint *dagger.Secret,

	// Bucket name
	bucket *dagger.Secret,

	// Bucket access key ID
	accessKeyID *dagger.Secret,

	// Bucket secret access key
	secretAccessKey *dagger.Secret,
) (*dagger.Directory, error) {
	creds := bucketCreds{endpoint, bucket, accessKeyID, secretAccessKey}
	artifacts := a.BuildRelease(ctx, "nightly", commit)
	return artifacts, a.upload(ctx, creds, artifacts, "nightly")
}
