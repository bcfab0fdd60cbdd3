package bundle

import (
	"context"
	"fmt"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// fetchGCS downloads a gs://bucket/object bundle to dest. Credentials come
// from GOOGLE_APPLICATION_CREDENTIALS when set, otherwise the host's
// default credentials (deploy hosts usually run with a bound service
// account).
func fetchGCS(ctx context.Context, rawURL, dest string) error {
	bucket, object, err := splitGCSURL(rawURL)
	if err != nil {
		return err
	}

	var opts []option.ClientOption
	if keyPath := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); keyPath != "" {
		if _, err := os.Stat(keyPath); os.IsNotExist(err) {
			return fmt.Errorf("service account key not found at %s", keyPath)
		}
		opts = append(opts, option.WithCredentialsFile(keyPath))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return fmt.Errorf("cannot create GCS client: %w", err)
	}
	defer client.Close()

	r, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return fmt.Errorf("cannot open gs://%s/%s: %w", bucket, object, err)
	}
	defer r.Close()

	return copyWithProgress(r, dest, r.Attrs.Size)
}

// splitGCSURL splits gs://bucket/path/to/object into bucket and object.
func splitGCSURL(rawURL string) (bucket, object string, err error) {
	rest := strings.TrimPrefix(rawURL, "gs://")
	bucket, object, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || object == "" {
		return "", "", fmt.Errorf("invalid GCS URL %q (expected gs://bucket/object)", rawURL)
	}
	return bucket, object, nil
}
