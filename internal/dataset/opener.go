package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"sync"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// ErrNotExist is returned by Opener.Stat when the extract is absent.
var ErrNotExist = errors.New("dataset: source does not exist")

// Opener resolves extract paths. Local paths go to the filesystem; gs://bucket/object to Cloud Storage.
type Opener interface {
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	Stat(ctx context.Context, path string) error
	List(ctx context.Context, dir string) ([]string, error)
}

// StorageOpener creates its Cloud Storage client on first use, so purely local runs need no credentials.
type StorageOpener struct {
	mu  sync.Mutex
	gcs *storage.Client
}

func NewStorageOpener() *StorageOpener { return &StorageOpener{} }

// NewStorageOpenerWithClient uses an existing client, e.g. one pointed at an emulator.
func NewStorageOpenerWithClient(c *storage.Client) *StorageOpener { return &StorageOpener{gcs: c} }

func (o *StorageOpener) client(ctx context.Context) (*storage.Client, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.gcs != nil {
		return o.gcs, nil
	}
	opts := []option.ClientOption{option.WithScopes(storage.ScopeReadOnly)}
	if strings.TrimSpace(os.Getenv("STORAGE_EMULATOR_HOST")) != "" {
		opts = []option.ClientOption{option.WithoutAuthentication()}
	}
	c, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("dataset: storage client: %w", err)
	}
	o.gcs = c
	return c, nil
}

// splitGCS parses gs://bucket/object.
func splitGCS(path string) (bucket, object string, ok bool) {
	rest, found := strings.CutPrefix(path, "gs://")
	if !found {
		return "", "", false
	}
	bucket, object, _ = strings.Cut(rest, "/")
	return bucket, object, bucket != ""
}

func (o *StorageOpener) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	if bucket, object, ok := splitGCS(path); ok {
		c, err := o.client(ctx)
		if err != nil {
			return nil, err
		}
		r, err := c.Bucket(bucket).Object(object).NewReader(ctx)
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, ErrNotExist
		}
		return r, err
	}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotExist
	}
	return f, err
}

func (o *StorageOpener) Stat(ctx context.Context, path string) error {
	if strings.TrimSpace(path) == "" {
		return ErrNotExist
	}
	if bucket, object, ok := splitGCS(path); ok {
		c, err := o.client(ctx)
		if err != nil {
			return err
		}
		_, err = c.Bucket(bucket).Object(object).Attrs(ctx)
		if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
			return ErrNotExist
		}
		return err
	}
	st, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotExist
	}
	if err != nil {
		return err
	}
	if st.IsDir() {
		return fmt.Errorf("dataset: %s is a directory", path)
	}
	return nil
}

// List returns the file paths directly under dir, or the object paths under a gs:// prefix.
func (o *StorageOpener) List(ctx context.Context, dir string) ([]string, error) {
	if bucket, prefix, ok := splitGCS(dir); ok {
		c, err := o.client(ctx)
		if err != nil {
			return nil, err
		}
		if prefix != "" && !strings.HasSuffix(prefix, "/") {
			prefix += "/"
		}
		it := c.Bucket(bucket).Objects(ctx, &storage.Query{Prefix: prefix, Delimiter: "/"})
		var out []string
		for {
			attrs, err := it.Next()
			if errors.Is(err, iterator.Done) {
				break
			}
			if err != nil {
				return nil, fmt.Errorf("dataset: list %s: %w", dir, err)
			}
			if attrs.Name == "" {
				continue
			}
			out = append(out, "gs://"+bucket+"/"+attrs.Name)
		}
		return out, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("dataset: list %s: %w", dir, err)
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		out = append(out, strings.TrimRight(dir, "/")+"/"+e.Name())
	}
	return out, nil
}

func (o *StorageOpener) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.gcs == nil {
		return nil
	}
	err := o.gcs.Close()
	o.gcs = nil
	return err
}
